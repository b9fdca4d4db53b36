package httpapi

import (
	"net/http"

	"github.com/koopa0/shopfront/internal/command"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerResponse struct {
	UserID string `json:"userId"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}

	result, appErr := s.Handlers.Register(r.Context(), command.RegisterInput{
		Email: req.Email, Password: req.Password, Name: req.Name,
	})
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, registerResponse{UserID: result.UserID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}

	result, appErr := s.Handlers.Login(r.Context(), command.LoginInput{Email: req.Email, Password: req.Password})
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, loginResponse{
		UserID: result.UserID, AccessToken: result.AccessToken, RefreshToken: result.RefreshToken,
	})
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if err := s.Handlers.Logout(r.Context(), req.RefreshToken); err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	accessToken, appErr := s.Handlers.RefreshAccessToken(r.Context(), req.RefreshToken)
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, loginResponse{AccessToken: accessToken})
}

type passwordResetRequestBody struct {
	Email string `json:"email"`
}

// handlePasswordResetRequest always returns 200 — it never leaks whether
// an email exists. The issued token is never put in the response, and
// this handler sends no email.
func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequestBody
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if _, appErr := s.Handlers.RequestPasswordReset(r.Context(), req.Email); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if appErr := s.Handlers.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if appErr := s.Handlers.VerifyEmail(r.Context(), req.Token); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}
