package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/pkg/apperr"
)

type customerResponse struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	EmailVerified       bool   `json:"emailVerified"`
	FailedLoginAttempts int    `json:"failedLoginAttempts"`
}

func toCustomerResponse(u projection.UserRow) customerResponse {
	return customerResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
		EmailVerified: u.EmailVerified, FailedLoginAttempts: u.FailedLoginAttempts,
	}
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rows, err := s.Handlers.Query.ListUsers(r.Context(), limit, offset)
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	out := make([]customerResponse, 0, len(rows))
	for _, u := range rows {
		out = append(out, toCustomerResponse(u))
	}
	respondJSON(w, s.Logger, http.StatusOK, out)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	u, err := s.Handlers.Query.GetUserByID(r.Context(), id)
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	if u == nil {
		respondError(w, s.Logger, apperr.New(apperr.CodeUserNotFound, "user not found"))
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, toCustomerResponse(*u))
}

// handleHealth pings Postgres and Redis directly through the handlers'
// collaborators.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.Handlers.Ping(ctx); err != nil {
		respondJSON(w, s.Logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, map[string]string{"status": "ok"})
}
