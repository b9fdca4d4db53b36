package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/shopfront/internal/domain/user"
	"github.com/koopa0/shopfront/pkg/apperr"
	applogger "github.com/koopa0/shopfront/pkg/logger"
)

type ctxKey string

const ctxUserRole ctxKey = "user_role"

// loggerMiddleware assigns a request ID, lifts it into the context so the
// structured logger picks it up automatically, and logs
// method/path/status/duration.
func (s *Server) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := applogger.WithRequestID(r.Context(), requestID)

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(ww, r.WithContext(ctx))

		s.Logger.Info("http request",
			"method", r.Method, "path", r.URL.Path, "status", ww.statusCode,
			"duration", time.Since(start), "request_id", requestID,
		)
	}
}

func (s *Server) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Logger.Error("panic recovered", "error", rec, "path", r.URL.Path)
				respondError(w, s.Logger, apperr.New(apperr.CodeInternal, "internal server error"))
			}
		}()
		next(w, r)
	}
}

// requireAuth verifies the bearer access token and lifts the user ID/role
// into the request context. Public catalog GETs and the auth endpoints
// other than logout never wrap their handler in this.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, s.Logger, apperr.New(apperr.CodeInvalidToken, "missing bearer token"))
			return
		}

		claims, appErr := s.Handlers.Signer.Verify(token)
		if appErr != nil {
			respondError(w, s.Logger, appErr)
			return
		}

		ctx := applogger.WithUserID(r.Context(), claims.UserID)
		ctx = context.WithValue(ctx, ctxKey("user_id"), claims.UserID)
		ctx = context.WithValue(ctx, ctxUserRole, claims.Role)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin additionally enforces role=ADMIN.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ctxUserRole).(string)
		if role != string(user.RoleAdmin) {
			respondError(w, s.Logger, apperr.New(apperr.CodeForbidden, "admin role required"))
			return
		}
		next(w, r)
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey("user_id")).(string)
	return id
}
