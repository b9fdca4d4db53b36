package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/koopa0/shopfront/pkg/apperr"
)

// errorEnvelope is a single "error" object with code, message, and
// optional fields.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// respondError maps an *apperr.Error to its HTTP status and envelope.
// Credit-card fields never reach an *apperr.Error in the first place, so
// there is nothing to scrub here.
func respondError(w http.ResponseWriter, logger *slog.Logger, appErr *apperr.Error) {
	respondJSON(w, logger, appErr.HTTPStatus(), errorEnvelope{
		Error: errorBody{Code: appErr.Code, Message: appErr.Message, Fields: appErr.Fields},
	})
}

func respondInternal(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("unhandled error", "error", err)
	respondError(w, logger, apperr.Internal(err))
}

func decodeJSON(r *http.Request, dst any) *apperr.Error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.CodeValidationError, "invalid request body")
	}
	return nil
}
