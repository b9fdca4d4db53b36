package httpapi

import (
	"net/http"

	"github.com/koopa0/shopfront/internal/command"
)

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := s.Handlers.Query.ListAddresses(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, addresses)
}

type addAddressRequest struct {
	Label      string `json:"label"`
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	var req addAddressRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	id, appErr := s.Handlers.AddAddress(r.Context(), userIDFromContext(r.Context()), command.AddressInput{
		Label: req.Label, Recipient: req.Recipient, Phone: req.Phone,
		Line1: req.Line1, City: req.City, PostalCode: req.PostalCode, IsDefault: req.IsDefault,
	})
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req addAddressRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	id := r.PathValue("id")
	appErr := s.Handlers.UpdateAddress(r.Context(), userIDFromContext(r.Context()), id, command.AddressInput{
		Label: req.Label, Recipient: req.Recipient, Phone: req.Phone,
		Line1: req.Line1, City: req.City, PostalCode: req.PostalCode, IsDefault: req.IsDefault,
	})
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

func (s *Server) handleRemoveAddress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if appErr := s.Handlers.RemoveAddress(r.Context(), userIDFromContext(r.Context()), id); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusNoContent, nil)
}
