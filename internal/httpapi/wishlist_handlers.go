package httpapi

import "net/http"

func (s *Server) handleListWishlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Handlers.Query.ListWishlist(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, entries)
}

type wishlistItemRequest struct {
	ProductID string `json:"productId"`
}

func (s *Server) handleAddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req wishlistItemRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if appErr := s.Handlers.AddToWishlist(r.Context(), userIDFromContext(r.Context()), req.ProductID); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, nil)
}

func (s *Server) handleRemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if appErr := s.Handlers.RemoveFromWishlist(r.Context(), userIDFromContext(r.Context()), productID); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusNoContent, nil)
}
