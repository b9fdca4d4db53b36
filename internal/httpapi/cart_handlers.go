package httpapi

import (
	"net/http"

	"github.com/koopa0/shopfront/internal/cart"
)

func cartViewResponse(v cart.View) any {
	lines := make([]map[string]any, 0, len(v.Lines))
	for _, l := range v.Lines {
		lines = append(lines, map[string]any{
			"productId": l.ProductID,
			"name":      l.Name,
			"unitPrice": l.UnitPrice,
			"quantity":  l.Quantity,
			"subtotal":  l.Subtotal,
		})
	}
	return map[string]any{"customerId": v.CustomerID, "lines": lines, "total": v.Total}
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, appErr := s.Handlers.Carts.Get(r.Context(), userIDFromContext(r.Context()))
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, cartViewResponse(view))
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	customerID := userIDFromContext(r.Context())
	if appErr := s.Handlers.Carts.AddItem(r.Context(), customerID, req.ProductID, req.Quantity); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	var req updateCartItemRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	customerID := userIDFromContext(r.Context())
	if appErr := s.Handlers.Carts.UpdateItem(r.Context(), customerID, productID, req.Quantity); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	s.Handlers.Carts.RemoveItem(userIDFromContext(r.Context()), productID)
	respondJSON(w, s.Logger, http.StatusNoContent, nil)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.Handlers.Carts.Clear(userIDFromContext(r.Context()))
	respondJSON(w, s.Logger, http.StatusNoContent, nil)
}
