package httpapi

import (
	"net/http"
	"strings"

	orderdom "github.com/koopa0/shopfront/internal/domain/order"
	"github.com/koopa0/shopfront/internal/external"
	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/pkg/apperr"
)

type checkoutRequest struct {
	ShippingAddress string               `json:"shippingAddress"`
	PaymentMethod   string               `json:"paymentMethod"`
	Card            *external.CreditCard `json:"card,omitempty"`
	CustomerEmail   string               `json:"customerEmail"`
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
	Total   int    `json:"total"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	customerID := userIDFromContext(r.Context())
	result, appErr := s.Handlers.CheckoutCart(
		r.Context(), customerID, req.CustomerEmail, req.ShippingAddress,
		orderdom.PaymentMethod(req.PaymentMethod), req.Card,
	)
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusCreated, checkoutResponse{OrderID: result.OrderID, Total: result.Total})
}

func orderRowResponse(o projection.OrderRow) any {
	return map[string]any{
		"id":            o.ID,
		"customerId":    o.CustomerID,
		"status":        o.Status,
		"subtotal":      o.Subtotal,
		"shippingFee":   o.ShippingFee,
		"total":         o.Total,
		"transactionId": o.TransactionID,
		"paymentCode":   o.PaymentCode,
	}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var (
		orders []projection.OrderRow
		err    error
	)
	if strings.HasPrefix(r.URL.Path, "/admin/") {
		orders, err = s.Handlers.Query.ListAllOrders(r.Context(), limit, offset)
	} else {
		orders, err = s.Handlers.Query.ListOrdersByCustomer(r.Context(), userIDFromContext(r.Context()))
	}
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	out := make([]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderRowResponse(o))
	}
	respondJSON(w, s.Logger, http.StatusOK, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	o, err := s.Handlers.Query.GetOrder(r.Context(), id)
	if err != nil {
		respondInternal(w, s.Logger, err)
		return
	}
	if o == nil {
		respondError(w, s.Logger, apperr.New(apperr.CodeOrderNotFound, "order not found"))
		return
	}
	if o.CustomerID != userIDFromContext(r.Context()) && !strings.HasPrefix(r.URL.Path, "/admin/") {
		respondError(w, s.Logger, apperr.New(apperr.CodeOrderNotFound, "order not found"))
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, orderRowResponse(*o))
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// handleUpdateOrderStatus maps the requested target status onto the
// matching command: SHIPPED -> ShipOrder, COMPLETED -> CompleteOrder. Any
// other target is rejected before it reaches the order state machine.
func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateOrderStatusRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}

	var appErr *apperr.Error
	switch orderdom.Status(req.Status) {
	case orderdom.StatusShipped:
		appErr = s.Handlers.ShipOrder(r.Context(), id)
	case orderdom.StatusCompleted:
		appErr = s.Handlers.CompleteOrder(r.Context(), id)
	default:
		appErr = apperr.New(apperr.CodeInvalidOrderStatusTransition, "unsupported target status")
	}
	if appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req cancelOrderRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	if appErr := s.Handlers.CancelOrder(r.Context(), id, req.Reason); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}

func (s *Server) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if appErr := s.Handlers.RefundOrder(r.Context(), id); appErr != nil {
		respondError(w, s.Logger, appErr)
		return
	}
	respondJSON(w, s.Logger, http.StatusOK, nil)
}
