package command

import (
	"context"
	"encoding/json"

	orderdom "github.com/koopa0/shopfront/internal/domain/order"
	productdom "github.com/koopa0/shopfront/internal/domain/product"
	"github.com/koopa0/shopfront/internal/emailqueue"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/pkg/apperr"
)

func (h *Handlers) loadOrder(ctx context.Context, orderID string) (*orderdom.Order, *apperr.Error) {
	events, err := h.Log.Load(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	o := orderdom.LoadFromEvents(orderID, events)
	if !o.Exists() {
		return nil, apperr.New(apperr.CodeOrderNotFound, "order not found")
	}
	return o, nil
}

// CancelOrder restores stock for every line item and voids any
// outstanding convenience-store payment code.
func (h *Handlers) CancelOrder(ctx context.Context, orderID, reason string) *apperr.Error {
	o, appErr := h.loadOrder(ctx, orderID)
	if appErr != nil {
		return appErr
	}
	if appErr := o.AllowedTransition(orderdom.StatusCancelled); appErr != nil {
		if o.Status == orderdom.StatusCancelled {
			return apperr.New(apperr.CodeOrderAlreadyCanceled, "order already cancelled")
		}
		return appErr
	}

	payload, err := json.Marshal(orderdom.CancelledPayload{Reason: reason})
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateOrder, orderID, o.Version, []eventlog.NewEvent{
		{EventType: orderdom.EventCancelled, Payload: payload},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: orderID, Version: o.Version + 1, EventType: orderdom.EventCancelled, Payload: payload}
	if err := h.OrderProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}

	for _, it := range o.Items {
		if appErr := h.incrementStock(ctx, it.ProductID, it.Quantity, orderID); appErr != nil {
			return appErr
		}
	}

	if o.PaymentMethod == orderdom.PaymentConvenienceStore && o.PaymentCode != "" {
		if err := h.Payment.VoidConvenienceStorePayment(ctx, o.PaymentCode); err != nil {
			h.Logger.Warn("void convenience store payment failed", "order_id", orderID, "error", err)
		}
	}

	return nil
}

func (h *Handlers) incrementStock(ctx context.Context, productID string, qty int, orderID string) *apperr.Error {
	events, err := h.Log.Load(ctx, productID)
	if err != nil {
		return apperr.Internal(err)
	}
	p := productdom.LoadFromEvents(productID, events)
	if !p.Exists() {
		return apperr.New(apperr.CodeProductNotFound, "product not found").WithFields(productID)
	}

	payload, err := json.Marshal(productdom.StockIncreasedPayload{Qty: qty, OrderID: orderID})
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, p.Version, []eventlog.NewEvent{
		{EventType: productdom.EventStockIncreased, Payload: payload},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: productID, Version: p.Version + 1, EventType: productdom.EventStockIncreased, Payload: payload}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// RefundOrder requires a cancelled order, refunds the stored total —
// never a re-derived amount — and is idempotent on a completed refund.
func (h *Handlers) RefundOrder(ctx context.Context, orderID string) *apperr.Error {
	o, appErr := h.loadOrder(ctx, orderID)
	if appErr != nil {
		return appErr
	}
	if o.Status != orderdom.StatusCancelled {
		return apperr.New(apperr.CodeOrderNotCancelled, "order is not cancelled")
	}
	if o.RefundCompleted {
		return apperr.New(apperr.CodeOrderAlreadyRefunded, "order already refunded")
	}
	if o.PaymentMethod == orderdom.PaymentCreditCard && o.TransactionID == "" {
		return apperr.New(apperr.CodeRefundTransactionNotFound, "no transaction to refund")
	}

	if o.PaymentMethod == orderdom.PaymentCreditCard {
		if err := h.Payment.Refund(ctx, o.TransactionID, o.Total); err != nil {
			return apperr.New(apperr.CodePaymentDeclined, "refund was declined")
		}
	}

	payload, err := json.Marshal(orderdom.RefundCompletedPayload{Amount: o.Total})
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateOrder, orderID, o.Version, []eventlog.NewEvent{
		{EventType: orderdom.EventRefundCompleted, Payload: payload},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: orderID, Version: o.Version + 1, EventType: orderdom.EventRefundCompleted, Payload: payload}
	if err := h.OrderProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}

	if h.Emails != nil {
		toEmail := o.CustomerID
		if u, err := h.Query.GetUserByID(ctx, o.CustomerID); err == nil && u != nil {
			toEmail = u.Email
		}
		_ = h.Emails.EnqueueRefundNotification(ctx, emailqueue.RefundNotificationParams{
			OrderID: orderID, ToEmail: toEmail, Amount: o.Total,
		})
	}
	return nil
}

// ShipOrder and CompleteOrder implement the remaining status transitions,
// each enforced through AllowedTransition rather than ad-hoc checks.
func (h *Handlers) ShipOrder(ctx context.Context, orderID string) *apperr.Error {
	return h.transitionOrder(ctx, orderID, orderdom.StatusShipped, orderdom.EventShipped)
}

func (h *Handlers) CompleteOrder(ctx context.Context, orderID string) *apperr.Error {
	return h.transitionOrder(ctx, orderID, orderdom.StatusCompleted, orderdom.EventCompleted)
}

func (h *Handlers) transitionOrder(ctx context.Context, orderID string, to orderdom.Status, eventType string) *apperr.Error {
	o, appErr := h.loadOrder(ctx, orderID)
	if appErr != nil {
		return appErr
	}
	if appErr := o.AllowedTransition(to); appErr != nil {
		return appErr
	}

	if err := h.Log.Append(ctx, eventlog.AggregateOrder, orderID, o.Version, []eventlog.NewEvent{
		{EventType: eventType, Payload: []byte("{}")},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: orderID, Version: o.Version + 1, EventType: eventType, Payload: []byte("{}")}
	if err := h.OrderProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
