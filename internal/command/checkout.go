package command

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	orderdom "github.com/koopa0/shopfront/internal/domain/order"
	productdom "github.com/koopa0/shopfront/internal/domain/product"
	"github.com/koopa0/shopfront/internal/emailqueue"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/internal/external"
	"github.com/koopa0/shopfront/pkg/apperr"
)

type CartItemInput struct {
	ProductID string
	Name      string
	UnitPrice int
	Quantity  int
}

type CheckoutInput struct {
	CustomerID      string
	Items           []CartItemInput
	ShippingAddress string
	PaymentMethod   orderdom.PaymentMethod
	CreditCard      *external.CreditCard
	CustomerEmail   string
}

type CheckoutResult struct {
	OrderID string
	Total   int
}

// CheckoutCart reads the customer's current cart view, turns it into a
// CheckoutInput, runs Checkout, and clears the cart only once the order has
// been durably created.
func (h *Handlers) CheckoutCart(ctx context.Context, customerID, customerEmail, shippingAddress string, method orderdom.PaymentMethod, card *external.CreditCard) (CheckoutResult, *apperr.Error) {
	view, appErr := h.Carts.Get(ctx, customerID)
	if appErr != nil {
		return CheckoutResult{}, appErr
	}
	if len(view.Lines) == 0 {
		return CheckoutResult{}, apperr.New(apperr.CodeCartEmpty, "cart is empty")
	}

	items := make([]CartItemInput, 0, len(view.Lines))
	for _, l := range view.Lines {
		items = append(items, CartItemInput{ProductID: l.ProductID, Name: l.Name, UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}

	result, appErr := h.Checkout(ctx, CheckoutInput{
		CustomerID: customerID, Items: items, ShippingAddress: shippingAddress,
		PaymentMethod: method, CreditCard: card, CustomerEmail: customerEmail,
	})
	if appErr != nil {
		return CheckoutResult{}, appErr
	}

	h.Carts.Clear(customerID)
	return result, nil
}

// Checkout creates an order: identify → load → decide → append → project
// → notify, with the payment branch carrying its own timeout.
func (h *Handlers) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, *apperr.Error) {
	if len(in.Items) == 0 {
		return CheckoutResult{}, apperr.New(apperr.CodeCartEmpty, "cart is empty")
	}

	orderID := uuid.NewString()

	subtotal := 0
	items := make([]orderdom.Item, 0, len(in.Items))
	for _, it := range in.Items {
		subtotal += it.UnitPrice * it.Quantity
		items = append(items, orderdom.Item{
			ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity,
		})
	}
	shippingFee := 0
	if in.PaymentMethod == orderdom.PaymentCashOnDelivery {
		shippingFee = h.Cfg.ShippingFeeCOD
	}
	total := subtotal + shippingFee

	createdPayload, err := json.Marshal(orderdom.CreatedPayload{
		CustomerID: in.CustomerID, Items: items, ShippingAddress: in.ShippingAddress,
		PaymentMethod: in.PaymentMethod, Subtotal: subtotal, ShippingFee: shippingFee, Total: total,
	})
	if err != nil {
		return CheckoutResult{}, apperr.Internal(err)
	}

	if err := h.Log.Append(ctx, eventlog.AggregateOrder, orderID, 0, []eventlog.NewEvent{
		{EventType: orderdom.EventCreated, Payload: createdPayload},
	}); err != nil {
		return CheckoutResult{}, apperr.Internal(err)
	}

	createdEvent := eventlog.Event{AggregateID: orderID, Version: 1, EventType: orderdom.EventCreated, Payload: createdPayload}

	if appErr := h.runPaymentBranch(ctx, orderID, in, total, createdEvent); appErr != nil {
		return CheckoutResult{}, appErr
	}

	for _, it := range in.Items {
		if appErr := h.decrementStock(ctx, it.ProductID, it.Quantity, orderID); appErr != nil {
			return CheckoutResult{}, appErr
		}
	}

	if h.Emails != nil {
		_ = h.Emails.EnqueueOrderConfirmation(ctx, emailqueue.OrderConfirmationParams{
			OrderID: orderID, ToEmail: in.CustomerEmail, Total: total,
		})
	}

	return CheckoutResult{OrderID: orderID, Total: total}, nil
}

// runPaymentBranch resolves payment and applies projections in order —
// OrderCreated and (if applicable) the payment event are applied together
// once the branch's outcome is known.
func (h *Handlers) runPaymentBranch(ctx context.Context, orderID string, in CheckoutInput, total int, createdEvent eventlog.Event) *apperr.Error {
	switch in.PaymentMethod {
	case orderdom.PaymentCashOnDelivery:
		if err := h.OrderProj.Apply(ctx, createdEvent); err != nil {
			return apperr.Internal(err)
		}
		return nil

	case orderdom.PaymentCreditCard:
		if in.CreditCard == nil || in.CreditCard.PAN == "" || in.CreditCard.CVV == "" {
			return apperr.New(apperr.CodeValidationError, "credit card details required").WithFields("creditCard")
		}

		payCtx, cancel := context.WithTimeout(ctx, h.Cfg.PaymentTimeout)
		defer cancel()
		transactionID, err := h.Payment.ChargeCreditCard(payCtx, orderID, total, *in.CreditCard)
		if errors.Is(payCtx.Err(), context.DeadlineExceeded) {
			return apperr.New(apperr.CodePaymentTimeout, "payment gateway timed out")
		}
		if err != nil {
			return apperr.New(apperr.CodePaymentDeclined, "payment was declined")
		}

		paidPayload, merr := json.Marshal(orderdom.PaymentCompletedPayload{TransactionID: transactionID})
		if merr != nil {
			return apperr.Internal(merr)
		}
		if err := h.Log.Append(ctx, eventlog.AggregateOrder, orderID, 1, []eventlog.NewEvent{
			{EventType: orderdom.EventPaymentCompleted, Payload: paidPayload},
		}); err != nil {
			return apperr.Internal(err)
		}
		paidEvent := eventlog.Event{AggregateID: orderID, Version: 2, EventType: orderdom.EventPaymentCompleted, Payload: paidPayload}

		if err := h.OrderProj.Apply(ctx, createdEvent); err != nil {
			return apperr.Internal(err)
		}
		if err := h.OrderProj.Apply(ctx, paidEvent); err != nil {
			return apperr.Internal(err)
		}
		return nil

	case orderdom.PaymentConvenienceStore:
		payCtx, cancel := context.WithTimeout(ctx, h.Cfg.PaymentTimeout)
		defer cancel()
		code, expiresAt, err := h.Payment.IssueConvenienceStorePayment(payCtx, orderID, total)
		if errors.Is(payCtx.Err(), context.DeadlineExceeded) {
			return apperr.New(apperr.CodePaymentTimeout, "payment gateway timed out")
		}
		if err != nil {
			return apperr.New(apperr.CodePaymentDeclined, "payment was declined")
		}

		issuedPayload, merr := json.Marshal(orderdom.ConvenienceStorePaymentIssuedPayload{PaymentCode: code, ExpiresAt: expiresAt})
		if merr != nil {
			return apperr.Internal(merr)
		}
		if err := h.Log.Append(ctx, eventlog.AggregateOrder, orderID, 1, []eventlog.NewEvent{
			{EventType: orderdom.EventConvenienceStorePaymentIssued, Payload: issuedPayload},
		}); err != nil {
			return apperr.Internal(err)
		}
		issuedEvent := eventlog.Event{AggregateID: orderID, Version: 2, EventType: orderdom.EventConvenienceStorePaymentIssued, Payload: issuedPayload}

		if err := h.OrderProj.Apply(ctx, createdEvent); err != nil {
			return apperr.Internal(err)
		}
		if err := h.OrderProj.Apply(ctx, issuedEvent); err != nil {
			return apperr.Internal(err)
		}
		return nil

	default:
		return apperr.New(apperr.CodeValidationError, "unsupported payment method").WithFields("paymentMethod")
	}
}

// decrementStock loads the product aggregate for its current version,
// appends StockDecreased, and applies the product projection.
func (h *Handlers) decrementStock(ctx context.Context, productID string, qty int, orderID string) *apperr.Error {
	events, err := h.Log.Load(ctx, productID)
	if err != nil {
		return apperr.Internal(err)
	}
	p := productdom.LoadFromEvents(productID, events)
	if !p.Exists() {
		return apperr.New(apperr.CodeProductNotFound, "product not found").WithFields(productID)
	}

	payload, err := json.Marshal(productdom.StockDecreasedPayload{Qty: qty, OrderID: orderID})
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, p.Version, []eventlog.NewEvent{
		{EventType: productdom.EventStockDecreased, Payload: payload},
	}); err != nil {
		return apperr.Internal(err)
	}

	ev := eventlog.Event{AggregateID: productID, Version: p.Version + 1, EventType: productdom.EventStockDecreased, Payload: payload}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
