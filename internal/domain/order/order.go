// Package order implements the Order aggregate: state machine, replay
// rules, and the event variants that drive them.
package order

import (
	"encoding/json"
	"time"

	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/pkg/apperr"
)

type Status string

const (
	StatusAccepted  Status = "ACCEPTED"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCreditCard        PaymentMethod = "CREDIT_CARD"
	PaymentConvenienceStore  PaymentMethod = "CONVENIENCE_STORE"
	PaymentCashOnDelivery    PaymentMethod = "CASH_ON_DELIVERY"
)

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int    `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Order is the replayed aggregate state.
type Order struct {
	ID              string
	CustomerID      string
	Items           []Item
	ShippingAddress string
	PaymentMethod   PaymentMethod
	Subtotal        int
	ShippingFee     int
	Total           int
	Status          Status
	Version         int

	TransactionID   string
	PaymentCode     string
	PaymentExpiry   time.Time
	RefundCompleted bool
	RefundAmount    int

	exists bool
}

func (o *Order) Exists() bool { return o.exists }

// Event variant payloads.
type CreatedPayload struct {
	CustomerID      string        `json:"customer_id"`
	Items           []Item        `json:"items"`
	ShippingAddress string        `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Subtotal        int           `json:"subtotal"`
	ShippingFee     int           `json:"shipping_fee"`
	Total           int           `json:"total"`
}

type PaymentCompletedPayload struct {
	TransactionID string `json:"transaction_id"`
}

type ConvenienceStorePaymentIssuedPayload struct {
	PaymentCode string    `json:"payment_code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type CancelledPayload struct {
	Reason string `json:"reason"`
}

type RefundCompletedPayload struct {
	Amount int `json:"amount"`
}

const (
	EventCreated                       = "OrderCreated"
	EventPaymentCompleted              = "PaymentCompleted"
	EventConvenienceStorePaymentIssued = "ConvenienceStorePaymentIssued"
	EventShipped                       = "OrderShipped"
	EventCompleted                     = "OrderCompleted"
	EventCancelled                     = "OrderCancelled"
	EventRefundCompleted               = "RefundCompleted"
)

func New(id string) *Order {
	return &Order{ID: id}
}

// Apply folds a single event into the aggregate. Invalid transitions during
// replay never raise — events are ground truth; they are only raised by
// new commands (see AllowedTransition).
func (o *Order) Apply(e eventlog.Event) {
	switch e.EventType {
	case EventCreated:
		var payload CreatedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		o.CustomerID = payload.CustomerID
		o.Items = payload.Items
		o.ShippingAddress = payload.ShippingAddress
		o.PaymentMethod = payload.PaymentMethod
		o.Subtotal = payload.Subtotal
		o.ShippingFee = payload.ShippingFee
		o.Total = payload.Total
		o.Status = StatusAccepted
		o.exists = true

	case EventPaymentCompleted:
		var payload PaymentCompletedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		o.TransactionID = payload.TransactionID

	case EventConvenienceStorePaymentIssued:
		var payload ConvenienceStorePaymentIssuedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		o.PaymentCode = payload.PaymentCode
		o.PaymentExpiry = payload.ExpiresAt

	case EventShipped:
		o.Status = StatusShipped

	case EventCompleted:
		o.Status = StatusCompleted

	case EventCancelled:
		o.Status = StatusCancelled

	case EventRefundCompleted:
		var payload RefundCompletedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		o.RefundCompleted = true
		o.RefundAmount = payload.Amount
	}

	o.Version = e.Version
}

func LoadFromEvents(id string, events []eventlog.Event) *Order {
	o := New(id)
	for _, e := range events {
		o.Apply(e)
	}
	return o
}

// AllowedTransition enforces the order status state machine for new
// commands. Replay never calls this — it is a command-time guard only.
func (o *Order) AllowedTransition(to Status) *apperr.Error {
	switch {
	case o.Status == StatusAccepted && to == StatusShipped:
		return nil
	case o.Status == StatusAccepted && to == StatusCancelled:
		return nil
	case o.Status == StatusShipped && to == StatusCompleted:
		return nil
	case o.Status == StatusShipped && to == StatusCancelled:
		return nil
	case o.Status == StatusCompleted:
		return apperr.New(apperr.CodeOrderAlreadyComplete, "order already completed").
			WithFields(string(o.Status))
	default:
		return apperr.New(apperr.CodeInvalidOrderStatusTransition, "transition not allowed").
			WithFields(string(o.Status), string(to))
	}
}
