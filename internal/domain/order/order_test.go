package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/shopfront/internal/eventlog"
)

func mustPayload(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func createdEvent(t *testing.T, version int) eventlog.Event {
	return eventlog.Event{
		EventType: EventCreated,
		Version:   version,
		Payload: mustPayload(t, CreatedPayload{
			CustomerID:      "cust_1",
			Items:           []Item{{ProductID: "p1", Name: "Widget", UnitPrice: 100, Quantity: 2}},
			ShippingAddress: "123 Main St",
			PaymentMethod:   PaymentCashOnDelivery,
			Subtotal:        200,
			ShippingFee:     300,
			Total:           500,
		}),
	}
}

func TestLoadFromEvents_Replay(t *testing.T) {
	events := []eventlog.Event{
		createdEvent(t, 0),
		{EventType: EventShipped, Version: 1},
		{EventType: EventCompleted, Version: 2},
	}

	o := LoadFromEvents("order_1", events)

	assert.True(t, o.Exists())
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, 2, o.Version)
	assert.Equal(t, 500, o.Total)
}

func TestLoadFromEvents_EmptyNeverExists(t *testing.T) {
	o := LoadFromEvents("order_1", nil)
	assert.False(t, o.Exists())
}

func TestAllowedTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
		code    string
	}{
		{"accepted to shipped", StatusAccepted, StatusShipped, false, ""},
		{"accepted to cancelled", StatusAccepted, StatusCancelled, false, ""},
		{"shipped to completed", StatusShipped, StatusCompleted, false, ""},
		{"shipped to cancelled", StatusShipped, StatusCancelled, false, ""},
		{"completed is terminal", StatusCompleted, StatusShipped, true, "ORDER_ALREADY_COMPLETED"},
		{"accepted to completed skips shipped", StatusAccepted, StatusCompleted, true, "INVALID_ORDER_STATUS_TRANSITION"},
		{"cancelled to shipped", StatusCancelled, StatusShipped, true, "INVALID_ORDER_STATUS_TRANSITION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from}
			err := o.AllowedTransition(tt.to)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, tt.code, err.Code)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestApply_RefundCompletedOnCancelledOrder(t *testing.T) {
	events := []eventlog.Event{
		createdEvent(t, 0),
		{EventType: EventCancelled, Version: 1, Payload: mustPayload(t, CancelledPayload{Reason: "customer request"})},
		{EventType: EventRefundCompleted, Version: 2, Payload: mustPayload(t, RefundCompletedPayload{Amount: 500})},
	}

	o := LoadFromEvents("order_1", events)
	assert.True(t, o.RefundCompleted)
	assert.Equal(t, 500, o.RefundAmount)
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestApply_ConvenienceStorePaymentIssued(t *testing.T) {
	expiry := time.Now().Add(72 * time.Hour)
	events := []eventlog.Event{
		createdEvent(t, 0),
		{
			EventType: EventConvenienceStorePaymentIssued,
			Version:   1,
			Payload:   mustPayload(t, ConvenienceStorePaymentIssuedPayload{PaymentCode: "csc_123", ExpiresAt: expiry}),
		},
	}

	o := LoadFromEvents("order_1", events)
	assert.Equal(t, "csc_123", o.PaymentCode)
	assert.WithinDuration(t, expiry, o.PaymentExpiry, time.Second)
}
