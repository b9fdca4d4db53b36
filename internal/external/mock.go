package external

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockPaymentGateway is an in-process stand-in for a real payment
// provider client: mutex-guarded state plus atomic call counters. It
// never performs network I/O: ChargeCreditCard succeeds unless
// ShouldDeclineNext or ShouldTimeoutNext is set, charge and refund calls
// are counted, and voided convenience-store codes are recorded in memory.
type MockPaymentGateway struct {
	mu    sync.Mutex
	voids map[string]bool

	ChargeCalls atomic.Int32
	RefundCalls atomic.Int32

	ShouldDeclineNext bool
	ShouldTimeoutNext bool
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{voids: make(map[string]bool)}
}

func (m *MockPaymentGateway) ChargeCreditCard(ctx context.Context, orderID string, amount int, card CreditCard) (string, error) {
	m.ChargeCalls.Add(1)
	if m.ShouldTimeoutNext {
		m.ShouldTimeoutNext = false
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.ShouldDeclineNext {
		m.ShouldDeclineNext = false
		return "", errDeclined
	}
	return "txn_" + uuid.NewString(), nil
}

func (m *MockPaymentGateway) IssueConvenienceStorePayment(ctx context.Context, orderID string, amount int) (string, time.Time, error) {
	return "csc_" + uuid.NewString()[:8], time.Now().Add(72 * time.Hour), nil
}

func (m *MockPaymentGateway) Refund(ctx context.Context, transactionID string, amount int) error {
	m.RefundCalls.Add(1)
	return nil
}

func (m *MockPaymentGateway) VoidConvenienceStorePayment(ctx context.Context, paymentCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voids[paymentCode] = true
	return nil
}

type declinedError struct{}

func (declinedError) Error() string { return "payment declined" }

var errDeclined = declinedError{}

// MockEmailService records every send in memory instead of calling a real
// transactional-email provider. Retry policy belongs to the email queue's
// own ledger; this collaborator only needs to be observable and
// occasionally fail on command.
type MockEmailService struct {
	mu   sync.Mutex
	sent []SentEmail

	ShouldFailNext bool
}

type SentEmail struct {
	Kind    string
	ToEmail string
	Ref     string
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (m *MockEmailService) record(kind, toEmail, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFailNext {
		m.ShouldFailNext = false
		return errSendFailed
	}
	m.sent = append(m.sent, SentEmail{Kind: kind, ToEmail: toEmail, Ref: ref})
	return nil
}

func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockEmailService) SendOrderConfirmation(ctx context.Context, toEmail, orderID string, total int) error {
	return m.record("order_confirmation", toEmail, orderID)
}

func (m *MockEmailService) SendRefundNotification(ctx context.Context, toEmail, orderID string, amount int) error {
	return m.record("refund_notification", toEmail, orderID)
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, toEmail, resetLink string) error {
	return m.record("password_reset", toEmail, resetLink)
}

func (m *MockEmailService) SendEmailVerification(ctx context.Context, toEmail, verifyLink string) error {
	return m.record("email_verification", toEmail, verifyLink)
}

type sendFailedError struct{}

func (sendFailedError) Error() string { return "email send failed" }

var errSendFailed = sendFailedError{}

// MockImageRepository stands in for object storage: it returns a
// deterministic URL under baseURL without writing any bytes anywhere.
type MockImageRepository struct {
	baseURL string
}

func NewMockImageRepository(baseURL string) *MockImageRepository {
	return &MockImageRepository{baseURL: baseURL}
}

func (m *MockImageRepository) Upload(ctx context.Context, data []byte, contentType, key string) (string, error) {
	return m.baseURL + "/" + key, nil
}
