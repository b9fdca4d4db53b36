package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/pkg/apperr"
)

// idleTTL bounds how long an inactive cart is kept in memory, refreshed
// on every command.
const idleTTL = 30 * time.Minute

// Manager owns the registry of per-customer carts, keyed by customer ID:
// a mutex-guarded map plus a background cleanup goroutine.
type Manager struct {
	mu      sync.RWMutex
	carts   map[string]*Cart
	catalog *projection.Query
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewManager(catalog *projection.Query, logger *slog.Logger) *Manager {
	m := &Manager{
		carts:   make(map[string]*Cart),
		catalog: catalog,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	m.wg.Add(1)
	go m.cleanupLoop()
	return m
}

// getOrCreate returns the customer's cart, creating it on first access.
func (m *Manager) getOrCreate(customerID string) *Cart {
	m.mu.RLock()
	c, ok := m.carts[customerID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[customerID]; ok {
		return c
	}
	c = newCart(customerID, m.catalog)
	m.carts[customerID] = c
	return c
}

func (m *Manager) Get(ctx context.Context, customerID string) (View, *apperr.Error) {
	return m.getOrCreate(customerID).Get(ctx)
}

func (m *Manager) AddItem(ctx context.Context, customerID, productID string, qty int) *apperr.Error {
	return m.getOrCreate(customerID).AddItem(ctx, productID, qty)
}

func (m *Manager) UpdateItem(ctx context.Context, customerID, productID string, qty int) *apperr.Error {
	return m.getOrCreate(customerID).UpdateItem(ctx, productID, qty)
}

func (m *Manager) RemoveItem(customerID, productID string) {
	m.getOrCreate(customerID).RemoveItem(productID)
}

// Clear drops a customer's cart entirely, used after a successful
// checkout so the next Get starts from an empty cart.
func (m *Manager) Clear(customerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, customerID)
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) cleanup() {
	now := time.Now()

	m.mu.RLock()
	var expired []string
	for customerID, c := range m.carts {
		if c.idleSince(now) > idleTTL {
			expired = append(expired, customerID)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	m.mu.Lock()
	for _, customerID := range expired {
		delete(m.carts, customerID)
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("expired idle carts", "count", len(expired))
	}
}

func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}
