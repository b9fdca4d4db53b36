// Package cart implements per-customer cart actors: single-threaded
// state serialising commands for one customer, with authoritative
// pricing/stock checks against the catalog read model. Each customer
// gets one mutex-guarded Cart owned by a per-key registry (Manager) with
// background expiry.
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/koopa0/shopfront/internal/domain/product"
	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/pkg/apperr"
)

// Item is one line of cart state: just a product and quantity. Price is
// never cached here — Get always recomputes against the current catalog
// view so a cart never returns a stale price.
type Item struct {
	ProductID string
	Quantity  int
}

// LineView is a priced line returned from Get.
type LineView struct {
	ProductID string
	Name      string
	UnitPrice int
	Quantity  int
	Subtotal  int
}

// View is the priced cart snapshot returned from Get.
type View struct {
	CustomerID string
	Lines      []LineView
	Total      int
}

// Cart is a single customer's state, guarded by its own mutex. All
// mutation methods take the lock for their whole duration, so concurrent
// requests for the same customer are serialised; different customers'
// carts never contend with each other.
type Cart struct {
	mu         sync.Mutex
	customerID string
	items      map[string]int // productID -> quantity, order-stable via insertion order slice below
	order      []string
	lastActive time.Time
	catalog    *projection.Query
}

func newCart(customerID string, catalog *projection.Query) *Cart {
	return &Cart{
		customerID: customerID,
		items:      make(map[string]int),
		catalog:    catalog,
		lastActive: time.Now(),
	}
}

// Get recomputes subtotals using the current catalog price for every line.
func (c *Cart) Get(ctx context.Context) (View, *apperr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	view := View{CustomerID: c.customerID}
	for _, productID := range c.order {
		qty := c.items[productID]
		if qty == 0 {
			continue
		}
		cp, err := c.catalog.GetPublishedProduct(ctx, productID)
		if err != nil {
			return View{}, apperr.Internal(err)
		}
		if cp == nil {
			continue // product withdrawn since it was added; drop it from the view silently
		}
		subtotal := cp.Price * qty
		view.Lines = append(view.Lines, LineView{
			ProductID: productID,
			Name:      cp.Name,
			UnitPrice: cp.Price,
			Quantity:  qty,
			Subtotal:  subtotal,
		})
		view.Total += subtotal
	}
	return view, nil
}

// AddItem performs the authoritative catalog check before admitting a line.
func (c *Cart) AddItem(ctx context.Context, productID string, qty int) *apperr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	cp, appErr := c.checkAvailability(ctx, productID, c.items[productID]+qty)
	if appErr != nil {
		return appErr
	}
	if _, exists := c.items[productID]; !exists {
		c.order = append(c.order, productID)
	}
	c.items[productID] += qty
	_ = cp
	return nil
}

// UpdateItem sets the absolute quantity; qty=0 deletes the line.
func (c *Cart) UpdateItem(ctx context.Context, productID string, qty int) *apperr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if qty == 0 {
		c.removeLocked(productID)
		return nil
	}

	if _, appErr := c.checkAvailability(ctx, productID, qty); appErr != nil {
		return appErr
	}
	if _, exists := c.items[productID]; !exists {
		c.order = append(c.order, productID)
	}
	c.items[productID] = qty
	return nil
}

func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.removeLocked(productID)
}

func (c *Cart) removeLocked(productID string) {
	if _, exists := c.items[productID]; !exists {
		return
	}
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// checkAvailability is the authoritative check: PRODUCT_NOT_FOUND when
// absent or unpublished, OUT_OF_STOCK when stock=0, INSUFFICIENT_STOCK
// when the requested total quantity exceeds available stock.
func (c *Cart) checkAvailability(ctx context.Context, productID string, wantQty int) (*projection.CatalogProduct, *apperr.Error) {
	cp, err := c.catalog.GetPublishedProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if cp == nil {
		return nil, apperr.New(apperr.CodeProductNotFound, "product not found")
	}
	if cp.Status != product.StatusPublished {
		return nil, apperr.New(apperr.CodeProductNotFound, "product not found")
	}
	if cp.Stock == 0 {
		return nil, apperr.New(apperr.CodeOutOfStock, "product is out of stock")
	}
	if wantQty > cp.Stock {
		return nil, apperr.New(apperr.CodeInsufficientStock, "requested quantity exceeds available stock")
	}
	return cp, nil
}

func (c *Cart) touch() {
	c.lastActive = time.Now()
}

func (c *Cart) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastActive)
}
