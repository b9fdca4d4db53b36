// Package httpapi is the thin HTTP adapter layer: request decoding,
// routing, auth/role enforcement, and the JSON response envelope, wired
// straight onto command.Handlers. No business logic lives here.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/koopa0/shopfront/internal/command"
)

type Server struct {
	Handlers *command.Handlers
	Logger   *slog.Logger
}

func NewServer(handlers *command.Handlers, logger *slog.Logger) *Server {
	return &Server{Handlers: handlers, Logger: logger}
}

// Routes wires the full HTTP surface. Every handler is wrapped
// logger -> recoverer -> (requireAuth|requireAdmin, where applicable) ->
// business handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return s.loggerMiddleware(s.recoverer(h))
	}
	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return wrap(s.requireAuth(h))
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return wrap(s.requireAdmin(h))
	}

	// --- customer: auth ---
	mux.HandleFunc("POST /auth/register", wrap(s.handleRegister))
	mux.HandleFunc("POST /auth/login", wrap(s.handleLogin))
	mux.HandleFunc("POST /auth/logout", auth(s.handleLogout))
	mux.HandleFunc("POST /auth/refresh", wrap(s.handleRefresh))
	mux.HandleFunc("POST /auth/password-reset", wrap(s.handlePasswordResetRequest))
	mux.HandleFunc("POST /auth/password-reset/confirm", wrap(s.handlePasswordResetConfirm))
	mux.HandleFunc("POST /auth/verify-email", wrap(s.handleVerifyEmail))

	// --- customer: catalog (no auth required) ---
	mux.HandleFunc("GET /products", wrap(s.handleListProducts))
	mux.HandleFunc("GET /products/{id}", wrap(s.handleGetProduct))
	mux.HandleFunc("GET /categories", wrap(s.handleListCategories))

	// --- customer: cart ---
	mux.HandleFunc("GET /cart", auth(s.handleGetCart))
	mux.HandleFunc("POST /cart/items", auth(s.handleAddCartItem))
	mux.HandleFunc("PUT /cart/items/{productId}", auth(s.handleUpdateCartItem))
	mux.HandleFunc("DELETE /cart/items/{productId}", auth(s.handleRemoveCartItem))
	mux.HandleFunc("DELETE /cart", auth(s.handleClearCart))

	// --- customer: checkout + orders ---
	mux.HandleFunc("POST /checkout", auth(s.handleCheckout))
	mux.HandleFunc("GET /orders", auth(s.handleListOrders))
	mux.HandleFunc("GET /orders/{id}", auth(s.handleGetOrder))

	// --- customer: wishlist ---
	mux.HandleFunc("GET /wishlist", auth(s.handleListWishlist))
	mux.HandleFunc("POST /wishlist", auth(s.handleAddWishlistItem))
	mux.HandleFunc("DELETE /wishlist/{productId}", auth(s.handleRemoveWishlistItem))

	// --- customer: addresses ---
	mux.HandleFunc("GET /addresses", auth(s.handleListAddresses))
	mux.HandleFunc("POST /addresses", auth(s.handleAddAddress))
	mux.HandleFunc("PUT /addresses/{id}", auth(s.handleUpdateAddress))
	mux.HandleFunc("DELETE /addresses/{id}", auth(s.handleRemoveAddress))

	// --- admin: products ---
	mux.HandleFunc("GET /admin/products", admin(s.handleListProducts))
	mux.HandleFunc("POST /admin/products", admin(s.handleCreateProduct))
	mux.HandleFunc("PUT /admin/products/{id}", admin(s.handleUpdateProduct))
	mux.HandleFunc("DELETE /admin/products/{id}", admin(s.handleDeleteProduct))
	mux.HandleFunc("PUT /admin/products/{id}/stock", admin(s.handleUpdateStock))
	mux.HandleFunc("POST /admin/products/{id}/images", admin(s.handleAssociateProductImage))

	// --- admin: categories ---
	mux.HandleFunc("GET /admin/categories", admin(s.handleListCategories))
	mux.HandleFunc("POST /admin/categories", admin(s.handleCreateCategory))
	mux.HandleFunc("DELETE /admin/categories/{id}", admin(s.handleDeleteCategory))

	// --- admin: orders ---
	mux.HandleFunc("GET /admin/orders", admin(s.handleListOrders))
	mux.HandleFunc("PUT /admin/orders/{id}/status", admin(s.handleUpdateOrderStatus))
	mux.HandleFunc("POST /admin/orders/{id}/cancel", admin(s.handleCancelOrder))
	mux.HandleFunc("POST /admin/orders/{id}/refund", admin(s.handleRefundOrder))

	// --- admin: customers, images ---
	mux.HandleFunc("GET /admin/customers", admin(s.handleListCustomers))
	mux.HandleFunc("GET /admin/customers/{id}", admin(s.handleGetCustomer))
	mux.HandleFunc("POST /admin/images", admin(s.handleUploadImage))

	mux.HandleFunc("GET /health", wrap(s.handleHealth))

	return mux
}
