package projection

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/shopfront/internal/domain/product"
)

// CatalogProduct is the read-model shape returned to the catalog/cart/
// checkout code paths — a denormalised view, not the replayed aggregate.
type CatalogProduct struct {
	ID         string
	Name       string
	Price      int
	CategoryID string
	Stock      int
	Status     product.Status
	ImageURLs  []string
	Version    int
}

// Query is a read-only façade over the projection tables, used by
// catalog listings, the cart actor's authoritative price/stock check, and
// command handlers that need current read-model state without replaying
// the log themselves.
type Query struct {
	pool *pgxpool.Pool
}

func NewQuery(pool *pgxpool.Pool) *Query {
	return &Query{pool: pool}
}

func (q *Query) Ping(ctx context.Context) error {
	return q.pool.Ping(ctx)
}

// GetPublishedProduct returns a product only if PUBLISHED; unpublished
// products are invisible to catalog queries.
func (q *Query) GetPublishedProduct(ctx context.Context, id string) (*CatalogProduct, error) {
	cp, err := q.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp == nil || cp.Status != product.StatusPublished {
		return nil, nil
	}
	return cp, nil
}

// GetProduct returns a product regardless of publish status, for admin use.
func (q *Query) GetProduct(ctx context.Context, id string) (*CatalogProduct, error) {
	return q.getProduct(ctx, id)
}

func (q *Query) getProduct(ctx context.Context, id string) (*CatalogProduct, error) {
	var cp CatalogProduct
	var imagesJSON []byte
	err := q.pool.QueryRow(ctx,
		`SELECT id, name, price, category_id, stock, status, image_urls, version FROM products_rm WHERE id=$1`,
		id,
	).Scan(&cp.ID, &cp.Name, &cp.Price, &cp.CategoryID, &cp.Stock, &cp.Status, &imagesJSON, &cp.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(imagesJSON, &cp.ImageURLs)
	return &cp, nil
}

// ListPublishedProducts lists catalog-visible products, optionally filtered
// by category.
func (q *Query) ListPublishedProducts(ctx context.Context, categoryID string, limit, offset int) ([]CatalogProduct, error) {
	var rows pgx.Rows
	var err error
	if categoryID != "" {
		rows, err = q.pool.Query(ctx,
			`SELECT id, name, price, category_id, stock, status, image_urls, version FROM products_rm
			 WHERE status=$1 AND category_id=$2 ORDER BY id LIMIT $3 OFFSET $4`,
			product.StatusPublished, categoryID, limit, offset)
	} else {
		rows, err = q.pool.Query(ctx,
			`SELECT id, name, price, category_id, stock, status, image_urls, version FROM products_rm
			 WHERE status=$1 ORDER BY id LIMIT $2 OFFSET $3`,
			product.StatusPublished, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CatalogProduct
	for rows.Next() {
		var cp CatalogProduct
		var imagesJSON []byte
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Price, &cp.CategoryID, &cp.Stock, &cp.Status, &imagesJSON, &cp.Version); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(imagesJSON, &cp.ImageURLs)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// ListAllProducts lists every product regardless of status, for admin use.
func (q *Query) ListAllProducts(ctx context.Context, limit, offset int) ([]CatalogProduct, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, name, price, category_id, stock, status, image_urls, version FROM products_rm
		 ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CatalogProduct
	for rows.Next() {
		var cp CatalogProduct
		var imagesJSON []byte
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Price, &cp.CategoryID, &cp.Stock, &cp.Status, &imagesJSON, &cp.Version); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(imagesJSON, &cp.ImageURLs)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Category is the categories_rm read model — reference data, not
// event-sourced.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (q *Query) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.pool.Query(ctx, `SELECT id, name FROM categories_rm ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Query) CategoryHasProducts(ctx context.Context, categoryID string) (bool, error) {
	var count int
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM products_rm WHERE category_id=$1`, categoryID).Scan(&count)
	return count > 0, err
}

// OrderRow is the orders_rm read model.
type OrderRow struct {
	ID              string
	CustomerID      string
	Status          string
	Subtotal        int
	ShippingFee     int
	Total           int
	TransactionID   string
	PaymentCode     string
	Version         int
}

func (q *Query) GetOrder(ctx context.Context, id string) (*OrderRow, error) {
	var o OrderRow
	err := q.pool.QueryRow(ctx,
		`SELECT id, customer_id, status, subtotal, shipping_fee, total, coalesce(transaction_id,''), coalesce(payment_code,''), version
		 FROM orders_rm WHERE id=$1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.Subtotal, &o.ShippingFee, &o.Total, &o.TransactionID, &o.PaymentCode, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (q *Query) ListOrdersByCustomer(ctx context.Context, customerID string) ([]OrderRow, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, customer_id, status, subtotal, shipping_fee, total, coalesce(transaction_id,''), coalesce(payment_code,''), version
		 FROM orders_rm WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Subtotal, &o.ShippingFee, &o.Total, &o.TransactionID, &o.PaymentCode, &o.Version); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListAllOrders lists every order across customers, newest first, for the
// admin order queue.
func (q *Query) ListAllOrders(ctx context.Context, limit, offset int) ([]OrderRow, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, customer_id, status, subtotal, shipping_fee, total, coalesce(transaction_id,''), coalesce(payment_code,''), version
		 FROM orders_rm ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Subtotal, &o.ShippingFee, &o.Total, &o.TransactionID, &o.PaymentCode, &o.Version); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UserRow is the write-through users table.
type UserRow struct {
	ID                  string
	Email               string
	Name                string
	Role                string
	PasswordHash        string
	EmailVerified       bool
	FailedLoginAttempts int
}

func (q *Query) GetUserByEmail(ctx context.Context, email string) (*UserRow, error) {
	var u UserRow
	err := q.pool.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, email_verified, failed_login_attempts FROM users WHERE email=$1`,
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.EmailVerified, &u.FailedLoginAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *Query) GetUserByID(ctx context.Context, id string) (*UserRow, error) {
	var u UserRow
	err := q.pool.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, email_verified, failed_login_attempts FROM users WHERE id=$1`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.EmailVerified, &u.FailedLoginAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns user accounts of every role ordered by id, for the
// admin customer list.
func (q *Query) ListUsers(ctx context.Context, limit, offset int) ([]UserRow, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, email, name, role, password_hash, email_verified, failed_login_attempts FROM users
		 ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.EmailVerified, &u.FailedLoginAttempts); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (q *Query) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email=$1`, email).Scan(&count)
	return count > 0, err
}

func (q *Query) SetPasswordHash(ctx context.Context, userID, hash string) error {
	_, err := q.pool.Exec(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, userID)
	return err
}

// --- categories (reference data, no event-sourced aggregate) ---

func (q *Query) CreateCategory(ctx context.Context, id, name string) error {
	_, err := q.pool.Exec(ctx, `INSERT INTO categories_rm (id, name) VALUES ($1,$2)`, id, name)
	return err
}

func (q *Query) DeleteCategory(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM categories_rm WHERE id=$1`, id)
	return err
}

// --- wishlist ---

type WishlistEntry struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Stock     int    `json:"stock"`
}

func (q *Query) AddWishlistItem(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := q.pool.Exec(ctx,
		`INSERT INTO wishlists (user_id, product_id, created_at) VALUES ($1,$2, now()) ON CONFLICT DO NOTHING`,
		userID, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Query) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM wishlists WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (q *Query) ListWishlist(ctx context.Context, userID string) ([]WishlistEntry, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT p.id, p.name, p.price, p.stock FROM wishlists w
		 JOIN products_rm p ON p.id = w.product_id
		 WHERE w.user_id=$1 ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WishlistEntry
	for rows.Next() {
		var e WishlistEntry
		if err := rows.Scan(&e.ProductID, &e.Name, &e.Price, &e.Stock); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- addresses ---

type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Label      string `json:"label"`
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

func (q *Query) CreateAddress(ctx context.Context, a Address) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO addresses (id, user_id, label, recipient, phone, line1, line2, city, postal_code, is_default, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())`,
		a.ID, a.UserID, a.Label, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.PostalCode, a.IsDefault)
	return err
}

func (q *Query) CountAddresses(ctx context.Context, userID string) (int, error) {
	var count int
	err := q.pool.QueryRow(ctx, `SELECT count(*) FROM addresses WHERE user_id=$1`, userID).Scan(&count)
	return count, err
}

func (q *Query) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, user_id, label, recipient, phone, line1, line2, city, postal_code, is_default
		 FROM addresses WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Recipient, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.PostalCode, &a.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAddress overwrites every editable field of an existing address
// row scoped to userID, reporting whether a row matched.
func (q *Query) UpdateAddress(ctx context.Context, a Address) (bool, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE addresses SET label=$1, recipient=$2, phone=$3, line1=$4, line2=$5,
		 city=$6, postal_code=$7, is_default=$8 WHERE id=$9 AND user_id=$10`,
		a.Label, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.PostalCode, a.IsDefault, a.ID, a.UserID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Query) DeleteAddress(ctx context.Context, userID, addressID string) (bool, error) {
	tag, err := q.pool.Exec(ctx, `DELETE FROM addresses WHERE id=$1 AND user_id=$2`, addressID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
