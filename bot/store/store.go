// Package store persists catalog and order data in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/jewelbot/bot/domain"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrCategoryExists is returned when a category name collides with an
	// existing one.
	ErrCategoryExists = errors.New("store: category name already exists")
)

const pqUniqueViolation = "23505"

// Store implements catalog CRUD on top of sqlx.
type Store struct {
	db *sqlx.DB
}

// New wraps the given database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// --- Categories ---

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := s.db.SelectContext(ctx, &out, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list categories: %w", err)
	}
	return out, nil
}

// GetCategory returns one category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	err := s.db.GetContext(ctx, &c, `SELECT id, name FROM categories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, ErrNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("store: get category: %w", err)
	}
	return c, nil
}

// CreateCategory inserts a category and returns its id. A name collision
// yields ErrCategoryExists.
func (s *Store) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`, name)
	if isUniqueViolation(err) {
		return 0, ErrCategoryExists
	}
	if err != nil {
		return 0, fmt.Errorf("store: create category: %w", err)
	}
	return id, nil
}

// RenameCategory updates a category name. A name collision yields
// ErrCategoryExists, a missing row ErrNotFound.
func (s *Store) RenameCategory(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = $1 WHERE id = $2`, name, id)
	if isUniqueViolation(err) {
		return ErrCategoryExists
	}
	if err != nil {
		return fmt.Errorf("store: rename category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category. Products referencing it keep existing
// with a NULL category (ON DELETE SET NULL).
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProductsInCategory reports how many products reference the category.
func (s *Store) CountProductsInCategory(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("store: count products in category: %w", err)
	}
	return n, nil
}

// --- Products ---

const productColumns = `p.id, p.category_id, p.name, p.description, p.price, p.image_file_id,
	c.name AS category_name`

// ListProductsByCategory returns a category's products ordered by name.
func (s *Store) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	var out []domain.Product
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.category_id = $1
		ORDER BY p.name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("store: list products by category: %w", err)
	}
	return out, nil
}

// ListProducts returns every product with its category name, ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	return out, nil
}

// GetProduct returns one product by id with its category name resolved.
func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := s.db.GetContext(ctx, &p, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("store: get product: %w", err)
	}
	return p, nil
}

// CreateProduct inserts a product and returns its id.
func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO products (category_id, name, description, price, image_file_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.CategoryID, p.Name, p.Description, p.Price, p.ImageFileID)
	if err != nil {
		return 0, fmt.Errorf("store: create product: %w", err)
	}
	return id, nil
}

func (s *Store) updateProductField(ctx context.Context, id int64, column string, value any) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET `+column+` = $1 WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("store: update product %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProductName replaces a product name.
func (s *Store) UpdateProductName(ctx context.Context, id int64, name string) error {
	return s.updateProductField(ctx, id, "name", name)
}

// UpdateProductDescription replaces a product description; nil clears it.
func (s *Store) UpdateProductDescription(ctx context.Context, id int64, description *string) error {
	return s.updateProductField(ctx, id, "description", description)
}

// UpdateProductPrice replaces a product price.
func (s *Store) UpdateProductPrice(ctx context.Context, id int64, price float64) error {
	return s.updateProductField(ctx, id, "price", price)
}

// UpdateProductImage replaces a product image; nil clears it.
func (s *Store) UpdateProductImage(ctx context.Context, id int64, fileID *string) error {
	return s.updateProductField(ctx, id, "image_file_id", fileID)
}

// UpdateProductCategory moves a product to another category; nil detaches it.
func (s *Store) UpdateProductCategory(ctx context.Context, id int64, categoryID *int64) error {
	return s.updateProductField(ctx, id, "category_id", categoryID)
}

// DeleteProduct removes a product. Orders referencing it keep their
// snapshot columns.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Orders ---

// InsertOrder appends an order with its product snapshot fields. Orders are
// never updated or deleted.
func (s *Store) InsertOrder(ctx context.Context, o domain.Order) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO orders (user_id, username, product_id, product_name, product_price, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		o.UserID, o.Username, o.ProductID, o.ProductName, o.ProductPrice, o.Phone)
	if err != nil {
		return 0, fmt.Errorf("store: insert order: %w", err)
	}
	return id, nil
}

// GetOrder returns one order row as stored, snapshots included.
func (s *Store) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := s.db.GetContext(ctx, &o, `
		SELECT id, user_id, username, product_id, product_name, product_price, phone, created_at
		FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("store: get order: %w", err)
	}
	return o, nil
}

// RecentOrders returns the newest orders with product and user display
// fallbacks resolved, newest first, bounded by limit.
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]domain.OrderReport, error) {
	var out []domain.OrderReport
	err := s.db.SelectContext(ctx, &out, `
		SELECT o.id,
		       o.user_id,
		       COALESCE(u.first_name, '') AS first_name,
		       COALESCE(u.last_name, '')  AS last_name,
		       o.username,
		       o.phone,
		       COALESCE(o.product_name, p.name, 'Noma''lum mahsulot') AS product,
		       COALESCE(o.product_price, p.price, 0) AS price,
		       o.created_at
		FROM orders o
		LEFT JOIN products p ON o.product_id = p.id
		LEFT JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent orders: %w", err)
	}
	return out, nil
}

// --- Users ---

// UpsertUser refreshes the cached Telegram profile for a user.
func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, username)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name  = EXCLUDED.last_name,
		    username   = EXCLUDED.username`,
		u.ID, u.FirstName, u.LastName, u.Username)
	if err != nil {
		return fmt.Errorf("store: upsert user: %w", err)
	}
	return nil
}
