// Package domain defines the catalog entities persisted by the bot.
package domain

import "time"

// Category groups products. Products survive category deletion and become
// uncategorized.
type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Product is a single catalog item. CategoryID and ImageFileID are optional;
// an absent category is a first-class state, not an error.
type Product struct {
	ID          int64   `db:"id"`
	CategoryID  *int64  `db:"category_id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	Price       float64 `db:"price"`
	ImageFileID *string `db:"image_file_id"`
	// CategoryName is populated by joined reads only.
	CategoryName *string `db:"category_name"`
}

// Order records a purchase intent. ProductName and ProductPrice are
// snapshots taken at order time and are never recomputed from the product
// row, so history stays accurate after edits or deletion.
type Order struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Username     *string   `db:"username"`
	ProductID    *int64    `db:"product_id"`
	ProductName  string    `db:"product_name"`
	ProductPrice float64   `db:"product_price"`
	Phone        string    `db:"phone"`
	CreatedAt    time.Time `db:"created_at"`
}

// OrderReport is one row of the admin orders listing with display fallbacks
// already resolved by the query.
type OrderReport struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Username  *string   `db:"username"`
	Phone     string    `db:"phone"`
	Product   string    `db:"product"`
	Price     float64   `db:"price"`
	CreatedAt time.Time `db:"created_at"`
}

// User is an opportunistic display cache of Telegram profile data, refreshed
// on every inbound event.
type User struct {
	ID        int64   `db:"id"`
	FirstName string  `db:"first_name"`
	LastName  string  `db:"last_name"`
	Username  *string `db:"username"`
}
