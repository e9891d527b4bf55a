package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/jewelbot/bot/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO categories (name) VALUES ($1) RETURNING id`)).
		WithArgs("Uzuklar").
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := s.CreateCategory(context.Background(), "Uzuklar")
	assert.ErrorIs(t, err, ErrCategoryExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategoryReturnsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO categories (name) VALUES ($1) RETURNING id`)).
		WithArgs("Uzuklar").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := s.CreateCategory(context.Background(), "Uzuklar")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenameCategoryMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE categories SET name = $1 WHERE id = $2`)).
		WithArgs("Zirak", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.RenameCategory(context.Background(), 99, "Zirak")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategoryLeavesProducts(t *testing.T) {
	// Category deletion only touches the categories table; detaching products
	// is the schema's job via ON DELETE SET NULL.
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM categories WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteCategory(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductResolvesCategoryName(t *testing.T) {
	s, mock := newMockStore(t)

	catID := int64(2)
	catName := "Uzuklar"
	rows := sqlmock.NewRows([]string{
		"id", "category_id", "name", "description", "price", "image_file_id", "category_name",
	}).AddRow(int64(5), catID, "Oltin uzuk", nil, 1250000.0, nil, catName)

	mock.ExpectQuery("SELECT p.id, p.category_id").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	p, err := s.GetProduct(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Oltin uzuk", p.Name)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Uzuklar", *p.CategoryName)
}

func TestGetProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT p.id, p.category_id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProductCategoryDetach(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET category_id = $1 WHERE id = $2`)).
		WithArgs(nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateProductCategory(context.Background(), 5, nil))
}

func TestInsertOrderCarriesSnapshot(t *testing.T) {
	s, mock := newMockStore(t)

	username := "buyer"
	productID := int64(5)
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO orders (user_id, username, product_id, product_name, product_price, phone)`)).
		WithArgs(int64(10), &username, &productID, "Oltin uzuk", 1250000.0, "+998901234567").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	id, err := s.InsertOrder(context.Background(), domain.Order{
		UserID:       10,
		Username:     &username,
		ProductID:    &productID,
		ProductName:  "Oltin uzuk",
		ProductPrice: 1250000.0,
		Phone:        "+998901234567",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestRecentOrdersFallsBackToSnapshot(t *testing.T) {
	s, mock := newMockStore(t)

	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "first_name", "last_name", "username", "phone", "product", "price", "created_at",
	}).
		AddRow(int64(2), int64(10), "Ali", "", nil, "+998901234567", "Oltin uzuk", 1250000.0, created).
		AddRow(int64(1), int64(11), "", "", nil, "+998933334455", "Noma'lum mahsulot", 0.0, created.Add(-time.Hour))

	mock.ExpectQuery("SELECT o.id").
		WithArgs(30).
		WillReturnRows(rows)

	reports, err := s.RecentOrders(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	// Newest first; deleted products keep their snapshot or placeholder name.
	assert.Equal(t, int64(2), reports[0].ID)
	assert.Equal(t, "Noma'lum mahsulot", reports[1].Product)
}

func TestUpsertUser(t *testing.T) {
	s, mock := newMockStore(t)

	username := "ali"
	mock.ExpectExec("INSERT INTO users").
		WithArgs(int64(10), "Ali", "Valiyev", &username).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertUser(context.Background(), domain.User{
		ID: 10, FirstName: "Ali", LastName: "Valiyev", Username: &username,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
