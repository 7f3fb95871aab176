package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func testOrder() (*entity.Order, entity.OrderPlaced) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	items := []entity.OrderItem{{ProductID: "p1", Name: "Pixel 7", Price: decimal.NewFromInt(999), Quantity: 2}}
	placed := entity.OrderPlaced{
		OrderID:  "o1",
		BuyerID:  "b1",
		Items:    items,
		Subtotal: decimal.NewFromInt(1998),
		Total:    decimal.NewFromInt(2148),
		PlacedAt: now,
	}
	agg := entity.NewOrderAggregate(entity.Order{})
	if err := agg.ApplyEvent(placed); err != nil {
		panic(err)
	}
	o := agg.Order
	return &o, placed
}

func TestPlaceOrder_CommitsUnitOfWork(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order, placed := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $1")).
		WithArgs(2, "p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM events")).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(sqlmock.AnyArg(), "o1", entity.StreamOrder, 1, entity.EventOrderPlaced, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_lines WHERE buyer_id = $1")).
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.PlaceOrder(context.Background(), order, placed))
}

func TestPlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order, placed := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)")).
		WithArgs(order.Items[0].ProductID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.PlaceOrder(context.Background(), order, placed)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)
}

func TestPlaceOrder_MissingProductRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order, placed := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)")).
		WithArgs(order.Items[0].ProductID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.PlaceOrder(context.Background(), order, placed)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
	assert.NotErrorIs(t, err, entity.ErrInsufficientStock)
}

func TestSave_StaleVersion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order, _ := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), repository.OrderChange{Order: order, ExpectedVersion: 1})
	assert.ErrorIs(t, err, entity.ErrConcurrentModification)
}

func TestSave_PaymentAndRestock(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepository(db)
	order, _ := testOrder()
	order.Status = entity.OrderStatusCancelled
	order.PaymentStatus = entity.PaymentStatusFailed
	order.Version = 2

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM events")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + $1")).
		WithArgs(2, "p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), repository.OrderChange{
		Order:           order,
		ExpectedVersion: 1,
		Events:          []entity.Event{entity.PaymentFailed{OrderID: "o1", Reason: "declined"}},
		Payment:         &entity.Payment{ID: "pay1", OrderID: "o1", Status: entity.PaymentStatusFailed, IdempotencyKey: "order:o1"},
		Restock:         true,
	})
	require.NoError(t, err)
}

func TestEventStore_StreamVersionMismatch(t *testing.T) {
	db, mock := newMock(t)
	store := NewEventStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM events")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectRollback()

	err := store.SaveEvents(context.Background(), "o1", entity.StreamOrder, 2, []entity.Event{entity.OrderCancelled{OrderID: "o1"}})
	assert.ErrorIs(t, err, entity.ErrConcurrentModification)
}

func TestEventStore_LoadEvents(t *testing.T) {
	db, mock := newMock(t)
	store := NewEventStore(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE stream_id = $1 ORDER BY version ASC")).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "stream_id", "stream_type", "version", "event_type", "payload", "created_at"}).
			AddRow("e1", "o1", "order", 1, entity.EventOrderPlaced, []byte(`{"order_id":"o1"}`), now))

	records, err := store.LoadEvents(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	e, err := entity.DecodeEvent(records[0])
	require.NoError(t, err)
	assert.Equal(t, "o1", e.(entity.OrderPlaced).OrderID)
}

func TestVerificationCreate_ActiveRequestExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVerificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verifications")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "verifications_one_active_idx"})

	err := repo.Create(context.Background(), &entity.SellerVerification{ID: "v1", UserID: "u1", Status: entity.VerificationPending})
	assert.ErrorIs(t, err, entity.ErrActiveVerificationExists)
}

func TestVerificationReview_ApprovePromotesUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVerificationRepository(db)
	now := time.Now()
	v := &entity.SellerVerification{ID: "v1", UserID: "u1", Status: entity.VerificationApproved, ReviewedAt: &now, ReviewerID: "admin"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE verifications SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Review(context.Background(), v))
}

func TestUserCreate_EmailTaken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &entity.User{ID: "u1", Email: "a@b.c"})
	assert.ErrorIs(t, err, entity.ErrEmailTaken)
}

func TestProductFindByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
}

func TestProductFindAll_BuildsFilterQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepository(db)
	minPrice := decimal.NewFromInt(1000)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active AND LOWER(brand) = LOWER($1) AND price >= $2 AND (name ILIKE $3 OR description ILIKE $3 OR brand ILIKE $3) ORDER BY name, id LIMIT $4")).
		WithArgs("Apple", minPrice, "%iphone%", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	products, err := repo.FindAll(context.Background(), entity.ProductFilter{Brand: "Apple", MinPrice: &minPrice, Search: "iphone", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, products)
}
