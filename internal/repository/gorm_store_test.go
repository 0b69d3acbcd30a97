package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormGetByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	p, err := store.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFindByCode_CaseInsensitive(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	rows := sqlmock.NewRows([]string{"id", "code", "type", "value", "min_purchase", "used_count", "is_active"}).
		AddRow(3, "WELCOME10", "percent", "10", "50.00", 0, true)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "coupons" WHERE LOWER(code) = $1`)).
		WillReturnRows(rows)

	c, err := store.FindByCode(context.Background(), "Welcome10")
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
	assert.Equal(t, "10", c.Value.String())
}

func TestGormFindByCode_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "coupons"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	_, err := store.FindByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, repository.ErrCouponNotFound)
}

func TestGormWithinTx_StockConflictRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 2*time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL lock_timeout = '2000ms'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		return tx.DecrementStock(context.Background(), 1, 5)
	})
	assert.ErrorIs(t, err, repository.ErrStockConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormWithinTx_LockTimeoutIsConflict(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		return tx.DecrementStock(context.Background(), 1, 1)
	})
	assert.ErrorIs(t, err, repository.ErrStockConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormWithinTx_CommitsDecrementAndRedeem(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "coupons" SET "used_count"=used_count + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		if err := tx.DecrementStock(context.Background(), 1, 2); err != nil {
			return err
		}
		return tx.RedeemCoupon(context.Background(), 3)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormWithinTx_CouponExhausted(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "coupons" SET "used_count"=used_count + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		return tx.RedeemCoupon(context.Background(), 3)
	})
	assert.ErrorIs(t, err, repository.ErrCouponConflict)
}

func TestGormWithinTx_PropagatesCallbackError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestOrder() *models.Order {
	return &models.Order{
		OrderNumber:   "FM20260310120000ABCDEF12",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Subtotal:      decimal.RequireFromString("20.00"),
		Total:         decimal.RequireFromString("35.00"),
		Shipping:      decimal.RequireFromString("15.00"),
		ShippingAddress: models.Address{
			Street: "Main St", Number: "1", City: "Springfield", State: "SP", PostalCode: "11111",
		},
		Items: []models.OrderItem{
			{ProductID: 1, ProductTitle: "Hammer", Price: decimal.RequireFromString("10.00"), Quantity: 2, Subtotal: decimal.RequireFromString("20.00")},
		},
	}
}

func TestGormWithinTx_OrderInsertRolledBackOnStockConflict(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(70))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	order := newTestOrder()
	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		if err := tx.CreateOrder(context.Background(), order); err != nil {
			return err
		}
		assert.Equal(t, int64(7), order.ID)
		assert.Equal(t, int64(7), order.Items[0].OrderID)
		return tx.DecrementStock(context.Background(), 1, 2)
	})
	assert.ErrorIs(t, err, repository.ErrStockConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateOrder_DuplicateNumber(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.CheckoutTx) error {
		return tx.CreateOrder(context.Background(), newTestOrder())
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateOrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateCoupon_Duplicate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "coupons"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := store.Create(context.Background(), &models.Coupon{
		Code: "SPRING5", Type: models.CouponTypeFixed, Value: decimal.NewFromInt(5), IsActive: true,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateCoupon)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFindByNumber_PreloadsItems(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_number = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "subtotal", "total"}).
			AddRow(7, "FM20260310120000ABCDEF12", "20.00", "35.00"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items" WHERE "order_items"."order_id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_title", "price", "quantity", "subtotal"}).
			AddRow(70, 7, 1, "Hammer", "10.00", 2, "20.00"))

	o, err := store.FindByNumber(context.Background(), "FM20260310120000ABCDEF12")
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("35.00")))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Hammer", o.Items[0].ProductTitle)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFindByNumber_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	_, err := store.FindByNumber(context.Background(), "FM0")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
