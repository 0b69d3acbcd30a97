package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

// GormStore implements the catalog, coupon, order and checkout
// repositories on Postgres through GORM.
type GormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormStore creates a store. lockTimeout bounds how long a checkout
// waits on a row locked by a concurrent checkout; zero leaves the server
// default.
func NewGormStore(db *gorm.DB, lockTimeout time.Duration) *GormStore {
	return &GormStore{db: db, lockTimeout: lockTimeout}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// GetAll returns active products.
func (s *GormStore) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a product whether or not it is active.
func (s *GormStore) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByCode returns a coupon by code, active or not.
func (s *GormStore) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.WithContext(ctx).
		Where("LOWER(code) = ?", strings.ToLower(code)).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Create inserts a coupon.
func (s *GormStore) Create(ctx context.Context, coupon *models.Coupon) error {
	err := s.db.WithContext(ctx).Create(coupon).Error
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateCoupon
	}
	return err
}

// FindByNumber returns an order with its items.
func (s *GormStore) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// WithinTx runs fn in a database transaction, rolled back when fn errors.
func (s *GormStore) WithinTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			// SET does not take bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(&gormTx{tx: tx})
	})
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) CreateOrder(ctx context.Context, order *models.Order) error {
	err := t.tx.WithContext(ctx).Create(order).Error
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateOrderNumber
	}
	return err
}

func (t *gormTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res := t.tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND stock >= ?", productID, true, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		if pgCode(res.Error) == pgLockNotAvailable {
			return ErrStockConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (t *gormTx) RedeemCoupon(ctx context.Context, couponID int64) error {
	res := t.tx.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND is_active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID, true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		if pgCode(res.Error) == pgLockNotAvailable {
			return ErrCouponConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCouponConflict
	}
	return nil
}
