package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const connectAttempts = 5

// Connect opens a Postgres pool, retrying with a growing backoff while the
// database comes up.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}
			logger.Info("connected to PostgreSQL")
			return db, nil
		}

		logger.Warn("database connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 2 * time.Second):
		}
	}

	return nil, fmt.Errorf("connect to PostgreSQL after %d attempts: %w", connectAttempts, err)
}

const couponCodeLowerIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code_lower ON coupons (LOWER(code))`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Product{}, &models.Coupon{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return ensureCouponCodeIndex(db)
}

// ensureCouponCodeIndex makes coupon codes unique regardless of case. The
// plain unique index on code stays for the seeder's ON CONFLICT target.
func ensureCouponCodeIndex(db *gorm.DB) error {
	if err := db.Exec(couponCodeLowerIndex).Error; err != nil {
		return fmt.Errorf("create coupon code index: %w", err)
	}
	return nil
}

// Seed inserts the demo catalog and coupons, leaving existing rows alone.
func Seed(ctx context.Context, db *gorm.DB) error {
	products := repository.SeedProducts()
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&products).Error; err != nil {
		return fmt.Errorf("seed products: %w", err)
	}

	coupons := repository.SeedCoupons()
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&coupons).Error; err != nil {
		return fmt.Errorf("seed coupons: %w", err)
	}
	return nil
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
