package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/config"
	"github.com/Lixing-Zhang/storefront/internal/database"
	"github.com/Lixing-Zhang/storefront/internal/handlers"
	"github.com/Lixing-Zhang/storefront/internal/notify"
	"github.com/Lixing-Zhang/storefront/internal/pricing"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "1.0.0"

// store is everything the services need from persistence.
type store interface {
	repository.ProductRepository
	repository.CouponRepository
	repository.OrderRepository
	repository.CheckoutStore
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	log.Info("starting storefront api server",
		zap.String("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("session_driver", cfg.Session.Driver),
	)

	ctx := context.Background()

	// Persistence
	var (
		st store
		db *gorm.DB
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err = database.Connect(ctx, cfg.Store.DatabaseURL, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if cfg.Store.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				log.Fatal("failed to migrate database", zap.Error(err))
			}
			if err := database.Seed(ctx, db); err != nil {
				log.Fatal("failed to seed database", zap.Error(err))
			}
		}
		st = repository.NewGormStore(db, cfg.Store.LockTimeout)
	default:
		log.Warn("using in-memory store, data is lost on restart")
		st = repository.NewSeededMemoryStore()
	}

	// Session carts
	var (
		sessions   session.Store
		closeRedis func() error
	)
	switch cfg.Session.Driver {
	case config.DriverRedis:
		client, err := session.NewRedisClient(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		closeRedis = client.Close
		sessions = session.NewRedisStore(client, cfg.Session.TTL)
	default:
		sessions = session.NewMemoryStore(cfg.Session.TTL)
	}

	// Order notifications
	var sink notify.Notifier = notify.NewLogNotifier(log)
	if cfg.Notify.TopicARN != "" {
		client, err := notify.NewSNSClient(ctx)
		if err != nil {
			log.Fatal("failed to configure sns", zap.Error(err))
		}
		sink = notify.NewSNSNotifier(client, cfg.Notify.TopicARN)
		log.Info("publishing order events", zap.String("topic_arn", cfg.Notify.TopicARN))
	}
	notifier := notify.NewAsync(sink, cfg.Notify.Timeout, log)

	calculator := pricing.NewCalculator(pricing.ZoneShipping{
		BaseRate:      cfg.Pricing.ShippingRate,
		FreeThreshold: cfg.Pricing.FreeShippingThreshold,
	}, cfg.Pricing.TaxRate)

	// Initialize services
	svc := handlers.Services{
		Products: service.NewProductService(st),
		Cart:     service.NewCartService(st, st, calculator),
		Checkout: service.NewCheckoutService(st, st, st, calculator, notifier, log),
		Orders:   service.NewOrderService(st),
		Coupons:  service.NewCouponService(st),
		Sessions: sessions,
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(cfg, svc, version, log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// in-flight order events
	notifier.Wait()

	if closeRedis != nil {
		if err := closeRedis(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}

	log.Info("server stopped gracefully")
}
