package handlers

import (
	"net/http"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/config"
	"github.com/Lixing-Zhang/storefront/internal/middleware"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Services bundles what the router wires into handlers.
type Services struct {
	Products *service.ProductService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Coupons  *service.CouponService
	Sessions session.Store
}

// NewRouter builds the HTTP surface.
func NewRouter(cfg *config.Config, svc Services, version string, logger *zap.Logger) http.Handler {
	healthHandler := NewHealthHandler(version, logger)
	productHandler := NewProductHandler(svc.Products, logger)
	cartHandler := NewCartHandler(svc.Cart, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)
	couponHandler := NewCouponHandler(svc.Coupons, logger)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	requireKey := middleware.APIKeyAuth(cfg.Auth)
	withSession := middleware.Session(svc.Sessions, cfg.Session.TTL, logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key", middleware.SessionHeader},
		ExposedHeaders:   []string{"Link", middleware.SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter))

		r.Get("/product", productHandler.ListProducts)
		r.Get("/product/{productId}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(withSession)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productId}", cartHandler.UpdateItem)
			r.Delete("/cart/items/{productId}", cartHandler.RemoveItem)
			r.Post("/cart/coupon", cartHandler.PreviewCoupon)

			r.With(requireKey).Post("/checkout", checkoutHandler.Checkout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireKey)

			r.Get("/orders/{orderNumber}", orderHandler.GetOrder)
			r.Post("/admin/coupons", couponHandler.CreateCoupon)
		})
	})

	return r
}
