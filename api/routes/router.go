package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazaarsetu/bazaarsetu-backend/api/controllers"
	cartcontrollers "github.com/bazaarsetu/bazaarsetu-backend/api/controllers/cart"
	ordercontrollers "github.com/bazaarsetu/bazaarsetu-backend/api/controllers/orders"
	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/cart"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/orders"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/reviews"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/config"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/metrics"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Cache, Idempotency and
// Limiter are nil when Redis is disabled; Registry is nil when metrics are off.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Cache       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Limiter     redis.RateLimiter
	Registry    *prometheus.Registry

	Users    users.Service
	Products products.Service
	Cart     cart.Service
	Orders   orders.Service
	Reviews  reviews.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)
	if deps.Registry != nil {
		r.Use(middleware.Metrics(metrics.NewHTTPMetrics(deps.Registry)))
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Cache,
		}))
	})

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.Orders.CheckoutRateWindow, cfg.Orders.CheckoutRateLimit)
	registerPolicy := middleware.NewRateLimitPolicy("register", cfg.HTTP.RegisterRateWindow, cfg.HTTP.RegisterRateLimit)

	vendor := middleware.RequireRole(logg, enums.UserRoleVendor)
	supplier := middleware.RequireRole(logg, enums.UserRoleSupplier)
	party := middleware.RequireRole(logg, enums.UserRoleVendor, enums.UserRoleSupplier)

	idempotency := middleware.Idempotency(deps.Idempotency, cfg.Orders.CheckoutIdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		// public
		r.With(middleware.RateLimit(registerPolicy, deps.Limiter, logg), idempotency).
			Post("/users/register", controllers.RegisterUser(deps.Users, logg))
		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(deps.Products, logg))
		r.Get("/reviews/suppliers/{supplierId}", controllers.SupplierReviews(deps.Reviews, logg))
		r.Get("/suppliers", controllers.ListSuppliers(deps.Users, logg))
		r.Get("/suppliers/{supplierId}", controllers.SupplierProfile(deps.Users, deps.Products, deps.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin)).
				Post("/admin/suppliers/{supplierId}/verify", controllers.AdminVerifySupplier(deps.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(supplier)
				r.Post("/products", controllers.SupplierCreateProduct(deps.Products, logg))
				r.Put("/products/{productId}", controllers.SupplierUpdateProduct(deps.Products, logg))
				r.Patch("/products/{productId}/stock", controllers.SupplierSetStock(deps.Products, logg))
				r.Get("/supplier/products", controllers.SupplierOwnProducts(deps.Products, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Use(vendor)
				r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
				r.Get("/summary", cartcontrollers.CartSummary(deps.Cart, logg))
				r.Post("/validate", cartcontrollers.CartValidate(deps.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
				r.Put("/items/{productId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(vendor, middleware.RateLimit(checkoutPolicy, deps.Limiter, logg), idempotency).
					Post("/", ordercontrollers.Checkout(deps.Orders, logg))
				r.With(party).Get("/", ordercontrollers.List(deps.Orders, logg))
				r.With(party).Get("/dashboard", ordercontrollers.Dashboard(deps.Orders, logg))
				r.With(party).Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.With(party, idempotency).Patch("/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.With(supplier, idempotency).Post("/{orderId}/accept", ordercontrollers.Accept(deps.Orders, logg))
				r.With(supplier, idempotency).Post("/{orderId}/reject", ordercontrollers.Reject(deps.Orders, logg))
				r.With(vendor, idempotency).Patch("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Use(vendor)
				r.With(idempotency).Post("/", controllers.CreateReview(deps.Reviews, logg))
				r.Get("/pending", controllers.PendingReviews(deps.Reviews, logg))
				r.Get("/mine", controllers.VendorReviews(deps.Reviews, logg))
			})
		})
	})

	return r
}
