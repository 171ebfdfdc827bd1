package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/bazaarsetu/bazaarsetu-backend/api/routes"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/cart"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/orders"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/reviews"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/config"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/metrics"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/migrate"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	deps := routes.Deps{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
	}

	var counter redis.Counter
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		deps.Cache = redisClient
		deps.Idempotency = redisClient
		deps.Limiter = redisClient
		counter = redisClient
	} else {
		logg.Warn(ctx, "redis disabled: idempotency and rate limits are off, order numbers fall back to random suffixes")
	}

	var orderMetrics *metrics.OrderMetrics
	if cfg.FeatureFlags.Metrics {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		orderMetrics = metrics.NewOrderMetrics(registry)
		deps.Registry = registry
	}

	if err := wireServices(cfg, logg, dbClient, counter, orderMetrics, &deps); err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func wireServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, counter redis.Counter, orderMetrics *metrics.OrderMetrics, deps *routes.Deps) error {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	userSvc, err := users.NewService(userRepo, cfg.Password)
	if err != nil {
		return err
	}

	productRepo := products.NewRepository(conn)
	productSvc, err := products.NewService(productRepo)
	if err != nil {
		return err
	}

	cartSvc, err := cart.NewService(cart.NewRepository(conn), dbClient, productRepo, userSvc, orderMetrics)
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    ordersRepo,
		Tx:      dbClient,
		Carts:   cartSvc,
		Catalog: productRepo,
		Numbers: orders.NewNumberGenerator(counter, logg),
		Outbox:  outboxSvc,
		Metrics: orderMetrics,
		Logger:  logg,
		Config:  cfg.Orders,
	})
	if err != nil {
		return err
	}

	reviewSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:       reviews.NewRepository(conn),
		Tx:         dbClient,
		Orders:     ordersRepo,
		Reviewable: ordersSvc,
		Users:      userRepo,
		Outbox:     outboxSvc,
	})
	if err != nil {
		return err
	}

	deps.Users = userSvc
	deps.Products = productSvc
	deps.Cart = cartSvc
	deps.Orders = ordersSvc
	deps.Reviews = reviewSvc
	return nil
}
