package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ovenworks/bakehouse-backend/api/routes"
	"github.com/ovenworks/bakehouse-backend/internal/cart"
	"github.com/ovenworks/bakehouse-backend/internal/cron"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	"github.com/ovenworks/bakehouse-backend/internal/inventory"
	"github.com/ovenworks/bakehouse-backend/internal/notifications"
	"github.com/ovenworks/bakehouse-backend/internal/orders"
	"github.com/ovenworks/bakehouse-backend/internal/products"
	"github.com/ovenworks/bakehouse-backend/pkg/config"
	"github.com/ovenworks/bakehouse-backend/pkg/db"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
	"github.com/ovenworks/bakehouse-backend/pkg/metrics"
	"github.com/ovenworks/bakehouse-backend/pkg/migrate"
	"github.com/ovenworks/bakehouse-backend/pkg/pubsub"
	"github.com/ovenworks/bakehouse-backend/pkg/redis"
	"github.com/ovenworks/bakehouse-backend/pkg/tasks"
)

const (
	taskTimeout     = 30 * time.Second
	shutdownTimeout = 15 * time.Second
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storefrontMetrics := metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer)

	resolver, err := identity.NewResolver(cfg.JWT, redisClient, cfg.Cart.GuestSessionTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity resolver", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())

	cartCache, err := cart.NewCache(redisClient, cfg.Cart.CacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart cache", err)
		os.Exit(1)
	}
	synchronizer, err := cart.NewSynchronizer(cartRepo, cfg.Cart.SyncDebounce, logg, storefrontMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart synchronizer", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartCache, synchronizer, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	runner := tasks.NewRunner(logg, taskTimeout)

	orderParams := orders.ServiceParams{
		Tx:       dbClient,
		Orders:   orders.NewRepository(dbClient.DB()),
		Carts:    cartRepo,
		Flusher:  cartService,
		Products: productRepo,
		Ledger:   inventory.NewLedger(),
		Runner:   runner,
		Metrics:  storefrontMetrics,
		Logger:   logg,
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	dispatcher, err := notifications.NewDispatcher(pubsubClient.NotificationPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	orderParams.Notifier = dispatcher

	orderService, err := orders.NewService(orderParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startRetrySweep(ctx, cfg, logg, synchronizer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serveCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serveCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Resolver: resolver,
			Products: productService,
			Cart:     cartService,
			Orders:   orderService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(serveCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serveCtx, "server shutdown failed", err)
	}

	// flush any carts still waiting on a debounced push
	if err := synchronizer.Close(shutdownCtx); err != nil {
		logg.Error(serveCtx, "cart synchronizer close failed", err)
	}
	runner.Wait()

	logg.Info(serveCtx, "api server shut down gracefully")
}

// startRetrySweep schedules the dirty-cart retry job inside the API process,
// where the synchronizer state lives.
func startRetrySweep(ctx context.Context, cfg *config.Config, logg *logger.Logger, synchronizer *cart.Synchronizer) {
	retryJob, err := cron.NewCartRetryJob(cron.CartRetryJobParams{
		Logger:  logg,
		Sweeper: synchronizer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart retry job", err)
		os.Exit(1)
	}
	sweepService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(retryJob),
		Lock:     &cron.LocalLock{},
		Interval: cfg.Cart.SyncRetryInterval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create retry sweep service", err)
		os.Exit(1)
	}
	go func() {
		_ = sweepService.Run(ctx)
	}()
}
