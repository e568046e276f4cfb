package main

import (
	"context"
	"net/http"
	"os"

	"github.com/advancehq/reconciliation-backend/api/routes"
	"github.com/advancehq/reconciliation-backend/internal/events"
	"github.com/advancehq/reconciliation-backend/internal/matching"
	"github.com/advancehq/reconciliation-backend/internal/reconciliation"
	"github.com/advancehq/reconciliation-backend/internal/webhooks"
	"github.com/advancehq/reconciliation-backend/pkg/config"
	"github.com/advancehq/reconciliation-backend/pkg/db"
	"github.com/advancehq/reconciliation-backend/pkg/locks"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
	"github.com/advancehq/reconciliation-backend/pkg/metrics"
	"github.com/advancehq/reconciliation-backend/pkg/migrate"
	"github.com/advancehq/reconciliation-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ingestMetrics := metrics.NewIngestMetrics(registry)

	eventStore, err := events.NewService(events.ServiceParams{
		Repo:   events.NewRepository(dbClient.DB()),
		Locks:  locks.NewKeyed(0),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event store", err)
		os.Exit(1)
	}

	reconService, err := reconciliation.NewService(reconciliation.ServiceParams{
		Events:   eventStore,
		Links:    reconciliation.NewRepository(dbClient.DB()),
		Matching: matching.NewConfig(cfg.Matching),
		Logger:   logg,
		Metrics:  ingestMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	paymentGuard, err := webhooks.NewEventGuard(redisClient, cfg.Webhook.EventGuardTTL, "payments")
	if err != nil {
		logg.Error(context.Background(), "failed to create payment event guard", err)
		os.Exit(1)
	}
	transactionGuard, err := webhooks.NewEventGuard(redisClient, cfg.Webhook.EventGuardTTL, "transactions")
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction event guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			Reconciliation:   reconService,
			PaymentGuard:     paymentGuard,
			TransactionGuard: transactionGuard,
			Metrics:          ingestMetrics,
			Registry:         registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
