package main

import (
	"context"
	"net/http"
	"os"

	"github.com/brunomarket/fulfillment-backend/api/controllers"
	"github.com/brunomarket/fulfillment-backend/api/routes"
	"github.com/brunomarket/fulfillment-backend/internal/geo"
	"github.com/brunomarket/fulfillment-backend/internal/inventory"
	"github.com/brunomarket/fulfillment-backend/internal/invoices"
	"github.com/brunomarket/fulfillment-backend/internal/orders"
	"github.com/brunomarket/fulfillment-backend/internal/routing"
	"github.com/brunomarket/fulfillment-backend/internal/shipping"
	"github.com/brunomarket/fulfillment-backend/internal/stores"
	"github.com/brunomarket/fulfillment-backend/pkg/config"
	"github.com/brunomarket/fulfillment-backend/pkg/db"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/metrics"
	"github.com/brunomarket/fulfillment-backend/pkg/migrate"
	"github.com/brunomarket/fulfillment-backend/pkg/redis"
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	routingMetrics := metrics.NewRoutingMetrics(registry)

	geocoder := geo.NewNominatimClient(
		geo.WithEndpoint(cfg.Geocoder.Endpoint),
		geo.WithUserAgent(cfg.Geocoder.UserAgent),
		geo.WithTimeout(cfg.Geocoder.Timeout),
	)
	resolver, err := geo.NewResolver(
		geo.NewCacheRepository(dbClient.DB()),
		geocoder,
		redisClient,
		routingMetrics,
		logg,
		cfg.Geocoder.CacheTTL,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create geocode resolver", err)
		os.Exit(1)
	}

	storeSvc, err := stores.NewService(stores.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}

	source := inventory.NewSource(routingMetrics)
	engine, err := routing.NewEngine(
		cfg.Routing,
		storeSvc,
		source,
		[]routing.Strategy{routing.NewDistanceFirst(resolver), routing.NewRegionFirst(resolver)},
		routingMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create routing engine", err)
		os.Exit(1)
	}

	provider, err := shipping.NewProvider(cfg.Shipping)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping provider", err)
		os.Exit(1)
	}
	shippingSvc, err := shipping.NewService(shipping.NewRepository(dbClient.DB()), dbClient, provider, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	invoiceSvc, err := invoices.NewService(invoices.NewRepository(dbClient.DB()), nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		engine,
		source,
		shippingSvc,
		invoiceSvc,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"strategy": engine.Strategy(),
	})
	logg.Info(ctx, "starting api server")

	var redisCheck controllers.Pinger
	if redisClient != nil {
		redisCheck = redisClient
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg,
			dbClient,
			redisCheck,
			registry,
			storeSvc,
			ordersSvc,
			shippingSvc,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
