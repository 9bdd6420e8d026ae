package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/storefront-dispatch/internal/cache"
	"github.com/joao-fontenele/storefront-dispatch/internal/config"
	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
	"github.com/joao-fontenele/storefront-dispatch/internal/messaging"
	"github.com/joao-fontenele/storefront-dispatch/internal/telemetry"
	"github.com/joao-fontenele/storefront-dispatch/internal/worker"
)

const groupID = "notification-worker"

func main() {
	cfg := config.Load("worker", "8083")
	logger := cfg.Logger()

	if err := cfg.Require("KAFKA_BROKERS", "EMAIL_SERVICE_URL", "ORDERS_SERVICE_URL", "INVENTORY_SERVICE_URL"); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := worker.NewHandler(worker.ServiceURLs{
		Email:     cfg.EmailServiceURL,
		Orders:    cfg.OrdersServiceURL,
		Inventory: cfg.InventoryServiceURL,
	}, httpClient, logger)

	wrap := func(h messaging.Handler) messaging.Handler { return h }
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()

		deduper := cache.NewDeduper(rdb, cfg.DedupTTL)
		wrap = func(h messaging.Handler) messaging.Handler { return worker.Once(deduper, logger, h) }
	} else {
		logger.Warn("REDIS_URL not set, redelivered events will be handled again")
	}

	subscriptions := map[string]messaging.Handler{
		domain.TopicOrderCreated:       handler.HandleOrderCreated,
		domain.TopicOrderCancelled:     handler.HandleOrderCancelled,
		domain.TopicOrderStatusChanged: handler.HandleStatusChanged,
	}

	g, gctx := errgroup.WithContext(ctx)

	for topic, h := range subscriptions {
		consumer := messaging.NewConsumer(cfg.KafkaBrokers, topic, groupID)
		defer func() { _ = consumer.Close() }()

		handle := wrap(h)
		g.Go(func() error {
			logger.Info("consuming", "topic", topic, "group", groupID)
			return consumer.Consume(gctx, handle)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
