package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/storefront-dispatch/internal/config"
	"github.com/joao-fontenele/storefront-dispatch/internal/dispatch"
	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
	"github.com/joao-fontenele/storefront-dispatch/internal/messaging"
	"github.com/joao-fontenele/storefront-dispatch/internal/orders"
	"github.com/joao-fontenele/storefront-dispatch/internal/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load("dispatch", "8085")
	logger := cfg.Logger()

	if err := cfg.Require("POSTGRES_URL"); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	metrics, err := dispatch.NewMetrics(otel.Meter("dispatch"))
	if err != nil {
		logger.Error("failed to create dispatch metrics", "error", err)
		os.Exit(1)
	}

	dsn, err := telemetry.WithSearchPath(cfg.PostgresURL, "orders")
	if err != nil {
		logger.Error("invalid POSTGRES_URL", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", dsn)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	opts := []dispatch.Option{dispatch.WithMetrics(metrics)}
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, domain.TopicOrderStatusChanged)
		defer func() { _ = producer.Close() }()
		opts = append(opts, dispatch.WithPublisher(producer))
	} else {
		logger.Warn("KAFKA_BROKERS not set, status changes will not be published")
	}

	store := orders.NewOrderRepository(db)
	sessions := dispatch.NewSessions(func(vendorID string) *dispatch.Controller {
		return dispatch.NewController(store, logger.With("vendor_id", vendorID), opts...)
	})

	mux := telemetry.NewRouteMux()
	dispatch.NewHandler(sessions, logger).Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.ServerHandler(mux, cfg.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting dispatch service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(logger, server)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
