package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the union of settings read by the storefront services. Each
// service checks the subset it needs with Require.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Port           string
	LogLevel       slog.Level

	PostgresURL    string
	MigrationsPath string
	KafkaBrokers   []string
	RedisURL       string
	DedupTTL       time.Duration

	OrdersServiceURL    string
	DispatchServiceURL  string
	InventoryServiceURL string
	EmailServiceURL     string

	OTLPEndpoint string
	HTTPTimeout  time.Duration
}

// Load reads a .env file when present and then the process environment.
// defaultPort is used when PORT is unset.
func Load(serviceName, defaultPort string) *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:    serviceName,
		ServiceVersion: getEnv("SERVICE_VERSION", "0.1.0"),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),

		PostgresURL:    os.Getenv("POSTGRES_URL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		RedisURL:       os.Getenv("REDIS_URL"),
		DedupTTL:       getEnvAsDuration("DEDUP_TTL", 24*time.Hour),

		OrdersServiceURL:    os.Getenv("ORDERS_SERVICE_URL"),
		DispatchServiceURL:  os.Getenv("DISPATCH_SERVICE_URL"),
		InventoryServiceURL: os.Getenv("INVENTORY_SERVICE_URL"),
		EmailServiceURL:     os.Getenv("EMAIL_SERVICE_URL"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
	}
}

// Require returns an error naming every listed variable that is empty.
func (c *Config) Require(keys ...string) error {
	values := map[string]bool{
		"POSTGRES_URL":          c.PostgresURL != "",
		"KAFKA_BROKERS":         len(c.KafkaBrokers) > 0,
		"REDIS_URL":             c.RedisURL != "",
		"ORDERS_SERVICE_URL":    c.OrdersServiceURL != "",
		"DISPATCH_SERVICE_URL":  c.DispatchServiceURL != "",
		"INVENTORY_SERVICE_URL": c.InventoryServiceURL != "",
		"EMAIL_SERVICE_URL":     c.EmailServiceURL != "",
	}

	var errs []error
	for _, key := range keys {
		set, known := values[key]
		if !known {
			errs = append(errs, fmt.Errorf("unknown setting %s", key))
			continue
		}
		if !set {
			errs = append(errs, fmt.Errorf("%s environment variable is required", key))
		}
	}
	return errors.Join(errs...)
}

// Logger builds the JSON logger every service writes to stdout.
func (c *Config) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel})).
		With("service", c.ServiceName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
