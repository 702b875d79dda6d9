// Package cli provides the start-up steps shared by cmd/finboard and
// cmd/finboard-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadConfig loads the environment configuration, sets up logging and
// exits the process when the configuration is invalid.
func LoadConfig(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitRateService builds the rate service, fronted by Redis when REDIS_ADDR
// is set and reachable. The returned cleanup closes the Redis client.
func InitRateService(ctx context.Context, logger *applog.Logger, cfg *config.Config, repo *storage.SQLiteRepository) (*services.RateService, func()) {
	cleanup := func() {}
	if cfg.RedisAddr == "" {
		logger.Info("Redis rate cache disabled - no REDIS_ADDR provided")
		return services.NewRateService(repo, nil, cfg.BaseCurrency), cleanup
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	redisCache, err := cache.NewRedisRateCache(pingCtx, cfg.RedisAddr, cfg.RatesCacheTTL)
	if err != nil {
		logger.Warn("Redis unavailable, serving rates from SQLite only",
			applog.FieldError, err,
			"addr", cfg.RedisAddr)
		return services.NewRateService(repo, nil, cfg.BaseCurrency), cleanup
	}

	logger.Info("Redis rate cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RatesCacheTTL)
	cleanup = func() {
		if err := redisCache.Close(); err != nil {
			logger.Warn("Failed to close Redis client", applog.FieldError, err)
		}
	}
	return services.NewRateService(repo, redisCache, cfg.BaseCurrency), cleanup
}

// InitAMQP connects to the broker, or returns nil when AMQP_URL is unset.
// A connection failure is fatal when required is true.
func InitAMQP(logger *applog.Logger, cfg *config.Config, required bool) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRatesQueue, cfg.AMQPRemindersQueue)
	if err != nil {
		if required {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Warn("AMQP unavailable, continuing without messaging", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP client connected",
		"exchange", cfg.AMQPExchange,
		"rates_queue", cfg.AMQPRatesQueue,
		"reminders_queue", cfg.AMQPRemindersQueue)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
