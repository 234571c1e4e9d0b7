// Package main is the entry point for the seqstore API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"seqstore/internal/core/sequence"
	"seqstore/internal/domain/auth"
	v1 "seqstore/internal/infrastructure/http/v1"
	"seqstore/internal/infrastructure/http/v1/middleware"
	seqservice "seqstore/internal/infrastructure/sequence"
	"seqstore/internal/infrastructure/storage/postgres"
	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
	"seqstore/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	log, err := logger.New(loggerConfig())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting seqstore server", "version", version)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	poolCfg.ApplicationName = getEnv("DB_APPLICATION_NAME", poolCfg.ApplicationName)

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = getEnvDuration("DB_STATEMENT_TIMEOUT", txOpts.StatementTimeout)
	txOpts.LockTimeout = getEnvDuration("DB_LOCK_TIMEOUT", txOpts.LockTimeout)
	txManager := postgres.NewTxManager(pool, txOpts)

	mapping := sequence.TableMapping{Table: getEnv("SEQUENCE_TABLE", sequence.DefaultTable)}.WithDefaults()
	if getEnv("SCHEMA_AUTO_CREATE", "false") == "true" {
		err := txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return sequence_repo.CreateTable(ctx, postgres.TxFromContext(ctx).Tx, mapping,
				sequence_repo.SchemaOptions{IfNotExists: true})
		})
		if err != nil {
			log.Fatalw("failed to create sequence table", "table", mapping.Table, "error", err)
		}
		log.Infow("sequence table ready", "table", mapping.Table)
	}

	// --- Sequence Service ---
	sequences := seqservice.New(txManager,
		seqservice.WithEngineCacheSize(getEnvInt("SEQUENCE_ENGINE_CACHE_SIZE", seqservice.DefaultEngineCacheSize)))

	// --- JWT Service ---
	var validator middleware.JWTValidator
	if getEnv("AUTH_ENABLED", "true") == "true" {
		jwtConfig := auth.DefaultJWTConfig(mustEnv("JWT_SECRET"))
		validator = auth.NewJWTService(jwtConfig)
	} else {
		log.Warn("authentication disabled, /api/v1 is open")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: validator,
		Sequences:    sequences,
		Reader:       sequence_repo.NewReader(pool.Pool),
		Table:        mapping,
		Database:     pool,
		Version:      version,
	})

	// --- Pool stats ---
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	if interval := getEnvDuration("POOL_STATS_INTERVAL", 0); interval > 0 {
		go logPoolStats(statsCtx, pool, interval)
	}

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func loggerConfig() logger.Config {
	cfg := logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	}
	if path := getEnv("LOG_FILE", ""); path != "" {
		cfg.File = &logger.FileConfig{
			Path:       path,
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 30),
			Compress:   getEnv("LOG_FILE_COMPRESS", "true") == "true",
		}
	}
	return cfg
}

func logPoolStats(ctx context.Context, pool *postgres.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
