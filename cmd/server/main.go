package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aydintd/carsi/internal"
	"github.com/aydintd/carsi/internal/handler/admin"
	"github.com/aydintd/carsi/internal/handler/api"
	"github.com/aydintd/carsi/internal/middleware"
	"github.com/aydintd/carsi/internal/postgres"
	"github.com/aydintd/carsi/internal/router"
	"github.com/aydintd/carsi/internal/routes"
	"github.com/aydintd/carsi/internal/service"
	"github.com/aydintd/carsi/internal/tax"
	"github.com/aydintd/carsi/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry error tracking
	sentryCleanup, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentryCleanup()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize tax configuration store, with the engine reading through
	// an in-process TTL cache invalidated by admin writes
	taxStore := postgres.NewTaxStore(pool)
	var engineStore tax.Store = taxStore
	var invalidator service.Invalidator
	if cfg.Tax.CacheTTL > 0 {
		cached := tax.NewCachedStore(taxStore, cfg.Tax.CacheTTL)
		engineStore = cached
		invalidator = cached
	}

	// Initialize tax engine
	logger.Info("Initializing tax engine...",
		"default_country", cfg.Tax.DefaultCountry,
		"default_class_code", cfg.Tax.DefaultClassCode)
	engine := tax.NewEngine(engineStore, cfg.Tax.DefaultCountry, cfg.Tax.DefaultClassCode)

	// Initialize admin configuration service
	configService := service.NewTaxConfigService(taxStore, invalidator, logger)

	// Initialize metrics
	httpMetrics := middleware.NewMetrics("carsi", nil)
	businessMetrics := telemetry.InitBusinessMetrics("carsi")

	// Initialize handlers
	taxHandler := api.NewTaxHandler(engine, logger, businessMetrics)
	adminHandler := admin.NewHandler(configService, logger, businessMetrics)

	// Create router and register routes
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.WithRequestLogger(logger),
		middleware.RequestLogging(logger),
		telemetry.SentryMiddleware(),
	)

	routes.Register(r, routes.Deps{
		Logger: logger,
		Pool:   pool,
		Tax:    taxHandler,
		Admin:  adminHandler,
	})

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting tax engine server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
