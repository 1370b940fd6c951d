package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/signup/internal"
	"github.com/DukeRupert/signup/internal/handler"
	"github.com/DukeRupert/signup/internal/metrics"
	"github.com/DukeRupert/signup/internal/middleware"
	"github.com/DukeRupert/signup/internal/repository"
	"github.com/DukeRupert/signup/internal/service"
	"github.com/DukeRupert/signup/internal/session"
	"github.com/DukeRupert/signup/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func runServer(ctx context.Context) error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := openDB(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository and session store
	repo := repository.New(db)

	sessions, closeSessions, err := newSessionStore(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	logger.Info("Session store ready", "backend", cfg.SessionStore)

	cookies := session.NewCookieCodec([]byte(cfg.SessionSecret), cfg.IsProduction())

	// Initialize services
	userService := service.NewUserService(repo, sessions, service.NewBcryptHasher(), logger)
	contactService := service.NewContactService(repo, logger)

	// Initialize middleware
	clientIP, err := middleware.NewClientIP(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	sessionMw := middleware.NewSessionMiddleware(userService, cookies, logger)
	authLimiter := middleware.NewAuthRateLimiter(clientIP, logger)
	defer authLimiter.Close()
	corsMw := middleware.NewCORSMiddleware(cfg.CORSAllowedOrigins, cfg.IsProduction(), logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction(), "/")
	loggingMw := middleware.NewRequestLoggingMiddleware(logger, clientIP)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, cookies, logger)
	contactHandler := handler.NewContactHandler(contactService, logger)
	siteHandler := handler.NewSiteHandler(logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	siteHandler.RegisterRoutes(mux)
	authHandler.RegisterRoutes(mux, authLimiter.LimitRegister, authLimiter.LimitLogin, sessionMw.RequireSession)
	contactHandler.RegisterRoutes(mux)

	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("Metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Global middleware, outermost first
	app := middleware.Stack(
		metrics.Middleware,
		loggingMw.Handler,
		securityMw.Handler,
		corsMw.Handler,
		sessionMw.WithSession,
	)(mux)

	// ==========================================================================
	// Background workers
	// ==========================================================================

	sweeperCfg := worker.DefaultConfig()
	sweeperCfg.Interval = cfg.SessionSweepInterval
	sweeper, err := worker.New(sessions, sweeperCfg, logger)
	if err != nil {
		return fmt.Errorf("session sweeper initialization failed: %w", err)
	}
	sweeperCtx, cancelSweeper := context.WithCancel(ctx)
	defer cancelSweeper()
	sweeper.Start(sweeperCtx)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		sweeper.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	sweeper.Stop()

	logger.Info("Graceful shutdown complete")
	return nil
}

// openDB opens and pings the Postgres database.
func openDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// newSessionStore builds the backend named by SESSION_STORE. The returned
// func releases any connection the store owns.
func newSessionStore(ctx context.Context, cfg *internal.Config, db *sql.DB, logger *slog.Logger) (session.Store, func(), error) {
	noop := func() {}

	switch cfg.SessionStore {
	case internal.SessionStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("redis ping failed: %w", err)
		}
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil

	case internal.SessionStoreMemory:
		logger.Warn("Using in-memory sessions; sessions are lost on restart")
		return session.NewMemoryStore(), noop, nil

	default:
		return session.NewPostgresStore(db), noop, nil
	}
}
