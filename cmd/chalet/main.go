package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imranbb88/chalet-manager/internal/config"
	"github.com/imranbb88/chalet-manager/internal/handler"
	"github.com/imranbb88/chalet-manager/internal/infra/cache"
	"github.com/imranbb88/chalet-manager/internal/infra/localauth"
	"github.com/imranbb88/chalet-manager/internal/infra/memory"
	"github.com/imranbb88/chalet-manager/internal/infra/observability"
	"github.com/imranbb88/chalet-manager/internal/infra/resilience"
	"github.com/imranbb88/chalet-manager/internal/infra/session"
	"github.com/imranbb88/chalet-manager/internal/infra/sqlite"
	"github.com/imranbb88/chalet-manager/internal/infra/supabase"
	"github.com/imranbb88/chalet-manager/internal/port"
	"github.com/imranbb88/chalet-manager/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("view_state_ttl", cfg.ViewStateTTL),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("session_verification", cfg.SessionSecret != ""),
		zap.Bool("dev_tools", cfg.DevTools),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "chalet-manager")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Clock ---
	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	// --- Sessions ---
	var issuer *session.Issuer
	if cfg.SessionSecret != "" {
		issuer = session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL, nil)
	}

	// --- Data backend ---
	var (
		store    port.LedgerStore
		provider port.AuthProvider
		ready    func(ctx context.Context) error
	)

	switch cfg.DataBackend {
	case config.BackendSupabase:
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		}
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
		store = supabaseClient
		provider = supabaseClient

	case config.BackendSQLite:
		logger.Info("using SQLite as data backend", zap.String("path", cfg.SQLiteDBPath))
		db, err := sqlite.NewStore(cfg.SQLiteDBPath, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		defer db.Close()
		store = db
		ready = db.Ping
		provider = localauth.NewProvider(issuer, cfg.OperatorEmail, cfg.OperatorPasswordHash, 0)

	case config.BackendMemory:
		logger.Warn("using in-memory data backend: records are lost on restart")
		store = memory.NewStore()
		provider = localauth.NewProvider(issuer, cfg.OperatorEmail, cfg.OperatorPasswordHash, 0)
	}

	if cfg.DataBackend != config.BackendSupabase && cfg.OperatorEmail == "" {
		logger.Warn("no operator account configured: sign up to create one")
	}

	// --- View state ---
	views := cache.New[service.ViewState](cfg.ViewStateTTL)
	defer views.Close()

	// --- Services ---
	dashSvc := service.NewDashboardService(store, views, now, metrics, logger)
	ledgerSvc := service.NewLedgerService(store, now, metrics, logger)
	authSvc := service.NewAuthService(provider, metrics, logger)

	// --- Router ---
	opts := handler.Options{
		CookieName:    cfg.SessionCookieName,
		SecureCookies: cfg.SecureCookies,
		DevTools:      cfg.DevTools,
		Ready:         ready,
	}
	if issuer != nil {
		opts.Verifier = issuer
	}
	router := handler.NewRouter(dashSvc, ledgerSvc, authSvc, opts, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
