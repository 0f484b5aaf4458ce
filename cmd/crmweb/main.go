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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/config"
	"github.com/boddenberg/insurance-crm-web/internal/handler"
	"github.com/boddenberg/insurance-crm-web/internal/infra/client"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
	"github.com/boddenberg/insurance-crm-web/internal/infra/redisstore"
	"github.com/boddenberg/insurance-crm-web/internal/infra/resilience"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
	"github.com/boddenberg/insurance-crm-web/internal/service"
	"github.com/boddenberg/insurance-crm-web/internal/session"
	"github.com/boddenberg/insurance-crm-web/internal/view"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_url", cfg.BackendURL),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "insurance-crm-web")
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Backend clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	backend := client.NewBackend(httpClient, cfg.BackendURL, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}, metrics, logger)

	leads := client.NewLeadsClient(backend)
	scheduler := client.NewSchedulerClient(backend)
	voice := client.NewVoiceClient(backend)
	prospectus := client.NewProspectusClient(backend)
	email := client.NewEmailClient(backend)
	admin := client.NewAdminClient(backend)
	products := client.NewProductsClient(backend)
	categories := client.NewCategoriesClient(backend)

	// --- Query cache ---
	attempts := time.Duration(cfg.MaxRetries + 1)
	queries := query.New(cfg.CacheTTL, metrics, logger,
		query.WithFetchTimeout(attempts*cfg.HTTPTimeout+attempts*cfg.InitialBackoff))
	defer queries.Close()

	// --- Services ---
	auth := service.NewAuthService(client.NewAuthClient(backend), cfg.AuthCacheTTL, logger)
	defer auth.Close()

	// --- Sessions ---
	cookie := session.CookieOptions{Name: cfg.SessionCookie, TTL: cfg.SessionTTL, Secure: cfg.CookieSecure}
	checks := []handler.HealthCheck{{
		Name: "crm-backend",
		Check: func(context.Context) error {
			if backend.BreakerState() == gobreaker.StateOpen {
				return errors.New("circuit breaker open")
			}
			return nil
		},
	}}

	var persistence session.Persistence
	var limiter port.RateLimiter
	switch cfg.SessionBackend {
	case config.SessionRedis:
		rdb := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisNamespace)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()); err != nil {
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		persistence = session.NewServerPersistence(redisstore.NewSessions(rdb, cfg.SessionTTL), cookie, logger)
		limiter = redisstore.NewRateLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.LoginBlock)
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: rdb.Ping})
		logger.Info("sessions stored in redis", zap.String("addr", cfg.RedisAddr))
	default:
		secret := []byte(cfg.SessionSecret)
		if len(secret) == 0 {
			logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
			secret = session.RandomSecret()
		}
		sealer, err := session.NewSealer(secret)
		if err != nil {
			logger.Fatal("failed to init session sealer", zap.Error(err))
		}
		persistence = session.NewCookiePersistence(sealer, cookie)
		logger.Info("sessions stored in sealed cookies")
	}

	// --- Views ---
	views, err := view.New(metrics, logger)
	if err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Leads:       service.NewLeadService(leads, scheduler, voice, prospectus, email, queries, logger),
		Scheduler:   service.NewSchedulerService(scheduler, queries, logger),
		Dashboard:   service.NewDashboardService(leads, scheduler, admin, queries, metrics, logger),
		Catalog:     service.NewCatalogService(products, categories, queries, logger),
		Outreach:    service.NewOutreachService(voice, prospectus, email, queries, logger),
		Admin:       service.NewAdminService(admin, queries, logger),
		Views:       views,
		Persistence: persistence,
		Identity:    auth,
		Limiter:     limiter,
		Queries:     queries,
		Metrics:     metrics,
		Checks:      checks,
	}, logger)

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
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
