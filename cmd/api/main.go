package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpAdapter "github.com/lorrc/service-desk-routing/internal/adapters/primary/http"
	mw "github.com/lorrc/service-desk-routing/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-routing/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-routing/internal/adapters/secondary/email"
	"github.com/lorrc/service-desk-routing/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-routing/internal/auth"
	"github.com/lorrc/service-desk-routing/internal/config"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/lorrc/service-desk-routing/internal/core/services"
	"github.com/lorrc/service-desk-routing/internal/infrastructure/logging"
	"github.com/lorrc/service-desk-routing/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.ServiceName = cfg.App.Name
	logCfg.Environment = cfg.App.Environment
	logger := logging.NewLogger(logCfg)
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)
	logger.Debug("effective configuration", "config", cfg.String())

	// 3. Initialize Database Pool
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(cfg.Database.URL, logger); err != nil {
			logger.Error("database migration failed", "error", err)
			os.Exit(1)
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer := metrics.NewEngineObserver(registry)

	// 5. Repositories (Secondary Adapters)
	skillRepo := postgres.NewSkillRepository(pool)
	technicianRepo := postgres.NewTechnicianRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	assignmentRepo := postgres.NewAssignmentRepository(pool)
	outcomeRepo := postgres.NewOutcomeRepository(pool)
	scoreRepo := postgres.NewScoreSnapshotRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// 6. Engine (Core)
	catalog := services.NewSkillCatalog(skillRepo, logger)
	if err := catalog.Load(ctx); err != nil {
		logger.Error("failed to load skill catalog", "error", err)
		os.Exit(1)
	}

	technicianRegistry := services.NewTechnicianRegistry(technicianRepo, logger)
	if err := technicianRegistry.Load(ctx); err != nil {
		logger.Error("failed to load technicians", "error", err)
		os.Exit(1)
	}

	scorer, err := services.NewScorer(scorerConfig(cfg), outcomeRepo, scoreRepo, observer, logger)
	if err != nil {
		logger.Error("invalid scoring configuration", "error", err)
		os.Exit(1)
	}

	tracker := services.NewWorkloadTracker(technicianRegistry, observer, logger)
	matcher := services.NewMatcher(technicianRegistry, tracker, scorer, observer, logger)
	dispatcher := services.NewDispatcher(matcher, cfg.Routing.Workers, cfg.Routing.MaxQueue, observer, logger)
	dispatcher.Start()

	// 7. Real-time and notification adapters
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	notifier := email.NewMockSMTPNotifier(technicianRegistry, logger)

	technicianService := services.NewTechnicianService(technicianRepo, outcomeRepo, catalog, technicianRegistry, scorer, logger)
	ticketService := services.NewTicketService(services.TicketServiceDeps{
		Tickets:     ticketRepo,
		Assignments: assignmentRepo,
		Catalog:     catalog,
		Registry:    technicianRegistry,
		Tracker:     tracker,
		Matcher:     matcher,
		Dispatcher:  dispatcher,
		Technicians: technicianService,
		TxManager:   txManager,
		Notifier:    notifier,
		Broadcaster: hub,
		Logger:      logger,
	})

	// 8. Security and Rate Limiters
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var generalRateLimiter *mw.RateLimiter
	var routingRateLimiter *mw.RateLimitByKey
	if cfg.RateLimit.Enabled {
		generalCfg := mw.DefaultRateLimiterConfig()
		generalCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		generalCfg.BurstSize = cfg.RateLimit.BurstSize
		generalRateLimiter = mw.NewRateLimiter(generalCfg)

		routingCfg := mw.RoutingRateLimiterConfig()
		routingCfg.RequestsPerSecond = cfg.RateLimit.RoutingRPS
		routingCfg.BurstSize = cfg.RateLimit.RoutingBurst
		routingRateLimiter = mw.NewRateLimitByKey(routingCfg)
	}

	// 9. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	skillHandler := httpAdapter.NewSkillHandler(catalog, errorHandler, logger)
	technicianHandler := httpAdapter.NewTechnicianHandler(technicianService, errorHandler, logger)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, errorHandler, logger)
	if routingRateLimiter != nil {
		ticketHandler = ticketHandler.WithRoutingMiddleware(routingRateLimiter.Middleware)
	}
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version, map[string]httpAdapter.ReadinessChecker{
		"skill_catalog":       catalog,
		"technician_registry": technicianRegistry,
		"dispatcher":          dispatcher,
	})

	// 10. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Probe and scrape endpoints live outside /api/v1
	healthHandler.RegisterRoutes(r)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler(registry))
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/skills", skillHandler.RegisterRoutes)
			r.Route("/technicians", technicianHandler.RegisterRoutes)
			r.Route("/tickets", ticketHandler.RegisterRoutes)
		})
	})

	// 11. Background sweep for tickets that found no technician
	if cfg.Routing.RetryInterval > 0 {
		go retryUnassigned(ctx, ticketService, cfg.Routing.RetryInterval, cfg.Routing.RetryBatch, logger)
	}

	// 12. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown: stop taking requests, then drain the engine
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	stop()
	dispatcher.Stop()
	ticketService.Shutdown()

	logger.Info("server shutdown complete")
}

// retryUnassigned periodically re-routes tickets left in new.
func retryUnassigned(ctx context.Context, svc ports.TicketService, interval time.Duration, batch int, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			assigned, err := svc.RetryUnassigned(ctx, batch)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("unassigned sweep failed", "error", err)
				continue
			}
			if assigned > 0 {
				logger.Info("unassigned sweep routed tickets", "assigned", assigned)
			}
		}
	}
}

func scorerConfig(cfg *config.Config) services.ScorerConfig {
	s := cfg.Scoring
	return services.ScorerConfig{
		Weights: domain.ScoreWeights{
			ResolutionTime:   s.Weights.ResolutionTime,
			CustomerImpact:   s.Weights.CustomerImpact,
			SLACompliance:    s.Weights.SLACompliance,
			TicketComplexity: s.Weights.TicketComplexity,
			Quality:          s.Weights.Quality,
		},
		Strategies: services.StrategyNames{
			ResolutionTime:   s.Strategies.ResolutionTime,
			CustomerImpact:   s.Strategies.CustomerImpact,
			SLACompliance:    s.Strategies.SLACompliance,
			TicketComplexity: s.Strategies.TicketComplexity,
			Quality:          s.Strategies.Quality,
		},
		SLA: services.SLAPolicy{
			domain.PriorityCritical: s.SLATargets.Critical,
			domain.PriorityHigh:     s.SLATargets.High,
			domain.PriorityNormal:   s.SLATargets.Normal,
			domain.PriorityLow:      s.SLATargets.Low,
		},
		HistoryWindow: s.HistoryWindow,
		CacheSize:     s.CacheSize,
		CacheTTL:      s.CacheTTL,
		Parallelism:   s.Parallelism,
	}
}
