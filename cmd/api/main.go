// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/tenantgate/internal/admin"
	"github.com/carterperez-dev/tenantgate/internal/auth"
	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/emulation"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/health"
	"github.com/carterperez-dev/tenantgate/internal/middleware"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/server"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	// Redis only backs rate limiting; without it the limiters run on
	// per-process buckets. An unreachable Redis stays registered so readiness
	// reports it and the limiters resume once it reconnects.
	redis, err := core.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil && redis == nil:
		logger.Warn("invalid redis configuration, rate limiting is per instance", "error", err)
	case err != nil:
		logger.Warn("redis unreachable, rate limiting is per instance until it recovers", "error", err)
	case redis == nil:
		logger.Info("redis not configured, rate limiting is per instance")
	default:
		logger.Info("redis connected",
			"pool_size", cfg.Redis.PoolSize,
		)
	}
	rdb := redis.Limiter()

	tokens, err := token.NewService(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token service initialized",
		"algorithm", "HS256",
		"issuer", cfg.JWT.Issuer,
	)

	userRepo := user.NewRepository(db.DB)
	tenantRepo := tenant.NewRepository(db.DB)
	planRepo := tenant.NewPlanRepository(db.DB)
	adminRepo := principal.NewRepository(db.DB)

	principals := principal.NewStore(userRepo, adminRepo, cfg.Security)
	resolver := tenant.NewResolver(tenantRepo, cfg.Tenancy)
	limits := quota.NewResolver(planRepo, cfg.Quota)
	enforcer := quota.NewEnforcer(limits, quota.NewCounter(db.DB))
	gates := gate.New(tokens, principals, resolver)

	tenantSvc := tenant.NewService(tenantRepo, planRepo, db, tenant.NewRepository)
	userSvc := user.NewService(userRepo, enforcer, db, user.TxBinder{
		Users:   user.NewRepository,
		Tenants: func(tx core.DBTX) user.TenantLocker { return tenant.NewRepository(tx) },
		Counter: quota.NewCounter,
	}, cfg.Quota.Strict)
	authSvc := auth.NewService(
		userRepo, adminRepo, principals, tokens,
		cfg.Tenancy.PlatformTenantID, logger,
	)
	emulator := emulation.NewManager(tokens, tenantRepo, cfg.Tenancy.PlatformTenantID, logger)

	urls := tenant.NewURLBuilder(cfg.Tenancy, cfg.IsProduction())
	cookie := token.CookieConfig{
		Name:   cfg.JWT.CookieName,
		TTL:    cfg.JWT.CookieTTL,
		Secure: cfg.IsProduction(),
	}

	stats := admin.StatsConfig{
		DBStats: db.Stats,
		DBPing:  db.Ping,
	}
	deps := []health.Dependency{{Name: "database", Checker: db}}
	if redis != nil {
		stats.RedisStats = redis.PoolStats
		stats.RedisPing = redis.Ping
		deps = append(deps, health.Dependency{
			Name:     "redis",
			Checker:  health.CheckerFunc(redis.Ping),
			Optional: true,
		})
	}
	healthHandler := health.NewHandler(deps...)

	authHandler := auth.NewHandler(authSvc, cookie, urls)
	emulationHandler := emulation.NewHandler(emulator, cookie, urls)
	userHandler := user.NewHandler(userSvc, middleware.UserCaller)
	tenantHandler := admin.NewTenantHandler(enforcer, urls)
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Tenants: tenantSvc,
		Users:   userSvc,
		Usage:   enforcer,
		URLs:    urls,
		Stats:   stats,
		Logger:  logger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
			Limit: redis_rate.Limit{
				Rate:   cfg.RateLimit.Requests,
				Burst:  cfg.RateLimit.Burst,
				Period: cfg.RateLimit.Window,
			},
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		core.RegisterMetrics(prometheus.DefaultRegisterer)
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	gateOpts := middleware.GateOptions{
		CookieName:   cfg.JWT.CookieName,
		TenantHeader: cfg.Tenancy.TenantHeader,
		Logger:       logger,
	}
	guard := func(p *gate.Pipeline) func(next http.Handler) http.Handler {
		return middleware.Gate(p, gateOpts)
	}

	tenantScoped := guard(gates.Public(gate.TenantRequired))
	authenticated := guard(gates.Authenticated(gate.TenantOptional))
	member := guard(gates.Authenticated(gate.TenantRequired))
	tenantAdmin := guard(gates.Authenticated(gate.TenantRequired, gate.RequireTenantAdmin()))
	platform := guard(gates.Platform())

	loginThrottle := middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
		Limit: redis_rate.Limit{
			Rate:   cfg.RateLimit.LoginRequests,
			Burst:  cfg.RateLimit.LoginRequests,
			Period: cfg.RateLimit.LoginWindow,
		},
		KeyFunc: middleware.KeyByLogin,
	}).Handler

	tiers := make(map[string]middleware.TierConfig, len(cfg.RateLimit.Tiers))
	for plan, t := range cfg.RateLimit.Tiers {
		tiers[plan] = middleware.TierConfig{RequestsPerMinute: t.Requests, BurstSize: t.Burst}
	}
	planLimit := middleware.PlanRateLimiter(rdb, tiers, middleware.TierConfig{
		RequestsPerMinute: cfg.RateLimit.Requests,
		BurstSize:         cfg.RateLimit.Burst,
	})

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, tenantScoped, authenticated, loginThrottle)
		emulationHandler.RegisterRoutes(r, platform)
		adminHandler.RegisterRoutes(r, platform)

		tenantHandler.RegisterRoutes(r, withPlanLimit(member, planLimit))
		userHandler.RegisterRoutes(r,
			withPlanLimit(member, planLimit),
			withPlanLimit(tenantAdmin, planLimit),
			middleware.EnforceLimit(enforcer, quota.Users),
		)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// withPlanLimit runs the plan budget after the gate so it sees the resolved
// tenant.
func withPlanLimit(gated, limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return gated(limit(next))
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
