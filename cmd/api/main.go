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

	"github.com/go-redis/redis_rate/v10"
	"go.opentelemetry.io/otel"

	"github.com/carterperez-dev/templates/directory-api/internal/ad"
	"github.com/carterperez-dev/templates/directory-api/internal/admin"
	"github.com/carterperez-dev/templates/directory-api/internal/auth"
	"github.com/carterperez-dev/templates/directory-api/internal/config"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/health"
	"github.com/carterperez-dev/templates/directory-api/internal/jobs"
	"github.com/carterperez-dev/templates/directory-api/internal/mail"
	"github.com/carterperez-dev/templates/directory-api/internal/metrics"
	"github.com/carterperez-dev/templates/directory-api/internal/middleware"
	"github.com/carterperez-dev/templates/directory-api/internal/server"
	"github.com/carterperez-dev/templates/directory-api/internal/store"
	"github.com/carterperez-dev/templates/directory-api/internal/user"
	"github.com/carterperez-dev/templates/directory-api/internal/verification"
	"github.com/carterperez-dev/templates/directory-api/migrations"
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

	if cfg.Database.AutoMigrate {
		applied, migErr := db.Migrate(ctx, migrations.Files)
		if migErr != nil {
			return migErr
		}
		logger.Info("schema up to date", "applied", len(applied))
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	m := metrics.New(cfg.Metrics.Namespace)
	m.RegisterDB(db.DB.DB, "primary")

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	sender, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		return err
	}
	if !cfg.Mail.Enabled {
		logger.Warn("mail delivery disabled, verification codes go to the log")
	}

	userSvc := user.NewService(user.NewRepository(db.DB))
	userHandler := user.NewHandler(userSvc)

	codeSvc := verification.NewService(
		verification.NewRepository(db.DB),
		sender,
		cfg.Verification.CodeTTL,
		cfg.Verification.CodeLength,
		verification.WithRecorder(m),
	)

	authSvc := auth.NewService(
		userSvc,
		codeSvc,
		store.NewTxManager(db.DB),
		jwtManager,
		m,
	)
	authHandler := auth.NewHandler(authSvc)

	adSvc := ad.NewService(ad.NewRepository(db.DB))

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Directory:  userSvc,
		Ads:        adSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing(otel.Tracer(cfg.Otel.ServiceName)))
	router.Use(middleware.Logger(logger))
	router.Use(m.Middleware)
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Name: "global",
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen:  true,
			OnLimited: limitedHandler(m, "global"),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	strict := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name: "strict",
		Limit: middleware.PerWindow(
			cfg.RateLimit.SensitiveRequests,
			cfg.RateLimit.SensitiveBurst,
			cfg.RateLimit.Window,
		),
		KeyFunc:   middleware.KeyByIPAndEndpoint,
		FailOpen:  true,
		OnLimited: limitedHandler(m, "strict"),
	}).Handler

	healthHandler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, m.Handler())
	}

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager, userSvc)

	authHandler.RegisterRoutes(router, authenticator, strict)
	userHandler.RegisterRoutes(router, authenticator)
	adminHandler.RegisterRoutes(router, authenticator)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(logger, m)
		for _, job := range []jobs.Job{
			{
				Name:     "ad_sweep",
				Interval: cfg.Jobs.AdSweepInterval,
				Run: func(ctx context.Context) error {
					_, err := adSvc.SweepExpired(ctx)
					return err
				},
			},
			{
				Name:     "code_purge",
				Interval: cfg.Jobs.CodePurgeInterval,
				Run: func(ctx context.Context) error {
					_, err := codeSvc.PurgeStale(ctx, cfg.Verification.PurgeAfter)
					return err
				},
			},
		} {
			if err := scheduler.Add(job); err != nil {
				return err
			}
		}
		scheduler.Start(ctx)
	}

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

	if scheduler != nil {
		scheduler.Wait()
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

func limitedHandler(
	m *metrics.Metrics,
	limiter string,
) func(http.ResponseWriter, *http.Request, *redis_rate.Result) {
	return func(w http.ResponseWriter, _ *http.Request, res *redis_rate.Result) {
		m.RateLimited(limiter)
		middleware.WriteRateLimitExceeded(w, res)
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
