package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/config"
	"github.com/noah-isme/promptcraft-portal/internal/database"
	"github.com/noah-isme/promptcraft-portal/internal/handler"
	applog "github.com/noah-isme/promptcraft-portal/internal/logger"
	"github.com/noah-isme/promptcraft-portal/internal/middleware"
	"github.com/noah-isme/promptcraft-portal/internal/models"
	"github.com/noah-isme/promptcraft-portal/internal/observability"
	"github.com/noah-isme/promptcraft-portal/internal/repository"
	"github.com/noah-isme/promptcraft-portal/internal/router"
	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

const snapshotPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := applog.Setup(cfg.LogLevel, cfg.LogFormat, "promptcraft-portal")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "promptcraft-portal",
		Environment: cfg.AppEnv,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	db, err := database.ConnectSnapshots(cfg.SnapshotDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open snapshot database")
	}
	if err := db.AutoMigrate(&models.EvaluationSnapshot{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate snapshot database")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	client, err := promptcraft.New(promptcraft.Config{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.APITimeout,
		Logger:         logger,
		RequestEditors: []promptcraft.RequestEditor{middleware.ForwardCorrelation},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create promptcraft client")
	}

	sessions, err := session.NewManager(session.NewRedisStore(redisClient), client, session.Config{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
		Issuer: cfg.AppName,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session manager")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	snapshotRepo := repository.NewSnapshotRepository(db)
	events := service.NewEvaluationEvents(redisClient, natsConn, cfg.EventsChannel, logger)

	authService := service.NewAuthService(sessions, validate, logger)
	evaluationService := service.NewEvaluationService(validate, snapshotRepo, events, logger)
	questionService := service.NewQuestionService(redisClient, cfg.QuestionCacheTTL, logger)
	submissionService := service.NewSubmissionService(validate, logger)
	leaderboardService := service.NewLeaderboardService(validate, logger)
	analyticsService := service.NewAnalyticsService(logger)

	limiterStorage := database.NewLimiterStorage(redisClient, "promptcraft:ratelimit:")

	sessions.OnTeardown(evaluationService.Release)
	evaluationService.Start(ctx)
	go purgeSnapshots(ctx, snapshotRepo, cfg.SnapshotMaxAge, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowedOrigins(),
		AccessLog:    cfg.LogFormat == "pretty",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService, handler.AuthHandlerOptions{
			LoginLimiter: middleware.RateLimit(middleware.RateLimitConfig{
				Scope:   "login",
				Max:     cfg.RateLimitMax,
				Window:  cfg.RateLimitWindow,
				Storage: limiterStorage,
			}),
			SecureCookie: cfg.AppEnv == "production",
		}, logger),
		EvaluationHandler:  handler.NewEvaluationHandler(evaluationService, validate, logger),
		QuestionHandler:    handler.NewQuestionHandler(questionService, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboardService, logger),
		AnalyticsHandler:   handler.NewAnalyticsHandler(analyticsService, logger),
		SessionMiddleware:  middleware.RequireSession(sessions, middleware.SessionOptions{Logger: logger}),
		SessionRateLimit: middleware.RateLimit(middleware.RateLimitConfig{
			Scope:   "portal",
			Max:     cfg.RateLimitMax * 10,
			Window:  cfg.RateLimitWindow,
			Storage: limiterStorage,
		}),
		ReadinessProbes: map[string]handler.Probe{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"snapshots": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("upstream", cfg.APIBaseURL).Msg("portal listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cancel, shutdownTracing, logger)
}

func purgeSnapshots(ctx context.Context, repo repository.SnapshotRepository, maxAge time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(snapshotPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.PurgeOlderThan(ctx, time.Now().Add(-maxAge))
			if err != nil {
				logger.Warn().Err(err).Msg("snapshot purge failed")
				continue
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("purged stale evaluation snapshots")
			}
		}
	}
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc, shutdownTracing func(context.Context) error, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to flush traces")
	}

	logger.Info().Msg("server stopped")
}
