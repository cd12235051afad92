package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/promptcraft-portal/internal/config"
	"github.com/noah-isme/promptcraft-portal/internal/handler"
	"github.com/noah-isme/promptcraft-portal/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	EvaluationHandler  *handler.EvaluationHandler
	QuestionHandler    *handler.QuestionHandler
	SubmissionHandler  *handler.SubmissionHandler
	LeaderboardHandler *handler.LeaderboardHandler
	AnalyticsHandler   *handler.AnalyticsHandler
	SessionMiddleware  fiber.Handler
	SessionRateLimit   fiber.Handler
	ReadinessProbes    map[string]handler.Probe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/ready", handler.ReadinessCheck(cfg, deps.ReadinessProbes))

	protect := deps.SessionMiddleware
	if protect == nil {
		protect = func(c *fiber.Ctx) error { return c.Next() }
	}
	guarded := []fiber.Handler{protect}
	if deps.SessionRateLimit != nil {
		guarded = append(guarded, deps.SessionRateLimit)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), protect)
	}
	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api.Group("/evaluations", guarded...))
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(api.Group("/questions", guarded...))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", guarded...))
	}
	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(api.Group("/leaderboard", guarded...))
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(api.Group("/analytics", guarded...))
	}
}
