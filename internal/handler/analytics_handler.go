package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// AnalyticsHandler serves the analytics dashboard.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler creates an analytics handler instance.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register binds analytics routes.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
}

func (h *AnalyticsHandler) dashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to load analytics")
	}

	view, err := h.service.Dashboard(requestContext(c), sess)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to load analytics")
	}
	return utils.SendSuccess(c, "analytics retrieved", view)
}
