package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// LeaderboardHandler serves rankings and per-user statistics.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler creates a leaderboard handler instance.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register binds leaderboard routes.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/me", h.myStats)
	router.Get("/stats/:userId", h.userStats)
}

func (h *LeaderboardHandler) list(c *fiber.Ctx) error {
	var query dto.LeaderboardQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch leaderboard")
	}

	view, err := h.service.List(requestContext(c), sess, query)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch leaderboard")
	}
	return utils.SendSuccess(c, "leaderboard retrieved", view)
}

func (h *LeaderboardHandler) myStats(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch statistics")
	}

	stats, err := h.service.MyStats(requestContext(c), sess)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}

func (h *LeaderboardHandler) userStats(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch statistics")
	}

	stats, err := h.service.UserStats(requestContext(c), sess, userID)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}
