package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// QuestionHandler serves the question bank.
type QuestionHandler struct {
	service service.QuestionService
	logger  zerolog.Logger
}

// NewQuestionHandler creates a question handler instance.
func NewQuestionHandler(service service.QuestionService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		service: service,
		logger:  logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register binds question routes.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch questions")
	}

	ctx := requestContext(c)
	if queryBool(c, "refresh") {
		if err := h.service.Invalidate(ctx); err != nil {
			requestLogger(h.logger, c).Warn().Err(err).Msg("failed to invalidate question cache")
		}
	}

	result, err := h.service.List(ctx, sess)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch questions")
	}

	cache := "miss"
	if result.CacheHit {
		cache = "hit"
	}
	c.Set("X-Cache", cache)
	return utils.OK(c, result.Items, "questions retrieved", fiber.Map{"count": len(result.Items), "cache": cache})
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch question")
	}

	question, err := h.service.Get(requestContext(c), sess, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch question")
	}
	return utils.SendSuccess(c, "question retrieved", question)
}
