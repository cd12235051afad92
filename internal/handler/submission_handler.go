package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// SubmissionHandler manages prompt submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/my", h.mine)
	router.Get("/:id", h.get)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to submit prompt")
	}

	resp, err := h.service.Create(requestContext(c), sess, payload)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to submit prompt")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", resp)
}

func (h *SubmissionHandler) mine(c *fiber.Ctx) error {
	var query dto.SubmissionListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch submissions")
	}

	history, err := h.service.List(requestContext(c), sess, query)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch submissions")
	}
	return utils.SendSuccess(c, "submissions retrieved", history)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch submission")
	}

	item, err := h.service.Get(requestContext(c), sess, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to fetch submission")
	}
	return utils.SendSuccess(c, "submission retrieved", item)
}
