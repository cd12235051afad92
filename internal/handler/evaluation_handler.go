package handler

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/evaluation"
	"github.com/noah-isme/promptcraft-portal/internal/middleware"
	"github.com/noah-isme/promptcraft-portal/internal/observability"
	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

const evaluationFallback = "Failed to fetch evaluations"

const (
	streamTypeState   = "state"
	streamTypeEnded   = "session_ended"
	streamCommandLoad = "refresh"
)

// EvaluationHandler serves the evaluations page and its live stream.
type EvaluationHandler struct {
	service   service.EvaluationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationHandler creates an evaluation handler instance.
func NewEvaluationHandler(service service.EvaluationService, validator *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register binds evaluation routes under a session-protected group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Use("/ws", h.upgrade)
	router.Get("/ws", websocket.New(h.stream))
	router.Get("", h.view)
	router.Post("/refresh", h.refresh)
	router.Post("/:candidateId/tasks/:taskId", h.record)
}

func (h *EvaluationHandler) parseQuery(c *fiber.Ctx) (evaluation.Query, error) {
	var raw dto.EvaluationQuery
	if err := c.QueryParser(&raw); err != nil {
		return evaluation.Query{}, err
	}
	if err := h.validator.Struct(raw); err != nil {
		return evaluation.Query{}, err
	}
	return raw.ToQuery()
}

func (h *EvaluationHandler) view(c *fiber.Ctx) error {
	query, err := h.parseQuery(c)
	if err != nil {
		return h.badQuery(c, err)
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, evaluationFallback)
	}

	view, err := h.service.View(requestContext(c), sess, query)
	if err != nil {
		return respondError(c, h.logger, err, evaluationFallback)
	}
	return utils.SendSuccess(c, "evaluations retrieved", view)
}

func (h *EvaluationHandler) refresh(c *fiber.Ctx) error {
	query, err := h.parseQuery(c)
	if err != nil {
		return h.badQuery(c, err)
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, evaluationFallback)
	}

	view, err := h.service.Refresh(requestContext(c), sess, query)
	if err != nil {
		return respondError(c, h.logger, err, evaluationFallback)
	}
	return utils.SendSuccess(c, "evaluations refreshed", view)
}

func (h *EvaluationHandler) record(c *fiber.Ctx) error {
	candidateID := c.Params("candidateId")
	if candidateID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "candidate id required")
	}
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload promptcraft.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.TaskID = taskID

	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to record evaluation")
	}

	resp, err := h.service.Record(requestContext(c), sess, candidateID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to record evaluation")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation recorded", resp)
}

func (h *EvaluationHandler) badQuery(c *fiber.Ctx, err error) error {
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid query", validationIssues(err))
	}
	return utils.SendError(c, fiber.StatusBadRequest, err.Error())
}

func (h *EvaluationHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	query, err := h.parseQuery(c)
	if err != nil {
		return h.badQuery(c, err)
	}
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, evaluationFallback)
	}

	c.Locals("stream_session", sess)
	c.Locals("stream_query", query)
	c.Locals("request_ctx", requestContext(c))
	return c.Next()
}

type streamCommand struct {
	Type string `json:"type"`
}

// stream pushes every state change of the session's evaluations to the
// client until it disconnects or the session ends. A {"type":"refresh"}
// message from the client triggers a refetch.
func (h *EvaluationHandler) stream(conn *websocket.Conn) {
	sess, _ := conn.Locals("stream_session").(*session.Session)
	query, _ := conn.Locals("stream_query").(evaluation.Query)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	correlation, _ := conn.Locals("correlation_id").(string)
	logger := h.logger.With().Str("correlation_id", correlation).Logger()

	if sess == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(baseCtx))
	defer cancel()

	views, stop, err := h.service.Subscribe(ctx, sess, query)
	if err != nil {
		_ = conn.WriteJSON(dto.StreamMessage{Type: streamTypeEnded, Error: "authentication required"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		_ = conn.Close()
		return
	}
	defer stop()

	observability.StreamClientsActive().Inc()
	defer observability.StreamClientsActive().Dec()
	logger.Info().Str("session_id", sess.ID()).Msg("evaluation stream connected")

	go h.readCommands(ctx, cancel, conn, sess, query, logger)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			logger.Info().Str("session_id", sess.ID()).Msg("evaluation stream disconnected")
			return
		case view, ok := <-views:
			if !ok {
				_ = conn.WriteJSON(dto.StreamMessage{Type: streamTypeEnded, Error: "session ended"})
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, middleware.LoginPath))
				_ = conn.Close()
				logger.Info().Str("session_id", sess.ID()).Msg("evaluation stream closed by session end")
				return
			}
			if err := conn.WriteJSON(dto.StreamMessage{Type: streamTypeState, View: &view}); err != nil {
				logger.Debug().Err(err).Msg("evaluation stream write failed")
				return
			}
		}
	}
}

func (h *EvaluationHandler) readCommands(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session.Session, query evaluation.Query, logger zerolog.Logger) {
	defer cancel()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd streamCommand
		if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Type != streamCommandLoad {
			continue
		}
		// The refreshed state reaches the client through the subscription.
		if _, err := h.service.Refresh(ctx, sess, query); err != nil {
			logger.Debug().Err(err).Msg("stream refresh failed")
		}
	}
}
