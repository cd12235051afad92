package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/middleware"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// FieldIssue names one rejected request field.
type FieldIssue struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(parsed), nil
}

func queryBool(c *fiber.Ctx, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && parsed
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func currentSession(c *fiber.Ctx) (*session.Session, error) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		return nil, session.ErrNotAuthenticated
	}
	return sess, nil
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationIssues(err error) []FieldIssue {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	issues := make([]FieldIssue, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		issues = append(issues, FieldIssue{Field: strings.ToLower(fieldErr.Field()), Rule: fieldErr.Tag()})
	}
	return issues
}

// respondError maps service and upstream failures onto the response
// envelope. fallback is shown when the backend gave no usable detail.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error, fallback string) error {
	logger := requestLogger(base, c)

	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request", validationIssues(err))
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, session.ErrNoSession):
		return middleware.Unauthenticated(c, "authentication required")
	case promptcraft.IsUnauthorized(err):
		return middleware.Unauthenticated(c, "session expired, please sign in again")
	}

	var apiErr *promptcraft.APIError
	if errors.As(err, &apiErr) {
		status := promptcraft.StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Msg("backend request failed")
		} else {
			logger.Warn().Err(err).Msg("backend rejected request")
		}
		return utils.Fail(c, status, promptcraft.ErrorMessage(err, fallback), nil)
	}

	logger.Error().Err(err).Msg("internal server error")
	return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
}
