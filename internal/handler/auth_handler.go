package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/middleware"
	"github.com/noah-isme/promptcraft-portal/internal/service"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// AuthHandlerOptions tunes the auth routes.
type AuthHandlerOptions struct {
	// LoginLimiter throttles credential attempts when set.
	LoginLimiter fiber.Handler
	SecureCookie bool
}

// AuthHandler exposes login, logout and account endpoints.
type AuthHandler struct {
	service service.AuthService
	opts    AuthHandlerOptions
	logger  zerolog.Logger
}

// NewAuthHandler builds an auth handler instance.
func NewAuthHandler(service service.AuthService, opts AuthHandlerOptions, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		opts:    opts,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the routes. protect guards the routes that need a session.
func (h *AuthHandler) Register(router fiber.Router, protect fiber.Handler) {
	login := []fiber.Handler{h.login}
	if h.opts.LoginLimiter != nil {
		login = append([]fiber.Handler{h.opts.LoginLimiter}, login...)
	}
	router.Post("/login", login...)
	router.Post("/register", h.register)
	router.Post("/verify-email/request", h.requestVerification)
	router.Post("/verify-email", h.verifyEmail)

	router.Post("/logout", protect, h.logout)
	router.Get("/me", protect, h.me)
	router.Post("/refresh", protect, h.refresh)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "Login failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	requestLogger(h.logger, c).Info().Uint("user_id", resp.User.ID).Msg("user signed in")
	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Logout failed")
	}

	if err := h.service.Logout(requestContext(c), sess); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to remove stored session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.SendSuccess(c, "logged out", fiber.Map{"redirect": middleware.LoginPath})
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to load profile")
	}

	user, err := h.service.Me(sess)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to refresh profile")
	}

	user, err := h.service.Refresh(requestContext(c), sess)
	if err != nil {
		// A failed refresh has already logged the session out.
		return middleware.Unauthenticated(c, "session expired, please sign in again")
	}
	return utils.SendSuccess(c, "profile refreshed", user)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Register(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "Registration failed")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", user)
}

func (h *AuthHandler) requestVerification(c *fiber.Ctx) error {
	var payload dto.EmailVerificationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := h.service.RequestEmailVerification(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to send verification email")
	}
	return utils.SendSuccess(c, msg.Message, msg)
}

func (h *AuthHandler) verifyEmail(c *fiber.Ctx) error {
	var payload dto.VerifyEmailRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := h.service.VerifyEmail(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "Email verification failed")
	}
	return utils.SendSuccess(c, msg.Message, msg)
}
