package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// SessionCookie carries the portal token for browser clients that cannot
// set an Authorization header, such as websocket upgrades.
const SessionCookie = "promptcraft_session"

// LoginPath is where an unauthenticated page is sent.
const LoginPath = "/auth/login"

const (
	localSession   = "session"
	localSessionID = "session_id"
	localUserID    = "user_id"
)

// SessionOptions configures RequireSession.
type SessionOptions struct {
	Logger zerolog.Logger
}

// RequireSession resolves the portal token to a live session. Requests
// without one are answered with 401 and a redirect hint to the login page.
func RequireSession(manager *session.Manager, opts SessionOptions) fiber.Handler {
	logger := opts.Logger.With().Str("component", "session_middleware").Logger()

	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return Unauthenticated(c, "authentication required")
		}

		claims, err := manager.ParseToken(token)
		if err != nil {
			return Unauthenticated(c, "invalid or expired session token")
		}

		sess, err := manager.Open(c.UserContext(), claims.SessionID)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				logger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to restore session")
				return utils.Fail(c, fiber.StatusServiceUnavailable, "session store unavailable", nil)
			}
			return Unauthenticated(c, "session expired, please sign in again")
		}

		c.Locals(localSession, sess)
		c.Locals(localSessionID, sess.ID())
		if user, ok := sess.User(); ok {
			c.Locals(localUserID, user.ID)
		}
		return c.Next()
	}
}

// Unauthenticated writes the 401 envelope that tells the page to go to login.
func Unauthenticated(c *fiber.Ctx, message string) error {
	return utils.Fail(c, fiber.StatusUnauthorized, message, fiber.Map{"redirect": LoginPath})
}

// SessionFromContext returns the session bound by RequireSession.
func SessionFromContext(c *fiber.Ctx) (*session.Session, bool) {
	sess, ok := c.Locals(localSession).(*session.Session)
	return sess, ok && sess != nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const bearer = "bearer "
	if len(authorization) > len(bearer) && strings.EqualFold(authorization[:len(bearer)], bearer) {
		return strings.TrimSpace(authorization[len(bearer):])
	}
	if cookie := strings.TrimSpace(c.Cookies(SessionCookie)); cookie != "" {
		return cookie
	}
	return strings.TrimSpace(c.Query("token"))
}
