package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/promptcraft-portal/internal/utils"
)

// RateLimitConfig scopes one limiter. Storage shares counters between
// portal nodes; nil keeps them in process memory.
type RateLimitConfig struct {
	Scope   string
	Max     int
	Window  time.Duration
	Storage fiber.Storage
}

// RateLimit throttles a route group per portal session. Anonymous callers,
// such as login attempts, are keyed by client IP.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:          cfg.Max,
		Expiration:   cfg.Window,
		Storage:      cfg.Storage,
		KeyGenerator: rateLimitKey(cfg.Scope),
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "Too many requests, please slow down", fiber.Map{
				"scope":       cfg.Scope,
				"retry_after": c.GetRespHeader(fiber.HeaderRetryAfter),
			})
		},
	})
}

func rateLimitKey(scope string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if id, ok := c.Locals(localSessionID).(string); ok && id != "" {
			return scope + ":session:" + id
		}
		return scope + ":ip:" + c.IP()
	}
}
