package middleware

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

const accessLogFormat = "${time} ${status} ${method} ${path} ${latency} cid=${locals:correlation_id}\n"

// Config customises the portal middleware pipeline.
type Config struct {
	Logger       *zerolog.Logger
	AllowOrigins []string
	// AccessLog adds a plain text line per request, useful with pretty logs.
	AccessLog bool
}

// Register installs, in order: panic recovery, correlation IDs, metrics and
// request logging, security headers and CORS for the portal frontend.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.AccessLog}))
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{Format: accessLogFormat}))
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(cors.New(portalCORS(cfg.AllowOrigins)))
}

// portalCORS allows the configured frontends. Cookies are only allowed with
// an explicit origin list, never with a wildcard.
func portalCORS(origins []string) cors.Config {
	allowed := "*"
	if len(origins) > 0 {
		allowed = strings.Join(origins, ",")
	}
	return cors.Config{
		AllowOrigins:     allowed,
		AllowHeaders:     strings.Join([]string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization, CorrelationHeader}, ", "),
		AllowMethods:     strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		ExposeHeaders:    strings.Join([]string{CorrelationHeader, fiber.HeaderRetryAfter, "X-Cache"}, ", "),
		AllowCredentials: allowed != "*",
	}
}
