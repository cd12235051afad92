// Package logger builds the portal's root zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup configures the global level and returns the root logger.
// format is "json" (default) or "pretty" for a console writer.
func Setup(level, format, service string) zerolog.Logger {
	return build(os.Stdout, level, format, service)
}

func build(out io.Writer, level, format, service string) zerolog.Logger {
	writer := out
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(writer).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Caller().Logger()
}
