package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the root logger for the worker process. Level falls back to
// info when unparseable; output is JSON on stdout.
func New(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}

// WithComponent tags a child logger with a component field.
func WithComponent(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
