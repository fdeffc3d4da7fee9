package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide logger. Production environments get JSON on
// stdout; everything else gets human-readable text.
func New(level string, addSource bool, environment string) *slog.Logger {

	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: addSource,
	}

	var handler slog.Handler
	if strings.ToLower(environment) == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("environment", environment),
	)
}

// Named tags a child logger with a component name so records from the
// breaker registry, the metrics collector and the HTTP middleware can be
// told apart in one stream.
func Named(log *slog.Logger, name string) *slog.Logger {
	return log.With(slog.String("component", name))
}

func parseLevel(level string) slog.Level {

	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
