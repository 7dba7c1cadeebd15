package server

import (
	"io"
	"log/slog"
	"strings"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// ParseLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogHandler builds the process log handler. format "json" writes zerolog
// JSON lines; anything else uses the slog text handler.
func NewLogHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if format == "json" {
		logger := zerolog.New(w).With().Timestamp().Logger()
		return zeroslog.NewHandler(logger, &zeroslog.HandlerOptions{Level: level})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
