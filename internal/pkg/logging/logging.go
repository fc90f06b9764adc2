package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup initialises the process-wide slog logger for the roadpass binaries.
// level may be "debug", "info", "warn"/"warning", or "error" (default
// "info"); format may be "json" or "text" (default "json"). Debug level also
// turns on source locations, which the saga's fan-out logging benefits from.
func Setup(level, format string) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
