package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production runs log JSON; everything
// else gets the text handler. Debug level is opt-in via LOG_DEBUG.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if os.Getenv("LOG_DEBUG") == "1" {
		opts.Level = slog.LevelDebug
	}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
