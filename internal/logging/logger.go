package logging

import (
	"log/slog"
	"os"
)

// fallback writes to stdout only. Used for failures inside the DB handler.
var fallback = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(fallback)
}

// WithDatabase replaces the global logger with one that also persists records
// at or above the PGHandler's level.
func WithDatabase(pg *PGHandler) {
	slog.SetDefault(slog.New(NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pg,
	)))
}
