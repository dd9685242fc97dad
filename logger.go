package hammock

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// NewSimpleLogger returns a text logger writing every level to stderr.
func NewSimpleLogger() Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// DefaultDebugConfig returns a disabled debug configuration that logs every
// event category once enabled. Request IDs are random UUIDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogSessions:  true,
		LogCoercion:  true,
		RequestIDGen: uuid.NewString,
	}
}
