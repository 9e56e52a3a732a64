package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New constructs a JSON zerolog logger writing to stdout. Unknown level
// strings fall back to info.
func New(level string) zerolog.Logger {
	parsed := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		parsed = lvl
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(os.Stdout).
		Level(parsed).
		With().
		Timestamp().
		Str("app", "salonq").
		Logger()
}
