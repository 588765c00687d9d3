package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards everything handed to it,
// keeping test output free of log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
