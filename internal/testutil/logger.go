package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger that drops everything. Harness and service
// tests pass it so test output stays readable.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
