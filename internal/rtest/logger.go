package rtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that routes through t.Log,
// so output is associated with the test that produced it
// and only shown for failures (or with -v).
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t)
}
