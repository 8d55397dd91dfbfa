// internal/observe/observe.go
package observe

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Hook is the structured observability sink injected into core components.
// It carries counters alongside the logger so tests can assert on what a
// component processed without parsing log output.
type Hook struct {
	log *zap.Logger

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// NewHook wraps a zap logger. A nil logger is replaced with zap.NewNop so
// callers never have to nil-check.
func NewHook(log *zap.Logger) *Hook {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hook{log: log}
}

// NewNop returns a hook that counts but logs nowhere. For tests.
func NewNop() *Hook { return NewHook(nil) }

// Log exposes the underlying logger for ad-hoc component logging.
func (h *Hook) Log() *zap.Logger { return h.log }

// Processed records one successfully applied unit of work.
func (h *Hook) Processed(msg string, fields ...zap.Field) {
	h.processed.Add(1)
	h.log.Debug(msg, fields...)
}

// Skipped records a unit of work that was a deliberate no-op.
func (h *Hook) Skipped(msg string, fields ...zap.Field) {
	h.skipped.Add(1)
	h.log.Debug(msg, fields...)
}

// Failed records a unit of work that errored.
func (h *Hook) Failed(msg string, fields ...zap.Field) {
	h.failed.Add(1)
	h.log.Warn(msg, fields...)
}

// Counts returns the processed/skipped/failed totals.
func (h *Hook) Counts() (processed, skipped, failed int64) {
	return h.processed.Load(), h.skipped.Load(), h.failed.Load()
}
