// Package telemetry records one observation per recall invocation and
// computes windowed quality statistics over them. Recording is
// best-effort: failures are logged and swallowed, never surfaced.
package telemetry

import (
	"log/slog"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

// Recorder appends immutable recall_telemetry rows.
type Recorder struct {
	store *store.Store
}

// NewRecorder creates a recorder. A nil store disables recording.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Log appends one record. Negative counts are clamped to zero. Errors
// never reach the caller.
func (r *Recorder) Log(routeMode string, fallbackUsed bool, hitCount, latencyMs int) {
	if r == nil || r.store == nil {
		return
	}
	if hitCount < 0 {
		hitCount = 0
	}
	if latencyMs < 0 {
		latencyMs = 0
	}

	err := r.store.InsertTelemetry(store.TelemetryRecord{
		RouteMode:    routeMode,
		FallbackUsed: fallbackUsed,
		HitCount:     hitCount,
		LatencyMs:    latencyMs,
	})
	if err != nil {
		slog.Warn("telemetry record dropped", "route", routeMode, "error", err)
	}
}
