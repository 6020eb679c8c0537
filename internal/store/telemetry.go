package store

import (
	"fmt"
	"time"
)

// InsertTelemetry appends one immutable telemetry record.
func (s *Store) InsertTelemetry(rec TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = GenNewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	fallback := 0
	if rec.FallbackUsed {
		fallback = 1
	}

	_, err := s.db.Exec(`INSERT INTO recall_telemetry (id, route_mode, fallback_used, hit_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RouteMode, fallback, rec.HitCount, rec.LatencyMs, rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}
	return nil
}

// TelemetrySince returns all telemetry records created at or after the
// cutoff, newest first, capped at limit (0 = no cap).
func (s *Store) TelemetrySince(cutoff time.Time, limit int) ([]TelemetryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT id, route_mode, fallback_used, hit_count, latency_ms, created_at
		FROM recall_telemetry WHERE created_at >= ? ORDER BY created_at DESC, id DESC`
	args := []any{cutoff.Unix()}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("telemetry since: %w", err)
	}
	defer rows.Close()

	var recs []TelemetryRecord
	for rows.Next() {
		var r TelemetryRecord
		var fallback int
		var created int64
		if err := rows.Scan(&r.ID, &r.RouteMode, &fallback, &r.HitCount, &r.LatencyMs, &created); err != nil {
			return nil, err
		}
		r.FallbackUsed = fallback != 0
		r.CreatedAt = time.Unix(created, 0).UTC()
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
