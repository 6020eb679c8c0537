package store

import (
	"fmt"
	"strings"
	"time"
)

// SearchArgs narrows a substring scan.
type SearchArgs struct {
	Project string
	After   time.Time
	Limit   int
}

// SearchEventsByType scans events of one type for a case-insensitive
// substring match in their JSON content, newest first.
func (s *Store) SearchEventsByType(eventType, query string, args SearchArgs) ([]EventMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT e.id, e.session_id, e.timestamp, s.project, e.content
		FROM events e JOIN sessions s ON s.id = e.session_id
		WHERE e.event_type = ? AND instr(lower(e.content), ?) > 0`
	qargs := []any{eventType, strings.ToLower(query)}

	if args.Project != "" {
		q += " AND s.project = ?"
		qargs = append(qargs, args.Project)
	}
	if !args.After.IsZero() {
		q += " AND e.timestamp >= ?"
		qargs = append(qargs, args.After.Unix())
	}
	q += " ORDER BY e.timestamp DESC LIMIT ?"
	qargs = append(qargs, limitOrDefault(args.Limit))

	rows, err := s.db.Query(q, qargs...)
	if err != nil {
		return nil, fmt.Errorf("search %s events: %w", eventType, err)
	}
	defer rows.Close()

	var matches []EventMatch
	for rows.Next() {
		var m EventMatch
		var ts int64
		if err := rows.Scan(&m.EventID, &m.SessionID, &ts, &m.Project, &m.Content); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SearchSessions scans session summaries and project names for a
// case-insensitive substring match, newest first.
func (s *Store) SearchSessions(query string, args SearchArgs) ([]SessionMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT id, timestamp, project, summary FROM sessions
		WHERE (instr(lower(summary), ?) > 0 OR instr(lower(project), ?) > 0)`
	lowered := strings.ToLower(query)
	qargs := []any{lowered, lowered}

	if args.Project != "" {
		q += " AND project = ?"
		qargs = append(qargs, args.Project)
	}
	if !args.After.IsZero() {
		q += " AND timestamp >= ?"
		qargs = append(qargs, args.After.Unix())
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	qargs = append(qargs, limitOrDefault(args.Limit))

	rows, err := s.db.Query(q, qargs...)
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	defer rows.Close()

	var matches []SessionMatch
	for rows.Next() {
		var m SessionMatch
		var ts int64
		if err := rows.Scan(&m.SessionID, &ts, &m.Project, &m.Summary); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 5
	}
	return limit
}
