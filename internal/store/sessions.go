package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionDocument is the wire shape of a session export file.
type SessionDocument struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Project   string          `json:"project"`
	Summary   string          `json:"summary"`
	Events    []EventDocument `json:"events"`
}

// EventDocument is the wire shape of one event in a session export.
type EventDocument struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	Metadata  json.RawMessage `json:"metadata"`
}

// ImportSession upserts a session and its events in one transaction.
// Missing fields get the same defaults the original importer applied:
// project "default", timestamp now, generated event ids.
func (s *Store) ImportSession(doc SessionDocument) (string, error) {
	sessionID := doc.ID
	if sessionID == "" {
		sessionID = GenNewID()
	}

	ts := parseTimestamp(doc.Timestamp, time.Now())
	project := doc.Project
	if project == "" {
		project = "default"
	}

	err := s.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT OR REPLACE INTO sessions (id, timestamp, project, event_count, summary)
			VALUES (?, ?, ?, ?, ?)`,
			sessionID, ts.Unix(), project, len(doc.Events), doc.Summary)
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}

		for _, ev := range doc.Events {
			eventID := ev.ID
			if eventID == "" {
				eventID = "evt_" + strings.ReplaceAll(GenNewID(), "-", "")
			}
			content := string(ev.Content)
			if content == "" {
				content = "{}"
			}
			metadata := string(ev.Metadata)
			if metadata == "" {
				metadata = "{}"
			}
			_, err := tx.Exec(`INSERT OR REPLACE INTO events (id, session_id, timestamp, event_type, content, metadata)
				VALUES (?, ?, ?, ?, ?, ?)`,
				eventID, sessionID, parseTimestamp(ev.Timestamp, ts).Unix(), ev.Type, content, metadata)
			if err != nil {
				return fmt.Errorf("upsert event %s: %w", eventID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return sessionID, nil
}

// GetSession returns one session by id, or ErrNotFound.
func (s *Store) GetSession(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess Session
	var ts int64
	err := s.db.QueryRow(`SELECT id, timestamp, project, event_count, summary FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &ts, &sess.Project, &sess.EventCount, &sess.Summary)
	if err == sql.ErrNoRows {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, err
	}
	sess.Timestamp = time.Unix(ts, 0).UTC()
	return sess, nil
}

// SessionFilter narrows session selection for index building.
type SessionFilter struct {
	Project   string
	Since     time.Time
	SessionID string
}

// SessionsWithoutTreeLinks returns sessions not yet linked to any memory
// node, oldest first for stable derivation order.
func (s *Store) SessionsWithoutTreeLinks(f SessionFilter) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT id, timestamp, project, event_count, summary FROM sessions s
		WHERE NOT EXISTS (SELECT 1 FROM memory_node_sources ns WHERE ns.session_id = s.id)`
	var args []any

	if f.Project != "" {
		q += " AND project = ?"
		args = append(args, f.Project)
	}
	if !f.Since.IsZero() {
		q += " AND timestamp >= ?"
		args = append(args, f.Since.Unix())
	}
	if f.SessionID != "" {
		q += " AND id = ?"
		args = append(args, f.SessionID)
	}
	q += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("unindexed sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ts int64
		if err := rows.Scan(&sess.ID, &ts, &sess.Project, &sess.EventCount, &sess.Summary); err != nil {
			return nil, err
		}
		sess.Timestamp = time.Unix(ts, 0).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// EventsByTypeForSession returns a session's events of the given types,
// oldest first, payloads decoded.
func (s *Store) EventsByTypeForSession(sessionID string, types []string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(types) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(types))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{sessionID}
	for _, t := range types {
		args = append(args, t)
	}

	rows, err := s.db.Query(`SELECT id, session_id, timestamp, event_type, content FROM events
		WHERE session_id = ? AND event_type IN (`+placeholders+`)
		ORDER BY timestamp ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("events for session: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var ev Event
		var ts int64
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ts, &ev.Type, &ev.Raw); err != nil {
			return nil, err
		}
		ev.Timestamp = time.Unix(ts, 0).UTC()
		ev.decodePayload()
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpsertSkill inserts or replaces a skills-table row.
func (s *Store) UpsertSkill(sk Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO skills (id, name, category, created_date, success_rate, use_count, filepath)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sk.ID, sk.Name, sk.Category, sk.CreatedDate.Unix(), sk.SuccessRate, sk.UseCount, sk.Filepath)
	return err
}

// RecentSkills returns the most recently created skills.
func (s *Store) RecentSkills(limit int) ([]Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`SELECT id, name, category, created_date, success_rate, use_count, filepath
		FROM skills ORDER BY created_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var sk Skill
		var created int64
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Category, &created, &sk.SuccessRate, &sk.UseCount, &sk.Filepath); err != nil {
			return nil, err
		}
		sk.CreatedDate = time.Unix(created, 0).UTC()
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// parseTimestamp accepts RFC3339 timestamps, with or without offsets,
// falling back to the given default.
func parseTimestamp(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
