package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sessionDoc(id, project, summary string, events ...EventDocument) SessionDocument {
	return SessionDocument{
		ID:        id,
		Timestamp: "2026-08-01T10:00:00Z",
		Project:   project,
		Summary:   summary,
		Events:    events,
	}
}

func decisionEvent(id, decision string) EventDocument {
	content, _ := json.Marshal(map[string]any{
		"decision":     decision,
		"rationale":    "testing",
		"impact_level": "medium",
	})
	return EventDocument{
		ID:        id,
		Timestamp: "2026-08-01T10:05:00Z",
		Type:      EventDecisionMade,
		Content:   content,
	}
}

func TestOpenExisting_Missing(t *testing.T) {
	_, err := OpenExisting(filepath.Join(t.TempDir(), "nope.db"))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestImportSession_RoundTrip(t *testing.T) {
	s := testStore(t)

	id, err := s.ImportSession(sessionDoc("sess-1", "memoria", "built the thing", decisionEvent("evt-1", "Use Postgres")))
	if err != nil {
		t.Fatalf("ImportSession: %v", err)
	}
	if id != "sess-1" {
		t.Errorf("id = %q, want sess-1", id)
	}

	sess, err := s.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Project != "memoria" || sess.EventCount != 1 {
		t.Errorf("session = %+v", sess)
	}

	events, err := s.EventsByTypeForSession("sess-1", []string{EventDecisionMade})
	if err != nil {
		t.Fatalf("EventsByTypeForSession: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Decision == nil || events[0].Decision.Decision != "Use Postgres" {
		t.Errorf("decoded payload = %+v", events[0].Decision)
	}
}

func TestImportSession_Defaults(t *testing.T) {
	s := testStore(t)

	doc := SessionDocument{Summary: "no id, no project"}
	id, err := s.ImportSession(doc)
	if err != nil {
		t.Fatalf("ImportSession: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated session id")
	}

	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Project != "default" {
		t.Errorf("project = %q, want default", sess.Project)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetSession("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSessionsWithoutTreeLinks(t *testing.T) {
	s := testStore(t)

	if _, err := s.ImportSession(sessionDoc("sess-a", "p1", "first")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ImportSession(sessionDoc("sess-b", "p2", "second")); err != nil {
		t.Fatal(err)
	}

	all, err := s.SessionsWithoutTreeLinks(SessionFilter{})
	if err != nil {
		t.Fatalf("SessionsWithoutTreeLinks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unlinked = %d, want 2", len(all))
	}

	// Linking removes a session from the anti-join.
	err = s.WithTx(func(tx *sql.Tx) error {
		if err := s.UpsertNode(tx, MemoryNode{
			ID: "node:session:sess-a", Project: "p1", Title: "first",
			Level: LevelSession, PathKey: "p1/t/sess-a",
		}); err != nil {
			return err
		}
		return s.LinkNodeSource(tx, "node:session:sess-a", "sess-a")
	})
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	remaining, err := s.SessionsWithoutTreeLinks(SessionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].ID != "sess-b" {
		t.Errorf("remaining = %+v, want only sess-b", remaining)
	}

	// Project filter.
	byProject, err := s.SessionsWithoutTreeLinks(SessionFilter{Project: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byProject) != 0 {
		t.Errorf("p1 unlinked = %d, want 0", len(byProject))
	}
}

func TestUpsertNode_KeepsCreatedAt(t *testing.T) {
	s := testStore(t)

	node := MemoryNode{ID: "node:project:demo", Project: "demo", Title: "demo", Level: LevelProject, PathKey: "demo"}
	if err := s.WithTx(func(tx *sql.Tx) error { return s.UpsertNode(tx, node) }); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	first, err := s.GetNode("node:project:demo")
	if err != nil {
		t.Fatal(err)
	}

	// Backdate created_at, then re-upsert: created_at must survive.
	err = s.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE memory_nodes SET created_at = created_at - 100 WHERE id = ?`, node.ID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	node.Title = "demo renamed"
	if err := s.WithTx(func(tx *sql.Tx) error { return s.UpsertNode(tx, node) }); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	second, err := s.GetNode("node:project:demo")
	if err != nil {
		t.Fatal(err)
	}
	if second.Title != "demo renamed" {
		t.Errorf("title = %q, want renamed", second.Title)
	}
	if !second.CreatedAt.Before(first.CreatedAt) {
		t.Errorf("created_at not preserved: first %v, second %v", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestSearchEventsByType(t *testing.T) {
	s := testStore(t)

	if _, err := s.ImportSession(sessionDoc("sess-1", "memoria", "db work", decisionEvent("evt-1", "Use Postgres"))); err != nil {
		t.Fatal(err)
	}

	matches, err := s.SearchEventsByType(EventDecisionMade, "POSTGRES", SearchArgs{Limit: 5})
	if err != nil {
		t.Fatalf("SearchEventsByType: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Project != "memoria" || matches[0].SessionID != "sess-1" {
		t.Errorf("match = %+v", matches[0])
	}

	none, err := s.SearchEventsByType(EventDecisionMade, "mongodb", SearchArgs{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("matches = %d, want 0", len(none))
	}
}

func TestSearchSessions_ProjectAndDateFilter(t *testing.T) {
	s := testStore(t)

	if _, err := s.ImportSession(sessionDoc("sess-1", "memoria", "postgres migration notes")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ImportSession(sessionDoc("sess-2", "other", "postgres tuning")); err != nil {
		t.Fatal(err)
	}

	all, err := s.SearchSessions("postgres", SearchArgs{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("matches = %d, want 2", len(all))
	}

	scoped, err := s.SearchSessions("postgres", SearchArgs{Project: "memoria", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].SessionID != "sess-1" {
		t.Errorf("scoped = %+v", scoped)
	}

	future, err := s.SearchSessions("postgres", SearchArgs{After: time.Now().Add(24 * time.Hour), Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(future) != 0 {
		t.Errorf("future-window matches = %d, want 0", len(future))
	}
}

func TestNodeSessions_MostRecentFirst(t *testing.T) {
	s := testStore(t)

	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		if _, err := s.ImportSession(sessionDoc(id, "p", "summary "+id)); err != nil {
			t.Fatal(err)
		}
	}

	err := s.WithTx(func(tx *sql.Tx) error {
		if err := s.UpsertNode(tx, MemoryNode{ID: "node:topic:x", Project: "p", Title: "t", Level: LevelTopic, PathKey: "p/x"}); err != nil {
			return err
		}
		for i, id := range []string{"s1", "s2", "s3", "s4"} {
			if _, err := tx.Exec(`INSERT INTO memory_node_sources (node_id, session_id, created_at) VALUES (?, ?, ?)`,
				"node:topic:x", id, 1000+i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	refs, err := s.NodeSessions("node:topic:x", 3)
	if err != nil {
		t.Fatalf("NodeSessions: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("refs = %d, want 3", len(refs))
	}
	if refs[0].SessionID != "s4" {
		t.Errorf("first ref = %s, want s4 (most recently linked)", refs[0].SessionID)
	}
}

func TestTelemetry_InsertAndWindow(t *testing.T) {
	s := testStore(t)

	old := TelemetryRecord{RouteMode: "keyword", HitCount: 1, LatencyMs: 5, CreatedAt: time.Now().Add(-10 * 24 * time.Hour)}
	recent := TelemetryRecord{RouteMode: "hybrid_tree", HitCount: 3, LatencyMs: 12}

	if err := s.InsertTelemetry(old); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTelemetry(recent); err != nil {
		t.Fatal(err)
	}

	recs, err := s.TelemetrySince(time.Now().Add(-7*24*time.Hour), 0)
	if err != nil {
		t.Fatalf("TelemetrySince: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1 (old record outside window)", len(recs))
	}
	if recs[0].RouteMode != "hybrid_tree" {
		t.Errorf("route = %q", recs[0].RouteMode)
	}
}
