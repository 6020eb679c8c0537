package vault

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func importRichSession(t *testing.T, s *store.Store, id string) {
	t.Helper()
	_, err := s.ImportSession(store.SessionDocument{
		ID:        id,
		Timestamp: "2026-08-10T09:30:00Z",
		Project:   "memoria",
		Summary:   "storage planning",
		Events: []store.EventDocument{
			{
				Type:      store.EventDecisionMade,
				Timestamp: "2026-08-10T09:31:00Z",
				Content: rawJSON(t, store.DecisionPayload{
					Decision:               "Use Postgres for analytics",
					Rationale:              "managed offering available",
					AlternativesConsidered: []string{"ClickHouse", "DuckDB"},
					ImpactLevel:            "high",
				}),
			},
			{
				Type:      store.EventSkillLearned,
				Timestamp: "2026-08-10T09:45:00Z",
				Content: rawJSON(t, store.SkillPayload{
					SkillName:   "Batch Upserts",
					Category:    "database",
					SuccessRate: 0.9,
					Pattern:     "group writes into one transaction",
					Examples:    []string{"node import"},
				}),
			},
		},
	})
	if err != nil {
		t.Fatalf("import session: %v", err)
	}
}

func TestSyncSession_WritesAllDocs(t *testing.T) {
	s := testStore(t)
	importRichSession(t, s, "sess-1")
	dir := t.TempDir()

	res, err := NewSyncer(s, dir).SyncSession("sess-1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if want := filepath.Join(dir, "Daily", "2026-08-10.md"); res.DailyNote != want {
		t.Errorf("daily note = %q, want %q", res.DailyNote, want)
	}
	if len(res.DecisionDocs) != 1 || len(res.SkillDocs) != 1 {
		t.Fatalf("docs = %+v", res)
	}

	daily, err := os.ReadFile(res.DailyNote)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# 2026-08-10", "## 09:30 - memoria", "storage planning", "Session ID: `sess-1`"} {
		if !strings.Contains(string(daily), want) {
			t.Errorf("daily note missing %q:\n%s", want, daily)
		}
	}

	decision, err := os.ReadFile(res.DecisionDocs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Use Postgres for analytics", "## Rationale", "- ClickHouse", "high", "[[2026-08-10]]"} {
		if !strings.Contains(string(decision), want) {
			t.Errorf("decision doc missing %q", want)
		}
	}
	base := filepath.Base(res.DecisionDocs[0])
	if !strings.HasPrefix(base, "2026-08-10_Use_Postgres_for_analytics") {
		t.Errorf("decision filename = %q", base)
	}

	skill, err := os.ReadFile(res.SkillDocs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Batch Upserts", "90.0%", "group writes into one transaction", "- node import"} {
		if !strings.Contains(string(skill), want) {
			t.Errorf("skill doc missing %q", want)
		}
	}
	if want := filepath.Join(dir, "Skills", "Batch_Upserts.md"); res.SkillDocs[0] != want {
		t.Errorf("skill doc = %q, want %q", res.SkillDocs[0], want)
	}
}

func TestSyncSession_UpsertsSkillRow(t *testing.T) {
	s := testStore(t)
	importRichSession(t, s, "sess-1")

	if _, err := NewSyncer(s, t.TempDir()).SyncSession("sess-1"); err != nil {
		t.Fatal(err)
	}

	skills, err := s.RecentSkills(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(skills) != 1 {
		t.Fatalf("skills = %d, want 1", len(skills))
	}
	sk := skills[0]
	if sk.ID != "batch_upserts" || sk.Name != "Batch Upserts" || sk.Category != "database" {
		t.Errorf("skill = %+v", sk)
	}
	if sk.SuccessRate != 0.9 || sk.UseCount != 1 {
		t.Errorf("skill = %+v", sk)
	}
}

func TestSyncSession_AppendsDailyNote(t *testing.T) {
	s := testStore(t)
	importRichSession(t, s, "sess-1")
	_, err := s.ImportSession(store.SessionDocument{
		ID:        "sess-2",
		Timestamp: "2026-08-10T16:00:00Z",
		Project:   "memoria",
		Summary:   "afternoon review",
	})
	if err != nil {
		t.Fatal(err)
	}

	v := NewSyncer(s, t.TempDir())
	if _, err := v.SyncSession("sess-1"); err != nil {
		t.Fatal(err)
	}
	res, err := v.SyncSession("sess-2")
	if err != nil {
		t.Fatal(err)
	}

	daily, err := os.ReadFile(res.DailyNote)
	if err != nil {
		t.Fatal(err)
	}
	content := string(daily)
	if !strings.Contains(content, "## 09:30 - memoria") || !strings.Contains(content, "## 16:00 - memoria") {
		t.Errorf("daily note should hold both sessions:\n%s", content)
	}
	if strings.Count(content, "# 2026-08-10\n") != 1 {
		t.Errorf("daily header duplicated:\n%s", content)
	}
}

func TestSyncSession_UnknownSession(t *testing.T) {
	s := testStore(t)

	if _, err := NewSyncer(s, t.TempDir()).SyncSession("missing"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestSyncSession_NilStore(t *testing.T) {
	if _, err := NewSyncer(nil, t.TempDir()).SyncSession("sess-1"); err != store.ErrNotInitialized {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}
