package telemetry

import (
	"path/filepath"
	"testing"
	"time"

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

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Log("keyword", false, 1, 1)

	NewRecorder(nil).Log("keyword", false, 1, 1)
}

func TestRecorder_ClampsNegatives(t *testing.T) {
	s := testStore(t)
	NewRecorder(s).Log("keyword", false, -3, -5)

	rows, err := s.TelemetrySince(time.Now().AddDate(0, 0, -1), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].HitCount != 0 || rows[0].LatencyMs != 0 {
		t.Errorf("record = %+v, want zeroed counts", rows[0])
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := testStore(t)

	got, err := NewAggregator(s).Summarize(7)
	if err != nil {
		t.Fatal(err)
	}
	if got != (Summary{}) {
		t.Errorf("summary = %+v, want all zero", got)
	}
}

func TestSummarize_RoutesAndFallbackRate(t *testing.T) {
	s := testStore(t)
	r := NewRecorder(s)
	r.Log("keyword", false, 3, 10)
	r.Log("tree", false, 2, 20)
	r.Log("hybrid_tree", false, 5, 30)
	r.Log("hybrid_tree", true, 4, 40)
	r.Log("hybrid_fallback", true, 1, 50)

	got, err := NewAggregator(s).Summarize(7)
	if err != nil {
		t.Fatal(err)
	}

	if got.TotalQueries != 5 {
		t.Errorf("total = %d, want 5", got.TotalQueries)
	}
	want := RouteCounts{Keyword: 1, Tree: 1, HybridTree: 2, HybridFallback: 1}
	if got.RouteCounts != want {
		t.Errorf("routes = %+v, want %+v", got.RouteCounts, want)
	}
	// 2 fallbacks over 3 hybrid queries, keyword/tree excluded.
	if got.FallbackRate != 0.6667 {
		t.Errorf("fallbackRate = %v, want 0.6667", got.FallbackRate)
	}
	if got.AvgLatencyMs != 30 {
		t.Errorf("avgLatency = %v, want 30", got.AvgLatencyMs)
	}
	if got.AvgHitCount != 3 {
		t.Errorf("avgHitCount = %v, want 3", got.AvgHitCount)
	}
}

func TestSummarize_P95NearestRank(t *testing.T) {
	s := testStore(t)
	r := NewRecorder(s)
	for _, ms := range []int{100, 10, 50, 30, 20} {
		r.Log("keyword", false, 1, ms)
	}

	got, err := NewAggregator(s).Summarize(7)
	if err != nil {
		t.Fatal(err)
	}
	// sorted [10 20 30 50 100], index floor(0.95*4) = 3
	if got.P95LatencyMs != 50 {
		t.Errorf("p95 = %d, want 50", got.P95LatencyMs)
	}
}

func TestSummarize_SingleRecord(t *testing.T) {
	s := testStore(t)
	NewRecorder(s).Log("tree", false, 2, 17)

	got, err := NewAggregator(s).Summarize(0)
	if err != nil {
		t.Fatal(err)
	}
	if got.P95LatencyMs != 17 || got.AvgLatencyMs != 17 {
		t.Errorf("summary = %+v", got)
	}
	if got.FallbackRate != 0 {
		t.Errorf("fallbackRate = %v, want 0 with no hybrid queries", got.FallbackRate)
	}
}

func TestListRecent(t *testing.T) {
	s := testStore(t)
	r := NewRecorder(s)
	for i := 0; i < 4; i++ {
		r.Log("keyword", false, i, i)
	}

	got, err := NewAggregator(s).ListRecent("P30D", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Window != "P30D" {
		t.Errorf("window = %q", got.Window)
	}
	if got.Total != 4 {
		t.Errorf("total = %d, want 4 (counts beyond the page)", got.Total)
	}
	if len(got.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(got.Rows))
	}
}

func TestListRecent_Clamps(t *testing.T) {
	s := testStore(t)
	a := NewAggregator(s)

	got, err := a.ListRecent("soon", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Window != DefaultWindow {
		t.Errorf("window = %q, want %q for invalid input", got.Window, DefaultWindow)
	}
	if got.Rows == nil {
		t.Error("rows should be an empty slice, not nil")
	}

	if _, err := a.ListRecent("P7D", 100000); err != nil {
		t.Fatal(err)
	}
}

func TestParseWindowString(t *testing.T) {
	cases := []struct {
		in   string
		days int
		norm string
	}{
		{"P1D", 1, "P1D"},
		{"P30D", 30, "P30D"},
		{"", 7, "P7D"},
		{"7D", 7, "P7D"},
		{"P0D", 7, "P7D"},
		{"last week", 7, "P7D"},
	}
	for _, c := range cases {
		days, norm := parseWindow(c.in)
		if days != c.days || norm != c.norm {
			t.Errorf("parseWindow(%q) = (%d, %q), want (%d, %q)", c.in, days, norm, c.days, c.norm)
		}
	}
}
