package telemetry

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

// DefaultWindow is used when a raw-query window string is invalid.
const DefaultWindow = "P7D"

var windowRe = regexp.MustCompile(`^P(\d+)D$`)

// RouteCounts breaks queries down per route mode.
type RouteCounts struct {
	Keyword        int `json:"keyword"`
	Tree           int `json:"tree"`
	HybridTree     int `json:"hybrid_tree"`
	HybridFallback int `json:"hybrid_fallback"`
}

// Summary is the windowed quality report. All fields are zero (not
// null) when no records fall in the window.
type Summary struct {
	TotalQueries int         `json:"total_queries"`
	RouteCounts  RouteCounts `json:"route_counts"`
	FallbackRate float64     `json:"fallback_rate"`
	AvgLatencyMs float64     `json:"avg_latency_ms"`
	P95LatencyMs int         `json:"p95_latency_ms"`
	AvgHitCount  float64     `json:"avg_hit_count"`
}

// RawResult is a page of raw telemetry rows.
type RawResult struct {
	Window string                  `json:"window"`
	Total  int                     `json:"total"`
	Rows   []store.TelemetryRecord `json:"rows"`
}

// Aggregator computes statistics over recorded telemetry.
type Aggregator struct {
	store *store.Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(s *store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Summarize reports quality statistics for the trailing window.
// windowDays defaults to 7 when non-positive.
func (a *Aggregator) Summarize(windowDays int) (Summary, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	recs, err := a.store.TelemetrySince(time.Now().AddDate(0, 0, -windowDays), 0)
	if err != nil {
		return Summary{}, err
	}
	if len(recs) == 0 {
		return Summary{}, nil
	}

	var s Summary
	s.TotalQueries = len(recs)

	var latencies []int
	var latencySum, hitSum, hybrid, fallbacks int
	for _, r := range recs {
		switch r.RouteMode {
		case "keyword":
			s.RouteCounts.Keyword++
		case "tree":
			s.RouteCounts.Tree++
		case "hybrid_tree":
			s.RouteCounts.HybridTree++
		case "hybrid_fallback":
			s.RouteCounts.HybridFallback++
		}
		if r.RouteMode == "hybrid_tree" || r.RouteMode == "hybrid_fallback" {
			hybrid++
			if r.FallbackUsed {
				fallbacks++
			}
		}
		latencies = append(latencies, r.LatencyMs)
		latencySum += r.LatencyMs
		hitSum += r.HitCount
	}

	if hybrid > 0 {
		s.FallbackRate = round(float64(fallbacks)/float64(hybrid), 4)
	}
	s.AvgLatencyMs = round(float64(latencySum)/float64(len(recs)), 2)
	s.AvgHitCount = round(float64(hitSum)/float64(len(recs)), 2)

	// Nearest-rank p95: sort ascending, index floor(0.95 * (n-1)).
	sort.Ints(latencies)
	s.P95LatencyMs = latencies[int(math.Floor(0.95*float64(len(latencies)-1)))]

	return s, nil
}

// ListRecent returns raw rows in the window, newest first. The window
// must match P<digits>D or falls back to P7D; limit is clamped to
// [1, 500]. Total counts every row in the window, not just the page.
func (a *Aggregator) ListRecent(window string, limit int) (RawResult, error) {
	days, normalized := parseWindow(window)

	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := a.store.TelemetrySince(time.Now().AddDate(0, 0, -days), 0)
	if err != nil {
		return RawResult{}, err
	}

	total := len(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []store.TelemetryRecord{}
	}

	return RawResult{Window: normalized, Total: total, Rows: rows}, nil
}

func parseWindow(window string) (days int, normalized string) {
	m := windowRe.FindStringSubmatch(window)
	if m == nil {
		return 7, DefaultWindow
	}
	d, err := strconv.Atoi(m[1])
	if err != nil || d <= 0 {
		return 7, DefaultWindow
	}
	return d, window
}

func round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
