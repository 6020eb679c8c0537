package recall

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

// DefaultTopK caps results when a request does not specify one.
const DefaultTopK = 5

var windowRe = regexp.MustCompile(`^P(\d+)D$`)

// TelemetryLogger records one routing observation per recall. It must
// never fail the caller; implementations swallow their own errors.
type TelemetryLogger interface {
	Log(routeMode string, fallbackUsed bool, hitCount, latencyMs int)
}

// Router dispatches recall requests across the keyword and tree
// retrievers. It is a read-only consumer of the store; a nil store is
// the valid "not yet initialized" empty state.
type Router struct {
	store    *store.Store
	keyword  *KeywordRetriever
	tree     *TreeRetriever
	recorder TelemetryLogger
}

// NewRouter creates a router. store and recorder may be nil: a nil
// store makes every recall an empty success, a nil recorder disables
// telemetry.
func NewRouter(s *store.Store, keyword *KeywordRetriever, tree *TreeRetriever, recorder TelemetryLogger) *Router {
	return &Router{store: s, keyword: keyword, tree: tree, recorder: recorder}
}

// Recall runs one query through the requested mode. Retriever errors
// propagate; telemetry is logged on both success and failure and its
// own failures never surface.
func (r *Router) Recall(f Filter) (Result, error) {
	start := time.Now()

	mode := f.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	topK := f.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	if r.store == nil {
		// Recall on an uninitialized system is a valid empty state.
		res := Result{Hits: []Hit{}, RouteMode: emptyRouteMode(mode), FallbackUsed: mode == ModeHybrid}
		r.log(res, start)
		return res, nil
	}

	after := parseWindow(f.TimeWindow, time.Now())

	res, err := r.dispatch(mode, f, topK, after)
	if err != nil {
		r.log(Result{RouteMode: emptyRouteMode(mode)}, start)
		return Result{}, err
	}

	assignScores(res.Hits)
	if res.Hits == nil {
		res.Hits = []Hit{}
	}

	r.log(res, start)
	return res, nil
}

func (r *Router) dispatch(mode string, f Filter, topK int, after time.Time) (Result, error) {
	switch mode {
	case ModeKeyword:
		hits, err := r.keyword.Search(f.Query, f.Project, topK, after)
		if err != nil {
			return Result{}, err
		}
		return Result{Hits: hits, RouteMode: RouteKeyword}, nil

	case ModeTree:
		hits, err := r.tree.Search(f.Query, f.Project, topK)
		if err != nil {
			return Result{}, err
		}
		return Result{Hits: hits, RouteMode: RouteTree}, nil

	case ModeHybrid:
		return r.hybrid(f, topK, after)

	default:
		return Result{}, fmt.Errorf("unknown recall mode %q", mode)
	}
}

// hybrid runs both retrievers, merges with tree-origin preference, and
// flags fallback whenever keyword results were needed to supplement or
// replace the tree results.
func (r *Router) hybrid(f Filter, topK int, after time.Time) (Result, error) {
	treeHits, err := r.tree.Search(f.Query, f.Project, topK)
	if err != nil {
		return Result{}, err
	}
	kwHits, err := r.keyword.Search(f.Query, f.Project, topK, after)
	if err != nil {
		return Result{}, err
	}

	type key struct{ id, session string }
	seen := make(map[key]bool, len(treeHits))

	merged := make([]Hit, 0, len(treeHits)+len(kwHits))
	for _, h := range treeHits {
		seen[key{h.ID, h.SessionID}] = true
		merged = append(merged, h)
	}

	supplemented := false
	for _, h := range kwHits {
		k := key{h.ID, h.SessionID}
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, h)
		supplemented = true
	}

	fallback := len(treeHits) == 0 || supplemented

	routeMode := RouteHybridTree
	if fallback {
		routeMode = RouteHybridFallback
	}

	if len(merged) > topK {
		merged = merged[:topK]
	}

	return Result{Hits: merged, RouteMode: routeMode, FallbackUsed: fallback}, nil
}

// assignScores fills in scores for hits that lack one: 1.0 for a lone
// hit, otherwise a linear ramp from 1.0 down to 0.0 by rank position.
// This is a rank proxy, not a relevance score.
func assignScores(hits []Hit) {
	n := len(hits)
	for i := range hits {
		if hits[i].scored {
			continue
		}
		if n == 1 {
			hits[i].Score = 1.0
		} else {
			hits[i].Score = 1.0 - float64(i)/float64(n-1)
		}
		hits[i].scored = true
	}
}

// parseWindow converts a restricted ISO-8601 duration ("P<n>D") into a
// minimum timestamp. Unparseable values are silently ignored.
func parseWindow(window string, now time.Time) time.Time {
	if window == "" {
		return time.Time{}
	}
	m := windowRe.FindStringSubmatch(window)
	if m == nil {
		return time.Time{}
	}
	days, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}

// emptyRouteMode maps a request mode to the route recorded when no
// retrieval ran.
func emptyRouteMode(mode string) string {
	switch mode {
	case ModeKeyword:
		return RouteKeyword
	case ModeTree:
		return RouteTree
	default:
		return RouteHybridFallback
	}
}

func (r *Router) log(res Result, start time.Time) {
	if r.recorder == nil {
		return
	}
	r.recorder.Log(res.RouteMode, res.FallbackUsed, len(res.Hits), int(time.Since(start).Milliseconds()))
}
