// Package recall implements Memoria's tiered retrieval engine: a
// keyword substring retriever, a tree retriever over the derived
// project/topic/session hierarchy, and a router that combines them
// with fallback and telemetry.
package recall

import (
	"time"
	"unicode/utf8"
)

// Request modes accepted by the router.
const (
	ModeKeyword = "keyword"
	ModeTree    = "tree"
	ModeHybrid  = "hybrid"
)

// Route modes recorded in telemetry.
const (
	RouteKeyword        = "keyword"
	RouteTree           = "tree"
	RouteHybridTree     = "hybrid_tree"
	RouteHybridFallback = "hybrid_fallback"
)

// Hit is one recall result. Tree-origin hits carry NodeID and
// ReasoningPath; keyword-origin hits receive their score from the
// router based on rank position.
type Hit struct {
	Type          string    `json:"type"`
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Project       string    `json:"project"`
	Snippet       string    `json:"snippet"`
	Score         float64   `json:"score"`
	NodeID        string    `json:"node_id,omitempty"`
	ReasoningPath []string  `json:"reasoning_path,omitempty"`

	scored bool
}

// Filter is a recall request.
type Filter struct {
	Query      string `json:"query"`
	Project    string `json:"project,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
	TimeWindow string `json:"time_window,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

// Result is a recall response.
type Result struct {
	Hits         []Hit  `json:"hits"`
	RouteMode    string `json:"route_mode"`
	FallbackUsed bool   `json:"fallback_used"`
}

const snippetLen = 200

// snippet clips s to snippetLen bytes, backing off so the cut never
// lands inside a multibyte rune.
func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	clipped := s[:snippetLen]
	for len(clipped) > 0 && !utf8.ValidString(clipped) {
		clipped = clipped[:len(clipped)-1]
	}
	return clipped
}
