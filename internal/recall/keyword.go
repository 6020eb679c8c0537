package recall

import (
	"fmt"
	"sort"
	"time"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

// KeywordRetriever runs case-insensitive substring scans over decision
// events, skill events, and session summaries. Results are ordered by
// recency, not relevance: it assigns no scores of its own.
type KeywordRetriever struct {
	store *store.Store
}

// NewKeywordRetriever creates a keyword retriever over the given store.
func NewKeywordRetriever(s *store.Store) *KeywordRetriever {
	return &KeywordRetriever{store: s}
}

// Search unions the three substring scans, sorts by timestamp
// descending, and truncates to topK.
func (r *KeywordRetriever) Search(query, project string, topK int, after time.Time) ([]Hit, error) {
	args := store.SearchArgs{Project: project, After: after, Limit: topK}

	decisions, err := r.store.SearchEventsByType(store.EventDecisionMade, query, args)
	if err != nil {
		return nil, fmt.Errorf("decision scan: %w", err)
	}
	skills, err := r.store.SearchEventsByType(store.EventSkillLearned, query, args)
	if err != nil {
		return nil, fmt.Errorf("skill scan: %w", err)
	}
	sessions, err := r.store.SearchSessions(query, args)
	if err != nil {
		return nil, fmt.Errorf("session scan: %w", err)
	}

	hits := make([]Hit, 0, len(decisions)+len(skills)+len(sessions))
	for _, m := range decisions {
		hits = append(hits, eventHit("decision", m))
	}
	for _, m := range skills {
		hits = append(hits, eventHit("skill", m))
	}
	for _, m := range sessions {
		hits = append(hits, Hit{
			Type:      "session",
			ID:        m.SessionID,
			SessionID: m.SessionID,
			Timestamp: m.Timestamp,
			Project:   m.Project,
			Snippet:   snippet(m.Summary),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Timestamp.After(hits[j].Timestamp)
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func eventHit(hitType string, m store.EventMatch) Hit {
	return Hit{
		Type:      hitType,
		ID:        m.EventID,
		SessionID: m.SessionID,
		Timestamp: m.Timestamp,
		Project:   m.Project,
		Snippet:   snippet(m.Content),
	}
}
