package recall

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

// maxAncestryHops bounds the parent walk so a corrupted parent cycle
// cannot hang path reconstruction.
const maxAncestryHops = 16

// sessionsPerNode caps how many linked sessions one node contributes.
const sessionsPerNode = 3

// TreeRetriever scores indexed memory nodes by token overlap and
// materializes hits from their linked sessions, each carrying the
// ancestry path that explains why it surfaced.
type TreeRetriever struct {
	store *store.Store

	// sessCache caches linked-session lookups per node revision, so
	// repeated queries over an unchanged tree skip the join.
	sessCache *lru.Cache[string, []store.SessionRef]
}

// NewTreeRetriever creates a tree retriever with a bounded
// linked-session cache.
func NewTreeRetriever(s *store.Store, cacheSize int) (*TreeRetriever, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, []store.SessionRef](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &TreeRetriever{store: s, sessCache: cache}, nil
}

// Search returns up to topK hits with scores in [0,1] and populated
// reasoning paths. A zero-token query yields no hits.
func (r *TreeRetriever) Search(query, project string, topK int) ([]Hit, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	nodes, err := r.store.Nodes(project)
	if err != nil {
		return nil, fmt.Errorf("load tree nodes: %w", err)
	}

	byID := make(map[string]store.MemoryNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	type scoredNode struct {
		node  store.MemoryNode
		score float64
	}

	var candidates []scoredNode
	for _, n := range nodes {
		// Project roots are containers, not matchable content.
		if n.Level == store.LevelProject {
			continue
		}
		score := overlapScore(tokens, n.Title+" "+n.Summary)
		if score > 0 {
			candidates = append(candidates, scoredNode{node: n, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].node.UpdatedAt.Equal(candidates[j].node.UpdatedAt) {
			return candidates[i].node.UpdatedAt.After(candidates[j].node.UpdatedAt)
		}
		return candidates[i].node.ID < candidates[j].node.ID
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	var hits []Hit
	for _, c := range candidates {
		path := reasoningPath(byID, c.node)

		refs, err := r.nodeSessions(c.node)
		if err != nil {
			return nil, err
		}
		// A matchable node without linked sessions contributes no
		// hits; that is expected, not an error.
		for _, ref := range refs {
			text := ref.Summary
			if text == "" {
				text = c.node.Summary
			}
			if text == "" {
				text = c.node.Title
			}
			hits = append(hits, Hit{
				Type:          "tree",
				ID:            c.node.ID,
				SessionID:     ref.SessionID,
				Timestamp:     ref.Timestamp,
				Project:       c.node.Project,
				Snippet:       snippet(text),
				Score:         c.score,
				NodeID:        c.node.ID,
				ReasoningPath: hitPath(byID, c.node, path, ref.SessionID),
				scored:        true,
			})
		}
	}

	hits = dedupeBySession(hits)

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Timestamp.After(hits[j].Timestamp)
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// overlapScore is the fraction of query tokens present in the node text.
func overlapScore(tokens []string, text string) float64 {
	lower := strings.ToLower(text)
	found := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			found++
		}
	}
	return float64(found) / float64(len(tokens))
}

// hitPath is the full root-to-leaf explanation for one (node, session)
// pair: the matched node's ancestry path, extended down to the session
// leaf when the match happened above it.
func hitPath(byID map[string]store.MemoryNode, node store.MemoryNode, path []string, sessionID string) []string {
	if node.Level == store.LevelSession {
		return path
	}
	leaf, ok := byID["node:session:"+sessionID]
	if !ok {
		return path
	}
	extended := make([]string, 0, len(path)+1)
	extended = append(extended, path...)
	return append(extended, leaf.Title)
}

// reasoningPath collects titles from the root down to the node,
// bounded to maxAncestryHops.
func reasoningPath(byID map[string]store.MemoryNode, node store.MemoryNode) []string {
	var titles []string
	current := node
	for hops := 0; hops < maxAncestryHops; hops++ {
		titles = append(titles, current.Title)
		if current.ParentID == "" {
			break
		}
		parent, ok := byID[current.ParentID]
		if !ok {
			break
		}
		current = parent
	}

	// Collected leaf-to-root; reverse in place.
	for i, j := 0, len(titles)-1; i < j; i, j = i+1, j-1 {
		titles[i], titles[j] = titles[j], titles[i]
	}
	return titles
}

func (r *TreeRetriever) nodeSessions(n store.MemoryNode) ([]store.SessionRef, error) {
	key := fmt.Sprintf("%s|%d", n.ID, n.UpdatedAt.Unix())
	if refs, ok := r.sessCache.Get(key); ok {
		return refs, nil
	}

	refs, err := r.store.NodeSessions(n.ID, sessionsPerNode)
	if err != nil {
		return nil, fmt.Errorf("linked sessions for %s: %w", n.ID, err)
	}
	r.sessCache.Add(key, refs)
	return refs, nil
}

// dedupeBySession keeps the highest-scoring hit per session id.
func dedupeBySession(hits []Hit) []Hit {
	best := make(map[string]int, len(hits))
	var out []Hit
	for _, h := range hits {
		if idx, ok := best[h.SessionID]; ok {
			if h.Score > out[idx].Score {
				out[idx] = h
			}
			continue
		}
		best[h.SessionID] = len(out)
		out = append(out, h)
	}
	return out
}
