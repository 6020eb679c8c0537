// Package treeindex derives the project/topic/session hierarchy the
// tree retriever searches. Derivation is incremental: sessions already
// linked to a node are skipped, so re-running a build is idempotent.
package treeindex

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/store"
)

// topicTitleMax caps derived topic titles to keep node text display-sized.
const topicTitleMax = 60

// Options filters which sessions a build considers.
type Options struct {
	Project   string
	Since     string // RFC3339 or YYYY-MM-DD; empty means no time filter
	SessionID string
	DryRun    bool
}

// Result summarizes one build run.
type Result struct {
	SessionsConsidered int `json:"sessions_considered"`
	SessionsIndexed    int `json:"sessions_indexed"`
	NodesUpserted      int `json:"nodes_upserted"`
	LinksUpserted      int `json:"links_upserted"`
}

// Builder incrementally derives memory nodes from unindexed sessions.
type Builder struct {
	store *store.Store
}

// NewBuilder creates a builder over the given store.
func NewBuilder(s *store.Store) *Builder {
	return &Builder{store: s}
}

// Build indexes every session not yet linked to a memory node. Each
// session's writes are one transaction: a failing session is rolled
// back, logged, and skipped without aborting the batch.
func (b *Builder) Build(opts Options) (Result, error) {
	if b.store == nil {
		return Result{}, store.ErrNotInitialized
	}

	filter := store.SessionFilter{
		Project:   opts.Project,
		SessionID: opts.SessionID,
	}
	if opts.Since != "" {
		filter.Since = parseSince(opts.Since)
	}

	sessions, err := b.store.SessionsWithoutTreeLinks(filter)
	if err != nil {
		return Result{}, fmt.Errorf("select unindexed sessions: %w", err)
	}

	res := Result{SessionsConsidered: len(sessions)}

	for _, sess := range sessions {
		topic, err := b.deriveTopic(sess)
		if err != nil {
			slog.Warn("topic derivation failed, skipping session", "session", sess.ID, "error", err)
			continue
		}

		if opts.DryRun {
			res.SessionsIndexed++
			res.NodesUpserted += 3
			res.LinksUpserted += 2
			continue
		}

		nodes, links, err := b.indexSession(sess, topic)
		if err != nil {
			slog.Warn("session indexing failed, skipping", "session", sess.ID, "error", err)
			continue
		}
		res.SessionsIndexed++
		res.NodesUpserted += nodes
		res.LinksUpserted += links
	}

	slog.Info("tree index build finished",
		"considered", res.SessionsConsidered,
		"indexed", res.SessionsIndexed,
		"dry_run", opts.DryRun)
	return res, nil
}

// deriveTopic picks the topic text for a session: first decision, else
// first learned skill name, else the summary, else a synthetic
// per-date bucket.
func (b *Builder) deriveTopic(sess store.Session) (string, error) {
	events, err := b.store.EventsByTypeForSession(sess.ID, []string{store.EventDecisionMade, store.EventSkillLearned})
	if err != nil {
		return "", err
	}

	for _, ev := range events {
		if ev.Decision != nil && strings.TrimSpace(ev.Decision.Decision) != "" {
			return clipTitle(ev.Decision.Decision), nil
		}
	}
	for _, ev := range events {
		if ev.Skill != nil && strings.TrimSpace(ev.Skill.SkillName) != "" {
			return clipTitle(ev.Skill.SkillName), nil
		}
	}
	if strings.TrimSpace(sess.Summary) != "" {
		return clipTitle(sess.Summary), nil
	}
	return "Session " + sess.Timestamp.Format("2006-01-02"), nil
}

// indexSession writes the project, topic and session nodes plus the
// source links for one session in a single transaction.
func (b *Builder) indexSession(sess store.Session, topic string) (nodes, links int, err error) {
	projectSlug := config.Slug(sess.Project)
	topicSlug := config.Slug(topic)

	projectNode := store.MemoryNode{
		ID:      "node:project:" + projectSlug,
		Project: sess.Project,
		Title:   sess.Project,
		Summary: "Project root for " + sess.Project,
		Level:   store.LevelProject,
		PathKey: projectSlug,
	}

	topicNode := store.MemoryNode{
		ID:       "node:topic:" + projectSlug + ":" + config.ShortHash(topicSlug),
		ParentID: projectNode.ID,
		Project:  sess.Project,
		Title:    topic,
		Summary:  topic,
		Level:    store.LevelTopic,
		PathKey:  projectSlug + "/" + topicSlug,
	}

	sessionTitle := sess.Summary
	if strings.TrimSpace(sessionTitle) == "" {
		sessionTitle = "Session " + sess.Timestamp.Format("2006-01-02")
	}
	sessionNode := store.MemoryNode{
		ID:       "node:session:" + sess.ID,
		ParentID: topicNode.ID,
		Project:  sess.Project,
		Title:    clipTitle(sessionTitle),
		Summary:  sess.Summary,
		Level:    store.LevelSession,
		PathKey:  projectSlug + "/" + topicSlug + "/" + sess.ID,
	}

	err = b.store.WithTx(func(tx *sql.Tx) error {
		for _, n := range []store.MemoryNode{projectNode, topicNode, sessionNode} {
			if err := b.store.UpsertNode(tx, n); err != nil {
				return err
			}
			nodes++
		}
		if err := b.store.LinkNodeSource(tx, topicNode.ID, sess.ID); err != nil {
			return err
		}
		links++
		if err := b.store.LinkNodeSource(tx, sessionNode.ID, sess.ID); err != nil {
			return err
		}
		links++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return nodes, links, nil
}

func clipTitle(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= topicTitleMax {
		return s
	}
	clipped := s[:topicTitleMax]
	// Avoid splitting a multi-byte rune at the cut point.
	for len(clipped) > 0 && !utf8.ValidString(clipped) {
		clipped = clipped[:len(clipped)-1]
	}
	return clipped
}

// parseSince accepts RFC3339 or plain dates; anything else means no
// time filter, matching the router's permissive window handling.
func parseSince(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
