// Package vault renders imported sessions into a Markdown knowledge
// base: a daily note per calendar day, one document per recorded
// decision, and one document per learned skill.
package vault

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/store"
)

const (
	dailyDir    = "Daily"
	decisionDir = "Decisions"
	skillDir    = "Skills"

	decisionSlugMax = 30
)

// Syncer writes session knowledge into a vault directory.
type Syncer struct {
	store *store.Store
	dir   string
}

// NewSyncer creates a syncer rooted at dir. The directory tree is
// created on first sync.
func NewSyncer(s *store.Store, dir string) *Syncer {
	return &Syncer{store: s, dir: dir}
}

// Result lists the files a sync touched.
type Result struct {
	DailyNote    string   `json:"daily_note"`
	DecisionDocs []string `json:"decision_docs"`
	SkillDocs    []string `json:"skill_docs"`
}

// SyncSession renders one session into the vault. Existing decision
// and skill documents with the same name are overwritten; the daily
// note is appended to.
func (v *Syncer) SyncSession(sessionID string) (Result, error) {
	if v.store == nil {
		return Result{}, store.ErrNotInitialized
	}

	for _, sub := range []string{dailyDir, decisionDir, skillDir} {
		if err := os.MkdirAll(filepath.Join(v.dir, sub), 0o755); err != nil {
			return Result{}, fmt.Errorf("create vault dir: %w", err)
		}
	}

	sess, err := v.store.GetSession(sessionID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.DailyNote, err = v.appendDailyNote(sess)
	if err != nil {
		return Result{}, err
	}

	events, err := v.store.EventsByTypeForSession(sessionID, []string{
		store.EventDecisionMade, store.EventSkillLearned,
	})
	if err != nil {
		return Result{}, err
	}

	for _, e := range events {
		switch {
		case e.Decision != nil:
			path, err := v.writeDecisionDoc(sess, e)
			if err != nil {
				return Result{}, err
			}
			res.DecisionDocs = append(res.DecisionDocs, path)
		case e.Skill != nil:
			path, err := v.writeSkillDoc(e)
			if err != nil {
				return Result{}, err
			}
			res.SkillDocs = append(res.SkillDocs, path)
		}
	}

	slog.Info("vault synced",
		"session", sessionID,
		"decisions", len(res.DecisionDocs),
		"skills", len(res.SkillDocs))
	return res, nil
}

func (v *Syncer) appendDailyNote(sess store.Session) (string, error) {
	date := sess.Timestamp.Format("2006-01-02")
	path := filepath.Join(v.dir, dailyDir, date+".md")

	var b strings.Builder
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		b.Write(existing)
	case os.IsNotExist(err):
		fmt.Fprintf(&b, "# %s\n\n", date)
	default:
		return "", fmt.Errorf("read daily note: %w", err)
	}

	fmt.Fprintf(&b, "\n## %s - %s\n\n", sess.Timestamp.Format("15:04"), sess.Project)
	if sess.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", sess.Summary)
	}
	fmt.Fprintf(&b, "Events: %d | Session ID: `%s`\n", sess.EventCount, sess.ID)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write daily note: %w", err)
	}
	return path, nil
}

func (v *Syncer) writeDecisionDoc(sess store.Session, e store.Event) (string, error) {
	title := e.Decision.Decision
	if title == "" {
		title = "Untitled Decision"
	}

	slug := config.SanitizeFilename(title, "untitled")
	if len(slug) > decisionSlugMax {
		slug = slug[:decisionSlugMax]
	}
	date := e.Timestamp.Format("2006-01-02")
	name := fmt.Sprintf("%s_%s_%s.md", date, slug, config.ShortHash(e.ID)[:8])
	path := filepath.Join(v.dir, decisionDir, name)

	impact := e.Decision.ImpactLevel
	if impact == "" {
		impact = "medium"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "## Metadata\n- **Date**: %s\n- **Session ID**: `%s`\n\n",
		e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), sess.ID)
	fmt.Fprintf(&b, "## Decision\n%s\n\n", e.Decision.Decision)
	fmt.Fprintf(&b, "## Rationale\n%s\n\n", e.Decision.Rationale)
	b.WriteString("## Alternatives Considered\n")
	for _, alt := range e.Decision.AlternativesConsidered {
		fmt.Fprintf(&b, "- %s\n", alt)
	}
	fmt.Fprintf(&b, "\n## Impact Level\n%s\n\n", impact)
	fmt.Fprintf(&b, "## Related\n[[%s]]\n", date)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write decision doc: %w", err)
	}
	return path, nil
}

func (v *Syncer) writeSkillDoc(e store.Event) (string, error) {
	name := e.Skill.SkillName
	if name == "" {
		name = "Untitled Skill"
	}
	category := e.Skill.Category
	if category == "" {
		category = "general"
	}

	path := filepath.Join(v.dir, skillDir, config.SanitizeFilename(name, "untitled")+".md")
	date := e.Timestamp.Format("2006-01-02")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "## Metadata\n- **Created**: %s\n- **Category**: %s\n- **Success Rate**: %.1f%%\n\n",
		e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), category, e.Skill.SuccessRate*100)
	fmt.Fprintf(&b, "## Pattern\n%s\n\n", e.Skill.Pattern)
	b.WriteString("## Examples\n")
	for _, ex := range e.Skill.Examples {
		fmt.Fprintf(&b, "- %s\n", ex)
	}
	fmt.Fprintf(&b, "\n## History\n- v1.0 (%s): initial version\n", date)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write skill doc: %w", err)
	}

	err := v.store.UpsertSkill(store.Skill{
		ID:          strings.ReplaceAll(strings.ToLower(name), " ", "_"),
		Name:        name,
		Category:    category,
		CreatedDate: e.Timestamp,
		SuccessRate: e.Skill.SuccessRate,
		UseCount:    1,
		Filepath:    path,
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
