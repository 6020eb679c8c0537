package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by agent sessions.
const (
	EventDecisionMade     = "DecisionMade"
	EventSkillLearned     = "SkillLearned"
	EventConversationTurn = "ConversationTurn"
)

// Hierarchy levels of derived memory nodes.
const (
	LevelProject = 0
	LevelTopic   = 1
	LevelSession = 2
)

// GenNewID generates a new UUID v7 (time-ordered).
func GenNewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session is one imported agent session.
type Session struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Project    string    `json:"project"`
	EventCount int       `json:"event_count"`
	Summary    string    `json:"summary"`
}

// DecisionPayload is the content of a DecisionMade event.
type DecisionPayload struct {
	Decision               string   `json:"decision"`
	Rationale              string   `json:"rationale"`
	AlternativesConsidered []string `json:"alternatives_considered"`
	ImpactLevel            string   `json:"impact_level"`
}

// SkillPayload is the content of a SkillLearned event.
type SkillPayload struct {
	SkillName   string   `json:"skill_name"`
	Category    string   `json:"category"`
	SuccessRate float64  `json:"success_rate"`
	Pattern     string   `json:"pattern"`
	Examples    []string `json:"examples"`
}

// ConversationPayload is the content of a ConversationTurn event.
type ConversationPayload struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Event is one session event. Content is decoded once at the read
// boundary into the payload field matching Type; at most one of
// Decision/Skill/Turn is non-nil. Raw always carries the stored JSON.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Raw       string    `json:"raw"`

	Decision *DecisionPayload     `json:"decision,omitempty"`
	Skill    *SkillPayload        `json:"skill,omitempty"`
	Turn     *ConversationPayload `json:"turn,omitempty"`
}

// decodePayload fills the typed payload slot for the event's type.
// Undecodable or unknown content leaves only Raw set.
func (e *Event) decodePayload() {
	switch e.Type {
	case EventDecisionMade:
		var p DecisionPayload
		if json.Unmarshal([]byte(e.Raw), &p) == nil {
			e.Decision = &p
		}
	case EventSkillLearned:
		var p SkillPayload
		if json.Unmarshal([]byte(e.Raw), &p) == nil {
			e.Skill = &p
		}
	case EventConversationTurn:
		var p ConversationPayload
		if json.Unmarshal([]byte(e.Raw), &p) == nil {
			e.Turn = &p
		}
	}
}

// Skill is a learned skill extracted into the skills table.
type Skill struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	CreatedDate time.Time `json:"created_date"`
	SuccessRate float64   `json:"success_rate"`
	UseCount    int       `json:"use_count"`
	Filepath    string    `json:"filepath"`
}

// MemoryNode is a node of the derived project/topic/session hierarchy.
type MemoryNode struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Project   string    `json:"project"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Level     int       `json:"level"`
	PathKey   string    `json:"path_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRef points at a session linked to a memory node, with enough
// session context to materialize a recall hit.
type SessionRef struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Project   string    `json:"project"`
	Summary   string    `json:"summary"`
	LinkedAt  time.Time `json:"linked_at"`
}

// EventMatch is a substring-search result over events, joined with the
// owning session's project.
type EventMatch struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Project   string    `json:"project"`
	Content   string    `json:"content"`
}

// SessionMatch is a substring-search result over session summaries.
type SessionMatch struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Project   string    `json:"project"`
	Summary   string    `json:"summary"`
}

// TelemetryRecord is one immutable recall-routing observation.
type TelemetryRecord struct {
	ID           string    `json:"id"`
	RouteMode    string    `json:"route_mode"`
	FallbackUsed bool      `json:"fallback_used"`
	HitCount     int       `json:"hit_count"`
	LatencyMs    int       `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
