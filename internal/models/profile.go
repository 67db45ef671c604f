// Package models defines context profile structures for StoryPipe.
package models

import "time"

// EngagementLevel buckets how substantively a user writes, derived from
// average words per interaction.
type EngagementLevel string

const (
	// EngagementNew is the level before any interaction is recorded.
	EngagementNew EngagementLevel = "new"
	// EngagementLow means short, sparse messages (<=10 words on average).
	EngagementLow EngagementLevel = "low"
	// EngagementMedium means moderately substantive messages (>10 words).
	EngagementMedium EngagementLevel = "medium"
	// EngagementHigh means long-form messages (>20 words on average).
	EngagementHigh EngagementLevel = "high"
)

// Engagement bucket thresholds in average words per interaction.
const (
	EngagementHighThreshold   = 20
	EngagementMediumThreshold = 10
)

// Completeness factor caps. Each accumulator is normalized against its cap
// before the factors are averaged.
const (
	CompletenessInteractionsCap  = 10
	CompletenessEmotionsCap      = 5
	CompletenessTemporalCap      = 3
	CompletenessRelationshipsCap = 3
)

// Placeholder field names a profile can learn from conversation.
const (
	ProfileFieldFirstName = "first_name"
	ProfileFieldAge       = "age"
	ProfileFieldLocation  = "location"
)

// ContextProfile accumulates per-user behavioral statistics. Accumulators
// only grow; Completeness is derived on every read and never itself
// accumulated. Fields holds self-stated personal details keyed by
// placeholder name.
type ContextProfile struct {
	UserID                   string            `json:"user_id"`
	TotalInteractions        int               `json:"total_interactions"`
	TotalWords               int               `json:"total_words"`
	EmotionExpressionCount   int               `json:"emotion_expression_count"`
	TemporalReferenceCount   int               `json:"temporal_reference_count"`
	RelationshipMentionCount int               `json:"relationship_mention_count"`
	EngagementLevel          EngagementLevel   `json:"engagement_level"`
	Completeness             float64           `json:"completeness"`
	Fields                   map[string]string `json:"fields,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// SetField records a personal field value the first time it is learned.
// Established values are not overwritten by later mentions.
func (p *ContextProfile) SetField(field, value string) bool {
	if _, ok := p.Fields[field]; ok {
		return false
	}
	if p.Fields == nil {
		p.Fields = make(map[string]string)
	}
	p.Fields[field] = value
	return true
}

// NewContextProfile returns the default profile for a user that has not
// interacted yet.
func NewContextProfile(userID string) ContextProfile {
	now := time.Now()
	return ContextProfile{
		UserID:          userID,
		EngagementLevel: EngagementNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// EngagementScore converts the engagement level into the normalized factor
// used by the completeness computation.
func (p ContextProfile) EngagementScore() float64 {
	switch p.EngagementLevel {
	case EngagementHigh:
		return 1.0
	case EngagementMedium:
		return 0.5
	default:
		return 0.2
	}
}

// ComputeCompleteness derives the profile completeness as the unweighted mean
// of five normalized factors.
func (p ContextProfile) ComputeCompleteness() float64 {
	factors := []float64{
		capRatio(p.TotalInteractions, CompletenessInteractionsCap),
		capRatio(p.EmotionExpressionCount, CompletenessEmotionsCap),
		capRatio(p.TemporalReferenceCount, CompletenessTemporalCap),
		capRatio(p.RelationshipMentionCount, CompletenessRelationshipsCap),
		p.EngagementScore(),
	}
	var sum float64
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

func capRatio(count, limit int) float64 {
	if count >= limit {
		return 1.0
	}
	return float64(count) / float64(limit)
}
