// Package models defines knowledge update variants for StoryPipe.
package models

import "fmt"

// KnowledgeUpdateKind tags the closed set of knowledge update variants.
type KnowledgeUpdateKind string

const (
	// KnowledgeKindPlaceholder fills a previously unknown profile field.
	KnowledgeKindPlaceholder KnowledgeUpdateKind = "placeholder_update"
	// KnowledgeKindTherapistNote attaches a reflective observation to a story.
	KnowledgeKindTherapistNote KnowledgeUpdateKind = "therapist_note"
	// KnowledgeKindSummary revises the rolling summary of a user's material.
	KnowledgeKindSummary KnowledgeUpdateKind = "summary_update"
	// KnowledgeKindConclusion records a durable insight about the user.
	KnowledgeKindConclusion KnowledgeUpdateKind = "conclusion"
	// KnowledgeKindCrossLink connects two stories that share a theme.
	KnowledgeKindCrossLink KnowledgeUpdateKind = "cross_link"
)

// KnowledgeUpdate is a closed tagged variant. Exactly the fields relevant to
// Kind are populated; Apply dispatches by tag.
type KnowledgeUpdate struct {
	Kind KnowledgeUpdateKind `json:"kind"`

	// placeholder_update
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	// therapist_note, summary_update, conclusion
	Text string `json:"text,omitempty"`

	// therapist_note, cross_link
	StoryID string `json:"story_id,omitempty"`

	// cross_link
	LinkedStoryID string `json:"linked_story_id,omitempty"`
	SharedTheme   string `json:"shared_theme,omitempty"`
}

// KnowledgeApplier receives dispatched knowledge updates.
type KnowledgeApplier interface {
	ApplyPlaceholder(field, value string) error
	ApplyTherapistNote(storyID, text string) error
	ApplySummary(text string) error
	ApplyConclusion(text string) error
	ApplyCrossLink(storyID, linkedStoryID, sharedTheme string) error
}

// ApplyKnowledgeUpdate dispatches an update to the applier by variant tag.
// Unknown kinds are an error, not a silent no-op.
func ApplyKnowledgeUpdate(a KnowledgeApplier, u KnowledgeUpdate) error {
	switch u.Kind {
	case KnowledgeKindPlaceholder:
		return a.ApplyPlaceholder(u.Field, u.Value)
	case KnowledgeKindTherapistNote:
		return a.ApplyTherapistNote(u.StoryID, u.Text)
	case KnowledgeKindSummary:
		return a.ApplySummary(u.Text)
	case KnowledgeKindConclusion:
		return a.ApplyConclusion(u.Text)
	case KnowledgeKindCrossLink:
		return a.ApplyCrossLink(u.StoryID, u.LinkedStoryID, u.SharedTheme)
	default:
		return fmt.Errorf("unknown knowledge update kind %q", u.Kind)
	}
}
