// Package profile maintains per-user context profiles.
//
// A tracker observes each user message, accumulates behavioral counters, and
// derives engagement and completeness. Profiles personalize guidance and
// never gate any pipeline operation.
package profile

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/signal"
	"github.com/sentimental-labs/StoryPipe/internal/store"
)

// Tracker records interactions and serves profiles.
type Tracker struct {
	store store.Store
}

// NewTracker creates a tracker backed by the given store.
func NewTracker(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// RecordInteraction folds one user message into the user's profile through
// the store's atomic read-modify-write, so concurrent turns for the same
// user never lose increments. Counters only grow; the three marker counters
// advance at most one per turn, gated on whether the turn carries the
// respective marker at all. Engagement and completeness are recomputed from
// the accumulated totals.
func (t *Tracker) RecordInteraction(userID, text string) (models.ContextProfile, error) {
	var p models.ContextProfile
	err := t.store.UpdateProfile(userID, func(prev *models.ContextProfile) models.ContextProfile {
		if prev != nil {
			p = *prev
		} else {
			p = models.NewContextProfile(userID)
		}
		p.TotalInteractions++
		p.TotalWords += len(strings.Fields(text))
		if len(signal.DetectEmotionWords(text)) > 0 {
			p.EmotionExpressionCount++
		}
		if len(signal.DetectTimeReferences(text)) > 0 {
			p.TemporalReferenceCount++
		}
		if len(signal.DetectRelationshipWords(text)) > 0 {
			p.RelationshipMentionCount++
		}
		for _, u := range signal.FieldUpdates(text) {
			if err := models.ApplyKnowledgeUpdate(&fieldApplier{profile: &p}, u); err != nil {
				slog.Warn("Tracker.RecordInteraction: knowledge update skipped", "userID", userID, "kind", u.Kind, "error", err)
			}
		}
		p.EngagementLevel = engagementFor(p)
		p.Completeness = p.ComputeCompleteness()
		p.UpdatedAt = time.Now()
		return p
	})
	if err != nil {
		slog.Error("Tracker.RecordInteraction: update failed", "userID", userID, "error", err)
		return models.ContextProfile{}, fmt.Errorf("update profile for %s: %w", userID, err)
	}
	slog.Debug("Tracker.RecordInteraction: profile updated", "userID", userID,
		"interactions", p.TotalInteractions, "engagement", p.EngagementLevel, "completeness", p.Completeness)
	return p, nil
}

// GetProfile returns the user's profile with completeness freshly derived.
// Unknown users get a default profile rather than an error.
func (t *Tracker) GetProfile(userID string) (models.ContextProfile, error) {
	p, err := t.load(userID)
	if err != nil {
		return models.ContextProfile{}, err
	}
	p.Completeness = p.ComputeCompleteness()
	return p, nil
}

func (t *Tracker) load(userID string) (models.ContextProfile, error) {
	stored, err := t.store.GetProfile(userID)
	if err != nil {
		slog.Error("Tracker.load: read failed", "userID", userID, "error", err)
		return models.ContextProfile{}, fmt.Errorf("load profile for %s: %w", userID, err)
	}
	if stored == nil {
		slog.Debug("Tracker.load: no profile, starting fresh", "userID", userID)
		return models.NewContextProfile(userID), nil
	}
	return *stored, nil
}

// fieldApplier routes knowledge updates into a profile. Only placeholder
// updates apply here; story-scoped kinds belong to other targets.
type fieldApplier struct {
	profile *models.ContextProfile
}

func (a *fieldApplier) ApplyPlaceholder(field, value string) error {
	if a.profile.SetField(field, value) {
		slog.Debug("Tracker: learned profile field", "userID", a.profile.UserID, "field", field)
	}
	return nil
}

func (a *fieldApplier) ApplyTherapistNote(storyID, text string) error {
	return fmt.Errorf("therapist notes do not apply to a context profile")
}

func (a *fieldApplier) ApplySummary(text string) error {
	return fmt.Errorf("summary updates do not apply to a context profile")
}

func (a *fieldApplier) ApplyConclusion(text string) error {
	return fmt.Errorf("conclusions do not apply to a context profile")
}

func (a *fieldApplier) ApplyCrossLink(storyID, linkedStoryID, sharedTheme string) error {
	return fmt.Errorf("cross links do not apply to a context profile")
}

// engagementFor buckets average words per interaction into an engagement
// level. Zero interactions stays at the new level.
func engagementFor(p models.ContextProfile) models.EngagementLevel {
	if p.TotalInteractions == 0 {
		return models.EngagementNew
	}
	avg := float64(p.TotalWords) / float64(p.TotalInteractions)
	switch {
	case avg > models.EngagementHighThreshold:
		return models.EngagementHigh
	case avg > models.EngagementMediumThreshold:
		return models.EngagementMedium
	default:
		return models.EngagementLow
	}
}
