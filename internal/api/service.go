package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentimental-labs/StoryPipe/internal/format"
	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/profile"
	"github.com/sentimental-labs/StoryPipe/internal/story"
	"github.com/sentimental-labs/StoryPipe/internal/store"
)

// Service wires the pipeline components over a store and an optional
// generative backend. With a nil backend the service still serves rule-based
// readiness, template guidance, and fallback synthesis; only format
// generation degrades to hard failures.
type Service struct {
	st         store.Store
	tracker    *profile.Tracker
	classifier *story.Classifier
	synth      *story.Synthesizer
	engine     *format.Engine
}

// NewService creates a service. gen may be nil for offline operation.
func NewService(st store.Store, gen *genai.Client) *Service {
	var storyGen story.Generator
	var formatGen format.Generator
	if gen != nil {
		storyGen = gen
		formatGen = gen
	}
	return newService(st, storyGen, formatGen)
}

func newService(st store.Store, storyGen story.Generator, formatGen format.Generator) *Service {
	return &Service{
		st:         st,
		tracker:    profile.NewTracker(st),
		classifier: story.NewClassifier(storyGen),
		synth:      story.NewSynthesizer(storyGen),
		engine:     format.NewEngine(formatGen),
	}
}

// RecordTurn appends a turn to the user's conversation and, for user turns,
// folds the content into the user's context profile.
func (s *Service) RecordTurn(ctx context.Context, userID string, turn models.ConversationTurn) error {
	if strings.TrimSpace(turn.Content) == "" {
		return fmt.Errorf("record turn: %w", models.ErrEmptyInput)
	}
	if turn.Role == "" {
		turn.Role = models.RoleUser
	}
	if !models.IsValidTurnRole(turn.Role) {
		return fmt.Errorf("record turn: invalid role %q", turn.Role)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	if err := s.st.AppendTurn(userID, turn); err != nil {
		return fmt.Errorf("append turn for %s: %w", userID, err)
	}
	if turn.Role == models.RoleUser {
		if _, err := s.tracker.RecordInteraction(userID, turn.Content); err != nil {
			slog.Error("Service.RecordTurn: profile update failed", "userID", userID, "error", err)
			// The turn is already durable; profile drift is recoverable.
		}
	}
	slog.Debug("Service.RecordTurn: turn recorded", "userID", userID, "role", turn.Role)
	return nil
}

// EvaluateReadiness classifies the user's conversation. When conv is nil the
// stored conversation is used.
func (s *Service) EvaluateReadiness(ctx context.Context, userID string, conv models.Conversation) (models.StoryReadinessResult, error) {
	if conv == nil {
		stored, err := s.st.GetConversation(userID)
		if err != nil {
			return models.StoryReadinessResult{}, fmt.Errorf("load conversation for %s: %w", userID, err)
		}
		conv = stored
	}
	prof, err := s.tracker.GetProfile(userID)
	if err != nil {
		return models.StoryReadinessResult{}, err
	}
	return s.classifier.Evaluate(ctx, conv, prof), nil
}

// SynthesizeStory turns the user's conversation into a persisted story. The
// readiness analysis is computed first and attached to the story.
func (s *Service) SynthesizeStory(ctx context.Context, userID string, conv models.Conversation, titleSuggestion string, visibility models.StoryVisibility) (models.Story, error) {
	if conv == nil {
		stored, err := s.st.GetConversation(userID)
		if err != nil {
			return models.Story{}, fmt.Errorf("load conversation for %s: %w", userID, err)
		}
		conv = stored
	}
	prof, err := s.tracker.GetProfile(userID)
	if err != nil {
		return models.Story{}, err
	}
	analysis := s.classifier.Evaluate(ctx, conv, prof)

	st, err := s.synth.Synthesize(ctx, story.SynthesisRequest{
		Conversation:    conv,
		AuthorID:        userID,
		TitleSuggestion: titleSuggestion,
		Visibility:      visibility,
		Analysis:        analysis,
	})
	if err != nil {
		return models.Story{}, err
	}
	if err := s.st.SaveStory(st); err != nil {
		return models.Story{}, fmt.Errorf("save story %s: %w", st.ID, err)
	}
	slog.Info("Service.SynthesizeStory: story saved", "storyID", st.ID, "authorID", userID)
	return st, nil
}

// GetStory returns a story by id.
func (s *Service) GetStory(ctx context.Context, storyID string) (models.Story, error) {
	st, err := s.st.GetStory(storyID)
	if err != nil {
		return models.Story{}, fmt.Errorf("load story %s: %w", storyID, err)
	}
	if st == nil {
		return models.Story{}, store.ErrStoryNotFound
	}
	return *st, nil
}

// ListStories returns the user's stories, newest first.
func (s *Service) ListStories(ctx context.Context, userID string) ([]models.Story, error) {
	return s.st.ListStoriesByAuthor(userID)
}

// UpdateStoryContent replaces the story's title and/or body. Any content
// change invalidates the stored analysis, which is recomputed before saving.
func (s *Service) UpdateStoryContent(ctx context.Context, storyID, title, body string) (models.Story, error) {
	st, err := s.GetStory(ctx, storyID)
	if err != nil {
		return models.Story{}, err
	}
	if title == "" && body == "" {
		return models.Story{}, fmt.Errorf("update story %s: %w", storyID, models.ErrEmptyInput)
	}
	if title != "" {
		st.Title = title
	}
	if body != "" {
		st.Body = body
	}
	st.UpdatedAt = time.Now()
	s.synth.RefreshAnalysis(&st)
	if err := s.st.SaveStory(st); err != nil {
		return models.Story{}, fmt.Errorf("save story %s: %w", storyID, err)
	}
	slog.Info("Service.UpdateStoryContent: story updated", "storyID", storyID)
	return st, nil
}

// GenerateFormat generates one format artifact for a story and persists it
// under the story's formats map. Preserved metadata from a previous artifact
// is carried over unless clearMetadata is set.
func (s *Service) GenerateFormat(ctx context.Context, storyID, formatID string, clearMetadata bool) (models.FormatArtifact, error) {
	st, err := s.GetStory(ctx, storyID)
	if err != nil {
		return models.FormatArtifact{}, err
	}
	artifact, err := s.engine.Generate(ctx, st.Body, formatID)
	if err != nil {
		return models.FormatArtifact{}, err
	}

	spec, _ := format.Spec(formatID)
	var merged models.FormatArtifact
	err = s.st.UpdateStoryFormat(storyID, formatID, func(prev *models.FormatArtifact) models.FormatArtifact {
		if clearMetadata {
			merged = artifact
		} else {
			merged = format.MergeArtifact(spec, prev, artifact)
		}
		return merged
	})
	if err != nil {
		return models.FormatArtifact{}, fmt.Errorf("persist %s artifact for story %s: %w", formatID, storyID, err)
	}
	return merged, nil
}

// GenerateFormats generates a batch of formats for a story. Entries fail
// independently; successful artifacts are persisted as they complete.
func (s *Service) GenerateFormats(ctx context.Context, storyID string, formatIDs []string) (map[string]models.FormatResult, error) {
	if _, err := s.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	if len(formatIDs) == 0 {
		return nil, fmt.Errorf("generate formats for story %s: %w", storyID, models.ErrEmptyInput)
	}
	results := make(map[string]models.FormatResult, len(formatIDs))
	for _, id := range formatIDs {
		artifact, err := s.GenerateFormat(ctx, storyID, id, false)
		if err != nil {
			results[id] = models.FormatResult{Err: err, ErrorMsg: err.Error()}
			continue
		}
		results[id] = models.FormatResult{Artifact: &artifact}
	}
	return results, nil
}
