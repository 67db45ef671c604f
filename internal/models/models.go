// Package models defines the core data structures for StoryPipe.
//
// It includes conversation, signal, readiness, story, and format artifact
// types shared across modules.
package models

import (
	"errors"
	"time"
)

// TurnRole identifies the author of a conversation turn.
type TurnRole string

const (
	// RoleUser marks a turn written by the participant.
	RoleUser TurnRole = "user"
	// RoleAssistant marks a turn written by the assistant.
	RoleAssistant TurnRole = "assistant"
	// RoleSystem marks an injected system turn.
	RoleSystem TurnRole = "system"
)

// IsValidTurnRole checks if the given role is supported.
func IsValidTurnRole(r TurnRole) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// ConversationTurn is a single immutable message in a conversation.
// Insertion order is the conversation's canonical order.
type ConversationTurn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is an ordered sequence of turns.
type Conversation []ConversationTurn

// UserTurns returns only the participant-authored turns, in order.
func (c Conversation) UserTurns() []ConversationTurn {
	var turns []ConversationTurn
	for _, t := range c {
		if t.Role == RoleUser {
			turns = append(turns, t)
		}
	}
	return turns
}

// SignalBundle is the structured extraction derived from raw text.
// It is ephemeral and recomputed on demand; SourceHash ties it to the text it
// was derived from so re-analysis can be skipped for identical input.
type SignalBundle struct {
	Domains          map[string]float64 `json:"domains"`
	Themes           []string           `json:"themes"`
	EmotionalMarkers []string           `json:"emotional_markers"`
	NarrativeMarkers []string           `json:"narrative_markers"`
	Confidence       float64            `json:"confidence"`
	SourceHash       string             `json:"source_hash"`
}

// IsEmpty reports whether the bundle carries no signal at all.
func (b SignalBundle) IsEmpty() bool {
	return len(b.Domains) == 0 && len(b.Themes) == 0 && len(b.EmotionalMarkers) == 0 && len(b.NarrativeMarkers) == 0
}

// Recommendation is the classifier's discrete verdict on a conversation.
type Recommendation string

const (
	// RecommendContinue keeps the conversation in rapport-building mode.
	RecommendContinue Recommendation = "continue_conversation"
	// RecommendGuide nudges the conversation toward narrative completeness.
	RecommendGuide Recommendation = "guide_to_story"
	// RecommendGenerate means the conversation is ready to become a story.
	RecommendGenerate Recommendation = "generate_story"
)

// Readiness score bands. The wide exploring band is deliberate: fabricating a
// story from small talk is worse than an extra guidance turn.
const (
	// GuideThreshold is the inclusive lower bound of the guide_to_story band.
	GuideThreshold = 0.35
	// GenerateThreshold is the inclusive lower bound of the generate_story band.
	GenerateThreshold = 0.65
)

// RecommendationForScore maps a readiness score onto the fixed band contract.
// Both scoring strategies must derive their recommendation through this
// function so the bands stay consistent at the boundaries.
func RecommendationForScore(score float64) Recommendation {
	switch {
	case score >= GenerateThreshold:
		return RecommendGenerate
	case score >= GuideThreshold:
		return RecommendGuide
	default:
		return RecommendContinue
	}
}

// IsValidRecommendation checks if the given recommendation is supported.
func IsValidRecommendation(r Recommendation) bool {
	switch r {
	case RecommendContinue, RecommendGuide, RecommendGenerate:
		return true
	default:
		return false
	}
}

// AnalysisMethod records which scoring strategy produced a result.
type AnalysisMethod string

const (
	// AnalysisMethodAI marks results produced by the generative strategy.
	AnalysisMethodAI AnalysisMethod = "ai"
	// AnalysisMethodRules marks results produced by the rule-based strategy.
	AnalysisMethodRules AnalysisMethod = "rules_based"
)

// StoryElements is the classifier's structured breakdown of what the
// conversation already contains.
type StoryElements struct {
	HasNarrativeStructure bool    `json:"has_narrative_structure"`
	EmotionalDepth        float64 `json:"emotional_depth"`
	PersonalRevelation    bool    `json:"personal_revelation"`
	ConflictResolution    bool    `json:"conflict_resolution"`
	OverallStrength       float64 `json:"overall_strength"`
	TotalIndicators       int     `json:"total_indicators"`
}

// GuidanceStrategy selects the conversational approach for sub-threshold
// conversations.
type GuidanceStrategy string

const (
	// StrategyAdviceAndSupport responds to advice-seeking language.
	StrategyAdviceAndSupport GuidanceStrategy = "advice_and_support"
	// StrategyStoryDevelopment probes feeling and meaning to develop a story.
	StrategyStoryDevelopment GuidanceStrategy = "story_development"
	// StrategyExploration builds rapport when little signal is present.
	StrategyExploration GuidanceStrategy = "exploration_and_discovery"
)

// GuidanceBundle carries suggested responses and follow-up questions for
// continuing a conversation. It must never be empty.
type GuidanceBundle struct {
	Strategy           GuidanceStrategy `json:"strategy"`
	SuggestedResponses []string         `json:"suggested_responses"`
	FollowUpQuestions  []string         `json:"follow_up_questions"`
}

// StoryReadinessResult is the classifier's ephemeral output. Guidance is
// present iff Recommendation != RecommendGenerate.
type StoryReadinessResult struct {
	Score          float64         `json:"score"`
	Recommendation Recommendation  `json:"recommendation"`
	Reasoning      string          `json:"reasoning"`
	StoryElements  StoryElements   `json:"story_elements"`
	Guidance       *GuidanceBundle `json:"guidance,omitempty"`
	AnalysisMethod AnalysisMethod  `json:"analysis_method"`
}

// StoryVisibility controls who can see a story.
type StoryVisibility string

const (
	// VisibilityPublic makes a story visible to everyone.
	VisibilityPublic StoryVisibility = "public"
	// VisibilityPrivate restricts a story to its author.
	VisibilityPrivate StoryVisibility = "private"
)

// StoryAnalysis is the analysis metadata attached to a story at synthesis
// time. It must be invalidated and recomputed when the body or title changes.
type StoryAnalysis struct {
	ReadinessScore  float64        `json:"readiness_score"`
	Themes          []string       `json:"themes"`
	EmotionalThemes []string       `json:"emotional_themes"`
	Reasoning       string         `json:"reasoning"`
	Method          AnalysisMethod `json:"method"`
}

// GenerationMethod records how a format artifact was produced.
type GenerationMethod string

const (
	// GenerationMethodAI marks content produced by the generative backend.
	GenerationMethodAI GenerationMethod = "ai"
	// GenerationMethodFailed marks a generation attempt that produced no content.
	GenerationMethodFailed GenerationMethod = "failed"
)

// FormatArtifact is one generated representation of a story, keyed by format
// id within the story's Formats map. Metadata carries side-channel values
// (e.g. audio_url) that survive regeneration per the format's preservation
// rules.
type FormatArtifact struct {
	FormatID  string            `json:"format_id"`
	Content   string            `json:"content"`
	Title     string            `json:"title,omitempty"`
	Method    GenerationMethod  `json:"generation_method"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// Story is the durable artifact produced by the synthesizer.
type Story struct {
	ID         string                    `json:"id"`
	Title      string                    `json:"title"`
	Body       string                    `json:"body"`
	AuthorID   string                    `json:"author_id"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
	Tags       []string                  `json:"tags,omitempty"`
	Analysis   StoryAnalysis             `json:"analysis"`
	Formats    map[string]FormatArtifact `json:"formats,omitempty"`
	Visibility StoryVisibility           `json:"visibility"`
}

// Failure taxonomy. Components with deterministic fallbacks recover from
// ErrBackendCallFailed and ErrParseFailure locally; format generation has no
// fallback and surfaces them.
var (
	ErrEmptyInput         = errors.New("empty input")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrBackendUnavailable = errors.New("generative backend unavailable")
	ErrBackendCallFailed  = errors.New("generative backend call failed")
	ErrParseFailure       = errors.New("failed to parse generative output")
)

// FormatResult is one entry of a batch generation: either an artifact or an
// error, never both.
type FormatResult struct {
	Artifact *FormatArtifact `json:"artifact,omitempty"`
	Err      error           `json:"-"`
	ErrorMsg string          `json:"error,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse is the standard JSON envelope for API handlers.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Recorded creates a recorded API response.
func Recorded() APIResponse {
	return APIResponse{Status: string(APIStatusRecorded)}
}
