// Package story implements conversation readiness classification, guidance,
// and story synthesis.
//
// The classifier decides whether a conversation should continue, be guided
// toward a story, or be turned into one. A generative strategy is preferred
// when a backend is available; a deterministic rule-based strategy is both
// the fallback and the offline mode, so classification never fails outright.
package story

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/signal"
)

// Generator is the generative backend surface the story package consumes.
// *genai.Client satisfies it.
type Generator interface {
	GenerateWithParams(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, p genai.GenerationParams) (string, error)
	GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}, p genai.GenerationParams, out interface{}) error
}

// Analysis tuning.
const (
	// analysisModel runs the generative readiness analysis.
	analysisModel = openai.ChatModelGPT4
	// analysisMaxTokens bounds the analysis response.
	analysisMaxTokens = 800
	// analysisTemperature is kept low for consistent scoring.
	analysisTemperature = 0.3
	// analysisContextTurns limits how much conversation tail is analyzed.
	analysisContextTurns = 10
)

// Rule scoring weights and bonuses.
const (
	weightStoryElements    = 0.35
	weightEmotionalDepth   = 0.30
	weightNarrative        = 0.20
	bonusNarrativeFlow     = 0.15
	bonusSubstantialMsgs   = 0.08
	bonusConversationDepth = 0.05
	bonusSignificantEmo    = 0.10
	bonusVulnerability     = 0.08
	bonusManyIndicators    = 0.10
	bonusSomeIndicators    = 0.05
	bonusPersonalContext   = 0.08

	substantialMsgThreshold      = 80
	conversationDepthThreshold   = 1.5
	contextCompletenessThreshold = 0.3
)

// Classifier scores conversations for story readiness.
type Classifier struct {
	gen      Generator
	guidance *GuidanceGenerator
}

// NewClassifier creates a classifier. gen may be nil, in which case only the
// rule-based strategy runs.
func NewClassifier(gen Generator) *Classifier {
	return &Classifier{gen: gen, guidance: NewGuidanceGenerator(gen)}
}

// aiAnalysisPayload is the structured response contract for the generative
// strategy.
type aiAnalysisPayload struct {
	StoryReadinessScore   float64 `json:"story_readiness_score"`
	Reasoning             string  `json:"reasoning"`
	HasNarrativeStructure bool    `json:"has_narrative_structure"`
	EmotionalDepth        float64 `json:"emotional_depth"`
	PersonalRevelation    bool    `json:"personal_revelation"`
	ConflictResolution    bool    `json:"conflict_resolution"`
}

var analysisSchema = genai.GenerateSchema[aiAnalysisPayload]()

// Evaluate scores a conversation and recommends the next pipeline action.
// Guidance is attached whenever the recommendation is not generate_story.
func (c *Classifier) Evaluate(ctx context.Context, conv models.Conversation, prof models.ContextProfile) models.StoryReadinessResult {
	userTurns := conv.UserTurns()
	if len(conv) < 2 || len(userTurns) <= 1 {
		slog.Debug("Classifier.Evaluate: conversation too short", "turns", len(conv), "userTurns", len(userTurns))
		result := models.StoryReadinessResult{
			Score:          0,
			Recommendation: models.RecommendContinue,
			Reasoning:      "Not enough conversation content to analyze.",
			AnalysisMethod: models.AnalysisMethodRules,
		}
		result.Guidance = c.guidance.Build(ctx, conv, result.StoryElements, prof.Completeness)
		return result
	}

	if c.gen != nil {
		if result, err := c.evaluateWithAI(ctx, conv, prof); err == nil {
			return result
		} else {
			slog.Warn("Classifier.Evaluate: generative analysis failed, using rules", "error", err)
		}
	}
	return c.evaluateWithRules(ctx, conv, prof)
}

func (c *Classifier) evaluateWithAI(ctx context.Context, conv models.Conversation, prof models.ContextProfile) (models.StoryReadinessResult, error) {
	tail := conv
	if len(tail) > analysisContextTurns {
		tail = tail[len(tail)-analysisContextTurns:]
	}
	var sb strings.Builder
	for _, turn := range tail {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}

	var payload aiAnalysisPayload
	err := c.gen.GenerateStructured(ctx,
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysisSystemPrompt),
			openai.UserMessage("Analyze this conversation:\n\n" + sb.String()),
		},
		"StoryReadinessAnalysis", analysisSchema,
		genai.GenerationParams{Model: analysisModel, Temperature: analysisTemperature, MaxCompletionTokens: analysisMaxTokens},
		&payload)
	if err != nil {
		return models.StoryReadinessResult{}, err
	}

	score := clamp01(payload.StoryReadinessScore)
	result := models.StoryReadinessResult{
		Score:          score,
		Recommendation: models.RecommendationForScore(score),
		Reasoning:      payload.Reasoning,
		StoryElements: models.StoryElements{
			HasNarrativeStructure: payload.HasNarrativeStructure,
			EmotionalDepth:        clamp01(payload.EmotionalDepth),
			PersonalRevelation:    payload.PersonalRevelation,
			ConflictResolution:    payload.ConflictResolution,
			OverallStrength:       score,
		},
		AnalysisMethod: models.AnalysisMethodAI,
	}
	if result.Recommendation != models.RecommendGenerate {
		result.Guidance = c.guidance.Build(ctx, conv, result.StoryElements, prof.Completeness)
	}
	slog.Info("Classifier.evaluateWithAI: analysis complete", "score", score, "recommendation", result.Recommendation)
	return result, nil
}

func (c *Classifier) evaluateWithRules(ctx context.Context, conv models.Conversation, prof models.ContextProfile) models.StoryReadinessResult {
	result := ruleAnalysis(conv, prof.Completeness)
	if result.Recommendation != models.RecommendGenerate {
		result.Guidance = c.guidance.Build(ctx, conv, result.StoryElements, prof.Completeness)
	}
	slog.Info("Classifier.evaluateWithRules: analysis complete", "score", result.Score, "recommendation", result.Recommendation)
	return result
}

// ruleAnalysis is the deterministic scoring core. It is a pure function of
// the conversation and profile completeness.
func ruleAnalysis(conv models.Conversation, completeness float64) models.StoryReadinessResult {
	userTurns := conv.UserTurns()
	contents := make([]string, 0, len(userTurns))
	for _, t := range userTurns {
		contents = append(contents, t.Content)
	}
	userText := strings.Join(contents, " ")

	matches := signal.StoryIndicatorMatches(userText)
	totalIndicators := 0
	for _, m := range matches {
		totalIndicators += len(m.Found)
	}
	overallStrength := minFloat(float64(totalIndicators)/10.0, 1.0)

	emotionCount := len(matches["emotional_depth"].Found)
	vulnerability := signal.VulnerabilityCount(userText)
	depthScore := minFloat(float64(emotionCount+vulnerability*2)/8.0, 1.0)
	hasSignificantEmotion := depthScore > 0.3

	structureCount := signal.StructureElementsPresent(userText)
	temporal := signal.TemporalProgressionCount(userText)
	narrativeScore := minFloat(float64(structureCount+temporal)/8.0, 1.0)

	var avgMsgLen float64
	if len(contents) > 0 {
		total := 0
		for _, c := range contents {
			total += len(c)
		}
		avgMsgLen = float64(total) / float64(len(contents))
	}
	conversationDepth := float64(len(conv)) / 2.0
	isNarrative := len(matches["narrative_elements"].Found) > 2
	isExploratory := signal.FlowIndicatorCount(userText, "exploration") > 0
	isSeekingAdvice := signal.FlowIndicatorCount(userText, "questions") > 0

	score := overallStrength*weightStoryElements + depthScore*weightEmotionalDepth + narrativeScore*weightNarrative
	if isNarrative {
		score += bonusNarrativeFlow
	}
	if avgMsgLen > substantialMsgThreshold {
		score += bonusSubstantialMsgs
	}
	if conversationDepth > conversationDepthThreshold {
		score += bonusConversationDepth
	}
	if hasSignificantEmotion {
		score += bonusSignificantEmo
	}
	if vulnerability > 0 {
		score += bonusVulnerability
	}
	if totalIndicators >= 5 {
		score += bonusManyIndicators
	} else if totalIndicators >= 3 {
		score += bonusSomeIndicators
	}
	if completeness > contextCompletenessThreshold {
		score += bonusPersonalContext
	}
	score = clamp01(score)

	recommendation := models.RecommendationForScore(score)
	reasoning := ruleReasoning(score, recommendation, matches, isSeekingAdvice, isExploratory)

	return models.StoryReadinessResult{
		Score:          score,
		Recommendation: recommendation,
		Reasoning:      reasoning,
		StoryElements: models.StoryElements{
			HasNarrativeStructure: narrativeScore > 0.4,
			EmotionalDepth:        depthScore,
			PersonalRevelation:    len(matches["personal_revelation"].Found) > 0,
			ConflictResolution:    len(matches["conflict_resolution"].Found) > 0,
			OverallStrength:       overallStrength,
			TotalIndicators:       totalIndicators,
		},
		AnalysisMethod: models.AnalysisMethodRules,
	}
}

func ruleReasoning(score float64, rec models.Recommendation, matches map[string]signal.CategoryMatch, isSeekingAdvice, isExploratory bool) string {
	switch rec {
	case models.RecommendGenerate:
		return fmt.Sprintf("Strong story elements detected (score: %.2f). The conversation contains clear narrative structure, emotional depth, and meaningful content suitable for a story.", score)
	case models.RecommendGuide:
		var missing []string
		if matches["emotional_depth"].Strength < 0.3 {
			missing = append(missing, "emotional depth")
		}
		if matches["narrative_elements"].Strength < 0.3 {
			missing = append(missing, "narrative structure")
		}
		if matches["personal_revelation"].Strength < 0.3 {
			missing = append(missing, "personal insights")
		}
		if len(missing) > 0 {
			return fmt.Sprintf("Moderate story potential (score: %.2f). Could develop into a story with more %s.", score, strings.Join(missing, ", "))
		}
		return fmt.Sprintf("Good story potential (score: %.2f). Let's explore this further to develop it into a complete story.", score)
	default:
		if isSeekingAdvice {
			return fmt.Sprintf("User is seeking advice and guidance (score: %.2f). Continue supportive conversation.", score)
		}
		if isExploratory {
			return fmt.Sprintf("User is exploring thoughts and feelings (score: %.2f). Continue exploratory conversation.", score)
		}
		return fmt.Sprintf("Limited story elements detected (score: %.2f). Continue building rapport and understanding.", score)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
