package story

import (
	"context"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/signal"
)

// Strategy selection threshold: above this overall element strength the
// conversation is worth developing toward a story.
const storyDevelopmentThreshold = 0.2

// Profile completeness buckets for follow-up question depth.
const (
	basicQuestionsBelow  = 0.3
	deeperQuestionsBelow = 0.6
)

var adviceResponses = []string{
	"That sounds really challenging. What feels most important to you right now?",
	"I can understand why that would be difficult. What options are you considering?",
	"Thank you for sharing that with me. What would feel most helpful to explore?",
}

var storyDevelopmentResponses = []string{
	"That sounds like it was a significant moment for you. What was going through your mind when that happened?",
	"How did that experience change you or your perspective?",
	"What did you learn about yourself from that situation?",
	"Can you tell me more about how you felt during that time?",
}

var explorationResponses = []string{
	"I'm here to listen. What's been on your mind lately?",
	"That's interesting. Can you tell me more about that?",
	"How are you feeling about all of this?",
	"What's most important to you in this situation?",
}

var basicQuestions = []string{
	"What's been on your mind lately?",
	"Is there something you've been wanting to talk about?",
	"What kind of experiences tend to stick with you?",
}

var deeperQuestions = []string{
	"That sounds meaningful. What was going through your mind during that?",
	"How did that experience change how you see things?",
	"What patterns do you notice in situations like this?",
}

var nuancedQuestions = []string{
	"Given what you've shared before, how does this connect to your other experiences?",
	"What would your past self think about this situation?",
	"What insight does this give you about yourself?",
}

// GuidanceGenerator builds conversation guidance for sub-threshold
// conversations. Template guidance always works; a generative backend, when
// present, personalizes it.
type GuidanceGenerator struct {
	gen Generator
}

// NewGuidanceGenerator creates a guidance generator. gen may be nil.
func NewGuidanceGenerator(gen Generator) *GuidanceGenerator {
	return &GuidanceGenerator{gen: gen}
}

// aiGuidancePayload is the structured response contract for personalized
// guidance.
type aiGuidancePayload struct {
	SuggestedResponses []string `json:"suggested_responses"`
	FollowUpQuestions  []string `json:"follow_up_questions"`
}

var guidanceSchema = genai.GenerateSchema[aiGuidancePayload]()

// Build produces guidance for continuing the conversation. It never returns
// nil: the template path has no failure modes.
func (g *GuidanceGenerator) Build(ctx context.Context, conv models.Conversation, elements models.StoryElements, completeness float64) *models.GuidanceBundle {
	bundle := templateGuidance(conv, elements, completeness)

	if g.gen != nil {
		if personalized, err := g.personalize(ctx, conv, bundle); err == nil {
			return personalized
		} else {
			slog.Warn("GuidanceGenerator.Build: personalization failed, using templates", "error", err)
		}
	}
	return bundle
}

// templateGuidance picks a strategy and canned content from conversation
// signals alone.
func templateGuidance(conv models.Conversation, elements models.StoryElements, completeness float64) *models.GuidanceBundle {
	userText := joinUserContent(conv)

	bundle := &models.GuidanceBundle{}
	switch {
	case seekingAdvice(userText):
		bundle.Strategy = models.StrategyAdviceAndSupport
		bundle.SuggestedResponses = append([]string(nil), adviceResponses...)
	case elements.OverallStrength > storyDevelopmentThreshold:
		bundle.Strategy = models.StrategyStoryDevelopment
		bundle.SuggestedResponses = append([]string(nil), storyDevelopmentResponses...)
	default:
		bundle.Strategy = models.StrategyExploration
		bundle.SuggestedResponses = append([]string(nil), explorationResponses...)
	}

	switch {
	case completeness < basicQuestionsBelow:
		bundle.FollowUpQuestions = append([]string(nil), basicQuestions...)
	case completeness < deeperQuestionsBelow:
		bundle.FollowUpQuestions = append([]string(nil), deeperQuestions...)
	default:
		bundle.FollowUpQuestions = append([]string(nil), nuancedQuestions...)
	}
	return bundle
}

// personalize asks the backend to tailor the template guidance to the actual
// conversation. The strategy is kept; only the texts are replaced.
func (g *GuidanceGenerator) personalize(ctx context.Context, conv models.Conversation, base *models.GuidanceBundle) (*models.GuidanceBundle, error) {
	var sb strings.Builder
	for _, turn := range conv {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}

	var payload aiGuidancePayload
	err := g.gen.GenerateStructured(ctx,
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(guidanceSystemPrompt),
			openai.UserMessage("Conversation:\n\n" + sb.String() + "\nSuggest responses and follow-up questions for the " + string(base.Strategy) + " strategy."),
		},
		"ConversationGuidance", guidanceSchema,
		genai.GenerationParams{Temperature: 0.7, MaxCompletionTokens: 500},
		&payload)
	if err != nil {
		return nil, err
	}
	if len(payload.SuggestedResponses) == 0 || len(payload.FollowUpQuestions) == 0 {
		// Partial payloads keep the template content for the missing half.
		if len(payload.SuggestedResponses) == 0 {
			payload.SuggestedResponses = base.SuggestedResponses
		}
		if len(payload.FollowUpQuestions) == 0 {
			payload.FollowUpQuestions = base.FollowUpQuestions
		}
	}
	return &models.GuidanceBundle{
		Strategy:           base.Strategy,
		SuggestedResponses: payload.SuggestedResponses,
		FollowUpQuestions:  payload.FollowUpQuestions,
	}, nil
}

func joinUserContent(conv models.Conversation) string {
	var parts []string
	for _, t := range conv.UserTurns() {
		parts = append(parts, t.Content)
	}
	return strings.Join(parts, " ")
}

func seekingAdvice(userText string) bool {
	return signal.FlowIndicatorCount(userText, "questions") > 0
}
