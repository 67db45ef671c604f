package story

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// mockGenerator implements Generator for testing. structuredJSON is
// unmarshaled into out on GenerateStructured; text is returned from
// GenerateWithParams.
type mockGenerator struct {
	text          string
	textErr       error
	structured    string
	structuredErr error
	prompts       []string
}

func (m *mockGenerator) GenerateWithParams(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, p genai.GenerationParams) (string, error) {
	m.recordPrompts(messages)
	return m.text, m.textErr
}

func (m *mockGenerator) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}, p genai.GenerationParams, out interface{}) error {
	m.recordPrompts(messages)
	if m.structuredErr != nil {
		return m.structuredErr
	}
	return json.Unmarshal([]byte(m.structured), out)
}

func (m *mockGenerator) recordPrompts(messages []openai.ChatCompletionMessageParamUnion) {
	for _, msg := range messages {
		if u := msg.OfUser; u != nil {
			m.prompts = append(m.prompts, u.Content.OfString.Or(""))
		}
	}
}

func turn(role models.TurnRole, content string) models.ConversationTurn {
	return models.ConversationTurn{Role: role, Content: content, Timestamp: time.Now()}
}

func richConversation() models.Conversation {
	return models.Conversation{
		turn(models.RoleUser, "I remember when I was struggling with a really difficult problem at work last week. I felt completely overwhelmed and scared to open up about it to anyone."),
		turn(models.RoleAssistant, "That sounds hard. What happened next?"),
		turn(models.RoleUser, "First I tried to handle it alone, then I finally talked to my friend. Back then I realized the challenge was never the work itself. It happened because I was afraid of looking weak."),
		turn(models.RoleAssistant, "What did you take away from that?"),
		turn(models.RoleUser, "Looking back, I understood something meaningful about myself. I learned that being honest about struggle is how I grow, and now I feel changed by the whole experience."),
	}
}

func smallTalk() models.Conversation {
	return models.Conversation{
		turn(models.RoleUser, "hey"),
		turn(models.RoleAssistant, "Hi! How are you?"),
		turn(models.RoleUser, "fine"),
	}
}

func TestEvaluate_ShortConversation(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Evaluate(context.Background(), models.Conversation{turn(models.RoleUser, "hello")}, models.ContextProfile{})
	if result.Score != 0 {
		t.Errorf("score = %v, want 0", result.Score)
	}
	if result.Recommendation != models.RecommendContinue {
		t.Errorf("recommendation = %s, want continue", result.Recommendation)
	}
	if result.AnalysisMethod != models.AnalysisMethodRules {
		t.Errorf("method = %s, want rules_based", result.AnalysisMethod)
	}
	if result.Guidance == nil {
		t.Error("expected guidance for non-generate recommendation")
	}
}

func TestEvaluate_SingleUserTurnShortCircuits(t *testing.T) {
	gen := &mockGenerator{structured: `{"story_readiness_score": 0.9}`}
	c := NewClassifier(gen)
	conv := models.Conversation{
		turn(models.RoleUser, "Hi"),
		turn(models.RoleAssistant, "hello"),
	}
	result := c.Evaluate(context.Background(), conv, models.ContextProfile{})
	if result.Score != 0 {
		t.Errorf("score = %v, want 0", result.Score)
	}
	if result.Recommendation != models.RecommendContinue {
		t.Errorf("recommendation = %s, want continue_conversation", result.Recommendation)
	}
	if result.AnalysisMethod != models.AnalysisMethodRules {
		t.Errorf("method = %s, want rules_based", result.AnalysisMethod)
	}
	// Guidance may personalize through the backend; the scoring strategy
	// itself must not run.
	for _, prompt := range gen.prompts {
		if strings.Contains(prompt, "Analyze this conversation") {
			t.Errorf("scoring strategy invoked for a single-user-turn conversation: %q", prompt)
		}
	}
}

func TestEvaluate_RulesRichNarrative(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Evaluate(context.Background(), richConversation(), models.ContextProfile{Completeness: 0.5})
	if result.Recommendation != models.RecommendGenerate {
		t.Fatalf("recommendation = %s (score %.2f), want generate_story", result.Recommendation, result.Score)
	}
	if result.Score < models.GenerateThreshold {
		t.Errorf("score = %v, want >= %v", result.Score, models.GenerateThreshold)
	}
	if result.Guidance != nil {
		t.Error("generate_story results must not carry guidance")
	}
	if !result.StoryElements.PersonalRevelation {
		t.Error("expected personal revelation to be detected")
	}
	if result.AnalysisMethod != models.AnalysisMethodRules {
		t.Errorf("method = %s, want rules_based", result.AnalysisMethod)
	}
}

func TestEvaluate_RulesSmallTalk(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Evaluate(context.Background(), smallTalk(), models.ContextProfile{})
	if result.Recommendation != models.RecommendContinue {
		t.Errorf("recommendation = %s (score %.2f), want continue_conversation", result.Recommendation, result.Score)
	}
	if result.Guidance == nil {
		t.Fatal("expected guidance for continue recommendation")
	}
	if len(result.Guidance.SuggestedResponses) == 0 || len(result.Guidance.FollowUpQuestions) == 0 {
		t.Error("guidance must never be empty")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	c := NewClassifier(nil)
	conv := richConversation()
	prof := models.ContextProfile{Completeness: 0.4}
	first := c.Evaluate(context.Background(), conv, prof)
	second := c.Evaluate(context.Background(), conv, prof)
	if first.Score != second.Score || first.Recommendation != second.Recommendation {
		t.Errorf("rule analysis not deterministic: %.4f/%s vs %.4f/%s",
			first.Score, first.Recommendation, second.Score, second.Recommendation)
	}
}

func TestEvaluate_MoreSignalNeverLowersScore(t *testing.T) {
	c := NewClassifier(nil)
	base := models.Conversation{
		turn(models.RoleUser, "Something happened at work last week."),
		turn(models.RoleAssistant, "Tell me more."),
		turn(models.RoleUser, "It was a difficult situation with my manager."),
	}
	richer := models.Conversation{
		base[0],
		base[1],
		turn(models.RoleUser, base[2].Content+" I remember feeling scared and overwhelmed, and when I finally opened up I realized how much I had learned from the struggle."),
	}
	prof := models.ContextProfile{}
	baseScore := c.Evaluate(context.Background(), base, prof).Score
	richerScore := c.Evaluate(context.Background(), richer, prof).Score
	if richerScore < baseScore {
		t.Errorf("score dropped with added signal: %.4f -> %.4f", baseScore, richerScore)
	}
}

func TestEvaluate_AIGenerate(t *testing.T) {
	gen := &mockGenerator{structured: `{"story_readiness_score": 0.9, "reasoning": "complete arc", "has_narrative_structure": true, "emotional_depth": 0.8, "personal_revelation": true, "conflict_resolution": true}`}
	c := NewClassifier(gen)
	result := c.Evaluate(context.Background(), smallTalk(), models.ContextProfile{})
	if result.AnalysisMethod != models.AnalysisMethodAI {
		t.Fatalf("method = %s, want ai", result.AnalysisMethod)
	}
	if result.Recommendation != models.RecommendGenerate {
		t.Errorf("recommendation = %s, want generate_story", result.Recommendation)
	}
	if result.Guidance != nil {
		t.Error("generate_story results must not carry guidance")
	}
	if result.Reasoning != "complete arc" {
		t.Errorf("reasoning = %q, want backend reasoning", result.Reasoning)
	}
}

func TestEvaluate_AIScoreDerivesBand(t *testing.T) {
	// A mid-band score must map through the shared band contract even if the
	// backend would have said otherwise.
	gen := &mockGenerator{structured: `{"story_readiness_score": 0.5, "reasoning": "developing", "has_narrative_structure": false, "emotional_depth": 0.4, "personal_revelation": false, "conflict_resolution": false}`}
	c := NewClassifier(gen)
	result := c.Evaluate(context.Background(), smallTalk(), models.ContextProfile{})
	if result.Recommendation != models.RecommendGuide {
		t.Errorf("recommendation = %s, want guide_to_story", result.Recommendation)
	}
	if result.Guidance == nil {
		t.Error("expected guidance for guide_to_story")
	}
}

func TestEvaluate_AIClampsScore(t *testing.T) {
	gen := &mockGenerator{structured: `{"story_readiness_score": 1.7, "reasoning": "overshoot", "has_narrative_structure": true, "emotional_depth": 2.0, "personal_revelation": true, "conflict_resolution": true}`}
	c := NewClassifier(gen)
	result := c.Evaluate(context.Background(), smallTalk(), models.ContextProfile{})
	if result.Score != 1.0 {
		t.Errorf("score = %v, want clamped 1.0", result.Score)
	}
	if result.StoryElements.EmotionalDepth != 1.0 {
		t.Errorf("emotional depth = %v, want clamped 1.0", result.StoryElements.EmotionalDepth)
	}
}

func TestEvaluate_AIFailureFallsBackToRules(t *testing.T) {
	gen := &mockGenerator{structuredErr: models.ErrParseFailure}
	c := NewClassifier(gen)
	result := c.Evaluate(context.Background(), richConversation(), models.ContextProfile{})
	if result.AnalysisMethod != models.AnalysisMethodRules {
		t.Errorf("method = %s, want rules_based fallback", result.AnalysisMethod)
	}
	if result.Recommendation != models.RecommendGenerate {
		t.Errorf("recommendation = %s, want generate_story from rules", result.Recommendation)
	}
}

func TestRuleReasoning_MentionsScore(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Evaluate(context.Background(), richConversation(), models.ContextProfile{})
	if !strings.Contains(result.Reasoning, "score:") {
		t.Errorf("reasoning should carry the score, got %q", result.Reasoning)
	}
}
