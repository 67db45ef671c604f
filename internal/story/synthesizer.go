package story

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"

	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/signal"
)

// Synthesis tuning.
const (
	storyModel       = openai.ChatModelGPT4
	storyMaxTokens   = 600
	storyTemperature = 0.7

	titleModel       = openai.ChatModelGPT3_5Turbo
	titleMaxTokens   = 30
	titleTemperature = 0.8

	// metaFilterKeepRatio is the minimum share of user turns the meta filter
	// may keep; below it the filter is abandoned and all turns are used.
	metaFilterKeepRatio = 0.3

	// maxStoryTags caps how many extracted themes become story tags.
	maxStoryTags = 3

	titleExcerptLen = 200
)

// metaInstructionPatterns mark messages aimed at steering the assistant
// rather than telling the story.
var metaInstructionPatterns = []string{
	"don't use the same",
	"don't repeat",
	"stop using",
	"please don't",
	"can you avoid",
	"try not to",
	"don't say",
	"be more specific",
	"be less",
	"change your tone",
	"speak differently",
	"respond with",
	"answer in",
	"use different words",
	"vary your language",
	"that sounds too",
	"make it more",
	"make it less",
	"write better",
	"improve your",
	"your response",
	"that response",
	"rephrase",
	"rewrite",
}

var shortFeedbackWords = []string{"ok", "good", "better", "yes", "no", "thanks"}

// Synthesizer turns conversations into durable stories. Generation degrades
// to a deterministic template when the backend is unavailable or fails, so
// synthesis never loses a user's material.
type Synthesizer struct {
	gen Generator
}

// NewSynthesizer creates a synthesizer. gen may be nil for template-only
// operation.
func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// SynthesisRequest carries the inputs for one story synthesis.
type SynthesisRequest struct {
	Conversation    models.Conversation
	AuthorID        string
	TitleSuggestion string
	Visibility      models.StoryVisibility
	// Analysis is the readiness result attached to the story. Zero value is
	// allowed; the synthesizer then derives analysis from the material.
	Analysis models.StoryReadinessResult
}

// Synthesize produces a story from a conversation. Conversations without any
// user turn yield models.ErrEmptyInput.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (models.Story, error) {
	userTurns := req.Conversation.UserTurns()
	if len(userTurns) == 0 {
		return models.Story{}, fmt.Errorf("synthesize: %w", models.ErrEmptyInput)
	}

	storyTurns := filterMetaInstructions(userTurns)
	bundle := signal.Extract(joinTurnContent(storyTurns))
	themes := bundle.Themes
	if len(themes) == 0 {
		themes = []string{"personal_growth"}
	}

	method := models.AnalysisMethodRules
	var body string
	var usedAI bool
	if s.gen != nil {
		generated, err := s.generateBody(ctx, storyTurns, themes)
		if err != nil {
			slog.Warn("Synthesizer.Synthesize: generative body failed, using template", "error", err)
		} else {
			body = generated
			usedAI = true
			method = models.AnalysisMethodAI
		}
	}
	if body == "" {
		body = fallbackBody(userTurns, themes)
	}

	title := req.TitleSuggestion
	if title == "" {
		if usedAI {
			generated, err := s.generateTitle(ctx, body, themes)
			if err != nil {
				slog.Warn("Synthesizer.Synthesize: title generation failed, using template", "error", err)
				title = fallbackTitle(themes)
			} else {
				title = generated
			}
		} else {
			title = fallbackTitle(themes)
		}
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	analysis := models.StoryAnalysis{
		ReadinessScore:  req.Analysis.Score,
		Themes:          themes,
		EmotionalThemes: bundle.EmotionalMarkers,
		Reasoning:       req.Analysis.Reasoning,
		Method:          method,
	}
	if analysis.Reasoning == "" {
		analysis.Reasoning = "Generated from meaningful conversation"
	}

	now := time.Now()
	st := models.Story{
		ID:         uuid.NewString(),
		Title:      title,
		Body:       body,
		AuthorID:   req.AuthorID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Tags:       limitTags(themes),
		Analysis:   analysis,
		Formats:    map[string]models.FormatArtifact{},
		Visibility: visibility,
	}
	slog.Info("Synthesizer.Synthesize: story created", "storyID", st.ID, "authorID", st.AuthorID,
		"method", method, "tags", st.Tags)
	return st, nil
}

// RefreshAnalysis recomputes a story's analysis from its current title and
// body. Call after any content edit; stale analysis must not survive one.
func (s *Synthesizer) RefreshAnalysis(st *models.Story) {
	text := st.Title + " " + st.Body
	bundle := signal.Extract(text)
	result := ruleAnalysis(models.Conversation{{Role: models.RoleUser, Content: text}}, 0)
	st.Analysis = models.StoryAnalysis{
		ReadinessScore:  result.Score,
		Themes:          bundle.Themes,
		EmotionalThemes: bundle.EmotionalMarkers,
		Reasoning:       result.Reasoning,
		Method:          models.AnalysisMethodRules,
	}
	slog.Debug("Synthesizer.RefreshAnalysis: analysis recomputed", "storyID", st.ID, "score", result.Score)
}

func (s *Synthesizer) generateBody(ctx context.Context, turns []models.ConversationTurn, themes []string) (string, error) {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString("User: ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	prompt := fmt.Sprintf(storyPromptTemplate, sb.String(), strings.Join(themes, ", "))
	body, err := s.gen.GenerateWithParams(ctx,
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(storySystemPrompt),
			openai.UserMessage(prompt),
		},
		genai.GenerationParams{Model: storyModel, Temperature: storyTemperature, MaxCompletionTokens: storyMaxTokens})
	if err != nil {
		return "", err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("generated story body is empty")
	}
	return body, nil
}

func (s *Synthesizer) generateTitle(ctx context.Context, body string, themes []string) (string, error) {
	excerpt := body
	if len(excerpt) > titleExcerptLen {
		excerpt = excerpt[:titleExcerptLen] + "..."
	}
	themeHint := themes
	if len(themeHint) > 2 {
		themeHint = themeHint[:2]
	}
	prompt := fmt.Sprintf(titlePromptTemplate, excerpt, strings.Join(themeHint, ", "))
	title, err := s.gen.GenerateWithParams(ctx,
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		genai.GenerationParams{Model: titleModel, Temperature: titleTemperature, MaxCompletionTokens: titleMaxTokens})
	if err != nil {
		return "", err
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return "", fmt.Errorf("generated title is empty")
	}
	return title, nil
}

// filterMetaInstructions drops turns that steer the assistant instead of
// telling the story. If the filter would keep less than metaFilterKeepRatio
// of the turns, the filter result is discarded.
func filterMetaInstructions(turns []models.ConversationTurn) []models.ConversationTurn {
	var kept []models.ConversationTurn
	for _, t := range turns {
		if !isMetaInstruction(t.Content) {
			kept = append(kept, t)
		}
	}
	if float64(len(kept)) < float64(len(turns))*metaFilterKeepRatio {
		return turns
	}
	return kept
}

func isMetaInstruction(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, pattern := range metaInstructionPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	if len(trimmed) < 10 {
		for _, word := range shortFeedbackWords {
			if strings.Contains(lower, word) {
				return true
			}
		}
	}
	return false
}

// fallbackBody stitches the raw user turns into a first-person template. It
// is deterministic for a given conversation.
func fallbackBody(userTurns []models.ConversationTurn, themes []string) string {
	themeHint := themes
	if len(themeHint) > 2 {
		themeHint = themeHint[:2]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "I've been thinking about %s lately.\n\n", strings.Join(themeHint, ", "))
	sb.WriteString("Here's what's been on my mind:\n\n")
	for i, turn := range userTurns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch {
		case i == 0:
			fmt.Fprintf(&sb, "It started when %s\n\n", strings.ToLower(content))
		case i == len(userTurns)-1:
			fmt.Fprintf(&sb, "What I've realized is that %s\n\n", content)
		default:
			fmt.Fprintf(&sb, "%s\n\n", content)
		}
	}
	sb.WriteString("I'm still figuring things out, but I feel like I understand myself a bit better now.")
	return sb.String()
}

func fallbackTitle(themes []string) string {
	theme := "Life"
	if len(themes) > 0 {
		theme = titleCase(themes[0])
	}
	return "Thoughts on " + theme
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func limitTags(themes []string) []string {
	if len(themes) > maxStoryTags {
		return themes[:maxStoryTags]
	}
	return themes
}

func joinTurnContent(turns []models.ConversationTurn) string {
	var parts []string
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	return strings.Join(parts, " ")
}
