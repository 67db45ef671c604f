package format

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// Generator is the generative backend surface the format engine consumes.
// *genai.Client satisfies it.
type Generator interface {
	GenerateWithParams(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, p genai.GenerationParams) (string, error)
}

// Engine generates format artifacts from story content.
type Engine struct {
	gen Generator
}

// NewEngine creates a format engine. gen may be nil; every generation then
// fails with models.ErrBackendUnavailable since formats have no template
// fallback.
func NewEngine(gen Generator) *Engine {
	return &Engine{gen: gen}
}

// Generate produces one format artifact from story content. Constraint
// violations in the output are soft: they are recorded as artifact warnings,
// never returned as errors.
func (e *Engine) Generate(ctx context.Context, storyContent, formatID string) (models.FormatArtifact, error) {
	spec, ok := Spec(formatID)
	if !ok {
		return models.FormatArtifact{}, fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, formatID)
	}
	if strings.TrimSpace(storyContent) == "" {
		return models.FormatArtifact{}, fmt.Errorf("generate %s: %w", formatID, models.ErrEmptyInput)
	}
	if e.gen == nil {
		return models.FormatArtifact{}, fmt.Errorf("generate %s: %w", formatID, models.ErrBackendUnavailable)
	}

	prompt := fmt.Sprintf(spec.PromptTemplate, storyContent)
	content, err := e.gen.GenerateWithParams(ctx,
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(spec.SystemPrompt),
			openai.UserMessage(prompt),
		},
		genai.GenerationParams{Model: spec.Model, Temperature: spec.Temperature, MaxCompletionTokens: spec.MaxTokens})
	if err != nil {
		slog.Error("Engine.Generate: backend call failed", "formatID", formatID, "error", err)
		return models.FormatArtifact{}, fmt.Errorf("generate %s: %w: %v", formatID, models.ErrBackendCallFailed, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.FormatArtifact{}, fmt.Errorf("generate %s: %w: empty completion", formatID, models.ErrBackendCallFailed)
	}

	title, content := extractTitle(spec, content)
	artifact := models.FormatArtifact{
		FormatID:  formatID,
		Content:   content,
		Title:     title,
		Method:    models.GenerationMethodAI,
		CreatedAt: time.Now(),
		Warnings:  validate(spec, content),
	}
	slog.Info("Engine.Generate: artifact generated", "formatID", formatID,
		"length", len(content), "warnings", len(artifact.Warnings))
	return artifact, nil
}

// GenerateMany generates a batch of formats independently. One format's
// failure never affects the others; each entry of the result map carries
// either an artifact or an error.
func (e *Engine) GenerateMany(ctx context.Context, storyContent string, formatIDs []string) map[string]models.FormatResult {
	results := make(map[string]models.FormatResult, len(formatIDs))
	for _, id := range formatIDs {
		artifact, err := e.Generate(ctx, storyContent, id)
		if err != nil {
			results[id] = models.FormatResult{Err: err, ErrorMsg: err.Error()}
			continue
		}
		results[id] = models.FormatResult{Artifact: &artifact}
	}
	return results
}

// MergeArtifact applies the format's metadata preservation rules when a new
// artifact replaces a previous one. Keys listed in the spec's
// PreservedMetadata are carried over from prev unless next already sets them.
func MergeArtifact(spec FormatSpec, prev *models.FormatArtifact, next models.FormatArtifact) models.FormatArtifact {
	if prev == nil || len(spec.PreservedMetadata) == 0 {
		return next
	}
	for _, key := range spec.PreservedMetadata {
		value, ok := prev.Metadata[key]
		if !ok {
			continue
		}
		if _, set := next.Metadata[key]; set {
			continue
		}
		if next.Metadata == nil {
			next.Metadata = make(map[string]string)
		}
		next.Metadata[key] = value
	}
	return next
}

// validate checks the generated content against the spec's constraints and
// returns warnings for anything off. Validation never rejects content.
func validate(spec FormatSpec, content string) []string {
	var warnings []string
	length := len([]rune(content))
	if spec.CharacterLimit && spec.MaxLength > 0 && length > spec.MaxLength {
		warnings = append(warnings, fmt.Sprintf("Exceeds character limit: %d/%d", length, spec.MaxLength))
	}
	if spec.MinLength > 0 && length < spec.MinLength {
		warnings = append(warnings, fmt.Sprintf("Below minimum length: %d/%d", length, spec.MinLength))
	}
	if spec.IncludeHashtags && !strings.Contains(content, "#") {
		warnings = append(warnings, "Missing hashtags")
	}
	if spec.CallToAction && !strings.Contains(content, "?") {
		warnings = append(warnings, "Missing call-to-action")
	}
	return warnings
}

var (
	titleLineRe   = regexp.MustCompile(`(?i)^TITLE:\s*"?(.+?)"?\s*$`)
	subjectLineRe = regexp.MustCompile(`(?i)^Subject:\s*(.+?)\s*$`)
	boldTitleRe   = regexp.MustCompile(`^\*\*(.+?)\*\*$`)
)

// extractTitle pulls a title out of the generated content when the format's
// prompt asks for one. The title line is removed from the content so it is
// not duplicated; content without a recognizable title line is returned
// unchanged with an empty title.
func extractTitle(spec FormatSpec, content string) (title, rest string) {
	lines := strings.SplitN(content, "\n", 2)
	first := strings.TrimSpace(lines[0])
	remainder := ""
	if len(lines) > 1 {
		remainder = strings.TrimLeft(lines[1], "\n")
	}

	var re *regexp.Regexp
	switch spec.ID {
	case "song":
		re = titleLineRe
	case "newsletter":
		re = subjectLineRe
	case "book_chapter":
		re = boldTitleRe
	default:
		return "", content
	}
	m := re.FindStringSubmatch(first)
	if m == nil {
		return "", content
	}
	return strings.TrimSpace(m[1]), remainder
}
