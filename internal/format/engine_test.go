package format

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// mockGenerator returns canned text per call. It records the prompts and the
// generation params it was called with.
type mockGenerator struct {
	text    string
	err     error
	prompts []string
	params  []genai.GenerationParams
}

func (m *mockGenerator) GenerateWithParams(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, p genai.GenerationParams) (string, error) {
	for _, msg := range messages {
		if u := msg.OfUser; u != nil {
			m.prompts = append(m.prompts, u.Content.OfString.Or(""))
		}
	}
	m.params = append(m.params, p)
	return m.text, m.err
}

const storyContent = "Last spring I quit my job to care for my mother. It was the hardest and best decision I ever made."

func TestGenerate_UnsupportedFormat(t *testing.T) {
	e := NewEngine(&mockGenerator{text: "anything"})
	_, err := e.Generate(context.Background(), storyContent, "tiktok")
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestGenerate_EmptyInput(t *testing.T) {
	e := NewEngine(&mockGenerator{text: "anything"})
	_, err := e.Generate(context.Background(), "   ", "x")
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestGenerate_BackendUnavailable(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Generate(context.Background(), storyContent, "x")
	if !errors.Is(err, models.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestGenerate_BackendCallFailed(t *testing.T) {
	e := NewEngine(&mockGenerator{err: errors.New("timeout")})
	_, err := e.Generate(context.Background(), storyContent, "x")
	if !errors.Is(err, models.ErrBackendCallFailed) {
		t.Errorf("expected ErrBackendCallFailed, got %v", err)
	}
}

func TestGenerate_EmptyCompletionIsCallFailure(t *testing.T) {
	e := NewEngine(&mockGenerator{text: "  \n "})
	_, err := e.Generate(context.Background(), storyContent, "poem")
	if !errors.Is(err, models.ErrBackendCallFailed) {
		t.Errorf("expected ErrBackendCallFailed for empty completion, got %v", err)
	}
}

func TestGenerate_Artifact(t *testing.T) {
	gen := &mockGenerator{text: "Caring for her taught me what strength really looks like. 💛 #caregiving #family"}
	e := NewEngine(gen)
	artifact, err := e.Generate(context.Background(), storyContent, "x")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if artifact.FormatID != "x" {
		t.Errorf("format id = %q", artifact.FormatID)
	}
	if artifact.Method != models.GenerationMethodAI {
		t.Errorf("method = %s, want ai", artifact.Method)
	}
	if len(artifact.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", artifact.Warnings)
	}
	if artifact.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], storyContent) {
		t.Errorf("story content missing from prompt: %v", gen.prompts)
	}
}

func TestGenerate_ConstraintViolationsAreWarnings(t *testing.T) {
	long := strings.Repeat("a very long tweet without tags ", 20)
	gen := &mockGenerator{text: long}
	e := NewEngine(gen)
	artifact, err := e.Generate(context.Background(), storyContent, "x")
	if err != nil {
		t.Fatalf("constraint violations must not fail generation: %v", err)
	}
	var overLimit, noHashtags bool
	for _, w := range artifact.Warnings {
		if strings.HasPrefix(w, "Exceeds character limit:") {
			overLimit = true
		}
		if w == "Missing hashtags" {
			noHashtags = true
		}
	}
	if !overLimit || !noHashtags {
		t.Errorf("warnings = %v, want character limit and hashtag warnings", artifact.Warnings)
	}
}

func TestGenerate_CallToActionWarning(t *testing.T) {
	gen := &mockGenerator{text: "A post with no question at all. #growth"}
	e := NewEngine(gen)
	artifact, err := e.Generate(context.Background(), storyContent, "linkedin")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	found := false
	for _, w := range artifact.Warnings {
		if w == "Missing call-to-action" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want missing call-to-action", artifact.Warnings)
	}
}

func TestGenerate_SongTitleExtracted(t *testing.T) {
	gen := &mockGenerator{text: "TITLE: \"Letting Go\"\nI held the weight of every day\nuntil the morning washed it all away"}
	e := NewEngine(gen)
	artifact, err := e.Generate(context.Background(), storyContent, "song")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if artifact.Title != "Letting Go" {
		t.Errorf("title = %q, want extracted song title", artifact.Title)
	}
	if strings.Contains(artifact.Content, "TITLE:") {
		t.Errorf("title line should be removed from content: %q", artifact.Content)
	}
}

func TestGenerate_NewsletterSubjectExtracted(t *testing.T) {
	gen := &mockGenerator{text: "Subject: The Hardest Best Decision\n\nDear readers, this week I want to share something personal?"}
	e := NewEngine(gen)
	artifact, err := e.Generate(context.Background(), storyContent, "newsletter")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if artifact.Title != "The Hardest Best Decision" {
		t.Errorf("title = %q, want extracted subject", artifact.Title)
	}
}

func TestGenerate_ParamsFollowSpec(t *testing.T) {
	gen := &mockGenerator{text: "a poem\nof two lines"}
	e := NewEngine(gen)
	if _, err := e.Generate(context.Background(), storyContent, "poem"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	p := gen.params[0]
	if p.Model != advancedModel {
		t.Errorf("model = %q, want %q", p.Model, advancedModel)
	}
	if p.Temperature != creativeTemperature {
		t.Errorf("temperature = %v, want %v", p.Temperature, creativeTemperature)
	}
	if p.MaxCompletionTokens != 300 {
		t.Errorf("max tokens = %v, want 300", p.MaxCompletionTokens)
	}
}

func TestGenerateMany_IndependentFailures(t *testing.T) {
	gen := &mockGenerator{text: "content with #tags and a question?"}
	e := NewEngine(gen)
	results := e.GenerateMany(context.Background(), storyContent, []string{"x", "nope", "linkedin"})
	if len(results) != 3 {
		t.Fatalf("results = %d entries, want 3", len(results))
	}
	if results["x"].Artifact == nil || results["x"].Err != nil {
		t.Errorf("x should succeed: %+v", results["x"])
	}
	if results["linkedin"].Artifact == nil {
		t.Errorf("linkedin should succeed: %+v", results["linkedin"])
	}
	if results["nope"].Err == nil || !errors.Is(results["nope"].Err, models.ErrUnsupportedFormat) {
		t.Errorf("nope should fail with ErrUnsupportedFormat: %+v", results["nope"])
	}
	if results["nope"].ErrorMsg == "" {
		t.Error("failed entries must carry an error message")
	}
}

func TestMergeArtifact_PreservesSongAudio(t *testing.T) {
	spec, _ := Spec("song")
	prev := &models.FormatArtifact{
		FormatID: "song",
		Metadata: map[string]string{"audio_url": "https://cdn.example/song.mp3", "other": "x"},
	}
	next := models.FormatArtifact{FormatID: "song", Content: "new lyrics"}
	merged := MergeArtifact(spec, prev, next)
	if merged.Metadata["audio_url"] != "https://cdn.example/song.mp3" {
		t.Errorf("audio_url not preserved: %v", merged.Metadata)
	}
	if _, ok := merged.Metadata["other"]; ok {
		t.Error("non-preserved metadata keys must not be carried over")
	}
}

func TestMergeArtifact_NewValueWins(t *testing.T) {
	spec, _ := Spec("song")
	prev := &models.FormatArtifact{Metadata: map[string]string{"audio_url": "old"}}
	next := models.FormatArtifact{Metadata: map[string]string{"audio_url": "new"}}
	merged := MergeArtifact(spec, prev, next)
	if merged.Metadata["audio_url"] != "new" {
		t.Errorf("explicit new value must win, got %q", merged.Metadata["audio_url"])
	}
}

func TestMergeArtifact_NoPreservationRules(t *testing.T) {
	spec, _ := Spec("x")
	prev := &models.FormatArtifact{Metadata: map[string]string{"audio_url": "stale"}}
	next := models.FormatArtifact{Content: "fresh"}
	merged := MergeArtifact(spec, prev, next)
	if merged.Metadata != nil {
		t.Errorf("formats without preservation rules must not copy metadata: %v", merged.Metadata)
	}
}

func TestSupportedFormats(t *testing.T) {
	ids := SupportedFormats()
	if len(ids) != 19 {
		t.Fatalf("supported formats = %d, want 19", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("format ids not sorted: %v", ids)
		}
	}
	for _, want := range []string{"x", "linkedin", "instagram", "song", "book_chapter"} {
		if !IsSupported(want) {
			t.Errorf("expected %q to be supported", want)
		}
	}
}
