package signal

import (
	"reflect"
	"testing"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

const sampleText = "Last week I realized how much my family means to me. I felt " +
	"overwhelmed at work, struggled with a difficult problem, and then finally " +
	"understood what I needed to change."

func TestExtract_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		b := Extract(text)
		if !b.IsEmpty() {
			t.Errorf("Extract(%q) should be empty, got %+v", text, b)
		}
		if b.Confidence != 0 {
			t.Errorf("Extract(%q) confidence = %v, want 0", text, b.Confidence)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	first := Extract(sampleText)
	second := Extract(sampleText)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first.SourceHash == "" {
		t.Error("expected a non-empty source hash")
	}
	if first.SourceHash == Extract("different text").SourceHash {
		t.Error("distinct texts should hash differently")
	}
}

func TestExtract_DomainsAndThemes(t *testing.T) {
	b := Extract(sampleText)
	if _, ok := b.Domains["relationships"]; !ok {
		t.Errorf("expected relationships domain, got %v", b.Domains)
	}
	if _, ok := b.Domains["career"]; !ok {
		t.Errorf("expected career domain, got %v", b.Domains)
	}
	for _, strength := range b.Domains {
		if strength <= 0 || strength > 1 {
			t.Errorf("domain strength %v out of (0,1]", strength)
		}
	}
	if !contains(b.Themes, "change") {
		t.Errorf("expected change theme, got %v", b.Themes)
	}
	if b.Confidence <= 0 || b.Confidence > 1 {
		t.Errorf("confidence %v out of (0,1]", b.Confidence)
	}
}

func TestStoryIndicatorMatches(t *testing.T) {
	matches := StoryIndicatorMatches(sampleText)
	for _, category := range []string{"narrative_elements", "emotional_depth", "conflict_resolution", "personal_revelation"} {
		m, ok := matches[category]
		if !ok {
			t.Fatalf("missing category %s", category)
		}
		if m.Strength < 0 || m.Strength > 1 {
			t.Errorf("category %s strength %v out of [0,1]", category, m.Strength)
		}
	}
	if len(matches["narrative_elements"].Found) == 0 {
		t.Error("expected narrative element matches in sample text")
	}
	// Three or more matches saturate a category.
	if got := matches["emotional_depth"].Strength; got != 1.0 {
		t.Errorf("emotional_depth strength = %v, want saturated 1.0", got)
	}
}

func TestFlowIndicatorCount(t *testing.T) {
	text := "I wonder what I should do. Maybe you can help, what do you think?"
	if got := FlowIndicatorCount(text, "questions"); got < 1 {
		t.Errorf("questions count = %d, want >= 1", got)
	}
	if got := FlowIndicatorCount(text, "exploration"); got < 2 {
		t.Errorf("exploration count = %d, want >= 2", got)
	}
	if got := FlowIndicatorCount("nothing here", "ongoing_process"); got != 0 {
		t.Errorf("ongoing_process count = %d, want 0", got)
	}
}

func TestVulnerabilityAndTemporal(t *testing.T) {
	text := "I was scared to open up, I've never told anyone this. First it hurt, then I healed, and finally I moved on."
	if got := VulnerabilityCount(text); got < 3 {
		t.Errorf("vulnerability count = %d, want >= 3", got)
	}
	if got := TemporalProgressionCount(text); got != 3 {
		t.Errorf("temporal progression count = %d, want 3", got)
	}
}

func TestStructureElementsPresent(t *testing.T) {
	full := "Back then I had a problem with my friend. I solved it, and looking back, now i see why."
	if got := StructureElementsPresent(full); got != 5 {
		t.Errorf("structure elements = %d, want 5", got)
	}
	if got := StructureElementsPresent("zzz"); got != 0 {
		t.Errorf("structure elements for noise = %d, want 0", got)
	}
}

func TestDetectProfileMarkers(t *testing.T) {
	text := "Yesterday I felt so happy talking to my sister."
	if got := DetectTimeReferences(text); len(got) == 0 {
		t.Error("expected time references")
	}
	if got := DetectRelationshipWords(text); len(got) == 0 {
		t.Error("expected relationship words")
	}
	emotions := DetectEmotionWords(text)
	if !contains(emotions, "positive:happy") {
		t.Errorf("expected positive:happy, got %v", emotions)
	}
}

func TestExtractFirstName(t *testing.T) {
	if name, ok := ExtractFirstName("Hi, my name is maria and I paint."); !ok || name != "Maria" {
		t.Errorf("got (%q, %v), want (Maria, true)", name, ok)
	}
	if _, ok := ExtractFirstName("I like trains."); ok {
		t.Error("expected no name match")
	}
}

func TestExtractAge(t *testing.T) {
	if age, ok := ExtractAge("I'm 34 years old now."); !ok || age != 34 {
		t.Errorf("got (%d, %v), want (34, true)", age, ok)
	}
	if _, ok := ExtractAge("I'm 999 years old."); ok {
		t.Error("implausible age should be rejected")
	}
}

func TestExtractLocation(t *testing.T) {
	if loc, ok := ExtractLocation("I live in Lisbon, near the river."); !ok || loc != "Lisbon" {
		t.Errorf("got (%q, %v), want (Lisbon, true)", loc, ok)
	}
	if _, ok := ExtractLocation("Nothing to see here."); ok {
		t.Error("expected no location match")
	}
}

func TestFieldUpdates(t *testing.T) {
	updates := FieldUpdates("My name is maria and I live in Lisbon.")
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2: %+v", len(updates), updates)
	}
	for _, u := range updates {
		if u.Kind != models.KnowledgeKindPlaceholder {
			t.Errorf("kind = %s, want %s", u.Kind, models.KnowledgeKindPlaceholder)
		}
	}
	if updates[0].Field != models.ProfileFieldFirstName || updates[0].Value != "Maria" {
		t.Errorf("unexpected first update: %+v", updates[0])
	}
	if updates[1].Field != models.ProfileFieldLocation || updates[1].Value != "Lisbon" {
		t.Errorf("unexpected second update: %+v", updates[1])
	}

	if updates := FieldUpdates("Nothing personal here."); len(updates) != 0 {
		t.Errorf("expected no updates, got %+v", updates)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
