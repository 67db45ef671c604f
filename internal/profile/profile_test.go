package profile

import (
	"strings"
	"sync"
	"testing"

	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/store"
)

func TestRecordInteraction_AccumulatesCounters(t *testing.T) {
	tracker := NewTracker(store.NewInMemoryStore())

	p, err := tracker.RecordInteraction("u1", "Yesterday I felt so happy with my family.")
	if err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}
	if p.TotalInteractions != 1 {
		t.Errorf("TotalInteractions = %d, want 1", p.TotalInteractions)
	}
	if p.TotalWords != 8 {
		t.Errorf("TotalWords = %d, want 8", p.TotalWords)
	}
	if p.EmotionExpressionCount == 0 {
		t.Error("expected emotion expressions to be counted")
	}
	if p.TemporalReferenceCount == 0 {
		t.Error("expected temporal references to be counted")
	}
	if p.RelationshipMentionCount == 0 {
		t.Error("expected relationship mentions to be counted")
	}
	if p.Completeness <= 0 {
		t.Errorf("Completeness = %v, want > 0", p.Completeness)
	}

	// Second interaction builds on the first.
	p, err = tracker.RecordInteraction("u1", "Today my friend and I talked.")
	if err != nil {
		t.Fatalf("second RecordInteraction failed: %v", err)
	}
	if p.TotalInteractions != 2 {
		t.Errorf("TotalInteractions = %d, want 2", p.TotalInteractions)
	}
}

func TestRecordInteraction_EngagementLevels(t *testing.T) {
	long := strings.Repeat("word ", 25)
	medium := strings.Repeat("word ", 15)
	short := "ok then"

	cases := []struct {
		name string
		text string
		want models.EngagementLevel
	}{
		{"high", long, models.EngagementHigh},
		{"medium", medium, models.EngagementMedium},
		{"low", short, models.EngagementLow},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tracker := NewTracker(store.NewInMemoryStore())
			p, err := tracker.RecordInteraction("u1", c.text)
			if err != nil {
				t.Fatalf("RecordInteraction failed: %v", err)
			}
			if p.EngagementLevel != c.want {
				t.Errorf("engagement = %s, want %s", p.EngagementLevel, c.want)
			}
		})
	}
}

func TestRecordInteraction_MarkerCountersAdvanceOncePerTurn(t *testing.T) {
	tracker := NewTracker(store.NewInMemoryStore())

	// Several emotion, temporal, and relationship words in one message still
	// count as one expression of each marker type.
	p, err := tracker.RecordInteraction("u1", "Yesterday and today I felt happy and excited talking with my mom and my friend.")
	if err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}
	if p.EmotionExpressionCount != 1 {
		t.Errorf("EmotionExpressionCount = %d, want 1", p.EmotionExpressionCount)
	}
	if p.TemporalReferenceCount != 1 {
		t.Errorf("TemporalReferenceCount = %d, want 1", p.TemporalReferenceCount)
	}
	if p.RelationshipMentionCount != 1 {
		t.Errorf("RelationshipMentionCount = %d, want 1", p.RelationshipMentionCount)
	}

	// A turn without a marker leaves that counter alone.
	p, err = tracker.RecordInteraction("u1", "The meeting got moved.")
	if err != nil {
		t.Fatalf("second RecordInteraction failed: %v", err)
	}
	if p.EmotionExpressionCount != 1 {
		t.Errorf("EmotionExpressionCount = %d after neutral turn, want 1", p.EmotionExpressionCount)
	}
}

func TestRecordInteraction_ConcurrentTurnsKeepAllIncrements(t *testing.T) {
	tracker := NewTracker(store.NewInMemoryStore())

	const turns = 100
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.RecordInteraction("u1", "another message about my day"); err != nil {
				t.Errorf("RecordInteraction failed: %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := tracker.GetProfile("u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if p.TotalInteractions != turns {
		t.Errorf("TotalInteractions = %d, want %d", p.TotalInteractions, turns)
	}
}

func TestRecordInteraction_LearnsPersonalFields(t *testing.T) {
	tracker := NewTracker(store.NewInMemoryStore())

	p, err := tracker.RecordInteraction("u1", "My name is maria, I'm 34 years old and I live in Lisbon.")
	if err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}
	if p.Fields[models.ProfileFieldFirstName] != "Maria" {
		t.Errorf("first_name = %q, want Maria", p.Fields[models.ProfileFieldFirstName])
	}
	if p.Fields[models.ProfileFieldAge] != "34" {
		t.Errorf("age = %q, want 34", p.Fields[models.ProfileFieldAge])
	}
	if p.Fields[models.ProfileFieldLocation] != "Lisbon" {
		t.Errorf("location = %q, want Lisbon", p.Fields[models.ProfileFieldLocation])
	}

	// Established fields are not overwritten by later mentions.
	p, err = tracker.RecordInteraction("u1", "Actually, call me bob.")
	if err != nil {
		t.Fatalf("second RecordInteraction failed: %v", err)
	}
	if p.Fields[models.ProfileFieldFirstName] != "Maria" {
		t.Errorf("first_name = %q, want Maria kept", p.Fields[models.ProfileFieldFirstName])
	}
}

func TestGetProfile_MissingUser(t *testing.T) {
	tracker := NewTracker(store.NewInMemoryStore())
	p, err := tracker.GetProfile("nobody")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if p.UserID != "nobody" {
		t.Errorf("UserID = %s, want nobody", p.UserID)
	}
	if p.EngagementLevel != models.EngagementNew {
		t.Errorf("engagement = %s, want new", p.EngagementLevel)
	}
	// New-user baseline: only the engagement factor contributes.
	if p.Completeness != 0.2/5 {
		t.Errorf("Completeness = %v, want %v", p.Completeness, 0.2/5)
	}
}

func TestGetProfile_RoundTrip(t *testing.T) {
	s := store.NewInMemoryStore()
	tracker := NewTracker(s)
	if _, err := tracker.RecordInteraction("u1", strings.Repeat("meaningful ", 30)); err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}
	p, err := tracker.GetProfile("u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if p.TotalInteractions != 1 || p.EngagementLevel != models.EngagementHigh {
		t.Errorf("unexpected profile: %+v", p)
	}
}
