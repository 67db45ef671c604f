package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// Heuristic field extractors used to fill profile placeholders from casual
// conversation. They only report values that are stated outright; anything
// ambiguous returns ok=false.

var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmy name is ([a-z]+)`),
		regexp.MustCompile(`(?i)\bcall me ([a-z]+)`),
		regexp.MustCompile(`(?i)\bi'?m called ([a-z]+)`),
	}
	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bi'?m (\d{1,3}) years? old\b`),
		regexp.MustCompile(`(?i)\bi am (\d{1,3}) years? old\b`),
		regexp.MustCompile(`(?i)\bi just turned (\d{1,3})\b`),
	}
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bi live in ([a-z][a-z\s]{1,40}?)(?:[.,!?]|$)`),
		regexp.MustCompile(`(?i)\bi'?m from ([a-z][a-z\s]{1,40}?)(?:[.,!?]|$)`),
		regexp.MustCompile(`(?i)\bi moved to ([a-z][a-z\s]{1,40}?)(?:[.,!?]|$)`),
	}
)

// ExtractFirstName pulls a self-stated first name from the text.
func ExtractFirstName(text string) (string, bool) {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			name := strings.ToLower(m[1])
			return strings.ToUpper(name[:1]) + name[1:], true
		}
	}
	return "", false
}

// ExtractAge pulls a self-stated age from the text. Ages outside a plausible
// human range are rejected.
func ExtractAge(text string) (int, bool) {
	for _, re := range agePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			age, err := strconv.Atoi(m[1])
			if err != nil || age < 1 || age > 120 {
				continue
			}
			return age, true
		}
	}
	return 0, false
}

// ExtractLocation pulls a self-stated place of residence from the text.
func ExtractLocation(text string) (string, bool) {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			loc := strings.TrimSpace(m[1])
			if loc != "" {
				return loc, true
			}
		}
	}
	return "", false
}

// FieldUpdates runs every field extractor against the text and returns a
// placeholder update per field that matched. The consumer decides how the
// updates apply; extraction itself stays pure.
func FieldUpdates(text string) []models.KnowledgeUpdate {
	var updates []models.KnowledgeUpdate
	if name, ok := ExtractFirstName(text); ok {
		updates = append(updates, models.KnowledgeUpdate{
			Kind:  models.KnowledgeKindPlaceholder,
			Field: models.ProfileFieldFirstName,
			Value: name,
		})
	}
	if age, ok := ExtractAge(text); ok {
		updates = append(updates, models.KnowledgeUpdate{
			Kind:  models.KnowledgeKindPlaceholder,
			Field: models.ProfileFieldAge,
			Value: strconv.Itoa(age),
		})
	}
	if loc, ok := ExtractLocation(text); ok {
		updates = append(updates, models.KnowledgeUpdate{
			Kind:  models.KnowledgeKindPlaceholder,
			Field: models.ProfileFieldLocation,
			Value: loc,
		})
	}
	return updates
}
