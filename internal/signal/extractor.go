// Package signal provides lexical signal extraction from free-form text.
//
// Extraction is a pure function of the text: fixed keyword-category tables
// map raw content to domain, theme, emotion, and narrative markers. There are
// no external calls and no failure modes; empty text yields an empty bundle.
package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// domainPatterns maps coarse life-area domains to their keyword lists.
var domainPatterns = map[string][]string{
	"relationships": {
		"family", "friend", "partner", "love", "marriage", "dating", "relationship",
		"connection", "trust", "communication", "conflict", "support", "intimacy",
	},
	"career": {
		"job", "work", "career", "boss", "colleague", "promotion", "interview",
		"salary", "office", "business", "professional", "skill", "achievement",
	},
	"personal_growth": {
		"growth", "learning", "insight", "realization", "change", "progress",
		"development", "improvement", "reflection", "discovery", "understanding",
	},
	"emotions": {
		"feel", "emotion", "mood", "happy", "sad", "angry", "excited", "anxious",
		"stress", "peace", "joy", "fear", "hope", "guilt", "pride", "shame",
	},
	"health_wellness": {
		"health", "fitness", "exercise", "diet", "sleep", "energy", "wellness",
		"meditation", "therapy", "healing", "recovery", "balance",
	},
	"creativity": {
		"creative", "art", "music", "writing", "design", "imagination",
		"inspiration", "expression", "artistic", "craft", "beauty",
	},
}

// themePatterns maps theme tags to trigger keywords. A theme is present when
// any of its keywords match.
var themePatterns = map[string][]string{
	"change":       {"change", "transform", "shift", "evolve", "transition"},
	"challenge":    {"difficult", "hard", "struggle", "challenge", "obstacle"},
	"discovery":    {"discover", "realize", "understand", "learn", "insight"},
	"relationship": {"connect", "bond", "relate", "together", "apart"},
	"growth":       {"grow", "develop", "improve", "progress", "advance"},
	"reflection":   {"think", "consider", "reflect", "ponder", "contemplate"},
	"emotion":      {"feel", "emotion", "heart", "soul", "spirit"},
	"time":         {"past", "future", "present", "now", "then", "when"},
	"memory":       {"remember", "forget", "memory", "recall", "remind"},
	"decision":     {"decide", "choose", "option", "choice", "pick"},
}

// emotionalIndicators maps emotional marker tags to trigger keywords.
var emotionalIndicators = map[string][]string{
	"positive":      {"happy", "joy", "excited", "love", "amazing", "wonderful"},
	"negative":      {"sad", "angry", "frustrated", "hurt", "pain", "difficult"},
	"contemplative": {"think", "wonder", "consider", "reflect", "ponder"},
	"uncertain":     {"maybe", "perhaps", "not sure", "confused", "unclear"},
	"confident":     {"certain", "sure", "confident", "believe", "know"},
	"vulnerable":    {"vulnerable", "exposed", "open", "honest", "raw"},
}

// storyIndicators maps story element categories to their indicator phrases.
// These drive the rule-based readiness scoring.
var storyIndicators = map[string][]string{
	"narrative_elements": {
		"when i", "i remember", "there was a time", "i once", "last week", "yesterday",
		"a few months ago", "back then", "it happened", "i was", "we were",
		"the moment", "suddenly", "then", "after that", "meanwhile", "later",
	},
	"emotional_depth": {
		"felt", "feeling", "emotion", "heart", "soul", "deeply", "overwhelmed",
		"realized", "understood", "learned", "changed", "transformed", "impact",
		"meaningful", "significant", "important", "life-changing", "profound",
	},
	"conflict_resolution": {
		"struggle", "challenge", "difficult", "problem", "overcome", "solved",
		"breakthrough", "turning point", "decision", "choice", "dilemma",
		"conflict", "tension", "resolution", "growth", "lesson",
	},
	"personal_revelation": {
		"realized", "discovered", "understood", "learned about myself",
		"insight", "awareness", "clarity", "perspective", "truth",
		"pattern", "behavior", "tendency", "habit", "characteristic",
	},
}

// flowIndicators maps conversation-continuation categories to phrases.
var flowIndicators = map[string][]string{
	"questions": {
		"what do you think", "how should i", "what would you do",
		"can you help", "i need advice", "what if", "should i",
		"do you understand", "does that make sense",
	},
	"exploration": {
		"i wonder", "maybe", "perhaps", "could be", "might be",
		"not sure", "confused", "unclear", "thinking about",
		"considering", "exploring", "trying to understand",
	},
	"ongoing_process": {
		"currently", "right now", "these days", "lately", "recently",
		"still", "continuing", "working on", "dealing with",
		"in the process", "ongoing", "developing",
	},
}

// vulnerabilityIndicators mark emotional exposure in a message.
var vulnerabilityIndicators = []string{
	"scared", "afraid", "vulnerable", "open up", "share", "personal",
	"private", "secret", "never told", "first time", "honest",
	"truth", "real", "authentic", "genuine",
}

// temporalProgressionIndicators mark sequencing within a narrative.
var temporalProgressionIndicators = []string{"first", "then", "next", "after", "finally", "eventually"}

// structureElements maps narrative structure slots to their markers.
var structureElements = map[string][]string{
	"setting":    {"when", "where", "during", "at the time", "back then"},
	"characters": {"i", "we", "he", "she", "they", "my friend", "my family"},
	"conflict":   {"problem", "issue", "challenge", "difficult", "struggle"},
	"resolution": {"solved", "resolved", "learned", "realized", "understood"},
	"reflection": {"now i", "looking back", "in hindsight", "i understand"},
}

// timeReferencePatterns mark temporal references for profile tracking.
var timeReferencePatterns = []string{
	"yesterday", "today", "tomorrow", "last week", "next week",
	"recently", "lately", "soon", "earlier", "later",
	"when i was", "years ago", "months ago", "back then",
}

// relationshipWords mark relationship mentions for profile tracking.
var relationshipWords = []string{
	"family", "friend", "partner", "spouse", "mother", "father",
	"brother", "sister", "colleague", "boss", "team", "relationship",
}

// CategoryMatch holds the indicators found for one category and the
// normalized strength of that category.
type CategoryMatch struct {
	Found    []string
	Strength float64
}

// Extract derives a SignalBundle from raw text. It is deterministic and
// side-effect free; identical input always yields an identical bundle.
func Extract(text string) models.SignalBundle {
	if strings.TrimSpace(text) == "" {
		return models.SignalBundle{}
	}
	lower := strings.ToLower(text)

	domains := make(map[string]float64)
	for domain, keywords := range domainPatterns {
		matches := countContained(lower, keywords)
		if matches > 0 {
			domains[domain] = minFloat(float64(matches)/float64(len(keywords)), 1.0)
		}
	}
	if len(domains) == 0 {
		domains = nil
	}

	var themes []string
	for _, theme := range orderedKeys(themePatterns) {
		if countContained(lower, themePatterns[theme]) > 0 {
			themes = append(themes, theme)
		}
	}

	var emotions []string
	for _, marker := range orderedKeys(emotionalIndicators) {
		if countContained(lower, emotionalIndicators[marker]) > 0 {
			emotions = append(emotions, marker)
		}
	}

	narrative := findContained(lower, storyIndicators["narrative_elements"])

	bundle := models.SignalBundle{
		Domains:          domains,
		Themes:           themes,
		EmotionalMarkers: emotions,
		NarrativeMarkers: narrative,
		SourceHash:       hashText(text),
	}
	bundle.Confidence = confidence(bundle)
	return bundle
}

// StoryIndicatorMatches returns the per-category story indicator matches for
// the given text. Category strength is normalized as min(1, found/3).
func StoryIndicatorMatches(text string) map[string]CategoryMatch {
	lower := strings.ToLower(text)
	result := make(map[string]CategoryMatch, len(storyIndicators))
	for category, indicators := range storyIndicators {
		found := findContained(lower, indicators)
		result[category] = CategoryMatch{
			Found:    found,
			Strength: minFloat(float64(len(found))/3.0, 1.0),
		}
	}
	return result
}

// FlowIndicatorCount counts matches of one conversation-flow category
// (questions, exploration, ongoing_process).
func FlowIndicatorCount(text, category string) int {
	return countContained(strings.ToLower(text), flowIndicators[category])
}

// VulnerabilityCount counts vulnerability indicators in the text.
func VulnerabilityCount(text string) int {
	return countContained(strings.ToLower(text), vulnerabilityIndicators)
}

// TemporalProgressionCount counts narrative sequencing markers in the text.
func TemporalProgressionCount(text string) int {
	return countContained(strings.ToLower(text), temporalProgressionIndicators)
}

// StructureElementsPresent counts how many narrative structure slots
// (setting, characters, conflict, resolution, reflection) have at least one
// marker in the text.
func StructureElementsPresent(text string) int {
	lower := strings.ToLower(text)
	present := 0
	for _, markers := range structureElements {
		if countContained(lower, markers) > 0 {
			present++
		}
	}
	return present
}

// DetectEmotionWords returns matched emotion words tagged with their
// category, e.g. "positive:happy".
func DetectEmotionWords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, category := range orderedKeys(emotionalIndicators) {
		for _, word := range emotionalIndicators[category] {
			if strings.Contains(lower, word) {
				found = append(found, category+":"+word)
			}
		}
	}
	return found
}

// DetectTimeReferences returns matched temporal reference phrases.
func DetectTimeReferences(text string) []string {
	return findContained(strings.ToLower(text), timeReferencePatterns)
}

// DetectRelationshipWords returns matched relationship words.
func DetectRelationshipWords(text string) []string {
	return findContained(strings.ToLower(text), relationshipWords)
}

// confidence scores how much the bundle can be trusted: a mean over domain
// diversity, theme richness, emotional depth, and average domain strength.
func confidence(b models.SignalBundle) float64 {
	if b.IsEmpty() {
		return 0
	}
	var domainStrength float64
	if len(b.Domains) > 0 {
		var sum float64
		for _, v := range b.Domains {
			sum += v
		}
		domainStrength = sum / float64(len(b.Domains))
	}
	factors := []float64{
		minFloat(float64(len(b.Domains))/3.0, 1.0),
		minFloat(float64(len(b.Themes))/5.0, 1.0),
		minFloat(float64(len(b.EmotionalMarkers))/3.0, 1.0),
		domainStrength,
	}
	var sum float64
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func countContained(lower string, indicators []string) int {
	count := 0
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			count++
		}
	}
	return count
}

func findContained(lower string, indicators []string) []string {
	var found []string
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			found = append(found, ind)
		}
	}
	return found
}

// orderedKeys returns the map keys sorted so extraction output is stable
// across runs.
func orderedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
