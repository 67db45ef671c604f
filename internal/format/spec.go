// Package format expands stories into platform-specific artifacts.
//
// Every supported format is described by a FormatSpec: its constraints, its
// prompts, and its generation parameters. Generation is AI-only; there is no
// template fallback for formats, so an unavailable backend is a hard error.
package format

import (
	"sort"

	"github.com/openai/openai-go"
)

// Generation parameter defaults shared across specs.
const (
	standardModel = openai.ChatModelGPT3_5Turbo
	advancedModel = openai.ChatModelGPT4

	defaultMaxTokens    = 500
	creativeTemperature = 0.8
	balancedTemperature = 0.6
)

// FormatSpec describes one output format: validation constraints, prompt
// pair, and generation parameters.
type FormatSpec struct {
	ID   string
	Tone string

	// MaxLength in characters; enforced as a warning when CharacterLimit is
	// set. MinLength likewise warns when the output falls short.
	MaxLength      int
	MinLength      int
	CharacterLimit bool

	IncludeHashtags bool
	CallToAction    bool

	SystemPrompt   string
	PromptTemplate string // fmt template with one %s for the story content

	Model       string
	MaxTokens   int
	Temperature float64

	// PreservedMetadata lists artifact metadata keys that survive
	// regeneration: values set by side channels (e.g. audio rendering) are
	// carried over from the previous artifact unless explicitly replaced.
	PreservedMetadata []string
}

var formatSpecs = map[string]FormatSpec{
	"x": {
		ID:              "x",
		Tone:            "engaging",
		MaxLength:       280,
		CharacterLimit:  true,
		IncludeHashtags: true,
		Model:           standardModel,
		MaxTokens:       100,
		Temperature:     balancedTemperature,
		SystemPrompt:    "You are a social media expert who creates viral, authentic content for X (formerly Twitter) that resonates emotionally with readers while staying within character limits.",
		PromptTemplate: `Write a single X post (formerly Tweet) inspired by this story.

Story: %s

Rules:
- 1 tweet only (no thread)
- 280 characters maximum
- Start with a hook emoji or strong statement
- End with 2-3 relevant hashtags
- Make it sound like a real person tweeting, not marketing copy
- No quote blocks, no line-break lists`,
	},
	"linkedin": {
		ID:           "linkedin",
		Tone:         "professional",
		MaxLength:    1300,
		CallToAction: true,
		Model:        standardModel,
		MaxTokens:    400,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a professional content creator who helps people share meaningful insights in a way that builds genuine connections and encourages professional dialogue.",
		PromptTemplate: `Create a professional LinkedIn post that shares this personal insight:

Story: %s

Requirements:
- Professional yet personal tone
- Share the key lesson or insight
- Encourage meaningful engagement
- Include a call-to-action question
- 1-3 paragraphs maximum
- Professional hashtags`,
	},
	"instagram": {
		ID:              "instagram",
		Tone:            "visual",
		MaxLength:       2200,
		IncludeHashtags: true,
		Model:           standardModel,
		MaxTokens:       600,
		Temperature:     balancedTemperature,
		SystemPrompt:    "You are an Instagram content specialist who creates short, engaging posts with visual storytelling that captures attention quickly.",
		PromptTemplate: `Create a short, engaging Instagram post that tells this story:

Story: %s

Requirements:
- Keep it concise and impactful (1-2 short paragraphs)
- Visual storytelling approach with emotional punch
- Include relevant hashtags (5-10)
- Include emojis where appropriate
- Hook readers in the first line
- Encourage engagement`,
	},
	"facebook": {
		ID:              "facebook",
		Tone:            "conversational",
		IncludeHashtags: true,
		CallToAction:    true,
		Model:           standardModel,
		MaxTokens:       defaultMaxTokens,
		Temperature:     balancedTemperature,
		SystemPrompt:    "You are a community-focused social media specialist who creates content that brings people together through shared experiences and meaningful conversations.",
		PromptTemplate: `Transform this into a Facebook post that encourages meaningful discussion:

Story: %s

Requirements:
- Conversational, friendly tone
- Tell the story in a relatable way
- Ask a question to encourage comments
- 2-4 paragraphs
- Include relevant hashtags (2-4)
- Focus on building community connection`,
	},
	"poem": {
		ID:           "poem",
		Tone:         "artistic",
		Model:        advancedModel,
		MaxTokens:    300,
		Temperature:  creativeTemperature,
		SystemPrompt: "You are a poet who transforms personal experiences into beautiful, moving verse that captures the essence of human emotion and universal truths.",
		PromptTemplate: `Transform this story into a beautiful free verse poem:

Story: %s

Requirements:
- Capture the emotional essence and core meaning
- Use vivid imagery and metaphors
- 8-16 lines with natural rhythm and flow
- Artistic and moving language
- Express the deeper truth of the experience`,
	},
	"song": {
		ID:                "song",
		Tone:              "lyrical",
		MaxLength:         200,
		CharacterLimit:    true,
		Model:             standardModel,
		MaxTokens:         defaultMaxTokens,
		Temperature:       creativeTemperature,
		PreservedMetadata: []string{"audio_url", "audio_created_at"},
		SystemPrompt:      "You are a professional songwriter. Follow the user's instructions exactly. Never add section labels like [Verse] or [Chorus] to lyrics unless explicitly requested.",
		PromptTemplate: `Create a viral song from this story:

Story: %s

Requirements:
- Start with: TITLE: "Song Title"
- Write catchy, memorable lyrics with a repeating hook
- MAXIMUM 200 words total (for 2-minute song length)
- NO structural labels like (Verse 1), (Chorus) - just pure lyrics
- Use metaphors and vivid imagery, not literal explanations
- Make it rhythmic and easy to sing along to
- Keep it punchy and viral-worthy`,
	},
	"reel": {
		ID:           "reel",
		Tone:         "viral",
		Model:        advancedModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  creativeTemperature,
		SystemPrompt: "You are a viral content creator who transforms personal stories into engaging short-form video scripts for social media reels, with hooks, visual cues, and compelling narratives.",
		PromptTemplate: `Create a viral social media reel script based on this story:

Story: %s

Requirements:
- Write in short-form video script format with visual hooks
- Include on-screen text suggestions and scene directions
- Create a strong opening hook within first 3 seconds
- Structure for 15-60 second video format
- Include trending audio/music suggestions
- Make it highly shareable and relatable
- Add clear call-to-action or engagement prompt
- Focus on visual storytelling and quick emotional impact`,
	},
	"fairytale": {
		ID:           "fairytale",
		Tone:         "whimsical",
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a skilled fairytale writer who expands personal experiences into magical, enchanting fairytales with whimsical characters, imaginative settings, and narrative depth.",
		PromptTemplate: `Expand this into a magical fairytale:

Story: %s

Requirements:
- Transform into a whimsical, enchanting fairytale
- Develop magical characters and fantasy setting
- Use fairytale narrative techniques (dialogue, description, magical elements)
- Create a complete fairytale arc with beginning, middle, end
- 800-1500 words
- Include magical elements and enchanting atmosphere
- Show rather than tell the emotional journey
- Include "once upon a time" style opening and "happily ever after" style ending`,
	},
	"article": {
		ID:           "article",
		Tone:         "informative",
		MinLength:    800,
		Model:        advancedModel,
		MaxTokens:    1200,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a professional magazine writer who transforms personal experiences into compelling, publication-ready articles with journalistic structure and storytelling excellence.",
		PromptTemplate: `Transform this personal story into a clear, engaging magazine-style article:

Story: %s

Requirements:
- Headline that hooks readers (12 words or fewer)
- Engaging intro paragraph that sets the scene
- 3-4 short sections with sub-heads (## style) guiding the flow
- Blend the personal story with at least one expert insight or statistic
- Use concrete details and quotes where natural
- 600-900 words total in concise, conversational magazine tone
- Finish with a takeaway that circles back to the opening
- Avoid academic jargon and verbose sentences`,
	},
	"blog_post": {
		ID:           "blog_post",
		Tone:         "professional",
		CallToAction: true,
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a professional content creator who writes clean, valuable blog posts that provide actionable insights while maintaining authentic personal storytelling.",
		PromptTemplate: `Create a professional blog post from this personal experience:

Story: %s

Requirements:
- Start directly with a compelling opening that hooks readers immediately
- NO title at the beginning - jump straight into the content
- Structure the content with clear H2 subheadings (## format)
- Mix personal storytelling with actionable insights
- Include practical takeaways readers can apply
- End with an engaging question or call-to-action
- 600-1000 words total
- Write in clean, professional blog format
- NO meta-information like word counts, labels, or structural notes`,
	},
	"presentation": {
		ID:           "presentation",
		Tone:         "structured",
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a presentation specialist who transforms stories into compelling, structured presentations that engage audiences and deliver clear takeaways.",
		PromptTemplate: `Create a presentation outline based on this story:

Story: %s

Requirements:
- 5-7 slide titles with key points
- Opening hook slide
- Story progression slides
- Key insights and takeaways
- Closing call-to-action
- Speaking notes for each slide
- Audience engagement elements`,
	},
	"newsletter": {
		ID:           "newsletter",
		Tone:         "personal",
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a newsletter writer who creates personal, engaging content that builds relationships with readers through authentic storytelling and valuable insights.",
		PromptTemplate: `Create a complete newsletter featuring this personal story:

Story: %s

Requirements:
- Write an engaging subject line in the format: "Subject: [Your Title]"
- Open with a warm, personal greeting to readers
- Tell the story in an engaging, newsletter-style narrative
- Include 2-3 key insights or takeaways clearly highlighted
- Add a thoughtful reflection section connecting to universal themes
- End with a clear, engaging call-to-action question for readers
- Close with a warm sign-off (like "Until next time" or "With gratitude")
- 500-700 words total in complete, polished newsletter format`,
	},
	"podcast": {
		ID:           "podcast",
		Tone:         "conversational",
		Model:        advancedModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a podcast content specialist who creates engaging episode outlines and talking points for intimate, conversational storytelling that would work well with AI-generated audio.",
		PromptTemplate: `Create a podcast episode outline and talking points based on this story:

Story: %s

Requirements:
- Compelling episode title and description
- 3-5 main talking points with natural conversation flow
- Opening hook and closing thoughts
- Questions for audience engagement
- Personal anecdotes and reflections woven throughout
- Conversational tone suitable for AI audio generation
- 15-30 minute episode structure
- Include suggested transition phrases and natural pauses`,
	},
	"letter": {
		ID:           "letter",
		Tone:         "heartfelt",
		Model:        advancedModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a heartfelt letter writer who crafts warm, personal letters that capture the writer's authentic feelings and nurture meaningful human connections.",
		PromptTemplate: `Write a warm, personal letter based on this story:

Story: %s

Requirements:
- Address it to someone who matters in the story (or to the writer's future self)
- Warm, sincere, first-person voice
- Share the experience and what it meant honestly
- Express feelings directly without melodrama
- Close with an affectionate sign-off
- 250-450 words`,
	},
	"reflection": {
		ID:           "reflection",
		Tone:         "introspective",
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a reflective writing coach guiding individuals to explore their experiences through thoughtful introspection and meaningful insights.",
		PromptTemplate: `Write a short, honest reflection about this experience.

Story: %s

Guidelines:
- First-person ("I") voice, friendly and conversational
- Everyday words, short sentences
- 150-250 words total
- Start with how the moment felt in the body or heart
- Describe one key thing you realised or learned
- Finish with one gentle, open question to yourself`,
	},
	"insights": {
		ID:           "insights",
		Tone:         "therapeutic",
		Model:        advancedModel,
		MaxTokens:    800,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a therapeutic content specialist who helps people extract meaningful psychological insights from their experiences with practical, actionable guidance.",
		PromptTemplate: `Extract the key psychological and personal growth insights from this story:

Story: %s

Requirements:
- 3-5 key insights clearly stated
- Actionable takeaways
- Reflection questions for deeper thinking
- Growth opportunities identified
- Therapeutic value and practical application
- Connection to broader life patterns`,
	},
	"growth_summary": {
		ID:           "growth_summary",
		Tone:         "coaching",
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a personal development coach who helps people identify and articulate their growth journey with clear, actionable next steps.",
		PromptTemplate: `Create a personal growth summary from this experience:

Story: %s

Requirements:
- Identify the key growth moment and what triggered it
- Compare before and after perspectives clearly
- List specific lessons learned and skills developed
- Explain how this growth can be applied in future situations
- Suggest ways to measure or track this progress
- Provide 2-3 concrete action steps for continued development
- Write in a structured, coaching-style format
- 300-500 words of practical personal development insights`,
	},
	"journal_entry": {
		ID:           "journal_entry",
		Tone:         "intimate",
		Model:        standardModel,
		MaxTokens:    defaultMaxTokens,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a journaling specialist who helps people process experiences through authentic, vulnerable self-expression and emotional exploration.",
		PromptTemplate: `Transform this into a reflective journal entry:

Story: %s

Requirements:
- Start directly with personal, intimate thoughts - NO "Journal Entry" or date headers
- Stream-of-consciousness style
- Emotional honesty and vulnerability
- Questions and wonderings
- Personal insights and realizations
- Raw, authentic voice
- Write as if someone is writing in their private journal`,
	},
	"book_chapter": {
		ID:           "book_chapter",
		Tone:         "narrative",
		MinLength:    1400,
		Model:        standardModel,
		MaxTokens:    2048,
		Temperature:  balancedTemperature,
		SystemPrompt: "You are a content creation expert who transforms personal stories into engaging formats while preserving their authentic emotional core.",
		PromptTemplate: `Write a cohesive chapter (~1500 words) that turns the following personal story into one engaging narrative. Maintain first-person voice, chronological flow and emotional arc. Use scene transitions where necessary, but avoid obvious headings.

Story:

%s

Requirements:
- 1400-1700 words
- One clear protagonist ("I")
- Smooth transitions; no bullet lists
- Title on first line inside **bold**`,
	},
}

// Spec looks up the specification of a format id.
func Spec(id string) (FormatSpec, bool) {
	spec, ok := formatSpecs[id]
	return spec, ok
}

// SupportedFormats lists all format ids in stable order.
func SupportedFormats() []string {
	ids := make([]string, 0, len(formatSpecs))
	for id := range formatSpecs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsSupported reports whether the format id is known.
func IsSupported(id string) bool {
	_, ok := formatSpecs[id]
	return ok
}
