package caption

import (
	"strings"

	"github.com/sajangpost/caption-api/internal/llm"
)

// Tone is the target stylistic register for generated copy
type Tone string

const (
	ToneEmotional    Tone = "EMOTIONAL"
	ToneCasual       Tone = "CASUAL"
	ToneProfessional Tone = "PROFESSIONAL"
)

// ParseTone validates and normalizes a tone string
func ParseTone(s string) (Tone, bool) {
	switch Tone(strings.ToUpper(strings.TrimSpace(s))) {
	case ToneEmotional:
		return ToneEmotional, true
	case ToneCasual:
		return ToneCasual, true
	case ToneProfessional:
		return ToneProfessional, true
	}
	return "", false
}

// TodayContext carries optional same-day details from the owner
type TodayContext struct {
	Weather          string `json:"weather"`
	InventoryStatus  string `json:"inventory_status"`
	CustomerReaction string `json:"customer_reaction"`
}

// Fields returns the non-empty context values in a stable order
func (t *TodayContext) Fields() []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, v := range []string{t.Weather, t.InventoryStatus, t.CustomerReaction} {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// Request is one caption generation request. It is request-scoped and never
// persisted as-is.
type Request struct {
	Category string        `json:"category"`
	Content  string        `json:"content"`
	Tone     Tone          `json:"tone"`
	Purpose  string        `json:"purpose"`
	Today    *TodayContext `json:"today_context"`
}

// ContextualText joins the content with any today-context fields; this is the
// text that gets embedded for exemplar retrieval and used for keyword overlap.
func (r *Request) ContextualText() string {
	parts := []string{strings.TrimSpace(r.Content)}
	parts = append(parts, r.Today.Fields()...)
	return strings.Join(parts, " ")
}

// Candidate is one generated draft competing for selection. Ephemeral.
type Candidate struct {
	Caption            string   `json:"caption"`
	Hashtags           []string `json:"hashtags"`
	StoryPhrases       []string `json:"storyPhrases"`
	EngagementQuestion string   `json:"engagementQuestion"`
}

// Issue is a defect tag attached to a scored caption
type Issue string

const (
	IssueLengthOutOfRange  Issue = "length_out_of_range"
	IssueCliche            Issue = "cliche"
	IssueExcessExclamation Issue = "excess_exclamation"
	IssueGenericPhrase     Issue = "generic_phrase"
	IssueRepetitiveEnding  Issue = "repetitive_ending"
	IssueContextCopied     Issue = "context_copied"
)

// ScoreResult is the verdict for the winning candidate
type ScoreResult struct {
	Score         float64 `json:"score"`
	DetectedTone  Tone    `json:"detected_tone"`
	Issues        []Issue `json:"issues"`
	ContextCopied bool    `json:"context_copied"`
}

// Exemplar is a retrieved reference caption, already scored against the request
type Exemplar struct {
	Caption    string  `json:"caption"`
	Category   string  `json:"category"`
	Tone       string  `json:"tone"` // empty when the corpus row is unlabeled
	Popularity int     `json:"popularity"`
	Similarity float64 `json:"similarity"`
	score      float64
}

// Result is the finished output of the pipeline, the only thing handed to
// persistence.
type Result struct {
	Caption            string    `json:"caption"`
	Hashtags           []string  `json:"hashtags"`
	StoryPhrases       []string  `json:"story_phrases"`
	EngagementQuestion string    `json:"engagement_question"`
	DetectedTone       Tone      `json:"detected_tone"`
	Score              float64   `json:"score"`
	Issues             []Issue   `json:"issues"`
	ExemplarCount      int       `json:"exemplar_count"`
	RewriteStages      int       `json:"rewrite_stages"`
	Usage              llm.Usage `json:"usage"`
}
