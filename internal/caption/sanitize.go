package caption

import (
	"regexp"
	"strings"
)

var (
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?~…])`)
	punctRunRe       = regexp.MustCompile(`\.{2,}|,{2,}|!{2,}|\?{2,}|~{2,}`)
)

// Sanitizer is the deterministic, unconditional final cleanup step. It is
// idempotent: applying it twice yields the same result.
type Sanitizer struct {
	rules *RuleSet
}

func NewSanitizer(rules *RuleSet) *Sanitizer {
	return &Sanitizer{rules: rules}
}

// Sanitize strips any remaining hard-blocked phrase (plus the emotional
// extras for the emotional tone) and normalizes whitespace and punctuation.
func (s *Sanitizer) Sanitize(text string, tone Tone) string {
	out := text
	for _, phrase := range s.rules.HardBlocked {
		out = stripAll(out, phrase)
	}
	if tone == ToneEmotional {
		for _, phrase := range s.rules.Rule(tone).ExtraBlocked {
			out = stripAll(out, phrase)
		}
	}

	// Collapse whitespace first so the punctuation passes see a stable form.
	out = whitespaceRunRe.ReplaceAllString(out, " ")
	out = spaceBeforePunct.ReplaceAllString(out, "$1")
	out = punctRunRe.ReplaceAllStringFunc(out, func(run string) string {
		return run[:1]
	})
	return strings.TrimSpace(out)
}

// stripAll removes every occurrence of phrase, looping until none remain.
// A single pass is not enough: removing an occurrence can splice the
// surrounding text into a fresh occurrence.
func stripAll(text, phrase string) string {
	for strings.Contains(text, phrase) {
		text = strings.ReplaceAll(text, phrase, "")
	}
	return text
}
