package caption

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	toneMargin           = 1 // classifier tie-breaking margin
	professionalMinHits  = 2
	excessExclamationMin = 3
	repetitiveEndingMin  = 3
	noiseWordCap         = 2

	// Literal-copy detection thresholds (rune counts after normalization).
	copyMinFragmentLen = 10
	copyHalfSplitLen   = 18
)

// Scorer ranks candidates and enumerates defects. It is stateless apart from
// the immutable rule tables and weights.
type Scorer struct {
	rules   *RuleSet
	weights *Weights
}

func NewScorer(rules *RuleSet, weights *Weights) *Scorer {
	return &Scorer{rules: rules, weights: weights}
}

// DetectTone classifies text by counting signal-pattern hits per tone.
// Pure function: identical text always yields the identical tone.
func (s *Scorer) DetectTone(text string) Tone {
	emotional := countHits(text, s.rules.Tones[ToneEmotional].Signals)
	casual := countHits(text, s.rules.Tones[ToneCasual].Signals)
	professional := countHits(text, s.rules.Tones[ToneProfessional].Signals)

	if professional >= professionalMinHits &&
		professional > casual+toneMargin && professional > emotional+toneMargin {
		return ToneProfessional
	}
	if casual > emotional+toneMargin {
		return ToneCasual
	}
	if emotional > casual+toneMargin {
		return ToneEmotional
	}
	return ToneCasual
}

// Score computes the scalar quality score for one candidate
func (s *Scorer) Score(req *Request, cand Candidate) float64 {
	w := s.weights
	rule := s.rules.Rule(req.Tone)
	text := cand.Caption

	score := w.BaseScore

	// Triangular falloff around the tone's target length.
	length := utf8.RuneCountInString(text)
	window := rule.MaxLen - rule.MinLen
	if window > 0 {
		fit := 1 - abs(length-rule.TargetLen)/float64(window)
		if fit < 0 {
			fit = 0
		}
		score += fit * w.LengthFitMax
	}

	// Tone match.
	if s.DetectTone(text) == req.Tone {
		score += w.ToneMatchBonus
	} else {
		score -= w.ToneMismatchPenalty
	}

	// Keyword overlap with the source input, capped.
	overlap := float64(s.keywordOverlap(req.ContextualText(), text)) * w.KeywordBonusPer
	if overlap > w.KeywordBonusCap {
		overlap = w.KeywordBonusCap
	}
	score += overlap

	// Structural completeness.
	if len(cand.Hashtags) < w.MinHashtags {
		score -= w.MissingHashtagPenalty
	}
	if len(cand.StoryPhrases) != expectedStoryPhrases {
		score -= w.StoryPhrasePenalty
	}
	if strings.TrimSpace(cand.EngagementQuestion) == "" {
		score -= w.MissingQuestionPenalty
	}

	// Pattern penalties.
	score -= float64(countHits(text, s.rules.Cliches)) * w.ClichePenalty
	if strings.Count(text, "!") >= excessExclamationMin {
		score -= w.ExclamationPenalty
	}
	score -= float64(countHits(text, rule.Forbidden)) * w.ForbiddenPenalty
	if countHits(text, s.rules.Generic) > 0 {
		score -= w.GenericPenalty
	}
	if s.ContextCopied(req, text) {
		score -= w.ContextCopyPenalty
	}

	return score
}

// SelectBest picks the maximum-scoring candidate from the pool of candidates
// that pass the hard-blocked-phrase filter; if every candidate is blocked it
// falls back to scoring the unfiltered pool. Returns false only when no
// candidate has a non-empty caption.
func (s *Scorer) SelectBest(req *Request, cands []Candidate) (Candidate, ScoreResult, bool) {
	pool := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if strings.TrimSpace(c.Caption) != "" {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return Candidate{}, ScoreResult{}, false
	}

	unblocked := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if !s.HasHardBlocked(c.Caption) {
			unblocked = append(unblocked, c)
		}
	}
	if len(unblocked) > 0 {
		pool = unblocked
	}

	best := pool[0]
	bestScore := s.Score(req, best)
	for _, c := range pool[1:] {
		if sc := s.Score(req, c); sc > bestScore {
			best = c
			bestScore = sc
		}
	}

	copied := s.ContextCopied(req, best.Caption)
	issues := s.Defects(req, best.Caption)
	if copied {
		issues = append(issues, IssueContextCopied)
	}

	return best, ScoreResult{
		Score:         bestScore,
		DetectedTone:  s.DetectTone(best.Caption),
		Issues:        issues,
		ContextCopied: copied,
	}, true
}

// Defects runs the lighter defect check used to drive the rewrite loop
func (s *Scorer) Defects(req *Request, text string) []Issue {
	rule := s.rules.Rule(req.Tone)
	var issues []Issue

	if !rule.InRange(utf8.RuneCountInString(text)) {
		issues = append(issues, IssueLengthOutOfRange)
	}
	if countHits(text, s.rules.Cliches) > 0 {
		issues = append(issues, IssueCliche)
	}
	if strings.Count(text, "!") >= excessExclamationMin {
		issues = append(issues, IssueExcessExclamation)
	}
	if countHits(text, s.rules.Generic) > 0 {
		issues = append(issues, IssueGenericPhrase)
	}
	if hasRepetitiveEnding(text) {
		issues = append(issues, IssueRepetitiveEnding)
	}

	return issues
}

// HasHardBlocked reports whether any hard-blocked phrase appears in the text
func (s *Scorer) HasHardBlocked(text string) bool {
	for _, phrase := range s.rules.HardBlocked {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// HasExtraBlocked reports whether a tone-extra-blocked phrase appears
// (only the emotional tone carries extras).
func (s *Scorer) HasExtraBlocked(text string, tone Tone) bool {
	for _, phrase := range s.rules.Rule(tone).ExtraBlocked {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// ContextCopied detects a literal copy of a today-context field in the
// caption. Both sides are normalized (whitespace and punctuation removed); a
// field counts when it is at least 10 runes long, and for fields of 18 runes
// or more each half of a midpoint split is probed as well.
func (s *Scorer) ContextCopied(req *Request, text string) bool {
	normText := normalizeForCopy(text)
	for _, field := range req.Today.Fields() {
		for _, fragment := range copyFragments(field) {
			if strings.Contains(normText, fragment) {
				return true
			}
		}
	}
	return false
}

func copyFragments(field string) []string {
	norm := normalizeForCopy(field)
	runes := []rune(norm)

	var fragments []string
	if len(runes) >= copyMinFragmentLen {
		fragments = append(fragments, norm)
	}
	if len(runes) >= copyHalfSplitLen {
		mid := len(runes) / 2
		fragments = append(fragments, string(runes[:mid]), string(runes[mid:]))
	}
	return fragments
}

func normalizeForCopy(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keywordOverlap counts significant tokens shared between the source input
// and the candidate text.
func (s *Scorer) keywordOverlap(source, text string) int {
	seen := make(map[string]struct{})
	count := 0
	for _, token := range tokenize(source) {
		if _, stop := s.rules.Stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if strings.Contains(text, token) {
			count++
		}
	}
	return count
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// hasRepetitiveEnding reports whether three or more sentences share the same
// two-rune ending.
func hasRepetitiveEnding(text string) bool {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	endings := make(map[string]int)
	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		runes := []rune(trimmed)
		if len(runes) < 2 {
			continue
		}
		ending := string(runes[len(runes)-2:])
		endings[ending]++
		if endings[ending] >= repetitiveEndingMin {
			return true
		}
	}
	return false
}

func countHits(text string, patterns []*regexp.Regexp) int {
	count := 0
	for _, p := range patterns {
		count += len(p.FindAllString(text, -1))
	}
	return count
}

func abs(n int) float64 {
	if n < 0 {
		return float64(-n)
	}
	return float64(n)
}
