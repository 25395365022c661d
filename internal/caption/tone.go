package caption

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sajangpost/caption-api/pkg/embedded"
)

// ToneRule is the immutable per-tone configuration: length band, generation
// temperature, forbidden patterns and detection signals.
type ToneRule struct {
	MinLen      int
	MaxLen      int
	TargetLen   int
	Temperature float64

	// Patterns that must not appear in a caption of this tone
	// (e.g. formal sentence endings inside a casual caption).
	Forbidden []*regexp.Regexp

	// Detection signals counted by the tone classifier.
	Signals []*regexp.Regexp

	// Extra literal phrases blocked on top of the hard-blocked set.
	// Only the emotional tone carries these.
	ExtraBlocked []string

	// Prompt fragment describing the register.
	Guidance string
}

// InRange reports whether the rune length fits the tone's band
func (r ToneRule) InRange(length int) bool {
	return length >= r.MinLen && length <= r.MaxLen
}

// RuleSet is the loaded-once, read-only pattern taxonomy shared by the
// retriever, scorer, rewrite chain and sanitizer.
type RuleSet struct {
	Tones map[Tone]ToneRule

	// Small fixed set of cliché/promotional phrases unconditionally removed
	// from any final output.
	HardBlocked []string

	// Banned clichés (scored, listed in the negative prompt).
	Cliches []*regexp.Regexp

	// Promotional phrasing that rejects an exemplar outright.
	Promo []*regexp.Regexp

	// Generic stock phrases that read like filler.
	Generic []*regexp.Regexp

	// Administrative/informational noise words, capped per exemplar.
	Noise []*regexp.Regexp

	// Tokens ignored for keyword overlap.
	Stopwords map[string]struct{}
}

// Rule returns the rule block for a tone, defaulting to casual
func (rs *RuleSet) Rule(tone Tone) ToneRule {
	if r, ok := rs.Tones[tone]; ok {
		return r
	}
	return rs.Tones[ToneCasual]
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// DefaultRules builds the pattern taxonomy. Called once at startup; the
// result must be treated as read-only.
func DefaultRules() *RuleSet {
	rs := &RuleSet{
		HardBlocked: []string{
			"최고의",
			"무조건",
			"강력 추천",
			"놓치지 마세요",
			"지금 바로 방문",
			"대박 찬스",
		},
		Cliches: compileAll(
			"정성을 다해",
			"언제나 최선을",
			"고객님의 성원",
			"많은 관심 부탁",
			"방문 부탁드립니다",
			"믿고 먹는",
		),
		Promo: compileAll(
			`1\s*\+\s*1`,
			"초특가",
			"파격\\s*할인",
			"할인\\s*이벤트",
			"공짜",
			"덤으로\\s*드립니다",
		),
		Generic: compileAll(
			"좋은 하루 되세요",
			"오늘도 화이팅",
			"항상 감사합니다",
			"사랑합니다\\s*고객님",
		),
		Noise: compileAll(
			"공지",
			"안내",
			"영업시간",
			"휴무",
			"예약\\s*문의",
			"주차",
			"배달\\s*가능",
		),
		Stopwords: toSet(
			"오늘", "저희", "너무", "정말", "그리고", "해서", "했어요", "합니다",
			"있는", "있어요", "같아요", "조금", "많이", "하는", "에서", "으로",
		),
	}

	emotionalSignals := compileAll(
		"마음", "행복", "감사", "따뜻", "설레", "뭉클", "위로", "소중", "오늘따라", "괜히",
	)
	casualSignals := compileAll(
		"(했|였|갔|왔|넣었|나갔)어요", "네요", "더라고요", "거든요", "ㅎㅎ", "ㅋㅋ", "진짜", "완전", "살짝", "~",
	)
	professionalSignals := compileAll(
		"(합|입|드립|바랍)니다", "겠습니다", "습니다", "제공", "운영", "원칙", "품질", "정식",
	)

	// Formal endings are forbidden inside a casual caption; salesy phrasing is
	// forbidden inside an emotional one.
	casualForbidden := compileAll(
		"(합|입|드립|바랍)니다", "겠습니다", "습니다",
	)
	emotionalForbidden := compileAll(
		"할인", "세일", "프로모션", "이벤트\\s*중",
	)
	professionalForbidden := compileAll(
		"ㅎㅎ", "ㅋㅋ", "대박", "짱",
	)

	rs.Tones = map[Tone]ToneRule{
		ToneCasual: {
			MinLen:      85,
			MaxLen:      125,
			TargetLen:   105,
			Temperature: 0.65,
			Forbidden:   casualForbidden,
			Signals:     casualSignals,
			Guidance:    strings.TrimSpace(string(embedded.ToneCasualTxt)),
		},
		ToneEmotional: {
			MinLen:      95,
			MaxLen:      140,
			TargetLen:   115,
			Temperature: 0.9,
			Forbidden:   emotionalForbidden,
			Signals:     emotionalSignals,
			ExtraBlocked: []string{
				"할인", "세일", "프로모션",
			},
			Guidance: strings.TrimSpace(string(embedded.ToneEmotionalTxt)),
		},
		ToneProfessional: {
			MinLen:      90,
			MaxLen:      130,
			TargetLen:   110,
			Temperature: 0.75,
			Forbidden:   professionalForbidden,
			Signals:     professionalSignals,
			Guidance:    strings.TrimSpace(string(embedded.ToneProfessionalTxt)),
		},
	}

	return rs
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Weights are the tunable scoring constants. Defaults match production; every
// value can be overridden from the environment for offline tuning.
type Weights struct {
	// Exemplar ranking
	SimilarityWeight  float64 // W1
	PopularityWeight  float64 // W2
	PopularityCap     int
	ExemplarToneBonus float64

	// Candidate scoring
	BaseScore           float64
	LengthFitMax        float64
	ToneMatchBonus      float64
	ToneMismatchPenalty float64
	KeywordBonusPer     float64
	KeywordBonusCap     float64

	// Structural completeness
	MinHashtags            int
	MissingHashtagPenalty  float64
	StoryPhrasePenalty     float64
	MissingQuestionPenalty float64

	// Pattern penalties
	ClichePenalty      float64
	ExclamationPenalty float64
	ForbiddenPenalty   float64
	GenericPenalty     float64
	ContextCopyPenalty float64
}

// LoadWeights reads scoring weights from the environment with production
// defaults.
func LoadWeights() *Weights {
	return &Weights{
		SimilarityWeight:  getEnvFloat("SCORE_SIMILARITY_WEIGHT", 0.6),
		PopularityWeight:  getEnvFloat("SCORE_POPULARITY_WEIGHT", 0.3),
		PopularityCap:     getEnvInt("SCORE_POPULARITY_CAP", 500),
		ExemplarToneBonus: getEnvFloat("SCORE_EXEMPLAR_TONE_BONUS", 0.15),

		BaseScore:           getEnvFloat("SCORE_BASE", 50),
		LengthFitMax:        getEnvFloat("SCORE_LENGTH_FIT_MAX", 20),
		ToneMatchBonus:      getEnvFloat("SCORE_TONE_MATCH_BONUS", 15),
		ToneMismatchPenalty: getEnvFloat("SCORE_TONE_MISMATCH_PENALTY", 10),
		KeywordBonusPer:     getEnvFloat("SCORE_KEYWORD_BONUS_PER", 2),
		KeywordBonusCap:     getEnvFloat("SCORE_KEYWORD_BONUS_CAP", 10),

		MinHashtags:            getEnvInt("SCORE_MIN_HASHTAGS", 5),
		MissingHashtagPenalty:  getEnvFloat("SCORE_MISSING_HASHTAG_PENALTY", 5),
		StoryPhrasePenalty:     getEnvFloat("SCORE_STORY_PHRASE_PENALTY", 5),
		MissingQuestionPenalty: getEnvFloat("SCORE_MISSING_QUESTION_PENALTY", 5),

		ClichePenalty:      getEnvFloat("SCORE_CLICHE_PENALTY", 4),
		ExclamationPenalty: getEnvFloat("SCORE_EXCLAMATION_PENALTY", 6),
		ForbiddenPenalty:   getEnvFloat("SCORE_FORBIDDEN_PENALTY", 5),
		GenericPenalty:     getEnvFloat("SCORE_GENERIC_PENALTY", 4),
		ContextCopyPenalty: getEnvFloat("SCORE_CONTEXT_COPY_PENALTY", 12),
	}
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
