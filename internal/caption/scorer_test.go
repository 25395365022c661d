package caption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer() *Scorer {
	return NewScorer(DefaultRules(), LoadWeights())
}

func TestScorer_DetectTone(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name     string
		text     string
		expected Tone
	}{
		{
			name:     "casual owner voice",
			text:     "오늘 진짜 정신없었어요 ㅎㅎ 단골분들이 완전 많이 왔어요",
			expected: ToneCasual,
		},
		{
			name:     "emotional register",
			text:     "오늘따라 마음이 뭉클했습니다 손님의 따뜻한 말 한마디가 소중하게 느껴진 하루",
			expected: ToneEmotional,
		},
		{
			name:     "professional register",
			text:     "정식 오픈 안내드립니다 최상의 품질로 준비하겠습니다 매일 신선한 재료를 제공합니다",
			expected: ToneProfessional,
		},
		{
			name:     "ambiguous text defaults to casual",
			text:     "딸기라떼",
			expected: ToneCasual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.DetectTone(tt.text))
		})
	}
}

func TestScorer_DetectTone_Deterministic(t *testing.T) {
	s := newTestScorer()
	text := "오늘 손님이 많아서 정신없었네요 ㅎㅎ 그래도 마음만은 따뜻했어요"

	first := s.DetectTone(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.DetectTone(text))
	}
}

func TestScorer_ContextCopied(t *testing.T) {
	s := newTestScorer()

	req := &Request{
		Category: "카페",
		Content:  "신메뉴 딸기라떼 출시",
		Tone:     ToneCasual,
		Today: &TodayContext{
			CustomerReaction: "비 오는 날 따뜻한 음료 많이 나갔어요",
		},
	}

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{
			name:     "verbatim copy detected",
			text:     "비 오는 날 따뜻한 음료 많이 나갔어요. 내일도 준비할게요",
			expected: true,
		},
		{
			name:     "copy with changed punctuation still detected",
			text:     "비 오는 날, 따뜻한 음료... 많이 나갔어요!",
			expected: true,
		},
		{
			name:     "partial overlap below split threshold passes",
			text:     "오늘은 비 오는 날 따뜻한 음료가 대세였어요",
			expected: false,
		},
		{
			name:     "paraphrase passes",
			text:     "빗소리 들으며 따뜻한 한 잔 어떠세요",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.ContextCopied(req, tt.text))
		})
	}
}

func TestScorer_ContextCopied_HalfSplit(t *testing.T) {
	s := newTestScorer()

	// Long fields are probed by halves as well, so copying just the front
	// portion is still caught.
	req := &Request{
		Category: "카페",
		Content:  "신메뉴 출시",
		Tone:     ToneCasual,
		Today: &TodayContext{
			Weather: "비 오는 날이라 따뜻한 음료가 정말 많이 나갔던 하루였어요",
		},
	}

	assert.True(t, s.ContextCopied(req, "비 오는 날이라 따뜻한 음료가 준비되어 있어요"))
	assert.False(t, s.ContextCopied(req, "빗소리 덕분에 매장이 차분했던 하루"))
}

func TestScorer_Defects(t *testing.T) {
	s := newTestScorer()
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	t.Run("too short caption flags length", func(t *testing.T) {
		issues := s.Defects(req, "짧아요")
		assert.Contains(t, issues, IssueLengthOutOfRange)
	})

	t.Run("cliche flagged", func(t *testing.T) {
		text := "정성을 다해 만든 라떼예요 " + strings.Repeat("오늘도 조용한 오후였고 ", 4)
		issues := s.Defects(req, text)
		assert.Contains(t, issues, IssueCliche)
	})

	t.Run("exclamation overload flagged", func(t *testing.T) {
		issues := s.Defects(req, "왔어요! 마셨어요! 좋았어요!")
		assert.Contains(t, issues, IssueExcessExclamation)
	})

	t.Run("clean in-range caption has no issues", func(t *testing.T) {
		text := "오늘 새로 내린 딸기라떼가 생각보다 잘 나갔어요 비 소식 덕분인지 따뜻한 메뉴 찾는 분들이 많았네요 내일은 딸기를 조금 더 준비해둘게요 빗소리 덕에 매장도 차분했네요"
		issues := s.Defects(req, text)
		assert.Empty(t, issues)
	})
}

func TestScorer_SelectBest(t *testing.T) {
	s := newTestScorer()
	req := &Request{Category: "카페", Content: "신메뉴 딸기라떼 출시", Tone: ToneCasual}

	goodCaption := "오늘 처음 내놓은 딸기라떼가 생각보다 잘 나갔어요 창가 자리 앉은 단골분이 사진도 찍어가셨네요 내일은 딸기를 더 챙겨둘게요"
	blockedCaption := "최고의 딸기라떼를 무조건 드셔보세요 놓치지 마세요 지금 바로 방문해 주세요 오늘만 이 기회가 있으니 서두르세요"

	t.Run("unblocked candidate wins over blocked", func(t *testing.T) {
		best, verdict, ok := s.SelectBest(req, []Candidate{
			{Caption: blockedCaption, Hashtags: make([]string, 5), StoryPhrases: make([]string, 3), EngagementQuestion: "?"},
			{Caption: goodCaption, Hashtags: []string{"#카페", "#딸기라떼", "#신메뉴", "#동네카페", "#디저트"}, StoryPhrases: []string{"a", "b", "c"}, EngagementQuestion: "내일 오실래요?"},
		})
		require.True(t, ok)
		assert.Equal(t, goodCaption, best.Caption)
		assert.False(t, verdict.ContextCopied)
	})

	t.Run("all blocked falls back to scoring everything", func(t *testing.T) {
		best, _, ok := s.SelectBest(req, []Candidate{
			{Caption: blockedCaption},
		})
		require.True(t, ok)
		assert.Equal(t, blockedCaption, best.Caption)
	})

	t.Run("no non-empty caption", func(t *testing.T) {
		_, _, ok := s.SelectBest(req, []Candidate{
			{Caption: "   "},
			{Caption: ""},
		})
		assert.False(t, ok)
	})
}

func TestScorer_ScorePrefersTargetLength(t *testing.T) {
	s := newTestScorer()
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	nearTarget := Candidate{
		Caption:            strings.Repeat("좋은 날이었어요 ", 7) + "내일 봬요",
		Hashtags:           []string{"#a", "#b", "#c", "#d", "#e"},
		StoryPhrases:       []string{"a", "b", "c"},
		EngagementQuestion: "오실래요?",
	}
	farFromTarget := Candidate{
		Caption:            "짧다",
		Hashtags:           []string{"#a", "#b", "#c", "#d", "#e"},
		StoryPhrases:       []string{"a", "b", "c"},
		EngagementQuestion: "오실래요?",
	}

	assert.Greater(t, s.Score(req, nearTarget), s.Score(req, farFromTarget))
}

func TestHasRepetitiveEnding(t *testing.T) {
	assert.True(t, hasRepetitiveEnding("오늘 왔어요. 내일도 와요. 모레도 와요. 계속 와요."))
	assert.False(t, hasRepetitiveEnding("오늘 왔어요. 내일은 쉽니다. 모레 봬요."))
}
