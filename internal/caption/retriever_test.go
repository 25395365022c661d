package caption

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sajangpost/caption-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetriever() *Retriever {
	return NewRetriever(nil, &mockProvider{}, DefaultRules(), LoadWeights())
}

func strPtr(s string) *string { return &s }

func TestRetriever_EmbedErrorDegradesToEmpty(t *testing.T) {
	r := NewRetriever(nil, &mockProvider{embedErr: errors.New("embedding down")}, DefaultRules(), LoadWeights())
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	assert.Empty(t, r.Retrieve(context.Background(), req))
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}

func TestRetriever_Usable(t *testing.T) {
	r := newTestRetriever()

	// Padding keeps test captions above the minimum exemplar length.
	pad := strings.Repeat("조용한 오후였네요 ", 5)

	tests := []struct {
		name     string
		text     string
		tone     Tone
		expected bool
	}{
		{
			name:     "casual exemplar with owner voice",
			text:     pad + "오늘 단골분들이 많이 왔어요",
			tone:     ToneCasual,
			expected: true,
		},
		{
			name:     "too short rejected",
			text:     "짧은 캡션이에요",
			tone:     ToneCasual,
			expected: false,
		},
		{
			name:     "list structure rejected",
			text:     "1. 첫 번째 안내\n2. 두 번째 안내\n" + pad,
			tone:     ToneCasual,
			expected: false,
		},
		{
			name:     "promo phrasing rejected",
			text:     pad + "오늘만 1+1 행사했어요",
			tone:     ToneCasual,
			expected: false,
		},
		{
			name:     "formal register rejected for casual",
			text:     pad + "정성껏 준비하겠습니다",
			tone:     ToneCasual,
			expected: false,
		},
		{
			name:     "professional exemplar needs formal markers",
			text:     pad + "오늘 단골분들이 많이 왔어요",
			tone:     ToneProfessional,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.usable(tt.text, tt.tone, exemplarStrictMaxLen))
		})
	}
}

func TestRetriever_FilterUsable_RelaxedFallback(t *testing.T) {
	r := newTestRetriever()

	// 200 runes: above the strict cap, inside the relaxed one.
	long := strings.Repeat("오늘 손님이 많이 왔어요 ", 15) + "내일 봬요"
	rows := []models.ExemplarCaption{{Caption: long}}

	out := r.filterUsable(rows, ToneCasual)
	require.Len(t, out, 1)
	assert.Equal(t, long, out[0].Caption)
}

func TestRetriever_Rank(t *testing.T) {
	r := newTestRetriever()

	pad := strings.Repeat("오늘도 잘 왔어요 ", 6)
	rows := []models.ExemplarCaption{
		{Caption: pad + "비슷한 첫 번째 문장", Similarity: 0.5, Popularity: 10},
		{Caption: pad + "아주 가까운 문장이에요", Similarity: 0.95, Popularity: 10, Tone: strPtr("CASUAL")},
		{Caption: pad + "인기 많은 문장이네요", Similarity: 0.5, Popularity: 300},
	}

	out := r.rank(rows, ToneCasual)
	require.NotEmpty(t, out)
	// High similarity plus matching tone label wins.
	assert.Equal(t, pad+"아주 가까운 문장이에요", out[0].Caption)
	assert.LessOrEqual(t, len(out), maxExemplars)
}

func TestRetriever_Rank_DedupesByPrefix(t *testing.T) {
	r := newTestRetriever()

	base := strings.Repeat("가", dedupPrefixLen)
	rows := []models.ExemplarCaption{
		{Caption: base + "동일 접두 첫 번째", Similarity: 0.9},
		{Caption: base + "동일 접두 두 번째", Similarity: 0.8},
		{Caption: "완전히 다른 문장 " + strings.Repeat("나", 40), Similarity: 0.7},
	}

	out := r.rank(rows, ToneCasual)
	require.Len(t, out, 2)
	assert.Equal(t, base+"동일 접두 첫 번째", out[0].Caption)
}

func TestRetriever_RankCapsAtFour(t *testing.T) {
	r := newTestRetriever()

	rows := make([]models.ExemplarCaption, 0, 8)
	prefixes := []string{"하나", "둘", "셋", "넷", "다섯", "여섯", "일곱", "여덟"}
	for i, p := range prefixes {
		rows = append(rows, models.ExemplarCaption{
			Caption:    p + " 번째 문장 " + strings.Repeat("다", 30),
			Similarity: float64(len(prefixes)-i) * 0.1,
		})
	}

	out := r.rank(rows, ToneCasual)
	assert.Len(t, out, maxExemplars)
}

func TestMergeByCaption(t *testing.T) {
	a := []models.ExemplarCaption{{Caption: "하나"}, {Caption: "둘"}}
	b := []models.ExemplarCaption{{Caption: "둘"}, {Caption: "셋"}, {Caption: "넷"}}

	merged := mergeByCaption(a, b, 3)
	require.Len(t, merged, 3)
	assert.Equal(t, "하나", merged[0].Caption)
	assert.Equal(t, "둘", merged[1].Caption)
	assert.Equal(t, "셋", merged[2].Caption)
}
