package caption

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanCasual sits inside the casual length band, reads casual and carries no
// blocked or forbidden phrases.
const cleanCasual = "오늘 새로 내린 딸기라떼가 생각보다 잘 나갔어요 비 소식 덕분인지 따뜻한 메뉴 찾는 분들이 많았네요 내일은 딸기를 조금 더 준비해둘게요 빗소리 덕에 매장도 차분했네요"

func newTestChain(provider *mockProvider) *RewriteChain {
	rules := DefaultRules()
	return NewRewriteChain(provider, "gpt-4o-mini", rules, NewScorer(rules, LoadWeights()))
}

func TestRewriteChain_StageOrder(t *testing.T) {
	chain := newTestChain(&mockProvider{})

	var names []string
	for _, stage := range chain.Stages() {
		names = append(names, stage.Name)
	}
	assert.Equal(t, []string{"issue_rewrite", "tone_guard", "hard_block_sweep", "tone_touch_up"}, names)
}

func TestRewriteChain_NoTriggersNoCalls(t *testing.T) {
	provider := &mockProvider{}
	chain := newTestChain(provider)
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	caption, fired, _ := chain.Apply(context.Background(), req, cleanCasual, nil, false)

	assert.Equal(t, cleanCasual, caption)
	assert.Equal(t, 0, fired)
	assert.Empty(t, provider.calls)
}

func TestRewriteChain_IssueRewriteFires(t *testing.T) {
	provider := &mockProvider{completions: [][]string{{cleanCasual}}}
	chain := newTestChain(provider)
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	caption, fired, usage := chain.Apply(context.Background(), req, "짧은 캡션", []Issue{IssueLengthOutOfRange}, false)

	assert.Equal(t, cleanCasual, caption)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 30, usage.TotalTokens)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, 0.5, provider.calls[0].Temperature)
	assert.Equal(t, 1, provider.calls[0].N)
}

func TestRewriteChain_ToneGuardFiresOnBlockedPhrase(t *testing.T) {
	provider := &mockProvider{completions: [][]string{{cleanCasual}}}
	chain := newTestChain(provider)
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	blocked := cleanCasual + " 최고의 하루"
	caption, fired, _ := chain.Apply(context.Background(), req, blocked, nil, false)

	assert.Equal(t, cleanCasual, caption)
	assert.Equal(t, 1, fired)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, strictRewriteTemperature, provider.calls[0].Temperature)
	// The strict rewrite names the blocked phrases explicitly.
	assert.Contains(t, provider.calls[0].System, "최고의")
}

func TestRewriteChain_ErrorRetainsPriorCaption(t *testing.T) {
	provider := &mockProvider{completeErr: errors.New("timeout")}
	chain := newTestChain(provider)
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	caption, fired, _ := chain.Apply(context.Background(), req, cleanCasual, []Issue{IssueCliche}, false)

	assert.Equal(t, cleanCasual, caption)
	assert.Equal(t, 1, fired)
}

func TestRewriteChain_EmptyOutputRetainsPriorCaption(t *testing.T) {
	provider := &mockProvider{completions: [][]string{{"   "}}}
	chain := newTestChain(provider)
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	caption, fired, _ := chain.Apply(context.Background(), req, cleanCasual, []Issue{IssueCliche}, false)

	assert.Equal(t, cleanCasual, caption)
	assert.Equal(t, 1, fired)
}

func TestRewriteChain_ContextCopyTriggersIssueRewrite(t *testing.T) {
	provider := &mockProvider{completions: [][]string{{cleanCasual}}}
	chain := newTestChain(provider)
	req := &Request{
		Category: "카페",
		Content:  "신메뉴 출시",
		Tone:     ToneCasual,
		Today:    &TodayContext{Weather: "비 오는 날 따뜻한 음료 많이 나갔어요"},
	}

	_, fired, _ := chain.Apply(context.Background(), req, cleanCasual, nil, true)

	assert.Equal(t, 1, fired)
	require.Len(t, provider.calls, 1)
	assert.Contains(t, provider.calls[0].System, "그대로 복사됨")
}
