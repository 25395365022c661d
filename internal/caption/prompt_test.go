package caption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposer_SystemPrompt(t *testing.T) {
	c := NewComposer(DefaultRules())
	req := &Request{Category: "카페", Content: "신메뉴 출시", Tone: ToneCasual}

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		exemplars := []Exemplar{{Caption: "오늘도 조용한 오후였네요"}}
		assert.Equal(t, c.SystemPrompt(req, exemplars), c.SystemPrompt(req, exemplars))
	})

	t.Run("includes banned phrases and length band", func(t *testing.T) {
		prompt := c.SystemPrompt(req, nil)
		assert.Contains(t, prompt, "최고의")
		assert.Contains(t, prompt, "85~125자")
	})

	t.Run("caps exemplars at three", func(t *testing.T) {
		exemplars := []Exemplar{
			{Caption: "첫 번째 참고 문장"},
			{Caption: "두 번째 참고 문장"},
			{Caption: "세 번째 참고 문장"},
			{Caption: "네 번째 참고 문장"},
		}
		prompt := c.SystemPrompt(req, exemplars)
		assert.Contains(t, prompt, "세 번째 참고 문장")
		assert.NotContains(t, prompt, "네 번째 참고 문장")
	})

	t.Run("long exemplars are truncated", func(t *testing.T) {
		long := strings.Repeat("가", 450)
		prompt := c.SystemPrompt(req, []Exemplar{{Caption: long}})
		assert.Contains(t, prompt, strings.Repeat("가", 400))
		assert.NotContains(t, prompt, strings.Repeat("가", 401))
	})

	t.Run("no exemplar section when list is empty", func(t *testing.T) {
		prompt := c.SystemPrompt(req, nil)
		assert.NotContains(t, prompt, "참고 문장")
	})
}

func TestComposer_UserPrompt(t *testing.T) {
	c := NewComposer(DefaultRules())

	t.Run("all context fields present", func(t *testing.T) {
		prompt := c.UserPrompt(&Request{
			Category: "카페",
			Content:  "신메뉴 딸기라떼 출시",
			Tone:     ToneCasual,
			Purpose:  "신메뉴 홍보",
			Today: &TodayContext{
				Weather:          "비",
				InventoryStatus:  "딸기 재고 넉넉",
				CustomerReaction: "반응 좋았어요",
			},
		})
		assert.Contains(t, prompt, "업종: 카페")
		assert.Contains(t, prompt, "오늘 날씨: 비")
		assert.Contains(t, prompt, "재고 상황: 딸기 재고 넉넉")
		assert.Contains(t, prompt, "손님 반응: 반응 좋았어요")
		assert.NotContains(t, prompt, notProvidedMarker)
	})

	t.Run("missing context fields marked explicitly", func(t *testing.T) {
		prompt := c.UserPrompt(&Request{
			Category: "카페",
			Content:  "신메뉴 출시",
			Tone:     ToneCasual,
		})
		assert.Equal(t, 3, strings.Count(prompt, notProvidedMarker))
	})

	t.Run("blank field treated as missing", func(t *testing.T) {
		prompt := c.UserPrompt(&Request{
			Category: "카페",
			Content:  "신메뉴 출시",
			Tone:     ToneCasual,
			Today:    &TodayContext{Weather: "  "},
		})
		assert.Equal(t, 3, strings.Count(prompt, notProvidedMarker))
	})
}
