package caption

import (
	"fmt"
	"strings"

	"github.com/sajangpost/caption-api/pkg/embedded"
)

const (
	maxPromptExemplars = 3
	exemplarTruncLen   = 400

	notProvidedMarker = "제공되지 않음"
)

// Composer builds the system and user instructions for the generative model.
// Both builders are pure and deterministic given identical inputs.
type Composer struct {
	rules *RuleSet
}

func NewComposer(rules *RuleSet) *Composer {
	return &Composer{rules: rules}
}

// SystemPrompt assembles the shopkeeper framing, the negative and positive
// constraint blocks, the tone rule block and up to 3 exemplars.
func (c *Composer) SystemPrompt(req *Request, exemplars []Exemplar) string {
	rule := c.rules.Rule(req.Tone)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(string(embedded.SystemBaseTxt)))
	b.WriteString("\n\n")

	b.WriteString("금지 표현 (절대 사용 금지):\n")
	for _, phrase := range c.rules.HardBlocked {
		fmt.Fprintf(&b, "- %s\n", phrase)
	}
	for _, p := range c.rules.Cliches {
		fmt.Fprintf(&b, "- %s\n", p.String())
	}
	for _, p := range c.rules.Promo {
		fmt.Fprintf(&b, "- %s\n", p.String())
	}
	b.WriteString("\n")

	b.WriteString("작성 조건:\n")
	fmt.Fprintf(&b, "- 본문 길이: 공백 포함 %d~%d자\n", rule.MinLen, rule.MaxLen)
	b.WriteString("- 문장 수: 3~5문장\n")
	b.WriteString("- 이모지: 최대 2개\n")
	b.WriteString("- 최소 한 문장에는 오늘의 구체적인 운영 디테일을 담을 것\n\n")

	b.WriteString(rule.Guidance)
	b.WriteString("\n")

	if len(exemplars) > 0 {
		b.WriteString("\n참고 문장 (리듬과 구조만 참고, 문구를 그대로 베끼지 말 것):\n")
		for i, ex := range exemplars {
			if i >= maxPromptExemplars {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, truncateRunes(ex.Caption, exemplarTruncLen))
		}
	}

	return b.String()
}

// UserPrompt carries the raw content and the today-context fields, each
// defaulting to an explicit "not provided" marker when absent.
func (c *Composer) UserPrompt(req *Request) string {
	weather := notProvidedMarker
	inventory := notProvidedMarker
	reaction := notProvidedMarker
	if req.Today != nil {
		if v := strings.TrimSpace(req.Today.Weather); v != "" {
			weather = v
		}
		if v := strings.TrimSpace(req.Today.InventoryStatus); v != "" {
			inventory = v
		}
		if v := strings.TrimSpace(req.Today.CustomerReaction); v != "" {
			reaction = v
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "업종: %s\n", req.Category)
	fmt.Fprintf(&b, "작성 목적: %s\n", req.Purpose)
	fmt.Fprintf(&b, "오늘 있었던 일: %s\n", strings.TrimSpace(req.Content))
	fmt.Fprintf(&b, "오늘 날씨: %s\n", weather)
	fmt.Fprintf(&b, "재고 상황: %s\n", inventory)
	fmt.Fprintf(&b, "손님 반응: %s\n", reaction)
	return b.String()
}

func truncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
