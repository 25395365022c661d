package caption

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sajangpost/caption-api/internal/llm"
	"github.com/sajangpost/caption-api/internal/logger"
)

const (
	rewriteMaxTokens = 500

	// Stage 1 runs at a lower temperature than generation.
	strictRewriteTemperature = 0.3
)

// RewriteState is what a stage sees: the request, the current caption and the
// scorer's verdict on the original winner. Triggers and prompt builders are
// pure functions of this state.
type RewriteState struct {
	Req           *Request
	Caption       string
	Issues        []Issue
	ContextCopied bool
}

// RewriteStage is one corrective step: a trigger, a prompt builder and a
// temperature. Each stage gets exactly one model attempt.
type RewriteStage struct {
	Name        string
	Triggered   func(st *RewriteState) bool
	Prompt      func(st *RewriteState) (system, user string)
	Temperature float64
}

// RewriteChain applies the fixed, ordered corrective stages to the winning
// caption. A failed or empty correction silently retains the prior caption;
// no stage is retried.
type RewriteChain struct {
	provider llm.Provider
	model    string
	scorer   *Scorer
	rules    *RuleSet
	stages   []RewriteStage
}

func NewRewriteChain(provider llm.Provider, model string, rules *RuleSet, scorer *Scorer) *RewriteChain {
	c := &RewriteChain{
		provider: provider,
		model:    model,
		scorer:   scorer,
		rules:    rules,
	}
	c.stages = []RewriteStage{
		c.issueRewriteStage(),
		c.toneGuardStage(),
		c.hardBlockSweepStage(),
		c.toneTouchUpStage(),
	}
	return c
}

// Stages exposes the ordered chain (for tests and introspection)
func (c *RewriteChain) Stages() []RewriteStage {
	return c.stages
}

// Apply runs the chain in order and returns the surviving caption plus the
// number of stages that fired and the accumulated token usage.
func (c *RewriteChain) Apply(ctx context.Context, req *Request, caption string, issues []Issue, contextCopied bool) (string, int, llm.Usage) {
	st := &RewriteState{
		Req:           req,
		Caption:       caption,
		Issues:        issues,
		ContextCopied: contextCopied,
	}

	fired := 0
	var usage llm.Usage
	for _, stage := range c.stages {
		if !stage.Triggered(st) {
			continue
		}
		fired++

		system, user := stage.Prompt(st)
		outputs, stageUsage, err := c.provider.Complete(ctx, &llm.CompletionRequest{
			Model:       c.model,
			System:      system,
			User:        user,
			Temperature: stage.Temperature,
			N:           1,
			MaxTokens:   rewriteMaxTokens,
		})
		usage.Add(stageUsage)
		if err != nil {
			logger.Warn("Rewrite stage failed, keeping prior caption", logger.Fields{
				"stage": stage.Name,
				"error": err.Error(),
			})
			continue
		}
		if len(outputs) == 0 {
			continue
		}
		if rewritten := strings.TrimSpace(stripCodeFence(outputs[0])); rewritten != "" {
			st.Caption = rewritten
		}
	}

	return st.Caption, fired, usage
}

// Stage 0: issue-triggered rewrite. Fires when the scorer listed defects or a
// literal context copy was detected; asks the model to fix only those while
// preserving facts.
func (c *RewriteChain) issueRewriteStage() RewriteStage {
	return RewriteStage{
		Name: "issue_rewrite",
		Triggered: func(st *RewriteState) bool {
			return len(st.Issues) > 0 || st.ContextCopied
		},
		Prompt: func(st *RewriteState) (string, string) {
			rule := c.rules.Rule(st.Req.Tone)
			var b strings.Builder
			b.WriteString("당신은 SNS 캡션 교정 담당자입니다. 사실 관계는 유지하고 지적된 문제만 고칩니다.\n")
			fmt.Fprintf(&b, "본문 길이는 공백 포함 %d~%d자를 지킵니다.\n", rule.MinLen, rule.MaxLen)
			b.WriteString(rule.Guidance)
			b.WriteString("\n수정할 문제:\n")
			for _, issue := range st.Issues {
				fmt.Fprintf(&b, "- %s\n", issueDescription(issue))
			}
			if st.ContextCopied {
				b.WriteString("- 입력된 오늘의 상황 문구가 그대로 복사됨. 자연스럽게 풀어쓸 것\n")
			}
			b.WriteString("수정된 캡션 본문만 출력합니다.")
			return b.String(), st.Caption
		},
		Temperature: 0.5,
	}
}

// Stage 1: tone/hard-block guard. Re-evaluates the current caption for tone
// drift, blocked phrases, length violations and residual forbidden words; on
// any trip, issues a stricter rewrite with an explicit banned-word list at a
// lower temperature.
func (c *RewriteChain) toneGuardStage() RewriteStage {
	return RewriteStage{
		Name: "tone_guard",
		Triggered: func(st *RewriteState) bool {
			rule := c.rules.Rule(st.Req.Tone)
			if c.scorer.DetectTone(st.Caption) != st.Req.Tone {
				return true
			}
			if c.scorer.HasHardBlocked(st.Caption) {
				return true
			}
			if c.scorer.HasExtraBlocked(st.Caption, st.Req.Tone) {
				return true
			}
			if !rule.InRange(utf8.RuneCountInString(st.Caption)) {
				return true
			}
			return countHits(st.Caption, rule.Forbidden) > 0
		},
		Prompt: func(st *RewriteState) (string, string) {
			rule := c.rules.Rule(st.Req.Tone)
			var b strings.Builder
			b.WriteString("아래 캡션을 지정된 말투와 길이에 정확히 맞게 다시 씁니다. 사실 관계는 유지합니다.\n")
			fmt.Fprintf(&b, "본문 길이: 공백 포함 %d~%d자.\n", rule.MinLen, rule.MaxLen)
			b.WriteString(rule.Guidance)
			b.WriteString("\n다음 표현은 절대 사용 금지:\n")
			for _, phrase := range c.rules.HardBlocked {
				fmt.Fprintf(&b, "- %s\n", phrase)
			}
			for _, phrase := range rule.ExtraBlocked {
				fmt.Fprintf(&b, "- %s\n", phrase)
			}
			for _, p := range rule.Forbidden {
				fmt.Fprintf(&b, "- %s\n", p.String())
			}
			b.WriteString("수정된 캡션 본문만 출력합니다.")
			return b.String(), st.Caption
		},
		Temperature: strictRewriteTemperature,
	}
}

// Stage 2: residual hard-block sweep. Fires only when hard-blocked (or
// emotional-extra-blocked) phrases persist; removes those literal phrases
// while preserving the tone.
func (c *RewriteChain) hardBlockSweepStage() RewriteStage {
	return RewriteStage{
		Name: "hard_block_sweep",
		Triggered: func(st *RewriteState) bool {
			return c.scorer.HasHardBlocked(st.Caption) ||
				c.scorer.HasExtraBlocked(st.Caption, st.Req.Tone)
		},
		Prompt: func(st *RewriteState) (string, string) {
			var b strings.Builder
			b.WriteString("아래 캡션에서 다음 표현만 제거하거나 다른 말로 바꿉니다. 말투와 나머지 내용은 그대로 유지합니다.\n")
			for _, phrase := range c.rules.HardBlocked {
				if strings.Contains(st.Caption, phrase) {
					fmt.Fprintf(&b, "- %s\n", phrase)
				}
			}
			for _, phrase := range c.rules.Rule(st.Req.Tone).ExtraBlocked {
				if strings.Contains(st.Caption, phrase) {
					fmt.Fprintf(&b, "- %s\n", phrase)
				}
			}
			b.WriteString("수정된 캡션 본문만 출력합니다.")
			return b.String(), st.Caption
		},
		Temperature: strictRewriteTemperature,
	}
}

// Stage 3: tone-specific touch-up. One final tone correction when a casual
// request still reads emotional, or an emotional request fails to read
// emotional.
func (c *RewriteChain) toneTouchUpStage() RewriteStage {
	return RewriteStage{
		Name: "tone_touch_up",
		Triggered: func(st *RewriteState) bool {
			detected := c.scorer.DetectTone(st.Caption)
			switch st.Req.Tone {
			case ToneCasual:
				return detected == ToneEmotional
			case ToneEmotional:
				return detected != ToneEmotional
			}
			return false
		},
		Prompt: func(st *RewriteState) (string, string) {
			rule := c.rules.Rule(st.Req.Tone)
			var b strings.Builder
			b.WriteString("아래 캡션의 내용은 유지하면서 말투만 바꿉니다.\n")
			b.WriteString(rule.Guidance)
			b.WriteString("\n수정된 캡션 본문만 출력합니다.")
			return b.String(), st.Caption
		},
		Temperature: 0.5,
	}
}

func issueDescription(issue Issue) string {
	switch issue {
	case IssueLengthOutOfRange:
		return "본문 길이가 지정 범위를 벗어남"
	case IssueCliche:
		return "상투적인 문구가 포함됨"
	case IssueExcessExclamation:
		return "느낌표가 너무 많음"
	case IssueGenericPhrase:
		return "의미 없는 인사말이 포함됨"
	case IssueRepetitiveEnding:
		return "문장 종결이 반복됨"
	case IssueContextCopied:
		return "오늘의 상황 문구가 그대로 복사됨"
	}
	return string(issue)
}
