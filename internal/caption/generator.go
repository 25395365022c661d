package caption

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sajangpost/caption-api/internal/llm"
	"github.com/sajangpost/caption-api/internal/logger"
)

const (
	draftCount           = 3
	maxHashtags          = 7
	expectedStoryPhrases = 3

	// Fixed anti-repetition parameters for every generation call.
	frequencyPenalty = 0.3
	presencePenalty  = 0.4

	draftMaxTokens = 800
)

// Generator requests independent draft captions from the model
type Generator struct {
	provider llm.Provider
	model    string
}

func NewGenerator(provider llm.Provider, model string) *Generator {
	return &Generator{provider: provider, model: model}
}

// Drafts issues one call requesting 3 completions at the tone's temperature.
// A provider error propagates; a malformed completion never does, it parses
// to a neutral placeholder instead.
func (g *Generator) Drafts(ctx context.Context, system, user string, temperature float64) ([]Candidate, llm.Usage, error) {
	outputs, usage, err := g.provider.Complete(ctx, &llm.CompletionRequest{
		Model:            g.model,
		System:           system,
		User:             user,
		Temperature:      temperature,
		N:                draftCount,
		FrequencyPenalty: frequencyPenalty,
		PresencePenalty:  presencePenalty,
		MaxTokens:        draftMaxTokens,
	})
	if err != nil {
		return nil, usage, err
	}

	candidates := make([]Candidate, 0, len(outputs))
	for _, raw := range outputs {
		candidates = append(candidates, parseCandidate(raw))
	}
	return candidates, usage, nil
}

// parseCandidate defensively parses one completion. Anything unparsable
// yields a neutral placeholder instead of raising.
func parseCandidate(raw string) Candidate {
	payload := stripCodeFence(raw)

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		logger.Debug("Draft completion was not valid JSON, using placeholder", logger.Fields{
			"length": len(payload),
		})
		return Candidate{Hashtags: []string{}, StoryPhrases: []string{}}
	}

	return Candidate{
		Caption:            stringField(fields, "caption"),
		Hashtags:           stringList(fields, "hashtags", maxHashtags),
		StoryPhrases:       stringList(fields, "storyPhrases", expectedStoryPhrases),
		EngagementQuestion: stringField(fields, "engagementQuestion"),
	}
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringList extracts a string array, filtering non-string entries and
// capping the length. Missing or malformed fields yield an empty slice.
func stringList(fields map[string]interface{}, key string, limit int) []string {
	out := []string{}
	items, ok := fields[key].([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(s))
		if len(out) >= limit {
			break
		}
	}
	return out
}
