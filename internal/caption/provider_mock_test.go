package caption

import (
	"context"
	"errors"

	"github.com/sajangpost/caption-api/internal/llm"
)

// mockProvider returns canned completions in order of call and records every
// request it receives.
type mockProvider struct {
	completions [][]string
	completeErr error
	embedding   []float32
	embedErr    error

	calls []*llm.CompletionRequest
	next  int
}

func (m *mockProvider) Complete(_ context.Context, req *llm.CompletionRequest) ([]string, llm.Usage, error) {
	m.calls = append(m.calls, req)
	usage := llm.Usage{TotalTokens: 30, InputTokens: 20, OutputTokens: 10}
	if m.completeErr != nil {
		return nil, llm.Usage{}, m.completeErr
	}
	if m.next >= len(m.completions) {
		return nil, usage, errors.New("mock provider exhausted")
	}
	out := m.completions[m.next]
	m.next++
	return out, usage, nil
}

func (m *mockProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockProvider) Name() string { return "mock" }

// draftJSON builds one well-formed completion payload
func draftJSON(caption string, hashtags, phrases []string, question string) string {
	out := `{"caption":` + jsonString(caption) +
		`,"hashtags":` + jsonArray(hashtags) +
		`,"storyPhrases":` + jsonArray(phrases) +
		`,"engagementQuestion":` + jsonString(question) + `}`
	return out
}

func jsonString(s string) string {
	b := []byte{'"'}
	for _, r := range s {
		if r == '"' || r == '\\' {
			b = append(b, '\\')
		}
		b = append(b, []byte(string(r))...)
	}
	return string(append(b, '"'))
}

func jsonArray(items []string) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += jsonString(item)
	}
	return out + "]"
}
