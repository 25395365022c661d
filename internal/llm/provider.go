package llm

import "context"

// Provider defines the interface for LLM providers.
// The pipeline only needs plain-text chat completions (possibly several
// independent ones per call) and text embeddings.
type Provider interface {
	// Complete requests req.N independent completions in a single call and
	// returns their raw text in choice order.
	Complete(ctx context.Context, req *CompletionRequest) ([]string, Usage, error)

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// CompletionRequest contains all parameters needed for one completion call
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	N           int

	// Anti-repetition parameters, fixed by the pipeline
	FrequencyPenalty float64
	PresencePenalty  float64

	MaxTokens int
}

// Usage is the token accounting for one provider call
type Usage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage across sequential provider calls
func (u *Usage) Add(other Usage) {
	u.TotalTokens += other.TotalTokens
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
