package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	providerNameOpenAI = "openai"

	embeddingModel = openai.EmbeddingModelTextEmbedding3Small
)

// OpenAIProvider implements the Provider interface using OpenAI chat
// completions and embeddings.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Complete requests req.N chat completions in one call
func (p *OpenAIProvider) Complete(ctx context.Context, req *CompletionRequest) ([]string, Usage, error) {
	transaction := sentry.StartTransaction(ctx, "openai.complete")
	defer transaction.Finish()

	transaction.SetTag("model", req.Model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature:      openai.Float(req.Temperature),
		FrequencyPenalty: openai.Float(req.FrequencyPenalty),
		PresencePenalty:  openai.Float(req.PresencePenalty),
	}
	if req.N > 1 {
		params.N = openai.Int(int64(req.N))
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	span := transaction.StartChild("openai.api_call")
	apiStart := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	apiDuration := time.Since(apiStart)
	span.Finish()

	if err != nil {
		log.Printf("[ERROR] OpenAI completion failed after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, Usage{}, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		transaction.SetTag("success", "false")
		return nil, Usage{}, fmt.Errorf("openai returned no choices")
	}

	outputs := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		outputs = append(outputs, choice.Message.Content)
	}

	usage := Usage{
		TotalTokens:  int(resp.Usage.TotalTokens),
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}

	transaction.SetTag("success", "true")
	log.Printf("[INFO] OpenAI completion done in %v (choices: %d, tokens: %d)",
		apiDuration, len(outputs), usage.TotalTokens)

	return outputs, usage, nil
}

// Embed returns the text-embedding-3-small vector for the given text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	span := sentry.StartSpan(ctx, "openai.embed")
	defer span.Finish()

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: embeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding returned no data")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
