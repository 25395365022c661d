package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini   = "gemini"
	geminiEmbeddingModel = "text-embedding-004"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Complete requests req.N candidates in one GenerateContent call
func (p *GeminiProvider) Complete(ctx context.Context, req *CompletionRequest) ([]string, Usage, error) {
	transaction := sentry.StartTransaction(ctx, "gemini.complete")
	defer transaction.Finish()

	transaction.SetTag("model", req.Model)
	transaction.SetTag("provider", providerNameGemini)

	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
		Temperature: &temperature,
	}
	if req.N > 1 {
		config.CandidateCount = int32(req.N)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}

	span := transaction.StartChild("gemini.api_call")
	apiStart := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	apiDuration := time.Since(apiStart)
	span.Finish()

	if err != nil {
		log.Printf("[ERROR] Gemini completion failed after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, Usage{}, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(result.Candidates) == 0 {
		transaction.SetTag("success", "false")
		return nil, Usage{}, fmt.Errorf("gemini returned no candidates")
	}

	outputs := make([]string, 0, len(result.Candidates))
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			outputs = append(outputs, "")
			continue
		}
		text := ""
		for _, part := range candidate.Content.Parts {
			text += part.Text
		}
		outputs = append(outputs, text)
	}

	var usage Usage
	if result.UsageMetadata != nil {
		usage = Usage{
			TotalTokens:  int(result.UsageMetadata.TotalTokenCount),
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}

	transaction.SetTag("success", "true")
	log.Printf("[INFO] Gemini completion done in %v (candidates: %d, tokens: %d)",
		apiDuration, len(outputs), usage.TotalTokens)

	return outputs, usage, nil
}

// Embed returns the embedding vector for the given text
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	span := sentry.StartSpan(ctx, "gemini.embed")
	defer span.Finish()

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := p.client.Models.EmbedContent(ctx, geminiEmbeddingModel, contents, nil)
	if err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini embedding returned no data")
	}

	return result.Embeddings[0].Values, nil
}
