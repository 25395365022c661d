package caption

import (
	"context"
	"errors"
	"fmt"

	"github.com/sajangpost/caption-api/internal/llm"
	"github.com/sajangpost/caption-api/internal/logger"
	"github.com/sajangpost/caption-api/internal/observability"
	"gorm.io/gorm"
)

// ErrEmptyOutput is returned when every draft parses to an empty caption and
// nothing survives to be sanitized.
var ErrEmptyOutput = errors.New("model returned no usable caption")

// Pipeline is the full generation-and-quality-control flow: retrieve
// exemplars, compose prompts, generate drafts, score, rewrite, sanitize.
// Execution is strictly sequential; there is no internal timeout, the
// surrounding request runtime owns cancellation via ctx.
type Pipeline struct {
	retriever ExemplarSource
	composer  *Composer
	generator *Generator
	scorer    *Scorer
	chain     *RewriteChain
	sanitizer *Sanitizer
	rules     *RuleSet
	model     string
}

// NewPipeline wires the default pipeline for one provider/model pair. The
// embedder is separate from the generation provider: the exemplar corpus is
// stored in the OpenAI embedding space, so retrieval must embed there even
// when generation runs on Gemini.
func NewPipeline(db *gorm.DB, provider, embedder llm.Provider, model string) *Pipeline {
	rules := DefaultRules()
	weights := LoadWeights()
	scorer := NewScorer(rules, weights)

	return &Pipeline{
		retriever: NewRetriever(db, embedder, rules, weights),
		composer:  NewComposer(rules),
		generator: NewGenerator(provider, model),
		scorer:    scorer,
		chain:     NewRewriteChain(provider, model, rules, scorer),
		sanitizer: NewSanitizer(rules),
		rules:     rules,
		model:     model,
	}
}

// NewPipelineWithParts wires an explicit set of components (used by tests)
func NewPipelineWithParts(retriever ExemplarSource, provider llm.Provider, model string) *Pipeline {
	rules := DefaultRules()
	weights := LoadWeights()
	scorer := NewScorer(rules, weights)

	return &Pipeline{
		retriever: retriever,
		composer:  NewComposer(rules),
		generator: NewGenerator(provider, model),
		scorer:    scorer,
		chain:     NewRewriteChain(provider, model, rules, scorer),
		sanitizer: NewSanitizer(rules),
		rules:     rules,
		model:     model,
	}
}

// Generate runs one request through the whole pipeline
func (p *Pipeline) Generate(ctx context.Context, req *Request) (*Result, error) {
	if _, ok := ParseTone(string(req.Tone)); !ok {
		return nil, fmt.Errorf("invalid tone: %q", req.Tone)
	}
	rule := p.rules.Rule(req.Tone)

	trace := observability.GetClient().StartTrace(ctx, "caption.generate", map[string]interface{}{
		"category": req.Category,
		"tone":     string(req.Tone),
		"model":    p.model,
	})
	defer trace.Finish()

	// 1. Exemplar retrieval; failure degrades to an empty list inside.
	exemplars := p.retriever.Retrieve(ctx, req)

	// 2. Prompt composition.
	system := p.composer.SystemPrompt(req, exemplars)
	user := p.composer.UserPrompt(req)

	// 3. Three independent drafts in one call.
	gen := trace.Generation("drafts", map[string]interface{}{"exemplars": len(exemplars)})
	candidates, usage, err := p.generator.Drafts(ctx, system, user, rule.Temperature)
	if err != nil {
		gen.Finish()
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}
	gen.LogCompletion(p.model, system, user, captionsOf(candidates), usage)
	gen.Finish()

	// 4. Selection.
	best, verdict, ok := p.scorer.SelectBest(req, candidates)
	if !ok {
		return nil, ErrEmptyOutput
	}

	// 5. Escalating corrective rewrites.
	rewriteGen := trace.Generation("rewrites", nil)
	finalCaption, stagesFired, rewriteUsage := p.chain.Apply(ctx, req, best.Caption, verdict.Issues, verdict.ContextCopied)
	usage.Add(rewriteUsage)
	rewriteGen.LogCompletion(p.model, "", best.Caption, []string{finalCaption}, rewriteUsage)
	rewriteGen.Finish()

	// 6. Unconditional sanitize.
	finalCaption = p.sanitizer.Sanitize(finalCaption, req.Tone)
	if finalCaption == "" {
		return nil, ErrEmptyOutput
	}

	logger.Info("Caption pipeline finished", logger.Fields{
		"tone":           string(req.Tone),
		"model":          p.model,
		"exemplars":      len(exemplars),
		"issues":         len(verdict.Issues),
		"rewrite_stages": stagesFired,
	})

	return &Result{
		Caption:            finalCaption,
		Hashtags:           best.Hashtags,
		StoryPhrases:       best.StoryPhrases,
		EngagementQuestion: best.EngagementQuestion,
		DetectedTone:       p.scorer.DetectTone(finalCaption),
		Score:              verdict.Score,
		Issues:             verdict.Issues,
		ExemplarCount:      len(exemplars),
		RewriteStages:      stagesFired,
		Usage:              usage,
	}, nil
}

func captionsOf(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Caption)
	}
	return out
}
