package caption

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sajangpost/caption-api/internal/llm"
	"github.com/sajangpost/caption-api/internal/logger"
	"github.com/sajangpost/caption-api/internal/models"
	"gorm.io/gorm"
)

const (
	minUsableExemplars = 4
	maxExemplarPool    = 12
	maxExemplars       = 4
	toneQueryLimit     = 8

	// Usability length bands (rune counts).
	exemplarMinLen        = 45
	exemplarStrictMaxLen  = 180
	exemplarRelaxedMaxLen = 220

	// Dedup key length for near-identical captions.
	dedupPrefixLen = 80

	maxExemplarExclamations = 1
)

var listStructureRe = regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-•*])\s`)

// ExemplarSource finds stylistically relevant reference captions for a
// request. Implementations must never fail the pipeline: any store or
// embedding error degrades to an empty list.
type ExemplarSource interface {
	Retrieve(ctx context.Context, req *Request) []Exemplar
}

// Retriever queries the pgvector-backed exemplar corpus
type Retriever struct {
	db      *gorm.DB
	embed   llm.Provider
	rules   *RuleSet
	weights *Weights
	scorer  *Scorer
}

func NewRetriever(db *gorm.DB, provider llm.Provider, rules *RuleSet, weights *Weights) *Retriever {
	return &Retriever{
		db:      db,
		embed:   provider,
		rules:   rules,
		weights: weights,
		scorer:  NewScorer(rules, weights),
	}
}

// Retrieve returns up to 4 usable exemplars, best first. Retrieval failure is
// never fatal: embedding or query errors degrade to an empty list.
func (r *Retriever) Retrieve(ctx context.Context, req *Request) []Exemplar {
	vector, err := r.embed.Embed(ctx, req.ContextualText())
	if err != nil {
		logger.Warn("Exemplar embedding failed, continuing without exemplars", logger.Fields{
			"category": req.Category,
			"error":    err.Error(),
		})
		return nil
	}

	pool, err := r.query(ctx, vector, req.Category, string(req.Tone), toneQueryLimit)
	if err != nil {
		logger.Warn("Exemplar query failed, continuing without exemplars", logger.Fields{
			"category": req.Category,
			"error":    err.Error(),
		})
		return nil
	}

	// Broaden without the tone filter when the tone-scoped set is thin.
	if len(r.filterUsable(pool, req.Tone)) < minUsableExemplars {
		broader, err := r.query(ctx, vector, req.Category, "", maxExemplarPool)
		if err != nil {
			logger.Warn("Exemplar fallback query failed", logger.Fields{
				"category": req.Category,
				"error":    err.Error(),
			})
		} else {
			pool = mergeByCaption(pool, broader, maxExemplarPool)
		}
	}

	usable := r.filterUsable(pool, req.Tone)
	return r.rank(usable, req.Tone)
}

func (r *Retriever) query(ctx context.Context, vector []float32, category, tone string, limit int) ([]models.ExemplarCaption, error) {
	sql := "SELECT id, category, tone, caption, popularity, source_id, " +
		"1 - (embedding <=> ?::vector) AS similarity " +
		"FROM exemplar_captions WHERE embedding IS NOT NULL AND category = ?"
	args := []interface{}{vectorLiteral(vector), category}

	if tone != "" {
		sql += " AND tone = ?"
		args = append(args, tone)
	}

	sql += " ORDER BY embedding <=> ?::vector LIMIT ?"
	args = append(args, vectorLiteral(vector), limit)

	var rows []models.ExemplarCaption
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("exemplar query failed: %w", err)
	}
	return rows, nil
}

// vectorLiteral renders a pgvector literal; GORM cannot bind []float32
func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func mergeByCaption(primary, secondary []models.ExemplarCaption, limit int) []models.ExemplarCaption {
	seen := make(map[string]struct{}, len(primary))
	merged := make([]models.ExemplarCaption, 0, limit)
	for _, row := range primary {
		if _, dup := seen[row.Caption]; dup {
			continue
		}
		seen[row.Caption] = struct{}{}
		merged = append(merged, row)
		if len(merged) >= limit {
			return merged
		}
	}
	for _, row := range secondary {
		if _, dup := seen[row.Caption]; dup {
			continue
		}
		seen[row.Caption] = struct{}{}
		merged = append(merged, row)
		if len(merged) >= limit {
			break
		}
	}
	return merged
}

// filterUsable applies the usability filter with the strict length band,
// falling back to the relaxed band only when strict yields nothing.
func (r *Retriever) filterUsable(rows []models.ExemplarCaption, tone Tone) []models.ExemplarCaption {
	strict := r.filterBand(rows, tone, exemplarStrictMaxLen)
	if len(strict) > 0 {
		return strict
	}
	return r.filterBand(rows, tone, exemplarRelaxedMaxLen)
}

func (r *Retriever) filterBand(rows []models.ExemplarCaption, tone Tone, maxLen int) []models.ExemplarCaption {
	out := make([]models.ExemplarCaption, 0, len(rows))
	for _, row := range rows {
		if r.usable(row.Caption, tone, maxLen) {
			out = append(out, row)
		}
	}
	return out
}

func (r *Retriever) usable(text string, tone Tone, maxLen int) bool {
	length := utf8.RuneCountInString(text)
	if length < exemplarMinLen || length > maxLen {
		return false
	}
	if listStructureRe.MatchString(text) {
		return false
	}
	if countHits(text, r.rules.Noise) > noiseWordCap {
		return false
	}
	if countHits(text, r.rules.Promo) > 0 {
		return false
	}
	return r.toneUsable(text, tone)
}

// toneUsable enforces the per-tone signal requirements on an exemplar
func (r *Retriever) toneUsable(text string, tone Tone) bool {
	casualHits := countHits(text, r.rules.Tones[ToneCasual].Signals)
	professionalHits := countHits(text, r.rules.Tones[ToneProfessional].Signals)
	emotionalHits := countHits(text, r.rules.Tones[ToneEmotional].Signals)

	switch tone {
	case ToneCasual:
		// Owner-voice markers required, professional register rejected.
		return casualHits > 0 && professionalHits == 0
	case ToneEmotional:
		// Must not be dominated by casual markers.
		return casualHits <= emotionalHits+1
	case ToneProfessional:
		return professionalHits > 0 && strings.Count(text, "!") <= maxExemplarExclamations
	}
	return true
}

// rank scores survivors, sorts descending, dedupes by an 80-char prefix and
// returns the top 4.
func (r *Retriever) rank(rows []models.ExemplarCaption, tone Tone) []Exemplar {
	w := r.weights
	scored := make([]Exemplar, 0, len(rows))
	for _, row := range rows {
		popularity := row.Popularity
		if popularity > w.PopularityCap {
			popularity = w.PopularityCap
		}
		score := row.Similarity*w.SimilarityWeight +
			float64(popularity)/float64(w.PopularityCap)*w.PopularityWeight

		label := ""
		if row.Tone != nil {
			label = *row.Tone
		}
		if r.toneOf(row.Caption, label) == tone {
			score += w.ExemplarToneBonus
		}

		scored = append(scored, Exemplar{
			Caption:    row.Caption,
			Category:   row.Category,
			Tone:       label,
			Popularity: row.Popularity,
			Similarity: row.Similarity,
			score:      score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	seen := make(map[string]struct{}, len(scored))
	out := make([]Exemplar, 0, maxExemplars)
	for _, ex := range scored {
		key := prefixKey(ex.Caption, dedupPrefixLen)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ex)
		if len(out) >= maxExemplars {
			break
		}
	}
	return out
}

// toneOf prefers the corpus label when present, else the rule-based classifier
func (r *Retriever) toneOf(text, label string) Tone {
	if t, ok := ParseTone(label); ok {
		return t
	}
	return r.scorer.DetectTone(text)
}

func prefixKey(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
