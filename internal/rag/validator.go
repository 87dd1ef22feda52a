package rag

import (
	"context"
	"strings"

	"studyrag/internal/logger"
	"studyrag/internal/models"
	"studyrag/internal/util"
	"studyrag/internal/vector"
)

const (
	validatorTopK         = 3
	relevanceThreshold    = 0.5
	embeddingValidCutoff  = 0.6
	keywordValidCutoff    = 0.5
	supportingExcerptSize = 200
)

type Validator struct {
	embedder Embedder
	log      *logger.Logger
}

func NewValidator(embedder Embedder, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{embedder: embedder, log: log}
}

// Validate scores how well answer is grounded in chunks. It never fails:
// an embedding failure degrades to keyword matching.
func (v *Validator) Validate(ctx context.Context, chunks []models.Chunk, question, answer string) models.ValidationResult {
	candidates := make([]vector.Candidate[models.Chunk], 0, len(chunks))
	for _, c := range chunks {
		if c.HasEmbedding() {
			candidates = append(candidates, vector.Candidate[models.Chunk]{ID: c.ChunkID, Vector: c.Embedding, Payload: c})
		}
	}
	if len(candidates) == 0 || v.embedder == nil {
		return KeywordMatch(chunks, answer)
	}
	query, err := v.embedder.Embed(ctx, question+" "+answer)
	if err != nil {
		v.log.Warn("validation embedding failed, using keyword match", "error", err)
		return KeywordMatch(chunks, answer)
	}
	return scoreBySimilarity(query, candidates)
}

func scoreBySimilarity(query []float32, candidates []vector.Candidate[models.Chunk]) models.ValidationResult {
	top := vector.TopK(query, candidates, validatorTopK)
	excerpts := make([]string, 0, len(top))
	var sum float64
	for _, s := range top {
		if s.Similarity > relevanceThreshold {
			excerpts = append(excerpts, util.Prefix(s.Payload.Text, supportingExcerptSize))
			sum += s.Similarity
		}
	}
	var confidence float64
	if len(excerpts) > 0 {
		confidence = min(sum/float64(len(excerpts)), 1)
	}
	return models.ValidationResult{
		IsValid:            confidence > embeddingValidCutoff,
		Confidence:         confidence,
		SupportingExcerpts: excerpts,
	}
}

// KeywordMatch counts answer terms (lowercase words over three runes) that
// appear in each chunk. Confidence is total matches over term count, capped at 1.
func KeywordMatch(chunks []models.Chunk, answer string) models.ValidationResult {
	out := models.ValidationResult{SupportingExcerpts: []string{}}
	terms := util.AnswerTerms(answer)
	if len(chunks) == 0 || len(terms) == 0 {
		return out
	}
	total := 0
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		matches := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		total += matches
		if len(out.SupportingExcerpts) < validatorTopK {
			out.SupportingExcerpts = append(out.SupportingExcerpts, util.Prefix(c.Text, supportingExcerptSize))
		}
	}
	out.Confidence = min(float64(total)/float64(len(terms)), 1)
	out.IsValid = out.Confidence > keywordValidCutoff
	return out
}
