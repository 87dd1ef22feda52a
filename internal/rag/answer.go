package rag

import (
	"context"
	"fmt"
	"strings"

	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/util"
)

const (
	MaxAnswerQuestionRunes = 500
	DefaultAnswerSources   = 3
	answerMaxTokens        = 500
	answerTemperature      = 0.5
)

// Answer replies to question using only the material's most relevant chunks.
// If the question cannot be embedded, or no chunk carries an embedding, the
// leading chunks are used as context instead.
func (p *Pipeline) Answer(ctx context.Context, materialID, question string, topK int) (models.MaterialAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.MaterialAnswer{}, fmt.Errorf("%w: empty question", util.ErrInvalidArgument)
	}
	if n := len([]rune(question)); n > MaxAnswerQuestionRunes {
		return models.MaterialAnswer{}, fmt.Errorf("%w: question too long (%d > %d runes)", util.ErrInvalidArgument, n, MaxAnswerQuestionRunes)
	}
	if topK <= 0 {
		topK = DefaultAnswerSources
	}
	m, chunks, err := p.loadReady(ctx, materialID)
	if err != nil {
		return models.MaterialAnswer{}, err
	}
	sources, err := p.answerSources(ctx, m, chunks, question, topK)
	if err != nil {
		return models.MaterialAnswer{}, err
	}

	llm := p.gen.recording(providers.OpMaterialAnswer, "answer_prompt_"+AnswerPromptVersion, materialID)
	if llm == nil {
		return models.MaterialAnswer{}, util.ErrGenerationUnavailable
	}
	excerpts := make([]string, 0, len(sources))
	for _, s := range sources {
		excerpts = append(excerpts, strings.TrimSpace(s.ChunkText))
	}
	raw, err := llm.GenerateText(withOperation(ctx, providers.OpMaterialAnswer), BuildAnswerPrompt(question, excerpts), answerMaxTokens, answerTemperature)
	if err != nil {
		return models.MaterialAnswer{}, err
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return models.MaterialAnswer{}, fmt.Errorf("%w: empty answer", util.ErrGenerationUnavailable)
	}
	return models.MaterialAnswer{
		MaterialID: materialID,
		Title:      m.Title,
		Question:   question,
		Answer:     answer,
		Sources:    sources,
	}, nil
}

func (p *Pipeline) answerSources(ctx context.Context, m models.Material, chunks []models.Chunk, question string, topK int) ([]models.ChunkResult, error) {
	if p.embedder != nil {
		qv, err := p.embedder.Embed(ctx, question)
		if err != nil {
			p.log.Warn("answer embedding failed, using leading chunks", "material_id", m.MaterialID, "error", err)
		} else {
			results, err := p.rank(ctx, m, qv, question, topK)
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				return results, nil
			}
		}
	}
	lead := chunks[:min(topK, len(chunks))]
	out := make([]models.ChunkResult, 0, len(lead))
	for _, c := range lead {
		out = append(out, models.ChunkResult{
			MaterialID: m.MaterialID,
			Title:      m.Title,
			ChunkID:    c.ChunkID,
			ChunkIndex: c.ChunkIndex,
			Snippet:    util.EvidenceSnippet(c.Text, question, 300),
			ChunkText:  c.Text,
		})
	}
	return out, nil
}
