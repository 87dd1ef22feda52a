package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/util"
)

const (
	MaxFlashcards         = 20
	flashcardMaxTokens    = 1500
	flashcardTemperature  = 0.7
	flashcardContextRunes = 8000
)

var (
	errNoJSONArray  = fmt.Errorf("%w: no JSON array in model output", util.ErrGenerationUnavailable)
	errNoFlashcards = fmt.Errorf("%w: model output has no usable flashcards", util.ErrGenerationUnavailable)
)

// GenerateFlashcards asks llm for count cards over content. There is no
// template fallback: a failed call or unusable output is returned as an error
// wrapping util.ErrGenerationUnavailable.
func GenerateFlashcards(ctx context.Context, llm TextGenerator, content string, count int) ([]models.Flashcard, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", util.ErrInvalidArgument)
	}
	if err := checkFlashcardCount(count); err != nil {
		return nil, err
	}
	if llm == nil {
		return nil, util.ErrGenerationUnavailable
	}
	raw, err := llm.GenerateText(withOperation(ctx, providers.OpFlashcardGeneration), BuildFlashcardPrompt(content, count), flashcardMaxTokens, flashcardTemperature)
	if err != nil {
		return nil, err
	}
	return ParseFlashcards(raw, count)
}

// ParseFlashcards reads the first JSON array in raw and keeps at most limit
// cards. Elements that are not objects with a non-blank string question and
// answer are dropped.
func ParseFlashcards(raw string, limit int) ([]models.Flashcard, error) {
	arr, ok := ExtractJSONArray(raw)
	if !ok {
		return nil, errNoJSONArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, fmt.Errorf("%w: decode flashcards json: %v", util.ErrGenerationUnavailable, err)
	}
	out := make([]models.Flashcard, 0, min(len(items), max(limit, 0)))
	for _, item := range items {
		if len(out) >= limit {
			break
		}
		var card struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		if json.Unmarshal(item, &card) != nil {
			continue
		}
		q, a := strings.TrimSpace(card.Question), strings.TrimSpace(card.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, models.Flashcard{Question: q, Answer: a})
	}
	if len(out) == 0 {
		return nil, errNoFlashcards
	}
	return out, nil
}

func checkFlashcardCount(count int) error {
	if count < 1 || count > MaxFlashcards {
		return fmt.Errorf("%w: flashcard count must be between 1 and %d, got %d", util.ErrInvalidArgument, MaxFlashcards, count)
	}
	return nil
}

// Flashcards generates up to count cards from chunks spread evenly across a
// ready material.
func (p *Pipeline) Flashcards(ctx context.Context, materialID string, count int) ([]models.Flashcard, error) {
	if err := checkFlashcardCount(count); err != nil {
		return nil, err
	}
	_, chunks, err := p.loadReady(ctx, materialID)
	if err != nil {
		return nil, err
	}
	selected, err := SelectDiverse(chunks, min(count, len(chunks)))
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(selected))
	for _, c := range selected {
		texts = append(texts, strings.TrimSpace(c.Text))
	}
	content := util.Prefix(strings.Join(texts, "\n\n"), flashcardContextRunes)

	llm := p.gen.recording(providers.OpFlashcardGeneration, "flashcard_prompt_"+FlashcardPromptVersion, materialID)
	cards, err := GenerateFlashcards(ctx, llm, content, count)
	if err != nil {
		p.log.Warn("flashcard generation failed", "material_id", materialID, "error", err)
		return nil, err
	}
	p.log.Info("flashcards generated", "material_id", materialID, "requested", count, "generated", len(cards))
	return cards, nil
}
