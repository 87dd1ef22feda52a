package rag

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/util"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	got, ok := ExtractJSONArray(`Sure: [{"question":"a [b]?","answer":"c"}, [1, 2]] trailing ]`)
	require.True(t, ok)
	require.Equal(t, `[{"question":"a [b]?","answer":"c"}, [1, 2]]`, got)

	_, ok = ExtractJSONArray(`{"question":"no array"}`)
	require.False(t, ok)
	_, ok = ExtractJSONArray(`[{"question":"unterminated"}`)
	require.False(t, ok)
}

func TestParseFlashcardsDropsIncompleteCards(t *testing.T) {
	raw := `Here you go!
[
  {"question": "What is GAD?", "answer": "Persistent, excessive worry."},
  {"question": "Missing answer"},
  {"question": 7, "answer": "numeric question"},
  "not an object",
  {"question": "  ", "answer": "blank question"},
  {"question": "First-line drug class?", "answer": " SSRIs "}
]`
	cards, err := ParseFlashcards(raw, 10)
	require.NoError(t, err)
	require.Equal(t, []models.Flashcard{
		{Question: "What is GAD?", Answer: "Persistent, excessive worry."},
		{Question: "First-line drug class?", Answer: "SSRIs"},
	}, cards)

	cards, err = ParseFlashcards(raw, 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
}

func TestParseFlashcardsUnusableOutput(t *testing.T) {
	for _, raw := range []string{
		"sorry, I can't help",
		`[{"question": "only"}]`,
		`[]`,
		`[{"question": "a", "answer": }]`,
	} {
		_, err := ParseFlashcards(raw, 5)
		require.ErrorIs(t, err, util.ErrGenerationUnavailable, raw)
	}
}

func TestGenerateFlashcardsValidatesInput(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedGenerator{fn: func(string) (string, error) { return `[{"question":"q","answer":"a"}]`, nil }}

	_, err := GenerateFlashcards(ctx, llm, "   ", 5)
	require.ErrorIs(t, err, util.ErrInvalidArgument)
	for _, n := range []int{0, -1, MaxFlashcards + 1} {
		_, err = GenerateFlashcards(ctx, llm, gadChunk, n)
		require.ErrorIs(t, err, util.ErrInvalidArgument, "count %d", n)
	}
	require.Zero(t, llm.calls)

	cards, err := GenerateFlashcards(ctx, llm, gadChunk, MaxFlashcards)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	_, err = GenerateFlashcards(ctx, nil, gadChunk, 3)
	require.ErrorIs(t, err, util.ErrGenerationUnavailable)
	_, err = GenerateFlashcards(ctx, failingGenerator(), gadChunk, 3)
	require.ErrorIs(t, err, util.ErrGenerationUnavailable)
}

func cardsFromMaterial(material string) (string, error) {
	type card struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	var cards []card
	for _, part := range strings.Split(material, "\n\n") {
		cards = append(cards, card{Question: "Explain?", Answer: strings.TrimSpace(part)})
	}
	raw, _ := json.Marshal(cards)
	return "Flashcards:\n" + string(raw), nil
}

func TestPipelineFlashcardsSpreadsContextAndRecords(t *testing.T) {
	repo := newMemRepo()
	repo.addMaterial("m1", 10, true)
	rec := &memRecorder{}
	opts := DefaultGeneratorOptions()
	opts.Recorder = rec
	p := NewPipeline(repo, NewGenerator(&scriptedGenerator{fn: cardsFromMaterial}, opts, nil), NewValidator(nil, nil), nil, PipelineOptions{}, nil)

	cards, err := p.Flashcards(context.Background(), "m1", 3)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	require.True(t, strings.HasPrefix(cards[0].Answer, "chunk 0 "))
	require.True(t, strings.HasPrefix(cards[1].Answer, "chunk 3 "))
	require.True(t, strings.HasPrefix(cards[2].Answer, "chunk 6 "))

	require.Len(t, rec.records, 1)
	require.Equal(t, providers.OpFlashcardGeneration, rec.records[0].Operation)
	require.Equal(t, "m1", rec.records[0].MaterialID)
	require.Equal(t, CallOK, rec.records[0].Status)
}

func TestPipelineFlashcardsErrors(t *testing.T) {
	repo := newMemRepo()
	repo.addMaterial("m1", 2, false)
	repo.materials["busy"] = models.Material{MaterialID: "busy", Status: models.MaterialProcessing}
	p := newTestPipeline(repo, &scriptedGenerator{fn: cardsFromMaterial}, nil, 1)
	ctx := context.Background()

	_, err := p.Flashcards(ctx, "missing", 21)
	require.ErrorIs(t, err, util.ErrInvalidArgument)
	_, err = p.Flashcards(ctx, "missing", 3)
	require.ErrorIs(t, err, util.ErrMaterialNotFound)
	_, err = p.Flashcards(ctx, "busy", 3)
	require.ErrorIs(t, err, util.ErrMaterialNotReady)

	p = newTestPipeline(repo, failingGenerator(), nil, 1)
	_, err = p.Flashcards(ctx, "m1", 3)
	require.ErrorIs(t, err, util.ErrGenerationUnavailable)
}
