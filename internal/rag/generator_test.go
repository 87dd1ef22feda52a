package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studyrag/internal/models"
	"studyrag/internal/util"

	"github.com/stretchr/testify/require"
)

const gadChunk = "GAD requires six months of worry. Treatment is SSRIs."

func requireWellFormed(t *testing.T, q models.GeneratedQuestion, chunkText string) {
	t.Helper()
	require.NotEmpty(t, q.Question)
	require.GreaterOrEqual(t, len(q.Answers), 2)
	require.GreaterOrEqual(t, q.CorrectAnswerIndex, 0)
	require.Less(t, q.CorrectAnswerIndex, len(q.Answers))
	require.Equal(t, q.Answers[q.CorrectAnswerIndex], q.CorrectAnswer)
	require.NotEmpty(t, q.Explanation)
	require.True(t, strings.HasPrefix(chunkText, q.SourceTextExcerpt))
	require.LessOrEqual(t, len([]rune(q.SourceTextExcerpt)), 500)
	require.Equal(t, models.DifficultyMedium, q.Difficulty)
	require.NotEmpty(t, q.QuestionID)
}

func TestGenerateQuestionUsesModelOutput(t *testing.T) {
	gen := NewGenerator(&scriptedGenerator{fn: func(string) (string, error) {
		return validQuestionJSON("What does GAD require?"), nil
	}}, DefaultGeneratorOptions(), nil)

	q, err := gen.GenerateQuestion(context.Background(), gadChunk, "chunk-1")
	require.NoError(t, err)
	requireWellFormed(t, q, gadChunk)
	require.Equal(t, "What does GAD require?", q.Question)
	require.Equal(t, "right", q.CorrectAnswer)
	require.Equal(t, "Testing", q.Topic)
	require.Equal(t, "chunk-1", q.SourceChunkID)
	require.Equal(t, gadChunk, q.SourceTextExcerpt)
}

func TestGenerateQuestionMalformedOutputFallsBack(t *testing.T) {
	gen := NewGenerator(&scriptedGenerator{fn: func(string) (string, error) {
		return "sorry, I can't help", nil
	}}, DefaultGeneratorOptions(), nil)

	q, err := gen.GenerateQuestion(context.Background(), gadChunk, "chunk-1")
	require.NoError(t, err)
	requireWellFormed(t, q, gadChunk)
	require.True(t, strings.HasPrefix(q.Explanation, "According to the material: GAD requires six months of worry"))
	require.Equal(t, "GAD requires six months of worry...", q.Answers[0])
	require.Equal(t, `Which of the following best describes: "GAD requires six months of worry..."?`, q.Question)
}

func TestGenerateQuestionNeverFailsWhenCapabilityAlwaysFails(t *testing.T) {
	gen := NewGenerator(failingGenerator(), DefaultGeneratorOptions(), nil)
	inputs := []string{
		gadChunk,
		"short.",
		"x",
		strings.Repeat("A long sentence about therapeutic communication techniques! ", 20),
		"¿Qué es la ansiedad generalizada y cómo se trata con terapia cognitiva?",
	}
	for _, in := range inputs {
		q, err := gen.GenerateQuestion(context.Background(), in, "c")
		require.NoError(t, err)
		requireWellFormed(t, q, in)
	}
}

func TestGenerateQuestionNoQualifyingSentence(t *testing.T) {
	gen := NewGenerator(failingGenerator(), DefaultGeneratorOptions(), nil)
	q, err := gen.GenerateQuestion(context.Background(), "Too short. Also short!", "c")
	require.NoError(t, err)
	require.Equal(t, "Based on the provided material, what is the main concept discussed?", q.Question)
	require.Equal(t, []string{"Concept A", "Concept B", "Concept C", "Concept D"}, q.Answers)
	require.Equal(t, "Too short. Also short!", q.Explanation)
}

func TestFallbackKeyStatementNeedsMoreThanTwentyRunes(t *testing.T) {
	twenty := "Anxiety is common ok"
	twentyOne := "Anxiety is common too"
	require.Len(t, []rune(twenty), 20)
	require.Len(t, []rune(twentyOne), 21)

	q := FallbackQuestion(twenty + ". " + twentyOne + ".")
	require.Equal(t, "According to the material: "+twentyOne, q.Explanation)

	q = FallbackQuestion(twenty + ".")
	require.Equal(t, []string{"Concept A", "Concept B", "Concept C", "Concept D"}, q.Answers)
}

func TestGenerateQuestionRejectsEmptyText(t *testing.T) {
	gen := NewGenerator(failingGenerator(), DefaultGeneratorOptions(), nil)
	_, err := gen.GenerateQuestion(context.Background(), "   ", "c")
	require.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestGenerateQuestionPassesBounds(t *testing.T) {
	var gotTokens int
	var gotTemp float64
	llm := &boundsGenerator{fn: func(maxTokens int, temperature float64) {
		gotTokens, gotTemp = maxTokens, temperature
	}}
	gen := NewGenerator(llm, DefaultGeneratorOptions(), nil)
	_, err := gen.GenerateQuestion(context.Background(), gadChunk, "c")
	require.NoError(t, err)
	require.Equal(t, 500, gotTokens)
	require.InDelta(t, 0.3, gotTemp, 1e-9)
}

type boundsGenerator struct {
	fn func(maxTokens int, temperature float64)
}

func (b *boundsGenerator) GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	b.fn(maxTokens, temperature)
	return "", errors.New("unused")
}

func TestGeneratorRecordsCalls(t *testing.T) {
	rec := &memRecorder{}
	opts := DefaultGeneratorOptions()
	opts.Recorder = rec

	ok := NewGenerator(&scriptedGenerator{fn: func(string) (string, error) { return validQuestionJSON("q?"), nil }}, opts, nil)
	_, _ = ok.GenerateQuestion(context.Background(), gadChunk, "c1")
	bad := NewGenerator(failingGenerator(), opts, nil)
	_, _ = bad.GenerateQuestion(context.Background(), gadChunk, "c2")

	require.Len(t, rec.records, 2)
	require.Equal(t, CallOK, rec.records[0].Status)
	require.Equal(t, "scripted", rec.records[0].Provider)
	require.Equal(t, PromptHash(QuestionPromptVersion), rec.records[0].PromptHash)
	require.Equal(t, CallFailed, rec.records[1].Status)
	require.Equal(t, "transient", rec.records[1].ErrorClass)
	require.Equal(t, "c2", rec.records[1].ChunkID)
}

func TestBasicQuestion(t *testing.T) {
	q := BasicQuestion("Serotonin regulates mood. It is a neurotransmitter.")
	require.Equal(t, `Based on the material, what is the significance of: "Serotonin regulates mood"?`, q.Question)
	require.Equal(t, "It represents the primary concept", q.CorrectAnswer)
	require.Equal(t, "Serotonin regulates mood", q.Explanation)
	require.Len(t, q.Answers, 4)
}

func TestBuildQuestionPromptEndsWithMaterial(t *testing.T) {
	p := BuildQuestionPrompt("  material body  ")
	require.True(t, strings.HasSuffix(p, "MATERIAL:\nmaterial body"))
	require.Contains(t, p, `"correctAnswerIndex"`)
}
