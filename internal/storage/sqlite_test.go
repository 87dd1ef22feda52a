package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"studyrag/internal/models"
	"studyrag/internal/rag"
	"studyrag/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedMaterial(t *testing.T, s *SQLiteStore, id string) {
	t.Helper()
	err := s.CreateMaterial(context.Background(), models.Material{
		MaterialID: id,
		Title:      "Psych nursing",
		FileType:   "text/plain",
		Status:     models.MaterialProcessing,
	})
	require.NoError(t, err)
}

func TestSQLiteMaterialLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedMaterial(t, s, "m1")

	m, err := s.GetMaterial(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Psych nursing", m.Title)
	assert.Equal(t, models.MaterialProcessing, m.Status)
	assert.False(t, m.CreatedAt.IsZero())

	require.NoError(t, s.UpdateMaterialStatus(ctx, "m1", models.MaterialFailed, "no text"))
	m, err = s.GetMaterial(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MaterialFailed, m.Status)
	assert.Equal(t, "no text", m.FailReason)

	list, err := s.ListMaterials(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSQLiteMissingMaterial(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetMaterial(ctx, "nope")
	assert.ErrorIs(t, err, util.ErrMaterialNotFound)
	assert.ErrorIs(t, s.UpdateMaterialStatus(ctx, "nope", models.MaterialReady, ""), util.ErrMaterialNotFound)
	assert.ErrorIs(t, s.DeleteMaterial(ctx, "nope"), util.ErrMaterialNotFound)
}

func TestSQLiteChunksRoundTripEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedMaterial(t, s, "m1")

	chunks := []models.Chunk{
		{ChunkID: "c1", MaterialID: "m1", ChunkIndex: 1, Text: "second", Embedding: []float32{0.5, -1.25, 3}, EmbeddingModel: "mock"},
		{ChunkID: "c0", MaterialID: "m1", ChunkIndex: 0, Text: "first"},
	}
	require.NoError(t, s.ReplaceChunks(ctx, "m1", chunks))

	got, err := s.ListChunks(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c0", got[0].ChunkID)
	assert.Nil(t, got[0].Embedding)
	assert.Equal(t, []float32{0.5, -1.25, 3}, got[1].Embedding)
	assert.Equal(t, "mock", got[1].EmbeddingModel)

	require.NoError(t, s.ReplaceChunks(ctx, "m1", chunks[:1]))
	got, err = s.ListChunks(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSQLiteQuestionsAndCascade(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedMaterial(t, s, "m1")
	require.NoError(t, s.ReplaceChunks(ctx, "m1", []models.Chunk{{ChunkID: "c0", ChunkIndex: 0, Text: "t"}}))

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	qs := make([]models.GeneratedQuestion, 0, 2)
	for i := range 2 {
		qs = append(qs, models.GeneratedQuestion{
			QuestionID:         fmt.Sprintf("q%d", i),
			MaterialID:         "m1",
			SourceChunkID:      "c0",
			Question:           "Which statement is accurate?",
			Answers:            []string{"A", "B", "C", "D"},
			CorrectAnswerIndex: i,
			Explanation:        "because",
			SourceTextExcerpt:  "t",
			Difficulty:         models.DifficultyMedium,
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, s.SaveQuestions(ctx, qs))

	got, err := s.ListQuestions(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].QuestionID)
	assert.Equal(t, "B", got[0].CorrectAnswer)
	assert.Equal(t, []string{"A", "B", "C", "D"}, got[1].Answers)

	require.NoError(t, s.DeleteMaterial(ctx, "m1"))
	got, err = s.ListQuestions(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, got)
	chunks, err := s.ListChunks(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSQLiteRecordCall(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.RecordCall(ctx, rag.CallRecord{
		MaterialID: "m1",
		ChunkID:    "c0",
		Operation:  "question_generation",
		Provider:   "mock",
		Status:     rag.CallFailed,
		ErrorClass: "rate_limited",
		Error:      "429",
		LatencyMS:  12,
	})
	require.NoError(t, err)

	n, err := s.CountCalls(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteDir(t *testing.T) {
	assert.Equal(t, "", sqliteDir("file::memory:?cache=shared"))
	assert.Equal(t, "data", sqliteDir("file:data/studyrag.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, "", sqliteDir("studyrag.db"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", 384)
	assert.Error(t, err)
}
