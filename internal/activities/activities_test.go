package activities

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studyrag/internal/config"
	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/rag"
	"studyrag/internal/storage"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

const notes = "Generalized anxiety disorder involves persistent and excessive worry about everyday events. " +
	"Nurses should assess sleep patterns, muscle tension and restlessness during intake. " +
	"Cognitive behavioral therapy is a first-line treatment that teaches patients to challenge anxious thoughts. " +
	"Selective serotonin reuptake inhibitors are commonly prescribed for long-term symptom control."

func newTestActivities(t *testing.T) (*Activities, storage.Store) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Config{
		EmbedProviders:    "mock",
		LLMProviders:      "mock",
		EmbedDim:          64,
		ChunkSize:         120,
		ChunkOverlap:      20,
		GenMaxTokens:      500,
		GenTemperature:    0.3,
		CapabilityTimeout: 5 * time.Second,
		GenConcurrency:    1,
		MaxQuestions:      3,
	}
	store, err := storage.OpenSQLite(ctx, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pm, err := providers.NewManager(cfg)
	require.NoError(t, err)
	services := rag.NewServices(cfg, pm, store, store, nil)
	return New(cfg, store, services, nil), store
}

func TestIngestAndGenerateActivities(t *testing.T) {
	ctx := context.Background()
	a, store := newTestActivities(t)
	require.NoError(t, store.CreateMaterial(ctx, models.Material{MaterialID: "m1", Title: "GAD", FileType: "text/plain", Status: models.MaterialProcessing}))

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(notes), 0o644))

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.ExtractTextActivity, ExtractTextInput{MaterialID: "m1", FilePath: path, FileType: "text/plain"})
	require.NoError(t, err)
	var text ExtractTextOutput
	require.NoError(t, val.Get(&text))
	require.True(t, strings.HasPrefix(text.Text, "Generalized anxiety"))

	val, err = env.ExecuteActivity(a.BuildChunksActivity, BuildChunksInput{MaterialID: "m1", Text: text.Text})
	require.NoError(t, err)
	var built BuildChunksOutput
	require.NoError(t, val.Get(&built))
	require.Greater(t, built.Chunks, 1)
	require.Equal(t, built.Chunks, built.Embedded)

	_, err = env.ExecuteActivity(a.UpdateMaterialStatusActivity, UpdateMaterialStatusInput{MaterialID: "m1", Status: models.MaterialReady})
	require.NoError(t, err)

	val, err = env.ExecuteActivity(a.GenerateQuestionsActivity, GenerateQuestionsInput{MaterialID: "m1", Count: 10})
	require.NoError(t, err)
	var gen GenerateQuestionsOutput
	require.NoError(t, val.Get(&gen))
	require.LessOrEqual(t, len(gen.QuestionIDs), 3)
	require.NotEmpty(t, gen.QuestionIDs)

	qs, err := store.ListQuestions(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, qs, len(gen.QuestionIDs))
	for _, q := range qs {
		require.Equal(t, rag.DefaultTopic, q.Topic)
		require.Len(t, q.Answers, 4)
	}
}

func TestGenerateQuestionsActivityRejectsUnreadyMaterial(t *testing.T) {
	ctx := context.Background()
	a, store := newTestActivities(t)
	require.NoError(t, store.CreateMaterial(ctx, models.Material{MaterialID: "m1", Title: "GAD", FileType: "text/plain", Status: models.MaterialProcessing}))

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.GenerateQuestionsActivity, GenerateQuestionsInput{MaterialID: "m1", Count: 2})
	require.ErrorContains(t, err, "material not ready")
}

func TestExtractTextActivityNoText(t *testing.T) {
	a, _ := newTestActivities(t)
	path := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n  "), 0o644))

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.ExtractTextActivity, ExtractTextInput{MaterialID: "m1", FilePath: path, FileType: "text/plain"})
	require.ErrorContains(t, err, "no extractable text")
}

func TestIngestMaterialInProcess(t *testing.T) {
	ctx := context.Background()
	a, store := newTestActivities(t)
	require.NoError(t, store.CreateMaterial(ctx, models.Material{MaterialID: "m1", Title: "GAD", FileType: "text/plain", Status: models.MaterialProcessing}))
	require.NoError(t, store.CreateMaterial(ctx, models.Material{MaterialID: "m2", Title: "Blank", FileType: "text/plain", Status: models.MaterialProcessing}))

	dir := t.TempDir()
	good := filepath.Join(dir, "notes.txt")
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(good, []byte(notes), 0o644))
	require.NoError(t, os.WriteFile(blank, []byte(" "), 0o644))

	status, err := a.IngestMaterial(ctx, "m1", good, "text/plain")
	require.NoError(t, err)
	require.Equal(t, models.MaterialReady, status)
	chunks, err := store.ListChunks(ctx, "m1")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	status, err = a.IngestMaterial(ctx, "m2", blank, "text/plain")
	require.NoError(t, err)
	require.Equal(t, models.MaterialFailed, status)
	m, err := store.GetMaterial(ctx, "m2")
	require.NoError(t, err)
	require.Equal(t, "no extractable text found in document", m.FailReason)
}
