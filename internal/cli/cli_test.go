package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"studyrag/internal/models"

	"github.com/stretchr/testify/require"
)

const notes = "Generalized anxiety disorder involves persistent and excessive worry about everyday events. " +
	"Cognitive behavioral therapy is a first-line treatment that teaches patients to challenge anxious thoughts. " +
	"Selective serotonin reuptake inhibitors are commonly prescribed for long-term symptom control."

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STUDYRAG_DB_DRIVER", "sqlite")
	t.Setenv("STUDYRAG_DB_DSN", "file:"+filepath.Join(dir, "studyrag.db")+"?_pragma=foreign_keys(1)")
	t.Setenv("STUDYRAG_UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("STUDYRAG_EMBED_PROVIDERS", "mock")
	t.Setenv("STUDYRAG_LLM_PROVIDERS", "mock")
	t.Setenv("STUDYRAG_CHUNK_SIZE", "120")
	t.Setenv("STUDYRAG_CHUNK_OVERLAP", "20")
	t.Setenv("STUDYRAG_REDIS_ADDR", "")
	t.Setenv("STUDYRAG_LOG_MODE", "prod")
	return dir
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), args, &out))
	return out.Bytes()
}

func TestIngestGenerateSearch(t *testing.T) {
	dir := setupEnv(t)
	src := filepath.Join(dir, "gad.txt")
	require.NoError(t, os.WriteFile(src, []byte(notes), 0o644))

	var m models.Material
	require.NoError(t, json.Unmarshal(run(t, "ingest", src, "--title", "GAD", "--json"), &m))
	require.Equal(t, models.MaterialReady, m.Status)
	require.Equal(t, "GAD", m.Title)

	var qs []models.GeneratedQuestion
	require.NoError(t, json.Unmarshal(run(t, "generate", m.MaterialID, "-n", "2", "--topic", "Anxiety", "--json"), &qs))
	require.NotEmpty(t, qs)
	require.LessOrEqual(t, len(qs), 2)
	require.Equal(t, "Anxiety", qs[0].Topic)

	export := filepath.Join(dir, "export", "qs.json")
	run(t, "generate", m.MaterialID, "-n", "1", "-o", export)
	b, err := os.ReadFile(export)
	require.NoError(t, err)
	var exported []models.GeneratedQuestion
	require.NoError(t, json.Unmarshal(b, &exported))
	require.Len(t, exported, 1)

	var results []models.ChunkResult
	require.NoError(t, json.Unmarshal(run(t, "search", m.MaterialID, "reuptake inhibitors", "--json"), &results))
	require.NotEmpty(t, results)

	var cards []models.Flashcard
	require.NoError(t, json.Unmarshal(run(t, "flashcards", m.MaterialID, "-n", "2", "--json"), &cards))
	require.NotEmpty(t, cards)
	require.LessOrEqual(t, len(cards), 2)

	var ans models.MaterialAnswer
	require.NoError(t, json.Unmarshal(run(t, "ask", m.MaterialID, "What is prescribed for symptom control?", "-k", "2", "--json"), &ans))
	require.Equal(t, "GAD", ans.Title)
	require.NotEmpty(t, ans.Answer)
	require.NotEmpty(t, ans.Sources)

	var listed []models.Material
	require.NoError(t, json.Unmarshal(run(t, "materials", "--json"), &listed))
	require.Len(t, listed, 1)

	out := run(t, "materials", "delete", m.MaterialID)
	require.Contains(t, string(out), "Deleted")
	require.Contains(t, string(run(t, "materials")), "No materials.")
}

func TestGenerateUnknownMaterial(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer
	err := execute(context.Background(), []string{"generate", "missing"}, &out)
	require.ErrorContains(t, err, "material not found")
}

func TestIngestRejectsUnsupportedFile(t *testing.T) {
	dir := setupEnv(t)
	src := filepath.Join(dir, "deck.pptx")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	var out bytes.Buffer
	err := execute(context.Background(), []string{"ingest", src}, &out)
	require.ErrorContains(t, err, "unsupported file type")
}

func TestFlashcardsRejectsCountOutOfRange(t *testing.T) {
	dir := setupEnv(t)
	src := filepath.Join(dir, "gad.txt")
	require.NoError(t, os.WriteFile(src, []byte(notes), 0o644))
	var m models.Material
	require.NoError(t, json.Unmarshal(run(t, "ingest", src, "--json"), &m))

	var out bytes.Buffer
	err := execute(context.Background(), []string{"flashcards", m.MaterialID, "-n", "25"}, &out)
	require.ErrorContains(t, err, "flashcard count must be between 1 and 20")
}
