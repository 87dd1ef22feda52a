package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"studyrag/internal/models"
	"studyrag/internal/providers"
	"studyrag/internal/util"
)

// scriptedGenerator answers prompts through fn and counts calls.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(material string) (string, error)
}

func (s *scriptedGenerator) GenerateText(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	material := prompt
	if i := strings.LastIndex(prompt, providers.MaterialMarker); i >= 0 {
		material = strings.TrimSpace(prompt[i+len(providers.MaterialMarker):])
	}
	return s.fn(material)
}

func (s *scriptedGenerator) Describe() (string, string) { return "scripted", "scripted-v1" }

func failingGenerator() *scriptedGenerator {
	return &scriptedGenerator{fn: func(string) (string, error) {
		return "", &CapabilityError{Kind: util.ErrGenerationUnavailable, Cause: errors.New("503 service unavailable")}
	}}
}

func validQuestionJSON(question string) string {
	raw, _ := json.Marshal(map[string]any{
		"question":           question,
		"answers":            []string{"right", "wrong a", "wrong b", "wrong c"},
		"correctAnswerIndex": 0,
		"explanation":        "because the material says so",
		"topic":              "Testing",
	})
	return "Sure! " + string(raw) + " Hope this helps."
}

type scriptedEmbedder struct {
	fn func(text string) ([]float32, error)
}

func (s scriptedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.fn(text)
}

type memRepo struct {
	materials map[string]models.Material
	chunks    map[string][]models.Chunk
}

func newMemRepo() *memRepo {
	return &memRepo{materials: map[string]models.Material{}, chunks: map[string][]models.Chunk{}}
}

func (r *memRepo) GetMaterial(ctx context.Context, id string) (models.Material, error) {
	m, ok := r.materials[id]
	if !ok {
		return models.Material{}, fmt.Errorf("%w: %s", util.ErrMaterialNotFound, id)
	}
	return m, nil
}

func (r *memRepo) ListChunks(ctx context.Context, id string) ([]models.Chunk, error) {
	return append([]models.Chunk(nil), r.chunks[id]...), nil
}

func (r *memRepo) addMaterial(id string, n int, embedded bool) {
	r.materials[id] = models.Material{MaterialID: id, Title: "Material " + id, Status: models.MaterialReady}
	chunks := make([]models.Chunk, 0, n)
	for i := 0; i < n; i++ {
		c := models.Chunk{
			ChunkID:    fmt.Sprintf("c%d", i),
			MaterialID: id,
			ChunkIndex: i,
			Text:       fmt.Sprintf("chunk %d describes a distinct nursing concept in detail.", i),
		}
		if embedded {
			c.Embedding = []float32{1, float32(i)}
		}
		chunks = append(chunks, c)
	}
	r.chunks[id] = chunks
}

type memRecorder struct {
	mu      sync.Mutex
	records []CallRecord
}

func (m *memRecorder) RecordCall(ctx context.Context, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}
