package storage

import (
	"context"

	"studyrag/internal/models"
	"studyrag/internal/rag"
	"studyrag/internal/vector"
)

// PGStore is the Postgres + pgvector Store. It also ranks chunks server-side.
type PGStore struct {
	db        *DB
	materials *MaterialRepo
	chunks    *ChunkRepo
	questions *QuestionRepo
	audit     *LLMAuditRepo
	searcher  *vector.Searcher
}

func NewPGStore(db *DB) *PGStore {
	return &PGStore{
		db:        db,
		materials: NewMaterialRepo(db),
		chunks:    NewChunkRepo(db),
		questions: NewQuestionRepo(db),
		audit:     NewLLMAuditRepo(db),
		searcher:  vector.NewSearcher(db.Pool),
	}
}

func (s *PGStore) CreateMaterial(ctx context.Context, m models.Material) error {
	return s.materials.Create(ctx, m)
}

func (s *PGStore) GetMaterial(ctx context.Context, materialID string) (models.Material, error) {
	return s.materials.Get(ctx, materialID)
}

func (s *PGStore) ListMaterials(ctx context.Context) ([]models.Material, error) {
	return s.materials.List(ctx)
}

func (s *PGStore) UpdateMaterialStatus(ctx context.Context, materialID, status, failReason string) error {
	return s.materials.UpdateStatus(ctx, materialID, status, failReason)
}

func (s *PGStore) DeleteMaterial(ctx context.Context, materialID string) error {
	return s.materials.Delete(ctx, materialID)
}

func (s *PGStore) ReplaceChunks(ctx context.Context, materialID string, chunks []models.Chunk) error {
	return s.chunks.ReplaceChunks(ctx, materialID, chunks)
}

func (s *PGStore) ListChunks(ctx context.Context, materialID string) ([]models.Chunk, error) {
	return s.chunks.ListByMaterial(ctx, materialID)
}

func (s *PGStore) SearchChunks(ctx context.Context, materialID string, queryVec []float32, topK int) ([]models.ChunkResult, error) {
	return s.searcher.SearchChunks(ctx, materialID, queryVec, topK)
}

func (s *PGStore) SaveQuestions(ctx context.Context, qs []models.GeneratedQuestion) error {
	return s.questions.Insert(ctx, qs)
}

func (s *PGStore) ListQuestions(ctx context.Context, materialID string) ([]models.GeneratedQuestion, error) {
	return s.questions.ListByMaterial(ctx, materialID)
}

func (s *PGStore) RecordCall(ctx context.Context, rec rag.CallRecord) error {
	return s.audit.Insert(ctx, rec)
}

func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}
