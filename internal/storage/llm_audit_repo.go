package storage

import (
	"context"
	"fmt"

	"studyrag/internal/rag"
)

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec rag.CallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(material_id, chunk_id, operation, provider_name, model, prompt_hash, status, error_type, error, latency_ms)
VALUES (NULLIF($1,''), NULLIF($2,''), $3, $4, $5, $6, $7, NULLIF($8,''), NULLIF($9,''), $10)`,
		rec.MaterialID, rec.ChunkID, rec.Operation, rec.Provider, rec.Model, rec.PromptHash, rec.Status, rec.ErrorClass, rec.Error, rec.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
