package storage

import (
	"context"
	"fmt"

	"studyrag/internal/models"
	"studyrag/internal/vector"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) ReplaceChunks(ctx context.Context, materialID string, chunks []models.Chunk) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE material_id=$1`, materialID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	for _, c := range chunks {
		var embedding *string
		if c.HasEmbedding() {
			lit := vector.ToLiteral(c.Embedding)
			embedding = &lit
		}
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, material_id, chunk_index, text, embedding, embedding_model)
VALUES ($1, $2, $3, $4, CASE WHEN $5::text IS NULL THEN NULL ELSE $5::vector END, NULLIF($6,''))`,
			c.ChunkID, materialID, c.ChunkIndex, c.Text, embedding, c.EmbeddingModel,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) ListByMaterial(ctx context.Context, materialID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chunk_id, material_id, chunk_index, text, embedding::text, COALESCE(embedding_model,''), created_at
FROM chunks
WHERE material_id=$1
ORDER BY chunk_index ASC`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by material: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		var lit *string
		if err := rows.Scan(&c.ChunkID, &c.MaterialID, &c.ChunkIndex, &c.Text, &lit, &c.EmbeddingModel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if lit != nil {
			v, err := vector.ParseLiteral(*lit)
			if err != nil {
				return nil, fmt.Errorf("chunk %s embedding: %w", c.ChunkID, err)
			}
			c.Embedding = v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
