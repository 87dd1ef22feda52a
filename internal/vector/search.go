package vector

import (
	"context"
	"fmt"

	"studyrag/internal/models"

	"github.com/jackc/pgx/v5"
)

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// SearchChunks runs a pgvector cosine search over one material's embedded chunks.
func (s *Searcher) SearchChunks(ctx context.Context, materialID string, queryVec []float32, topK int) ([]models.ChunkResult, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.q.Query(ctx, `
SELECT c.material_id,
       m.title,
       c.chunk_id,
       c.chunk_index,
       1 - (c.embedding <=> $2::vector) AS score,
       c.text
FROM chunks c
JOIN materials m ON m.material_id = c.material_id
WHERE c.material_id = $1
  AND c.embedding IS NOT NULL
ORDER BY c.embedding <=> $2::vector, c.chunk_index
LIMIT $3`, materialID, ToLiteral(queryVec), topK)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.ChunkResult, 0, topK)
	for rows.Next() {
		var r models.ChunkResult
		if err := rows.Scan(&r.MaterialID, &r.Title, &r.ChunkID, &r.ChunkIndex, &r.Score, &r.ChunkText); err != nil {
			return nil, fmt.Errorf("scan chunk result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}
