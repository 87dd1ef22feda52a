package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// Migrate creates the pgvector extension and tables. Embedding columns are
// typed with dim so the HNSW index can be built.
func (d *DB) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		dim = 384
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS materials (
  material_id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  file_type TEXT NOT NULL,
  file_path TEXT NOT NULL DEFAULT '',
  file_size BIGINT NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  fail_reason TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
  chunk_id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL REFERENCES materials(material_id) ON DELETE CASCADE,
  chunk_index INT NOT NULL,
  text TEXT NOT NULL,
  embedding vector(%d),
  embedding_model TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (material_id, chunk_index)
)`, dim),
		`CREATE INDEX IF NOT EXISTS chunks_embedding_hnsw ON chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS questions (
  question_id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL REFERENCES materials(material_id) ON DELETE CASCADE,
  source_chunk_id TEXT NOT NULL DEFAULT '',
  question TEXT NOT NULL,
  answers JSONB NOT NULL,
  correct_answer_index INT NOT NULL,
  explanation TEXT NOT NULL,
  source_text_excerpt TEXT NOT NULL,
  topic TEXT,
  difficulty TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS questions_material_idx ON questions (material_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id BIGSERIAL PRIMARY KEY,
  material_id TEXT,
  chunk_id TEXT,
  operation TEXT NOT NULL,
  provider_name TEXT NOT NULL DEFAULT '',
  model TEXT NOT NULL DEFAULT '',
  prompt_hash TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error_type TEXT,
  error TEXT,
  latency_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	}
	for _, s := range stmts {
		if _, err := d.Pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}
