package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"studyrag/internal/models"
	"studyrag/internal/rag"
	"studyrag/internal/util"
	"studyrag/internal/vector"

	_ "modernc.org/sqlite" // driver: sqlite
)

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS materials (
  material_id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  file_type TEXT NOT NULL,
  file_path TEXT NOT NULL DEFAULT '',
  file_size INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  fail_reason TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
  chunk_id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL REFERENCES materials(material_id) ON DELETE CASCADE,
  chunk_index INTEGER NOT NULL,
  text TEXT NOT NULL,
  embedding BLOB,
  embedding_model TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  UNIQUE (material_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS questions (
  question_id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL REFERENCES materials(material_id) ON DELETE CASCADE,
  source_chunk_id TEXT NOT NULL DEFAULT '',
  question TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  correct_answer_index INTEGER NOT NULL,
  explanation TEXT NOT NULL,
  source_text_excerpt TEXT NOT NULL,
  topic TEXT NOT NULL DEFAULT '',
  difficulty TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS questions_material_idx ON questions (material_id, created_at);

CREATE TABLE IF NOT EXISTS llm_calls (
  call_id INTEGER PRIMARY KEY AUTOINCREMENT,
  material_id TEXT NOT NULL DEFAULT '',
  chunk_id TEXT NOT NULL DEFAULT '',
  operation TEXT NOT NULL,
  provider_name TEXT NOT NULL DEFAULT '',
  model TEXT NOT NULL DEFAULT '',
  prompt_hash TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error_type TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  latency_ms INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
`

// SQLiteStore keeps everything in one SQLite file. Embeddings are stored as
// little-endian float32 blobs and ranked in process.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens dsn with the modernc driver and ensures the schema exists.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dir := sqliteDir(dsn); dir != "" {
		if err := util.EnsureDir(dir); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDir(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLiteStore) CreateMaterial(ctx context.Context, m models.Material) error {
	now := formatTime(m.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO materials (material_id, title, description, file_type, file_path, file_size, status, fail_reason, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MaterialID, m.Title, m.Description, m.FileType, m.FilePath, m.FileSize, m.Status, m.FailReason, now, now)
	if err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

const sqliteMaterialColumns = `material_id, title, description, file_type, file_path, file_size, status, fail_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMaterial(row rowScanner) (models.Material, error) {
	var m models.Material
	var created, updated string
	if err := row.Scan(&m.MaterialID, &m.Title, &m.Description, &m.FileType, &m.FilePath, &m.FileSize,
		&m.Status, &m.FailReason, &created, &updated); err != nil {
		return models.Material{}, err
	}
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return m, nil
}

func (s *SQLiteStore) GetMaterial(ctx context.Context, materialID string) (models.Material, error) {
	m, err := scanSQLiteMaterial(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteMaterialColumns+` FROM materials WHERE material_id = ?`, materialID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Material{}, fmt.Errorf("%w: %s", util.ErrMaterialNotFound, materialID)
	}
	if err != nil {
		return models.Material{}, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) ListMaterials(ctx context.Context) ([]models.Material, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteMaterialColumns+` FROM materials ORDER BY created_at DESC, material_id`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()
	out := make([]models.Material, 0)
	for rows.Next() {
		m, err := scanSQLiteMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateMaterialStatus(ctx context.Context, materialID, status, failReason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE materials SET status = ?, fail_reason = ?, updated_at = ? WHERE material_id = ?`,
		status, failReason, formatTime(time.Time{}), materialID)
	if err != nil {
		return fmt.Errorf("update material status: %w", err)
	}
	return requireAffected(res, materialID)
}

func (s *SQLiteStore) DeleteMaterial(ctx context.Context, materialID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE material_id = ?`, materialID)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return requireAffected(res, materialID)
}

func requireAffected(res sql.Result, materialID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", util.ErrMaterialNotFound, materialID)
	}
	return nil
}

func (s *SQLiteStore) ReplaceChunks(ctx context.Context, materialID string, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE material_id = ?`, materialID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (chunk_id, material_id, chunk_index, text, embedding, embedding_model, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		var blob []byte
		if c.HasEmbedding() {
			blob = vector.EncodeBlob(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ChunkID, materialID, c.ChunkIndex, c.Text, blob, c.EmbeddingModel, formatTime(c.CreatedAt)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListChunks(ctx context.Context, materialID string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT chunk_id, material_id, chunk_index, text, embedding, embedding_model, created_at
FROM chunks WHERE material_id = ? ORDER BY chunk_index ASC`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		var blob []byte
		var created string
		if err := rows.Scan(&c.ChunkID, &c.MaterialID, &c.ChunkIndex, &c.Text, &blob, &c.EmbeddingModel, &created); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if c.Embedding, err = vector.DecodeBlob(blob); err != nil {
			return nil, fmt.Errorf("chunk %s embedding: %w", c.ChunkID, err)
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveQuestions(ctx context.Context, qs []models.GeneratedQuestion) error {
	if len(qs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx insert questions: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, q := range qs {
		answers, err := json.Marshal(q.Answers)
		if err != nil {
			return fmt.Errorf("encode answers: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO questions (question_id, material_id, source_chunk_id, question, answers_json, correct_answer_index,
                       explanation, source_text_excerpt, topic, difficulty, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.QuestionID, q.MaterialID, q.SourceChunkID, q.Question, string(answers), q.CorrectAnswerIndex,
			q.Explanation, q.SourceTextExcerpt, q.Topic, string(q.Difficulty), formatTime(q.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.QuestionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit questions tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, materialID string) ([]models.GeneratedQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT question_id, material_id, source_chunk_id, question, answers_json, correct_answer_index,
       explanation, source_text_excerpt, topic, difficulty, created_at
FROM questions WHERE material_id = ? ORDER BY created_at DESC, question_id`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	out := make([]models.GeneratedQuestion, 0)
	for rows.Next() {
		var q models.GeneratedQuestion
		var answers, difficulty, created string
		if err := rows.Scan(&q.QuestionID, &q.MaterialID, &q.SourceChunkID, &q.Question, &answers, &q.CorrectAnswerIndex,
			&q.Explanation, &q.SourceTextExcerpt, &q.Topic, &difficulty, &created); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &q.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for %s: %w", q.QuestionID, err)
		}
		q.Difficulty = models.Difficulty(difficulty)
		q.CorrectAnswer = correctAnswer(q.Answers, q.CorrectAnswerIndex)
		q.CreatedAt = parseTime(created)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) RecordCall(ctx context.Context, rec rag.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO llm_calls (material_id, chunk_id, operation, provider_name, model, prompt_hash, status, error_type, error, latency_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MaterialID, rec.ChunkID, rec.Operation, rec.Provider, rec.Model, rec.PromptHash,
		rec.Status, rec.ErrorClass, rec.Error, rec.LatencyMS, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// CountCalls returns the number of recorded capability calls for a material.
func (s *SQLiteStore) CountCalls(ctx context.Context, materialID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM llm_calls WHERE material_id = ?`, materialID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count llm calls: %w", err)
	}
	return n, nil
}
