package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"studyrag/internal/models"
)

type QuestionRepo struct {
	db *DB
}

func NewQuestionRepo(db *DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

func (r *QuestionRepo) Insert(ctx context.Context, qs []models.GeneratedQuestion) error {
	if len(qs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert questions: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for _, q := range qs {
		answers, err := json.Marshal(q.Answers)
		if err != nil {
			return fmt.Errorf("encode answers: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO questions (question_id, material_id, source_chunk_id, question, answers, correct_answer_index,
                       explanation, source_text_excerpt, topic, difficulty, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, NULLIF($9,''), $10, $11)`,
			q.QuestionID, q.MaterialID, q.SourceChunkID, q.Question, string(answers), q.CorrectAnswerIndex,
			q.Explanation, q.SourceTextExcerpt, q.Topic, string(q.Difficulty), q.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.QuestionID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit questions tx: %w", err)
	}
	return nil
}

func (r *QuestionRepo) ListByMaterial(ctx context.Context, materialID string) ([]models.GeneratedQuestion, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT question_id, material_id, source_chunk_id, question, answers::text, correct_answer_index,
       explanation, source_text_excerpt, COALESCE(topic,''), difficulty, created_at
FROM questions
WHERE material_id=$1
ORDER BY created_at DESC, question_id`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	out := make([]models.GeneratedQuestion, 0)
	for rows.Next() {
		var q models.GeneratedQuestion
		var answers, difficulty string
		if err := rows.Scan(&q.QuestionID, &q.MaterialID, &q.SourceChunkID, &q.Question, &answers, &q.CorrectAnswerIndex,
			&q.Explanation, &q.SourceTextExcerpt, &q.Topic, &difficulty, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &q.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for %s: %w", q.QuestionID, err)
		}
		q.Difficulty = models.Difficulty(difficulty)
		q.CorrectAnswer = correctAnswer(q.Answers, q.CorrectAnswerIndex)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}
