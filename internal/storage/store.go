package storage

import (
	"context"
	"fmt"
	"strings"

	"studyrag/internal/models"
	"studyrag/internal/rag"
)

// Store is the persistence adapter behind the API, worker and CLI.
type Store interface {
	rag.Repository
	rag.CallRecorder

	CreateMaterial(ctx context.Context, m models.Material) error
	ListMaterials(ctx context.Context) ([]models.Material, error)
	UpdateMaterialStatus(ctx context.Context, materialID, status, failReason string) error
	// DeleteMaterial removes the material with its chunks and questions.
	DeleteMaterial(ctx context.Context, materialID string) error

	// ReplaceChunks swaps a material's chunk set in one transaction.
	ReplaceChunks(ctx context.Context, materialID string, chunks []models.Chunk) error

	SaveQuestions(ctx context.Context, qs []models.GeneratedQuestion) error
	ListQuestions(ctx context.Context, materialID string) ([]models.GeneratedQuestion, error)

	Close() error
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend and applies its schema.
func Open(ctx context.Context, driver, dsn string, embedDim int) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite:
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		db, err := NewDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, embedDim); err != nil {
			db.Close()
			return nil, err
		}
		return NewPGStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
}

func correctAnswer(answers []string, idx int) string {
	if idx >= 0 && idx < len(answers) {
		return answers[idx]
	}
	return ""
}
