package storage

import (
	"context"
	"errors"
	"fmt"

	"studyrag/internal/models"
	"studyrag/internal/util"

	"github.com/jackc/pgx/v5"
)

type MaterialRepo struct {
	db *DB
}

func NewMaterialRepo(db *DB) *MaterialRepo {
	return &MaterialRepo{db: db}
}

func (r *MaterialRepo) Create(ctx context.Context, m models.Material) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO materials (material_id, title, description, file_type, file_path, file_size, status, fail_reason)
VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, $7, NULLIF($8,''))`,
		m.MaterialID, m.Title, m.Description, m.FileType, m.FilePath, m.FileSize, m.Status, m.FailReason,
	)
	if err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

func (r *MaterialRepo) UpdateStatus(ctx context.Context, materialID, status, failReason string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE materials SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE material_id=$1`, materialID, status, failReason)
	if err != nil {
		return fmt.Errorf("update material status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", util.ErrMaterialNotFound, materialID)
	}
	return nil
}

const materialColumns = `material_id, title, COALESCE(description,''), file_type, file_path, file_size,
       status, COALESCE(fail_reason,''), created_at, updated_at`

func scanMaterial(row pgx.Row) (models.Material, error) {
	var m models.Material
	err := row.Scan(&m.MaterialID, &m.Title, &m.Description, &m.FileType, &m.FilePath, &m.FileSize,
		&m.Status, &m.FailReason, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *MaterialRepo) Get(ctx context.Context, materialID string) (models.Material, error) {
	m, err := scanMaterial(r.db.Pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE material_id=$1`, materialID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Material{}, fmt.Errorf("%w: %s", util.ErrMaterialNotFound, materialID)
	}
	if err != nil {
		return models.Material{}, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

func (r *MaterialRepo) List(ctx context.Context) ([]models.Material, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()
	out := make([]models.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
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

func (r *MaterialRepo) Delete(ctx context.Context, materialID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM materials WHERE material_id=$1`, materialID)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", util.ErrMaterialNotFound, materialID)
	}
	return nil
}
