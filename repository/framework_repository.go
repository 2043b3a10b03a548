package repository

import (
	"context"
	"errors"

	"github.com/mehtasarang17/dockguard-ai/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FrameworkRepository handles database operations for uploaded framework standards
type FrameworkRepository struct {
	db *pgxpool.Pool
}

// NewFrameworkRepository creates a new framework repository
func NewFrameworkRepository(db *pgxpool.Pool) *FrameworkRepository {
	return &FrameworkRepository{db: db}
}

// Upsert stores the standard for a framework key, replacing any previous upload
func (r *FrameworkRepository) Upsert(ctx context.Context, std *models.FrameworkStandard) error {
	query := `
		INSERT INTO framework_standards (
			id, framework_key, version, filename, storage_path, chunk_count
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (framework_key) DO UPDATE SET
			id = EXCLUDED.id,
			version = EXCLUDED.version,
			filename = EXCLUDED.filename,
			storage_path = EXCLUDED.storage_path,
			chunk_count = EXCLUDED.chunk_count,
			created_at = NOW()
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		std.ID,
		std.FrameworkKey,
		std.Version,
		std.Filename,
		std.StoragePath,
		std.ChunkCount,
	).Scan(&std.CreatedAt)
}

// GetByKey retrieves the standard uploaded for a framework key
func (r *FrameworkRepository) GetByKey(ctx context.Context, key string) (*models.FrameworkStandard, error) {
	std := &models.FrameworkStandard{}
	query := `
		SELECT id, framework_key, version, filename, storage_path, chunk_count, created_at
		FROM framework_standards
		WHERE framework_key = $1`

	err := r.db.QueryRow(ctx, query, key).Scan(
		&std.ID,
		&std.FrameworkKey,
		&std.Version,
		&std.Filename,
		&std.StoragePath,
		&std.ChunkCount,
		&std.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return std, nil
}

// List retrieves every uploaded standard keyed by framework key
func (r *FrameworkRepository) List(ctx context.Context) (map[string]*models.FrameworkStandard, error) {
	query := `
		SELECT id, framework_key, version, filename, storage_path, chunk_count, created_at
		FROM framework_standards
		ORDER BY framework_key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standards := make(map[string]*models.FrameworkStandard)
	for rows.Next() {
		std := &models.FrameworkStandard{}
		err := rows.Scan(
			&std.ID,
			&std.FrameworkKey,
			&std.Version,
			&std.Filename,
			&std.StoragePath,
			&std.ChunkCount,
			&std.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		standards[std.FrameworkKey] = std
	}

	return standards, rows.Err()
}

// Delete deletes the standard for a framework key
func (r *FrameworkRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM framework_standards WHERE framework_key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
