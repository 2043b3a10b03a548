package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository stores chunks in Postgres with pgvector
type ChunkRepository struct {
	db         *pgxpool.Pool
	dimensions int
}

var _ chunkindex.Store = (*ChunkRepository)(nil)

// NewChunkRepository creates a new chunk repository.
// dimensions must match the vector column; 0 selects 768.
func NewChunkRepository(db *pgxpool.Pool, dimensions int) *ChunkRepository {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &ChunkRepository{db: db, dimensions: dimensions}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (r *ChunkRepository) checkDimensions(embedding []float32) error {
	if len(embedding) != r.dimensions {
		return fmt.Errorf("embedding must be %d dimensions, got %d", r.dimensions, len(embedding))
	}
	return nil
}

// EnsureNamespace registers namespace
func (r *ChunkRepository) EnsureNamespace(ctx context.Context, namespace string) error {
	query := `
		INSERT INTO chunk_namespaces (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, namespace); err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	return nil
}

// Replace deletes the chunks of sourceID and inserts records in one transaction
func (r *ChunkRepository) Replace(ctx context.Context, namespace, sourceID string, records []models.ChunkRecord) error {
	for _, rec := range records {
		if err := r.checkDimensions(rec.Embedding); err != nil {
			return err
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO chunk_namespaces (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING`, namespace); err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE namespace = $1 AND source_id = $2`, namespace, sourceID); err != nil {
		return fmt.Errorf("failed to delete existing chunks: %w", err)
	}

	insert := `
		INSERT INTO chunks (
			id, namespace, source_id, label, chunk_index, chunk_text, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7::vector)`

	for _, rec := range records {
		_, err := tx.Exec(ctx, insert,
			rec.ID,
			namespace,
			sourceID,
			rec.Label,
			rec.ChunkIndex,
			rec.Text,
			formatVector(rec.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", rec.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteSource deletes every chunk of sourceID
func (r *ChunkRepository) DeleteSource(ctx context.Context, namespace, sourceID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE namespace = $1 AND source_id = $2`, namespace, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Query performs a vector search within namespace.
// Equal distances keep insertion order through the seq column.
func (r *ChunkRepository) Query(
	ctx context.Context,
	namespace string,
	embedding []float32,
	topK int,
	excludeLabel string,
) ([]models.ChunkHit, error) {
	if err := r.checkDimensions(embedding); err != nil {
		return nil, err
	}

	query := `
		SELECT
			chunk_text,
			source_id,
			label,
			chunk_index,
			embedding <=> $2::vector AS distance
		FROM chunks
		WHERE
			namespace = $1
			AND ($3 = '' OR label <> $3)
		ORDER BY
			distance, seq
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, namespace, formatVector(embedding), excludeLabel, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var hits []models.ChunkHit
	for rows.Next() {
		var hit models.ChunkHit
		err := rows.Scan(
			&hit.Text,
			&hit.SourceID,
			&hit.Label,
			&hit.ChunkIndex,
			&hit.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return hits, nil
}

// ListByLabel returns the chunks of label in sequence order
func (r *ChunkRepository) ListByLabel(ctx context.Context, namespace, label string) ([]models.ChunkRecord, error) {
	query := `
		SELECT id, namespace, source_id, label, chunk_index, chunk_text
		FROM chunks
		WHERE namespace = $1 AND label = $2
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, namespace, label)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var records []models.ChunkRecord
	for rows.Next() {
		var rec models.ChunkRecord
		if err := rows.Scan(&rec.ID, &rec.Namespace, &rec.SourceID, &rec.Label, &rec.ChunkIndex, &rec.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the number of chunks in namespace
func (r *ChunkRepository) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE namespace = $1`, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Sources summarizes namespace per source
func (r *ChunkRepository) Sources(ctx context.Context, namespace string) ([]models.SourceInfo, error) {
	query := `
		SELECT source_id, MIN(label), COUNT(*), MIN(created_at)
		FROM chunks
		WHERE namespace = $1
		GROUP BY source_id
		ORDER BY MIN(seq)`

	rows, err := r.db.Query(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []models.SourceInfo
	for rows.Next() {
		var s models.SourceInfo
		if err := rows.Scan(&s.SourceID, &s.Label, &s.ChunkCount, &s.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}

	return sources, rows.Err()
}

// DropNamespace deletes namespace and its chunks
func (r *ChunkRepository) DropNamespace(ctx context.Context, namespace string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE namespace = $1`, namespace); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chunk_namespaces WHERE name = $1`, namespace); err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}

	return tx.Commit(ctx)
}
