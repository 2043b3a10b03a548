package repository

import (
	"context"
	"errors"

	"github.com/mehtasarang17/dockguard-ai/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// DocumentRepository handles database operations for documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, filename, document_type, mime_type, size, storage_path,
	extracted_text, status, in_knowledge_base, created_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	doc := &models.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.DocumentType,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&doc.ExtractedText,
		&doc.Status,
		&doc.InKnowledge,
		&doc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Create creates a new document record
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.Status == "" {
		doc.Status = models.DocumentStatusUploaded
	}

	query := `
		INSERT INTO documents (
			id, filename, document_type, mime_type, size, storage_path, extracted_text, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.Filename,
		doc.DocumentType,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
		doc.ExtractedText,
		doc.Status,
	).Scan(&doc.CreatedAt)
}

// GetByID retrieves a document by ID, including its extracted text
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRow(ctx, query, id))
}

// GetByIDs retrieves documents in the order of ids; a missing id is an error
func (r *DocumentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docs := make([]*models.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// List retrieves all documents, newest first
func (r *DocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateStatus updates the processing status of documents
func (r *DocumentRepository) UpdateStatus(ctx context.Context, status models.DocumentStatus, ids ...uuid.UUID) error {
	query := `UPDATE documents SET status = $2 WHERE id = ANY($1)`
	_, err := r.db.Exec(ctx, query, ids, status)
	return err
}

// SetInKnowledge flags a document as saved to or removed from the knowledge base
func (r *DocumentRepository) SetInKnowledge(ctx context.Context, id uuid.UUID, in bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE documents SET in_knowledge_base = $2 WHERE id = $1`, id, in)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a document record
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
