package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/repository"
	"github.com/mehtasarang17/dockguard-ai/storage"

	"github.com/google/uuid"
)

// DefaultDocumentType is used when an upload names no type
const DefaultDocumentType = "policy"

var documentTypes = map[string]bool{
	"policy":          true,
	"contract":        true,
	"procedure":       true,
	"security_policy": true,
	"compliance":      true,
	"privacy":         true,
	"hr":              true,
	"it":              true,
	"other":           true,
}

// NormalizeDocumentType maps an empty or unknown type to the default
func NormalizeDocumentType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if documentTypes[t] {
		return t
	}
	return DefaultDocumentType
}

// DocumentStore persists uploaded documents
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Document, error)
	List(ctx context.Context) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, status models.DocumentStatus, ids ...uuid.UUID) error
	SetInKnowledge(ctx context.Context, id uuid.UUID, in bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentService handles document uploads
type DocumentService struct {
	repo      DocumentStore
	files     storage.Storage
	knowledge *KnowledgeService
}

// DocumentServiceOption is a functional option for DocumentService
type DocumentServiceOption func(*DocumentService)

// DocumentWithRepository sets the document repository
func DocumentWithRepository(repo DocumentStore) DocumentServiceOption {
	return func(s *DocumentService) {
		s.repo = repo
	}
}

// DocumentWithStorage sets the file storage
func DocumentWithStorage(files storage.Storage) DocumentServiceOption {
	return func(s *DocumentService) {
		s.files = files
	}
}

// DocumentWithKnowledgeService sets the knowledge base, cleaned up on delete
func DocumentWithKnowledgeService(kb *KnowledgeService) DocumentServiceOption {
	return func(s *DocumentService) {
		s.knowledge = kb
	}
}

// NewDocumentService creates a new document service
func NewDocumentService(opts ...DocumentServiceOption) *DocumentService {
	s := &DocumentService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadDocumentRequest represents a document upload
type UploadDocumentRequest struct {
	Filename     string
	DocumentType string
	Content      []byte
}

// Upload validates, stores and records a document. Text is extracted once, here.
func (s *DocumentService) Upload(ctx context.Context, req UploadDocumentRequest) (*models.Document, error) {
	if s.repo == nil || s.files == nil {
		return nil, errors.New("document service not configured")
	}
	text, err := DecodeText(req.Filename, req.Content)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:            uuid.New(),
		Filename:      filepath.Base(req.Filename),
		DocumentType:  NormalizeDocumentType(req.DocumentType),
		MimeType:      storage.ContentType(req.Filename),
		Size:          int64(len(req.Content)),
		ExtractedText: text,
		Status:        models.DocumentStatusUploaded,
	}

	doc.StoragePath, err = s.files.Upload(ctx, storage.PrefixDocuments, doc.ID, doc.Filename, bytes.NewReader(req.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.files.Delete(ctx, doc.StoragePath); delErr != nil {
			log.Printf("Warning: failed to clean up %s: %v", doc.StoragePath, delErr)
		}
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	return doc, nil
}

// Get returns a document
func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns every document, newest first
func (s *DocumentService) List(ctx context.Context) ([]*models.Document, error) {
	return s.repo.List(ctx)
}

// Delete removes a document with its knowledge base chunks and stored file
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if doc.InKnowledge && s.knowledge != nil {
		if err := s.knowledge.Unsave(ctx, id); err != nil {
			log.Printf("Warning: failed to remove %s from knowledge base: %v", doc.Filename, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if err := s.files.Delete(ctx, doc.StoragePath); err != nil {
		log.Printf("Warning: failed to delete file %s: %v", doc.StoragePath, err)
	}
	return nil
}
