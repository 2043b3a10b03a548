package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/repository"

	"github.com/google/uuid"
)

const (
	knowledgeNamespace     = "knowledge_base"
	defaultKnowledgeTopK   = 5
	maxKnowledgeTopK       = 50
	defaultKnowledgePreset = "medium"
)

// KnowledgeService keeps saved documents searchable in the knowledge base namespace
type KnowledgeService struct {
	docs  DocumentStore
	index *chunkindex.Index
}

// NewKnowledgeService creates a knowledge service over store
func NewKnowledgeService(docs DocumentStore, store chunkindex.Store, embedder chunkindex.Embedder) *KnowledgeService {
	return &KnowledgeService{
		docs:  docs,
		index: chunkindex.NewIndex(knowledgeNamespace, store, embedder),
	}
}

// SaveResult reports how a document was indexed
type SaveResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	Preset     string    `json:"preset"`
}

// Save indexes a document with a chunking preset (small, medium or large)
func (s *KnowledgeService) Save(ctx context.Context, id uuid.UUID, preset string) (*SaveResult, error) {
	doc, err := s.document(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return nil, fmt.Errorf("document %s has no text", doc.Filename)
	}

	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		preset = defaultKnowledgePreset
	}
	n, err := s.index.Add(ctx, id.String(), doc.Filename, doc.ExtractedText, chunkindex.WithPreset(preset))
	if err != nil {
		return nil, err
	}
	if err := s.docs.SetInKnowledge(ctx, id, true); err != nil {
		return nil, err
	}

	log.Printf("Saved %s to knowledge base: %d chunks (%s)", doc.Filename, n, preset)
	return &SaveResult{DocumentID: id, Filename: doc.Filename, ChunkCount: n, Preset: preset}, nil
}

// Unsave removes a document's chunks from the knowledge base
func (s *KnowledgeService) Unsave(ctx context.Context, id uuid.UUID) error {
	if _, err := s.document(ctx, id); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, id.String()); err != nil {
		return err
	}
	return s.docs.SetInKnowledge(ctx, id, false)
}

// Search returns the chunks closest to query. exclude drops one filename from the results.
func (s *KnowledgeService) Search(ctx context.Context, query string, topK int, exclude string) ([]models.ChunkHit, error) {
	if topK <= 0 {
		topK = defaultKnowledgeTopK
	}
	if topK > maxKnowledgeTopK {
		topK = maxKnowledgeTopK
	}
	return s.index.Search(ctx, query, topK, exclude)
}

// FullText reassembles a saved document from its chunks
func (s *KnowledgeService) FullText(ctx context.Context, filename string) (string, error) {
	text, err := s.index.FullText(ctx, filename)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrDocumentNotFound
	}
	return text, nil
}

// Stats returns document and chunk counts
func (s *KnowledgeService) Stats(ctx context.Context) (models.IndexStats, error) {
	return s.index.Stats(ctx)
}

// Sources lists the saved documents
func (s *KnowledgeService) Sources(ctx context.Context) ([]models.SourceInfo, error) {
	return s.index.Sources(ctx)
}

func (s *KnowledgeService) document(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}
