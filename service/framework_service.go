package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/prompts"
	"github.com/mehtasarang17/dockguard-ai/repository"
	"github.com/mehtasarang17/dockguard-ai/storage"

	"github.com/google/uuid"
)

// Framework standard chunking
const (
	standardChunkSize    = 800
	standardChunkOverlap = 150
	standardNamespace    = "framework_"
)

// ErrStandardNotFound is returned when no standard is uploaded for a framework
var ErrStandardNotFound = errors.New("framework standard not found")

// FrameworkStandardStore persists uploaded standard records
type FrameworkStandardStore interface {
	Upsert(ctx context.Context, std *models.FrameworkStandard) error
	GetByKey(ctx context.Context, key string) (*models.FrameworkStandard, error)
	List(ctx context.Context) (map[string]*models.FrameworkStandard, error)
	Delete(ctx context.Context, key string) error
}

// FrameworkService manages the framework catalog and uploaded standard documents
type FrameworkService struct {
	catalog  *frameworks.Catalog
	repo     FrameworkStandardStore
	files    storage.Storage
	chunks   chunkindex.Store
	embedder chunkindex.Embedder
}

var _ StandardSearcher = (*FrameworkService)(nil)

// FrameworkServiceOption is a functional option for FrameworkService
type FrameworkServiceOption func(*FrameworkService)

// FrameworkWithCatalog sets the framework catalog
func FrameworkWithCatalog(catalog *frameworks.Catalog) FrameworkServiceOption {
	return func(s *FrameworkService) {
		s.catalog = catalog
	}
}

// FrameworkWithRepository sets the standard record store
func FrameworkWithRepository(repo FrameworkStandardStore) FrameworkServiceOption {
	return func(s *FrameworkService) {
		s.repo = repo
	}
}

// FrameworkWithStorage sets the file storage for standard documents
func FrameworkWithStorage(files storage.Storage) FrameworkServiceOption {
	return func(s *FrameworkService) {
		s.files = files
	}
}

// FrameworkWithChunkStore sets the chunk store and the embedder used for standards
func FrameworkWithChunkStore(store chunkindex.Store, embedder chunkindex.Embedder) FrameworkServiceOption {
	return func(s *FrameworkService) {
		s.chunks = store
		s.embedder = embedder
	}
}

// NewFrameworkService creates a new framework service
func NewFrameworkService(opts ...FrameworkServiceOption) *FrameworkService {
	s := &FrameworkService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = frameworks.Default()
	}
	return s
}

// Catalog returns the framework catalog
func (s *FrameworkService) Catalog() *frameworks.Catalog {
	return s.catalog
}

// UploadStandardRequest represents a standard document upload
type UploadStandardRequest struct {
	FrameworkKey string
	Version      string
	Filename     string
	Content      []byte
}

// UploadStandard stores and indexes the standard for a framework, replacing any earlier upload
func (s *FrameworkService) UploadStandard(ctx context.Context, req UploadStandardRequest) (*models.FrameworkStandard, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(req.FrameworkKey)
	if !s.catalog.Has(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFramework, key)
	}
	text, err := DecodeText(req.Filename, req.Content)
	if err != nil {
		return nil, err
	}

	previous, err := s.repo.GetByKey(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load existing standard: %w", err)
	}

	std := &models.FrameworkStandard{
		ID:           uuid.New(),
		FrameworkKey: key,
		Version:      strings.TrimSpace(req.Version),
		Filename:     filepath.Base(req.Filename),
	}

	std.StoragePath, err = s.files.Upload(ctx, storage.PrefixFrameworks, std.ID, std.Filename, bytes.NewReader(req.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to store standard: %w", err)
	}

	idx := s.index(key)
	// one standard per framework: the key is the source id, so re-upload replaces the chunks
	std.ChunkCount, err = idx.Add(ctx, key, std.Filename, text)
	if err != nil {
		s.removeFile(ctx, std.StoragePath)
		return nil, fmt.Errorf("failed to index standard: %w", err)
	}

	if err := s.repo.Upsert(ctx, std); err != nil {
		return nil, fmt.Errorf("failed to save standard: %w", err)
	}

	if previous != nil && previous.StoragePath != std.StoragePath {
		s.removeFile(ctx, previous.StoragePath)
	}
	log.Printf("Indexed %s standard %s v%s: %d chunks", key, std.Filename, std.Version, std.ChunkCount)
	return std, nil
}

// DeleteStandard removes the chunks, the file and the record of a framework's standard
func (s *FrameworkService) DeleteStandard(ctx context.Context, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	std, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStandardNotFound
		}
		return err
	}

	if err := s.index(key).Drop(ctx); err != nil {
		return fmt.Errorf("failed to remove standard chunks: %w", err)
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	s.removeFile(ctx, std.StoragePath)
	log.Printf("Deleted %s standard %s", key, std.Filename)
	return nil
}

// Status reports, for every catalog framework, whether a standard is uploaded
func (s *FrameworkService) Status(ctx context.Context) ([]models.FrameworkStatus, error) {
	uploaded, err := s.standards(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.FrameworkStatus
	for _, region := range s.catalog.Regions() {
		for _, fw := range region.Frameworks {
			std := uploaded[fw.Key]
			out = append(out, models.FrameworkStatus{
				Key:      fw.Key,
				Name:     fw.Name,
				Region:   region.Name,
				Uploaded: std != nil,
				Standard: std,
			})
		}
	}
	return out, nil
}

// UploadedFlags maps each key to whether a standard is uploaded for it
func (s *FrameworkService) UploadedFlags(ctx context.Context, keys []string) (map[string]bool, error) {
	uploaded, err := s.standards(ctx)
	if err != nil {
		return nil, err
	}
	flags := make(map[string]bool, len(keys))
	for _, k := range keys {
		flags[k] = uploaded[k] != nil
	}
	return flags, nil
}

// SearchStandard retrieves the excerpts of key's standard closest to query
func (s *FrameworkService) SearchStandard(ctx context.Context, key, query string, topK int) ([]prompts.StandardSection, error) {
	if s.chunks == nil || s.repo == nil {
		return nil, nil
	}
	std, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	hits, err := s.index(key).Search(ctx, query, topK, "")
	if err != nil {
		return nil, err
	}
	sections := make([]prompts.StandardSection, len(hits))
	for i, h := range hits {
		sections[i] = prompts.StandardSection{Source: h.Label, Version: std.Version, Text: h.Text}
	}
	return sections, nil
}

func (s *FrameworkService) standards(ctx context.Context) (map[string]*models.FrameworkStandard, error) {
	if s.repo == nil {
		return map[string]*models.FrameworkStandard{}, nil
	}
	return s.repo.List(ctx)
}

func (s *FrameworkService) index(key string) *chunkindex.Index {
	return chunkindex.NewIndex(standardNamespace+key, s.chunks, s.embedder,
		chunkindex.WithChunkSize(standardChunkSize), chunkindex.WithOverlap(standardChunkOverlap))
}

func (s *FrameworkService) ready() error {
	switch {
	case s.repo == nil:
		return errors.New("framework repository not set")
	case s.files == nil:
		return errors.New("storage not set")
	case s.chunks == nil || s.embedder == nil:
		return errors.New("chunk store not set")
	}
	return nil
}

func (s *FrameworkService) removeFile(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		log.Printf("Warning: failed to delete file %s: %v", path, err)
	}
}

// Accepted upload extensions
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// DecodeText validates an upload's extension and returns its UTF-8 text
func DecodeText(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !textExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", ErrUnsupportedFileType, filename)
	}
	return string(content), nil
}
