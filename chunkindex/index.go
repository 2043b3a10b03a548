// Package chunkindex chunks documents and serves similarity search over
// namespaced chunk collections.
package chunkindex

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/mehtasarang17/dockguard-ai/models"
)

// Index is a chunk collection bound to one namespace
type Index struct {
	namespace string
	store     Store
	embedder  Embedder
	defaults  []Option
}

// NewIndex binds namespace on store. opts set the default chunking for Add.
func NewIndex(namespace string, store Store, embedder Embedder, opts ...Option) *Index {
	return &Index{
		namespace: namespace,
		store:     store,
		embedder:  embedder,
		defaults:  opts,
	}
}

// Open creates the namespace if needed and returns its index
func Open(ctx context.Context, namespace string, store Store, embedder Embedder, opts ...Option) (*Index, error) {
	if err := store.EnsureNamespace(ctx, namespace); err != nil {
		return nil, retrievalErr("open", namespace, err)
	}
	return NewIndex(namespace, store, embedder, opts...), nil
}

// Namespace returns the bound namespace
func (x *Index) Namespace() string {
	return x.namespace
}

// Add chunks text and replaces every chunk previously stored for sourceID.
// It returns the number of chunks stored.
func (x *Index) Add(ctx context.Context, sourceID, label, text string, opts ...Option) (int, error) {
	chunker := NewChunker(append(append([]Option{}, x.defaults...), opts...)...)
	chunks := chunker.Split(text)

	var vectors [][]float32
	if len(chunks) > 0 {
		if x.embedder == nil {
			return 0, retrievalErr("add", x.namespace, ErrNoEmbedder)
		}
		v, err := x.embedder.Embed(ctx, chunks)
		if err != nil {
			return 0, retrievalErr("add", x.namespace, fmt.Errorf("embed chunks: %w", err))
		}
		if len(v) != len(chunks) {
			return 0, retrievalErr("add", x.namespace, fmt.Errorf("%w: want %d, got %d", ErrEmbeddingCount, len(chunks), len(v)))
		}
		vectors = v
	}

	records := make([]models.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.ChunkRecord{
			ID:         uuid.New(),
			Namespace:  x.namespace,
			SourceID:   sourceID,
			Label:      label,
			ChunkIndex: i,
			Text:       chunk,
			Embedding:  vectors[i],
		}
	}

	if err := x.store.Replace(ctx, x.namespace, sourceID, records); err != nil {
		return 0, retrievalErr("add", x.namespace, err)
	}

	log.Printf("Indexed %d chunks for %s (%s) in %s [size=%d, overlap=%d]",
		len(records), sourceID, label, x.namespace, chunker.ChunkSize(), chunker.Overlap())
	return len(records), nil
}

// Remove deletes every chunk of sourceID
func (x *Index) Remove(ctx context.Context, sourceID string) error {
	return retrievalErr("remove", x.namespace, x.store.DeleteSource(ctx, x.namespace, sourceID))
}

// Search returns up to topK chunks closest to query, most similar first.
// Chunks whose label equals excludeLabel are skipped.
func (x *Index) Search(ctx context.Context, query string, topK int, excludeLabel string) ([]models.ChunkHit, error) {
	if strings.TrimSpace(query) == "" || topK <= 0 {
		return []models.ChunkHit{}, nil
	}
	if x.embedder == nil {
		return nil, retrievalErr("search", x.namespace, ErrNoEmbedder)
	}

	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, retrievalErr("search", x.namespace, fmt.Errorf("embed query: %w", err))
	}
	if len(vectors) != 1 {
		return nil, retrievalErr("search", x.namespace, fmt.Errorf("%w: want 1, got %d", ErrEmbeddingCount, len(vectors)))
	}

	hits, err := x.store.Query(ctx, x.namespace, vectors[0], topK, excludeLabel)
	if err != nil {
		return nil, retrievalErr("search", x.namespace, err)
	}
	if hits == nil {
		hits = []models.ChunkHit{}
	}
	return hits, nil
}

// FullText rebuilds a document from its chunks, joined by newlines in sequence order
func (x *Index) FullText(ctx context.Context, label string) (string, error) {
	records, err := x.store.ListByLabel(ctx, x.namespace, label)
	if err != nil {
		return "", retrievalErr("full_text", x.namespace, err)
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n"), nil
}

// Count returns the number of chunks in the namespace
func (x *Index) Count(ctx context.Context) (int, error) {
	n, err := x.store.Count(ctx, x.namespace)
	if err != nil {
		return 0, retrievalErr("count", x.namespace, err)
	}
	return n, nil
}

// Sources lists the indexed sources
func (x *Index) Sources(ctx context.Context) ([]models.SourceInfo, error) {
	sources, err := x.store.Sources(ctx, x.namespace)
	if err != nil {
		return nil, retrievalErr("sources", x.namespace, err)
	}
	if sources == nil {
		sources = []models.SourceInfo{}
	}
	return sources, nil
}

// Stats returns document and chunk counts
func (x *Index) Stats(ctx context.Context) (models.IndexStats, error) {
	sources, err := x.Sources(ctx)
	if err != nil {
		return models.IndexStats{}, err
	}
	stats := models.IndexStats{Namespace: x.namespace, DocumentCount: len(sources)}
	for _, s := range sources {
		stats.ChunkCount += s.ChunkCount
	}
	return stats, nil
}

// Drop deletes the namespace and all its chunks
func (x *Index) Drop(ctx context.Context) error {
	return retrievalErr("drop", x.namespace, x.store.DropNamespace(ctx, x.namespace))
}
