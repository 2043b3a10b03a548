package chunkindex

import (
	"context"
	"math"

	"github.com/mehtasarang17/dockguard-ai/models"
)

// Embedder turns texts into vectors, one per text, in order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists chunk records grouped by namespace.
//
// Replace must delete the source's previous records and insert the new ones
// atomically, so a concurrent Query never sees the source missing.
// Query orders hits by distance ascending, ties by insertion order.
type Store interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	Replace(ctx context.Context, namespace, sourceID string, records []models.ChunkRecord) error
	DeleteSource(ctx context.Context, namespace, sourceID string) error
	Query(ctx context.Context, namespace string, embedding []float32, topK int, excludeLabel string) ([]models.ChunkHit, error)
	ListByLabel(ctx context.Context, namespace, label string) ([]models.ChunkRecord, error)
	Count(ctx context.Context, namespace string) (int, error)
	Sources(ctx context.Context, namespace string) ([]models.SourceInfo, error)
	DropNamespace(ctx context.Context, namespace string) error
}

// CosineDistance returns 1 - cosine similarity. Zero vectors are at distance 1.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, x := range b {
		nb += float64(x) * float64(x)
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
