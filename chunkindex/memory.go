package chunkindex

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mehtasarang17/dockguard-ai/models"
)

type memoryRecord struct {
	models.ChunkRecord
	seq       int64
	indexedAt time.Time
}

// MemoryStore keeps chunks in process memory.
// It backs transient namespaces and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string][]memoryRecord
	seq        int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string][]memoryRecord)}
}

// EnsureNamespace creates namespace if it does not exist
func (s *MemoryStore) EnsureNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.namespaces[namespace]; !ok {
		s.namespaces[namespace] = nil
	}
	return nil
}

// Replace swaps the records of sourceID under one lock
func (s *MemoryStore) Replace(_ context.Context, namespace, sourceID string, records []models.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.without(namespace, sourceID)
	now := time.Now()
	for _, r := range records {
		s.seq++
		r.Namespace = namespace
		r.SourceID = sourceID
		kept = append(kept, memoryRecord{ChunkRecord: r, seq: s.seq, indexedAt: now})
	}
	s.namespaces[namespace] = kept
	return nil
}

// DeleteSource removes every record of sourceID
func (s *MemoryStore) DeleteSource(_ context.Context, namespace, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.namespaces[namespace]; ok {
		s.namespaces[namespace] = s.without(namespace, sourceID)
	}
	return nil
}

func (s *MemoryStore) without(namespace, sourceID string) []memoryRecord {
	current := s.namespaces[namespace]
	kept := make([]memoryRecord, 0, len(current))
	for _, r := range current {
		if r.SourceID != sourceID {
			kept = append(kept, r)
		}
	}
	return kept
}

// Query ranks records by cosine distance, ties by insertion order
func (s *MemoryStore) Query(_ context.Context, namespace string, embedding []float32, topK int, excludeLabel string) ([]models.ChunkHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		rec      memoryRecord
		distance float64
	}
	var candidates []scored
	for _, r := range s.namespaces[namespace] {
		if excludeLabel != "" && r.Label == excludeLabel {
			continue
		}
		candidates = append(candidates, scored{rec: r, distance: CosineDistance(embedding, r.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].rec.seq < candidates[j].rec.seq
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	hits := make([]models.ChunkHit, len(candidates))
	for i, c := range candidates {
		hits[i] = models.ChunkHit{
			Text:       c.rec.Text,
			SourceID:   c.rec.SourceID,
			Label:      c.rec.Label,
			ChunkIndex: c.rec.ChunkIndex,
			Distance:   c.distance,
		}
	}
	return hits, nil
}

// ListByLabel returns the records of label in insertion order
func (s *MemoryStore) ListByLabel(_ context.Context, namespace, label string) ([]models.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ChunkRecord
	for _, r := range s.namespaces[namespace] {
		if r.Label == label {
			out = append(out, r.ChunkRecord)
		}
	}
	return out, nil
}

// Count returns the number of records in namespace
func (s *MemoryStore) Count(_ context.Context, namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace]), nil
}

// Sources summarizes namespace per source, in first-insertion order
func (s *MemoryStore) Sources(_ context.Context, namespace string) ([]models.SourceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	var out []models.SourceInfo
	for _, r := range s.namespaces[namespace] {
		i, ok := index[r.SourceID]
		if !ok {
			i = len(out)
			index[r.SourceID] = i
			out = append(out, models.SourceInfo{SourceID: r.SourceID, Label: r.Label, IndexedAt: r.indexedAt})
		}
		out[i].ChunkCount++
	}
	return out, nil
}

// DropNamespace removes namespace entirely
func (s *MemoryStore) DropNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Namespaces lists the namespaces currently held
func (s *MemoryStore) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.namespaces))
	for ns := range s.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
