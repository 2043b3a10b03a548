package models

import (
	"time"

	"github.com/google/uuid"
)

// ChunkRecord is one stored chunk of a source document inside a namespace
type ChunkRecord struct {
	ID         uuid.UUID `json:"id"`
	Namespace  string    `json:"namespace"`
	SourceID   string    `json:"source_id"`
	Label      string    `json:"label"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}

// ChunkHit is a search result
type ChunkHit struct {
	Text       string  `json:"text"`
	SourceID   string  `json:"source_id"`
	Label      string  `json:"label"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"` // Vector similarity distance
}

// SourceInfo summarizes one indexed source
type SourceInfo struct {
	SourceID   string    `json:"source_id"`
	Label      string    `json:"label"`
	ChunkCount int       `json:"chunk_count"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// IndexStats summarizes a namespace
type IndexStats struct {
	Namespace     string `json:"namespace"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}
