package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the processing status of an uploaded document
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded document entity
type Document struct {
	ID            uuid.UUID      `json:"id"`
	Filename      string         `json:"filename"`
	DocumentType  string         `json:"document_type"`
	MimeType      string         `json:"mime_type"`
	Size          int64          `json:"size"`
	StoragePath   string         `json:"storage_path"`
	ExtractedText string         `json:"-"`
	Status        DocumentStatus `json:"status"`
	InKnowledge   bool           `json:"in_knowledge_base"`
	CreatedAt     time.Time      `json:"created_at"`
}
