package models

import (
	"time"

	"github.com/google/uuid"
)

// FrameworkStandard represents an uploaded framework standard document
type FrameworkStandard struct {
	ID           uuid.UUID `json:"id"`
	FrameworkKey string    `json:"framework_key"`
	Version      string    `json:"version"`
	Filename     string    `json:"filename"`
	StoragePath  string    `json:"storage_path"`
	ChunkCount   int       `json:"chunk_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// FrameworkStatus reports whether a catalog framework has an uploaded standard
type FrameworkStatus struct {
	Key      string             `json:"key"`
	Name     string             `json:"name"`
	Region   string             `json:"region"`
	Uploaded bool               `json:"uploaded"`
	Standard *FrameworkStandard `json:"standard,omitempty"`
}
