package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of an analysis job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobKind distinguishes single-document runs from batches
type JobKind string

const (
	JobKindSingle JobKind = "single"
	JobKindBatch  JobKind = "batch"
)

// JobStep represents a step in the analysis process
type JobStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "failed"
	Description string `json:"description,omitempty"`
}

// JobSteps represents the ordered list of job steps
type JobSteps []JobStep

// Value implements driver.Valuer for JSONB
func (s JobSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *JobSteps) Scan(value interface{}) error {
	b, ok := jsonBytes(value)
	if !ok || len(b) == 0 {
		*s = make(JobSteps, 0)
		return nil
	}
	return json.Unmarshal(b, s)
}

// JobResult holds the JSON result of a job: an AnalysisResult or a BatchResult
type JobResult json.RawMessage

// Value implements driver.Valuer for JSONB
func (r JobResult) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return []byte(r), nil
}

// Scan implements sql.Scanner for JSONB
func (r *JobResult) Scan(value interface{}) error {
	b, ok := jsonBytes(value)
	if !ok || len(b) == 0 {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], b...)
	return nil
}

// MarshalJSON emits the stored document verbatim
func (r JobResult) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (r *JobResult) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// AnalysisJob represents a single or batch analysis job
type AnalysisJob struct {
	ID           uuid.UUID       `json:"id"`
	Kind         JobKind         `json:"kind"`
	DocumentIDs  []uuid.UUID     `json:"document_ids"`
	DocumentType string          `json:"document_type"`
	Frameworks   map[string]bool `json:"frameworks"`
	Status       JobStatus       `json:"status"`
	CurrentStep  *string         `json:"current_step,omitempty"`
	Steps        JobSteps        `json:"steps"`
	Result       JobResult       `json:"result,omitempty"`
	TotalTokens  int             `json:"total_tokens"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// jsonBytes handles the different types pgx and database/sql return for JSON columns
func jsonBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
