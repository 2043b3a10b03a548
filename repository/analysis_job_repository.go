package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mehtasarang17/dockguard-ai/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisJobRepository handles database operations for analysis jobs
type AnalysisJobRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisJobRepository creates a new analysis job repository
func NewAnalysisJobRepository(db *pgxpool.Pool) *AnalysisJobRepository {
	return &AnalysisJobRepository{db: db}
}

const jobColumns = `id, kind, document_ids, document_type, frameworks, status, current_step, steps,
	result, total_tokens, error_message, created_at, updated_at, completed_at`

func scanJob(row pgx.Row) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{}
	err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.DocumentIDs,
		&job.DocumentType,
		&job.Frameworks,
		&job.Status,
		&job.CurrentStep,
		&job.Steps,
		&job.Result,
		&job.TotalTokens,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Ensure Steps is never nil (safeguard in case Scan didn't handle NULL properly)
	if job.Steps == nil {
		job.Steps = make(models.JobSteps, 0)
	}
	if job.Frameworks == nil {
		job.Frameworks = map[string]bool{}
	}
	return job, nil
}

// Create creates a new analysis job
func (r *AnalysisJobRepository) Create(ctx context.Context, job *models.AnalysisJob) error {
	if job.Frameworks == nil {
		job.Frameworks = map[string]bool{}
	}

	query := `
		INSERT INTO analysis_jobs (
			kind, document_ids, document_type, frameworks, status, current_step, steps, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		job.Kind,
		job.DocumentIDs,
		job.DocumentType,
		job.Frameworks,
		job.Status,
		job.CurrentStep,
		job.Steps,
		job.ErrorMessage,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
}

// GetByID retrieves an analysis job by ID
func (r *AnalysisJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id = $1`
	return scanJob(r.db.QueryRow(ctx, query, id))
}

// List retrieves the most recent jobs, newest first
func (r *AnalysisJobRepository) List(ctx context.Context, limit int) ([]*models.AnalysisJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// UpdateStatus updates the status of an analysis job
func (r *AnalysisJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateProgress updates the progress of an analysis job
func (r *AnalysisJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.JobSteps) error {
	query := `
		UPDATE analysis_jobs SET
			current_step = $2,
			steps = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentStep, steps)
	return err
}

// SaveResult replaces the stored result without changing the status
func (r *AnalysisJobRepository) SaveResult(ctx context.Context, id uuid.UUID, result models.JobResult) error {
	query := `
		UPDATE analysis_jobs SET
			result = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, result)
	return err
}

// Complete marks an analysis job as completed and stores its result
func (r *AnalysisJobRepository) Complete(ctx context.Context, id uuid.UUID, result models.JobResult, totalTokens int) error {
	now := time.Now()
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			result = $3,
			total_tokens = $4,
			completed_at = $5,
			updated_at = $5
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusCompleted, result, totalTokens, now)
	return err
}

// Fail marks an analysis job as failed
func (r *AnalysisJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return r.finish(ctx, id, models.JobStatusFailed, errorMessage)
}

// Cancel marks an analysis job as cancelled
func (r *AnalysisJobRepository) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	return r.finish(ctx, id, models.JobStatusCancelled, reason)
}

func (r *AnalysisJobRepository) finish(ctx context.Context, id uuid.UUID, status models.JobStatus, message string) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			error_message = $3,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status, message)
	return err
}
