package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/prompts"
	"github.com/mehtasarang17/dockguard-ai/repository"

	"github.com/google/uuid"
)

const (
	MaxBatchDocuments       = 10
	checkFrameworksTopK     = 8
	checkFrameworksMaxToken = 6000
	defaultJobListLimit     = 50
)

// Step statuses
const (
	stepPending    = "pending"
	stepInProgress = "in_progress"
	stepCompleted  = "completed"
	stepFailed     = "failed"
)

// JobStore persists analysis jobs
type JobStore interface {
	Create(ctx context.Context, job *models.AnalysisJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	List(ctx context.Context, limit int) ([]*models.AnalysisJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.JobSteps) error
	SaveResult(ctx context.Context, id uuid.UUID, result models.JobResult) error
	Complete(ctx context.Context, id uuid.UUID, result models.JobResult, totalTokens int) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
	Cancel(ctx context.Context, id uuid.UUID, reason string) error
}

// TokenCounter accumulates tokens used across all jobs
type TokenCounter interface {
	AddLifetimeTokens(ctx context.Context, n int) (int64, error)
}

// AnalysisService runs single-document and batch analyses as background jobs
type AnalysisService struct {
	jobs       JobStore
	docs       DocumentStore
	analyzer   Analyzer
	batch      *BatchCoordinator
	frameworks *FrameworkService
	routers    RouterFactory
	tokens     TokenCounter

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithJobRepository sets the job store
func AnalysisWithJobRepository(jobs JobStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.jobs = jobs
	}
}

// AnalysisWithDocumentRepository sets the document store
func AnalysisWithDocumentRepository(docs DocumentStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.docs = docs
	}
}

// AnalysisWithAnalyzer sets the single-document pipeline
func AnalysisWithAnalyzer(a Analyzer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.analyzer = a
	}
}

// AnalysisWithBatchCoordinator sets the batch coordinator
func AnalysisWithBatchCoordinator(b *BatchCoordinator) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.batch = b
	}
}

// AnalysisWithFrameworkService sets the framework catalog and standards
func AnalysisWithFrameworkService(f *FrameworkService) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.frameworks = f
	}
}

// AnalysisWithRouters sets the router factory used by framework checks
func AnalysisWithRouters(routers RouterFactory) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.routers = routers
	}
}

// AnalysisWithTokenCounter sets the lifetime token counter
func AnalysisWithTokenCounter(tokens TokenCounter) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.tokens = tokens
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{running: make(map[uuid.UUID]context.CancelFunc)}
	for _, opt := range opts {
		opt(s)
	}
	if s.frameworks == nil {
		s.frameworks = NewFrameworkService()
	}
	return s
}

// AnalyzeRequest represents a single-document analysis request
type AnalyzeRequest struct {
	DocumentID uuid.UUID
	Frameworks []string
}

// StartAnalysis creates a pending single-document job. ProcessAnalysis does the work.
func (s *AnalysisService) StartAnalysis(ctx context.Context, req AnalyzeRequest) (*models.AnalysisJob, error) {
	doc, err := s.document(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	flags, err := s.resolveFrameworks(ctx, req.Frameworks)
	if err != nil {
		return nil, err
	}

	steps := make(models.JobSteps, 0, len(StageNames()))
	for _, name := range StageNames() {
		steps = append(steps, models.JobStep{Name: name, Status: stepPending})
	}

	job := &models.AnalysisJob{
		Kind:         models.JobKindSingle,
		DocumentIDs:  []uuid.UUID{doc.ID},
		DocumentType: doc.DocumentType,
		Frameworks:   flags,
		Status:       models.JobStatusPending,
		Steps:        steps,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create analysis job: %w", err)
	}
	return job, nil
}

// ProcessAnalysis runs a single-document job to completion.
// It runs in a goroutine; failures are stored on the job.
func (s *AnalysisService) ProcessAnalysis(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load analysis job: %w", err)
	}
	if len(job.DocumentIDs) != 1 {
		return s.fail(ctx, job, nil, fmt.Errorf("single analysis needs one document, got %d", len(job.DocumentIDs)))
	}
	doc, err := s.document(ctx, job.DocumentIDs[0])
	if err != nil {
		return s.fail(ctx, job, nil, err)
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	s.setDocumentStatus(ctx, models.DocumentStatusProcessing, doc.ID)

	steps := job.Steps
	s.markStep(ctx, jobID, steps, 0)

	result, err := s.analyzer.Run(ctx, RunRequest{
		DocumentID:   doc.ID,
		Text:         doc.ExtractedText,
		DocumentType: job.DocumentType,
		Frameworks:   job.Frameworks,
		Progress: func(step int, stage string, stageErr error) {
			if step-1 < len(steps) {
				steps[step-1].Status = stepCompleted
				if stageErr != nil {
					steps[step-1].Status = stepFailed
					steps[step-1].Description = stageErr.Error()
				}
			}
			s.markStep(ctx, jobID, steps, step)
		},
	})
	if err != nil {
		return s.fail(ctx, job, []uuid.UUID{doc.ID}, err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return s.fail(ctx, job, []uuid.UUID{doc.ID}, fmt.Errorf("failed to encode result: %w", err))
	}
	if err := s.jobs.Complete(ctx, jobID, models.JobResult(raw), result.TotalTokens); err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	s.setDocumentStatus(ctx, models.DocumentStatusCompleted, doc.ID)
	s.addTokens(ctx, result.TotalTokens)

	log.Printf("Analysis job %s completed: score=%d, %d stage errors", jobID, result.OverallScore, len(result.Errors))
	return nil
}

// BatchAnalyzeRequest represents a batch analysis request
type BatchAnalyzeRequest struct {
	DocumentIDs  []uuid.UUID
	DocumentType string
	Frameworks   []string
}

// StartBatch validates the document set and creates a pending batch job
func (s *AnalysisService) StartBatch(ctx context.Context, req BatchAnalyzeRequest) (*models.AnalysisJob, error) {
	ids := uniqueIDs(req.DocumentIDs)
	if len(ids) == 0 {
		return nil, ErrNoDocuments
	}
	if len(ids) > MaxBatchDocuments {
		return nil, fmt.Errorf("%w: %d given, at most %d", ErrTooManyDocuments, len(ids), MaxBatchDocuments)
	}

	docs, err := s.docs.GetByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	flags, err := s.resolveFrameworks(ctx, req.Frameworks)
	if err != nil {
		return nil, err
	}

	docType := req.DocumentType
	if docType == "" {
		docType = docs[0].DocumentType
	}

	steps := make(models.JobSteps, 0, len(docs)+2)
	for _, d := range docs {
		steps = append(steps, models.JobStep{Name: "analyze " + d.Filename, Status: stepPending})
	}
	steps = append(steps,
		models.JobStep{Name: PhaseCrossDocGaps, Status: stepPending},
		models.JobStep{Name: PhaseSynthesis, Status: stepPending},
	)

	job := &models.AnalysisJob{
		Kind:         models.JobKindBatch,
		DocumentIDs:  ids,
		DocumentType: NormalizeDocumentType(docType),
		Frameworks:   flags,
		Status:       models.JobStatusPending,
		Steps:        steps,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create batch job: %w", err)
	}
	return job, nil
}

// ProcessBatch runs a batch job. CancelJob stops it between documents.
func (s *AnalysisService) ProcessBatch(ctx context.Context, jobID uuid.UUID) error {
	// status writes must outlive a cancelled batch
	store := context.WithoutCancel(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.register(jobID, cancel)
	defer s.unregister(jobID)

	job, err := s.jobs.GetByID(store, jobID)
	if err != nil {
		return fmt.Errorf("failed to load batch job: %w", err)
	}
	if job.Status.Terminal() {
		return nil
	}
	docs, err := s.docs.GetByIDs(store, job.DocumentIDs)
	if err != nil {
		return s.fail(store, job, nil, err)
	}
	if ctx.Err() != nil {
		if err := s.jobs.Cancel(store, jobID, "cancelled before start"); err != nil {
			return fmt.Errorf("failed to mark batch cancelled: %w", err)
		}
		return nil
	}

	if err := s.jobs.UpdateStatus(store, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	s.setDocumentStatus(store, models.DocumentStatusProcessing, job.DocumentIDs...)

	batchDocs := make([]models.BatchDocument, len(docs))
	for i, d := range docs {
		batchDocs[i] = models.BatchDocument{ID: d.ID, Filename: d.Filename, Text: d.ExtractedText}
	}

	steps := job.Steps
	result, runErr := s.batch.RunBatch(ctx, BatchRequest{
		BatchID:      jobID,
		Documents:    batchDocs,
		DocumentType: job.DocumentType,
		Frameworks:   job.Frameworks,
		Progress: func(phase string, index, total int) {
			current := index - 1
			switch phase {
			case PhaseCrossDocGaps:
				current = len(batchDocs)
			case PhaseSynthesis:
				current = len(batchDocs) + 1
			}
			for i := 0; i < current && i < len(steps); i++ {
				steps[i].Status = stepCompleted
			}
			s.markStep(store, jobID, steps, current)
		},
	})

	raw, err := json.Marshal(result)
	if err != nil {
		return s.fail(store, job, job.DocumentIDs, fmt.Errorf("failed to encode batch result: %w", err))
	}

	if runErr != nil {
		if saveErr := s.jobs.SaveResult(store, jobID, models.JobResult(raw)); saveErr != nil {
			log.Printf("Warning: failed to save partial batch result %s: %v", jobID, saveErr)
		}
		if result != nil && result.Status == models.JobStatusCancelled {
			s.setDocumentStatus(store, models.DocumentStatusUploaded, job.DocumentIDs...)
			s.addTokens(store, sumTokens(result))
			if err := s.jobs.Cancel(store, jobID, runErr.Error()); err != nil {
				return fmt.Errorf("failed to mark batch cancelled: %w", err)
			}
			log.Printf("Batch job %s cancelled after %d documents", jobID, len(result.IndividualResults))
			return nil
		}
		return s.fail(store, job, job.DocumentIDs, runErr)
	}

	for i := range steps {
		steps[i].Status = stepCompleted
	}
	s.markStep(store, jobID, steps, len(steps))
	if err := s.jobs.Complete(store, jobID, models.JobResult(raw), result.TotalTokens); err != nil {
		return fmt.Errorf("failed to save batch result: %w", err)
	}
	s.setDocumentStatus(store, models.DocumentStatusCompleted, job.DocumentIDs...)
	s.addTokens(store, result.TotalTokens)
	return nil
}

// CancelJob stops a batch job between documents
func (s *AnalysisService) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Kind != models.JobKindBatch || job.Status.Terminal() {
		return ErrJobNotCancellable
	}

	// the lock is held across the write so a batch that starts now sees it
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.running[jobID]; ok {
		cancel()
		return nil
	}
	return s.jobs.Cancel(ctx, jobID, "cancelled before start")
}

// GetJob returns a job
func (s *AnalysisService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobs returns the most recent jobs
func (s *AnalysisService) ListJobs(ctx context.Context, limit int) ([]*models.AnalysisJob, error) {
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	return s.jobs.List(ctx, limit)
}

// CheckFrameworksRequest selects the frameworks to check. All selects the whole catalog.
type CheckFrameworksRequest struct {
	Frameworks []string
	All        bool
}

// CheckFrameworks maps a completed single-document analysis against more frameworks,
// one call per framework, and merges the mappings into the stored result
func (s *AnalysisService) CheckFrameworks(ctx context.Context, jobID uuid.UUID, req CheckFrameworksRequest) (map[string]models.FrameworkMapping, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Kind != models.JobKindSingle || job.Status != models.JobStatusCompleted || len(job.Result) == 0 {
		return nil, ErrAnalysisNotReady
	}

	catalog := s.frameworks.Catalog()
	keys := catalog.Keys()
	if !req.All {
		known, unknown := catalog.Filter(req.Frameworks)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFramework, unknown)
		}
		keys = known
	}
	if len(keys) == 0 {
		return nil, ErrNoFrameworks
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}
	doc, err := s.document(ctx, job.DocumentIDs[0])
	if err != nil {
		return nil, err
	}
	flags, err := s.frameworks.UploadedFlags(ctx, keys)
	if err != nil {
		return nil, err
	}
	if s.routers == nil {
		return nil, llm.ErrNoBackend
	}
	router, err := s.routers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create model router: %w", err)
	}

	checked := make(map[string]models.FrameworkMapping, len(keys))
	for _, key := range keys {
		checked[key] = s.checkFramework(ctx, router, doc, job.DocumentType, key, flags[key])
	}

	if result.FrameworkMappings == nil {
		result.FrameworkMappings = map[string]models.FrameworkMapping{}
	}
	for key, m := range checked {
		result.FrameworkMappings[key] = m
	}
	for _, key := range catalog.Keys() {
		if _, ok := result.FrameworkMappings[key]; !ok {
			result.FrameworkMappings[key] = models.NotEvaluatedMapping()
		}
	}

	in, out := router.Tokens()
	tokens := in + out
	result.InputTokens += in
	result.OutputTokens += out
	result.TotalTokens += tokens
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := s.jobs.SaveResult(ctx, jobID, models.JobResult(raw)); err != nil {
		return nil, fmt.Errorf("failed to save framework check: %w", err)
	}
	s.addTokens(ctx, tokens)

	log.Printf("Checked %d frameworks for job %s (%d tokens)", len(keys), jobID, tokens)
	return checked, nil
}

// checkFramework maps one framework. Failures are recorded on the mapping.
func (s *AnalysisService) checkFramework(ctx context.Context, router *llm.Router, doc *models.Document, docType, key string, uploaded bool) models.FrameworkMapping {
	source := models.SourceAIKnowledge
	prompt, version := "", ""
	if uploaded {
		sections, err := s.frameworks.SearchStandard(ctx, key, truncateRunes(doc.ExtractedText, frameworkQueryChars), checkFrameworksTopK)
		if err != nil {
			log.Printf("Warning: %s standard search failed, using model knowledge: %v", key, err)
		} else if len(sections) > 0 {
			source = models.SourceUploadedStandard
			version = sections[0].Version
			prompt = prompts.FrameworkComparison(doc.ExtractedText, docType, key, sections)
		}
	}
	if prompt == "" {
		prompt = prompts.SingleFramework(doc.ExtractedText, docType, key)
	}

	var m models.FrameworkMapping
	if err := router.InvokeJSON(ctx, llm.TierAccurate, prompt, &m, llm.WithMaxTokens(checkFrameworksMaxToken)); err != nil {
		log.Printf("Warning: framework check %s failed: %v", key, err)
		zero := 0.0
		return models.FrameworkMapping{
			AlignmentScore: &zero,
			MappedControls: []models.MappedControl{},
			Error:          err.Error(),
			Source:         source,
		}
	}
	m.Source = source
	if version != "" && m.StandardVersion == "" {
		m.StandardVersion = version
	}
	return m
}

// resolveFrameworks validates requested keys and flags those with an uploaded standard.
// No keys means the core frameworks.
func (s *AnalysisService) resolveFrameworks(ctx context.Context, requested []string) (map[string]bool, error) {
	keys := frameworks.CoreKeys
	if len(requested) > 0 {
		known, unknown := s.frameworks.Catalog().Filter(requested)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFramework, unknown)
		}
		keys = known
	}
	return s.frameworks.UploadedFlags(ctx, keys)
}

func (s *AnalysisService) document(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// markStep sets steps[current] in progress and persists the steps
func (s *AnalysisService) markStep(ctx context.Context, jobID uuid.UUID, steps models.JobSteps, current int) {
	name := ""
	if current < len(steps) {
		steps[current].Status = stepInProgress
		name = steps[current].Name
	}
	if err := s.jobs.UpdateProgress(ctx, jobID, name, steps); err != nil {
		log.Printf("Warning: failed to update progress of job %s: %v", jobID, err)
	}
}

func (s *AnalysisService) fail(ctx context.Context, job *models.AnalysisJob, docIDs []uuid.UUID, cause error) error {
	if err := s.jobs.Fail(ctx, job.ID, cause.Error()); err != nil {
		log.Printf("Warning: failed to mark job %s failed: %v", job.ID, err)
	}
	s.setDocumentStatus(ctx, models.DocumentStatusFailed, docIDs...)
	return cause
}

func (s *AnalysisService) setDocumentStatus(ctx context.Context, status models.DocumentStatus, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	if err := s.docs.UpdateStatus(ctx, status, ids...); err != nil {
		log.Printf("Warning: failed to set %d documents %s: %v", len(ids), status, err)
	}
}

func (s *AnalysisService) addTokens(ctx context.Context, n int) {
	if s.tokens == nil || n <= 0 {
		return
	}
	if _, err := s.tokens.AddLifetimeTokens(ctx, n); err != nil {
		log.Printf("Warning: failed to update lifetime tokens: %v", err)
	}
}

func (s *AnalysisService) register(jobID uuid.UUID, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[jobID] = cancel
}

func (s *AnalysisService) unregister(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, jobID)
}

func sumTokens(r *models.BatchResult) int {
	total := 0
	for _, ir := range r.IndividualResults {
		total += ir.Result.TotalTokens
	}
	return total
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
