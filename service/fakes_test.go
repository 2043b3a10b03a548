package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/repository"

	"github.com/google/uuid"
)

// memDocuments mirrors DocumentRepository in memory
type memDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func newMemDocuments(docs ...*models.Document) *memDocuments {
	m := &memDocuments{docs: map[uuid.UUID]*models.Document{}}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memDocuments) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusUploaded
	}
	doc.CreatedAt = time.Now()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocuments) GetByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocuments) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Document, error) {
	out := make([]*models.Document, 0, len(ids))
	for _, id := range ids {
		d, err := m.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *memDocuments) List(_ context.Context) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Document, 0, len(m.docs))
	for _, d := range m.docs {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memDocuments) UpdateStatus(_ context.Context, status models.DocumentStatus, ids ...uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			d.Status = status
		}
	}
	return nil
}

func (m *memDocuments) SetInKnowledge(_ context.Context, id uuid.UUID, in bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.InKnowledge = in
	return nil
}

func (m *memDocuments) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memDocuments) status(id uuid.UUID) models.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].Status
}

// memJobs mirrors AnalysisJobRepository in memory
type memJobs struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*models.AnalysisJob
	progress []string
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[uuid.UUID]*models.AnalysisJob{}}
}

func (m *memJobs) Create(_ context.Context, job *models.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = uuid.New()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *memJobs) List(_ context.Context, limit int) ([]*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AnalysisJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobs) update(id uuid.UUID, fn func(j *models.AnalysisJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(j)
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobs) UpdateStatus(_ context.Context, id uuid.UUID, status models.JobStatus) error {
	return m.update(id, func(j *models.AnalysisJob) { j.Status = status })
}

func (m *memJobs) UpdateProgress(_ context.Context, id uuid.UUID, currentStep string, steps models.JobSteps) error {
	return m.update(id, func(j *models.AnalysisJob) {
		step := currentStep
		j.CurrentStep = &step
		j.Steps = append(models.JobSteps(nil), steps...)
		m.progress = append(m.progress, currentStep)
	})
}

func (m *memJobs) SaveResult(_ context.Context, id uuid.UUID, result models.JobResult) error {
	return m.update(id, func(j *models.AnalysisJob) { j.Result = result })
}

func (m *memJobs) Complete(_ context.Context, id uuid.UUID, result models.JobResult, totalTokens int) error {
	return m.update(id, func(j *models.AnalysisJob) {
		now := time.Now()
		j.Status = models.JobStatusCompleted
		j.Result = result
		j.TotalTokens = totalTokens
		j.CompletedAt = &now
	})
}

func (m *memJobs) Fail(_ context.Context, id uuid.UUID, errorMessage string) error {
	return m.update(id, func(j *models.AnalysisJob) {
		j.Status = models.JobStatusFailed
		j.ErrorMessage = &errorMessage
	})
}

func (m *memJobs) Cancel(_ context.Context, id uuid.UUID, reason string) error {
	return m.update(id, func(j *models.AnalysisJob) {
		j.Status = models.JobStatusCancelled
		j.ErrorMessage = &reason
	})
}

func cloneJob(j *models.AnalysisJob) *models.AnalysisJob {
	cp := *j
	cp.Steps = append(models.JobSteps(nil), j.Steps...)
	cp.DocumentIDs = append([]uuid.UUID(nil), j.DocumentIDs...)
	return &cp
}

// memSettings mirrors SettingsRepository in memory
type memSettings struct {
	mu       sync.Mutex
	provider string
	tokens   int64
}

func (m *memSettings) ActiveProvider(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider, nil
}

func (m *memSettings) SetActiveProvider(_ context.Context, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
	return nil
}

func (m *memSettings) AddLifetimeTokens(_ context.Context, n int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens += int64(n)
	return m.tokens, nil
}

func (m *memSettings) LifetimeTokens(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *memSettings) ResetLifetimeTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = 0
	return nil
}

// memStandards mirrors FrameworkRepository in memory
type memStandards struct {
	mu    sync.Mutex
	byKey map[string]*models.FrameworkStandard
}

func newMemStandards() *memStandards {
	return &memStandards{byKey: map[string]*models.FrameworkStandard{}}
}

func (m *memStandards) Upsert(_ context.Context, std *models.FrameworkStandard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	std.CreatedAt = time.Now()
	cp := *std
	m.byKey[std.FrameworkKey] = &cp
	return nil
}

func (m *memStandards) GetByKey(_ context.Context, key string) (*models.FrameworkStandard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	std, ok := m.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *std
	return &cp, nil
}

func (m *memStandards) List(context.Context) (map[string]*models.FrameworkStandard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*models.FrameworkStandard, len(m.byKey))
	for k, v := range m.byKey {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

func (m *memStandards) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byKey, key)
	return nil
}

// ctxJobs fails writes on a done context and runs onLoad once, during the first load
type ctxJobs struct {
	*memJobs
	onLoad func()
	loaded bool
}

func (c *ctxJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.onLoad != nil && !c.loaded {
		c.loaded = true
		c.onLoad()
	}
	return c.memJobs.GetByID(ctx, id)
}

func (c *ctxJobs) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memJobs.UpdateStatus(ctx, id, status)
}

func (c *ctxJobs) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memJobs.Fail(ctx, id, errorMessage)
}

func (c *ctxJobs) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memJobs.Cancel(ctx, id, reason)
}
