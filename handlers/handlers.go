// Package handlers exposes the analysis services over HTTP with gin.
// Every response uses the {"success", "data"} or {"success", "error": {"code", "message"}} envelope.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/service"
)

// DocumentManager stores uploaded documents
type DocumentManager interface {
	Upload(ctx context.Context, req service.UploadDocumentRequest) (*models.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Document, error)
	List(ctx context.Context) ([]*models.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AnalysisRunner creates and runs analysis jobs
type AnalysisRunner interface {
	StartAnalysis(ctx context.Context, req service.AnalyzeRequest) (*models.AnalysisJob, error)
	ProcessAnalysis(ctx context.Context, jobID uuid.UUID) error
	StartBatch(ctx context.Context, req service.BatchAnalyzeRequest) (*models.AnalysisJob, error)
	ProcessBatch(ctx context.Context, jobID uuid.UUID) error
	CancelJob(ctx context.Context, jobID uuid.UUID) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.AnalysisJob, error)
	CheckFrameworks(ctx context.Context, jobID uuid.UUID, req service.CheckFrameworksRequest) (map[string]models.FrameworkMapping, error)
}

// KnowledgeBase indexes saved documents for search
type KnowledgeBase interface {
	Save(ctx context.Context, id uuid.UUID, preset string) (*service.SaveResult, error)
	Unsave(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, topK int, exclude string) ([]models.ChunkHit, error)
	FullText(ctx context.Context, filename string) (string, error)
	Stats(ctx context.Context) (models.IndexStats, error)
	Sources(ctx context.Context) ([]models.SourceInfo, error)
}

// FrameworkManager serves the catalog and uploaded standards
type FrameworkManager interface {
	Catalog() *frameworks.Catalog
	Status(ctx context.Context) ([]models.FrameworkStatus, error)
	UploadStandard(ctx context.Context, req service.UploadStandardRequest) (*models.FrameworkStandard, error)
	DeleteStandard(ctx context.Context, key string) error
}

// SettingsManager switches providers and reports usage
type SettingsManager interface {
	Provider(ctx context.Context) service.ProviderInfo
	SetProvider(ctx context.Context, provider string) (service.ProviderInfo, error)
	ProviderStatus(ctx context.Context, provider string) (llm.ProviderStatus, error)
	LifetimeTokens(ctx context.Context) (int64, error)
	ResetLifetimeTokens(ctx context.Context) error
}

var (
	_ DocumentManager  = (*service.DocumentService)(nil)
	_ AnalysisRunner   = (*service.AnalysisService)(nil)
	_ KnowledgeBase    = (*service.KnowledgeService)(nil)
	_ FrameworkManager = (*service.FrameworkService)(nil)
	_ SettingsManager  = (*service.SettingsService)(nil)
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service errors to statuses; anything unknown is a 500 with code
func respondServiceError(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrStandardNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrUnsupportedFramework),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrNoDocuments),
		errors.Is(err, service.ErrTooManyDocuments),
		errors.Is(err, service.ErrNoFrameworks),
		errors.Is(err, llm.ErrUnknownProvider):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrJobNotCancellable),
		errors.Is(err, service.ErrAnalysisNotReady):
		respondError(c, http.StatusConflict, "CONFLICT", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, code, err.Error())
	}
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

var errInvalidSelection = errors.New(`frameworks must be a list of keys or "all"`)
