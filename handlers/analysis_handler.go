package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mehtasarang17/dockguard-ai/service"
)

// AnalysisHandler handles HTTP requests for analysis jobs
type AnalysisHandler struct {
	analysis AnalysisRunner
	// background runs job processing; tests replace it to run synchronously
	background func(fn func(ctx context.Context))
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysis AnalysisRunner) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		background: func(fn func(ctx context.Context)) {
			// Use background context (not request context) to avoid cancellation
			go fn(context.Background())
		},
	}
}

// AnalyzeRequest represents the optional body of a single-document analysis
type AnalyzeRequest struct {
	Frameworks []string `json:"frameworks"`
}

// AnalyzeDocument handles POST /api/documents/:id/analyze
func (h *AnalysisHandler) AnalyzeDocument(c *gin.Context) {
	id, ok := parseID(c, "document")
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Create job (synchronous, fast)
	job, err := h.analysis.StartAnalysis(c.Request.Context(), service.AnalyzeRequest{
		DocumentID: id,
		Frameworks: req.Frameworks,
	})
	if err != nil {
		respondServiceError(c, err, "ANALYSIS_FAILED")
		return
	}

	h.background(func(ctx context.Context) {
		if err := h.analysis.ProcessAnalysis(ctx, job.ID); err != nil {
			// stored in job.ErrorMessage; clients poll for it
			log.Printf("Analysis job %s failed: %v", job.ID, err)
		}
	})

	respondOK(c, http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Analysis job created. Poll /api/jobs/:id for updates.",
	})
}

// BatchAnalyzeRequest represents the body of a batch analysis
type BatchAnalyzeRequest struct {
	DocumentIDs  []string `json:"document_ids" binding:"required"`
	DocumentType string   `json:"document_type"`
	Frameworks   []string `json:"frameworks"`
}

// AnalyzeBatch handles POST /api/analyze/batch
func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	var req BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.DocumentIDs))
	for _, raw := range req.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid document ID format: "+raw)
			return
		}
		ids = append(ids, id)
	}

	job, err := h.analysis.StartBatch(c.Request.Context(), service.BatchAnalyzeRequest{
		DocumentIDs:  ids,
		DocumentType: req.DocumentType,
		Frameworks:   req.Frameworks,
	})
	if err != nil {
		respondServiceError(c, err, "BATCH_FAILED")
		return
	}

	h.background(func(ctx context.Context) {
		if err := h.analysis.ProcessBatch(ctx, job.ID); err != nil {
			log.Printf("Batch job %s failed: %v", job.ID, err)
		}
	})

	respondOK(c, http.StatusAccepted, gin.H{
		"job_id":         job.ID,
		"status":         job.Status,
		"document_count": len(job.DocumentIDs),
		"message":        "Batch job created. Poll /api/jobs/:id for updates.",
	})
}

// GetJob handles GET /api/jobs/:id
func (h *AnalysisHandler) GetJob(c *gin.Context) {
	id, ok := parseID(c, "job")
	if !ok {
		return
	}

	job, err := h.analysis.GetJob(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs?limit=N
func (h *AnalysisHandler) ListJobs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	jobs, err := h.analysis.ListJobs(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, jobs)
}

// CancelJob handles POST /api/jobs/:id/cancel
func (h *AnalysisHandler) CancelJob(c *gin.Context) {
	id, ok := parseID(c, "job")
	if !ok {
		return
	}

	if err := h.analysis.CancelJob(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "CANCEL_FAILED")
		return
	}
	respondOK(c, http.StatusAccepted, gin.H{
		"job_id":  id,
		"message": "Cancellation requested. The batch stops before its next document.",
	})
}

// CheckFrameworksRequest selects frameworks as a list of keys or the string "all"
type CheckFrameworksRequest struct {
	Frameworks json.RawMessage `json:"frameworks"`
}

// CheckFrameworks handles POST /api/jobs/:id/check-frameworks
func (h *AnalysisHandler) CheckFrameworks(c *gin.Context) {
	id, ok := parseID(c, "job")
	if !ok {
		return
	}

	var body CheckFrameworksRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	req, err := parseFrameworkSelection(body.Frameworks)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	mappings, err := h.analysis.CheckFrameworks(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "CHECK_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"job_id":             id,
		"framework_mappings": mappings,
	})
}

func parseFrameworkSelection(raw json.RawMessage) (service.CheckFrameworksRequest, error) {
	var all string
	if err := json.Unmarshal(raw, &all); err == nil {
		if strings.EqualFold(strings.TrimSpace(all), "all") {
			return service.CheckFrameworksRequest{All: true}, nil
		}
		return service.CheckFrameworksRequest{Frameworks: []string{strings.TrimSpace(all)}}, nil
	}

	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return service.CheckFrameworksRequest{}, errInvalidSelection
	}
	return service.CheckFrameworksRequest{Frameworks: keys}, nil
}
