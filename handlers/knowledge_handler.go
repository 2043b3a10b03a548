package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// KnowledgeHandler handles HTTP requests for the knowledge base
type KnowledgeHandler struct {
	kb KnowledgeBase
}

// NewKnowledgeHandler creates a new knowledge base handler
func NewKnowledgeHandler(kb KnowledgeBase) *KnowledgeHandler {
	return &KnowledgeHandler{kb: kb}
}

// SaveRequest represents the optional body of a save
type SaveRequest struct {
	Preset string `json:"preset"`
}

// SaveDocument handles POST /api/kb/documents/:id
func (h *KnowledgeHandler) SaveDocument(c *gin.Context) {
	id, ok := parseID(c, "document")
	if !ok {
		return
	}

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	switch strings.ToLower(req.Preset) {
	case "", "small", "medium", "large":
	default:
		respondError(c, http.StatusBadRequest, "INVALID_PRESET", "preset must be small, medium or large")
		return
	}

	result, err := h.kb.Save(c.Request.Context(), id, req.Preset)
	if err != nil {
		respondServiceError(c, err, "SAVE_FAILED")
		return
	}
	respondOK(c, http.StatusOK, result)
}

// UnsaveDocument handles DELETE /api/kb/documents/:id
func (h *KnowledgeHandler) UnsaveDocument(c *gin.Context) {
	id, ok := parseID(c, "document")
	if !ok {
		return
	}

	if err := h.kb.Unsave(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "UNSAVE_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"document_id": id, "in_knowledge_base": false})
}

// ListDocuments handles GET /api/kb/documents
func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	sources, err := h.kb.Sources(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, sources)
}

// SearchRequest represents a knowledge base search
type SearchRequest struct {
	Query   string `json:"query" binding:"required"`
	TopK    int    `json:"top_k"`
	Exclude string `json:"exclude"`
}

// Search handles POST /api/kb/search
func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	hits, err := h.kb.Search(c.Request.Context(), req.Query, req.TopK, req.Exclude)
	if err != nil {
		respondServiceError(c, err, "SEARCH_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"query":   req.Query,
		"results": hits,
	})
}

// FullText handles GET /api/kb/full-text?filename=NAME
func (h *KnowledgeHandler) FullText(c *gin.Context) {
	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		respondError(c, http.StatusBadRequest, "MISSING_FILENAME", "filename is required")
		return
	}

	text, err := h.kb.FullText(c.Request.Context(), filename)
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"filename": filename,
		"text":     text,
	})
}

// Stats handles GET /api/kb/stats
func (h *KnowledgeHandler) Stats(c *gin.Context) {
	stats, err := h.kb.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, stats)
}
