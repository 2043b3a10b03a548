package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mehtasarang17/dockguard-ai/service"
)

// FrameworkHandler handles HTTP requests for the framework catalog and standards
type FrameworkHandler struct {
	frameworks  FrameworkManager
	maxFileSize int64
}

// NewFrameworkHandler creates a new framework handler
func NewFrameworkHandler(frameworks FrameworkManager, maxFileSize int64) *FrameworkHandler {
	return &FrameworkHandler{
		frameworks:  frameworks,
		maxFileSize: maxFileSize,
	}
}

// Catalog handles GET /api/frameworks
func (h *FrameworkHandler) Catalog(c *gin.Context) {
	catalog := h.frameworks.Catalog()
	respondOK(c, http.StatusOK, gin.H{
		"regions": catalog.Regions(),
		"count":   len(catalog.Keys()),
	})
}

// Status handles GET /api/frameworks/status
func (h *FrameworkHandler) Status(c *gin.Context) {
	statuses, err := h.frameworks.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, statuses)
}

// UploadStandard handles POST /api/frameworks/:key/standard
func (h *FrameworkHandler) UploadStandard(c *gin.Context) {
	key := c.Param("key")
	if !h.frameworks.Catalog().Has(key) {
		respondError(c, http.StatusBadRequest, "UNKNOWN_FRAMEWORK", "Unknown framework: "+key)
		return
	}

	content, filename, ok := readUpload(c, h.maxFileSize)
	if !ok {
		return
	}

	std, err := h.frameworks.UploadStandard(c.Request.Context(), service.UploadStandardRequest{
		FrameworkKey: key,
		Version:      c.PostForm("version"),
		Filename:     filename,
		Content:      content,
	})
	if err != nil {
		respondServiceError(c, err, "UPLOAD_FAILED")
		return
	}
	respondOK(c, http.StatusCreated, std)
}

// DeleteStandard handles DELETE /api/frameworks/:key/standard
func (h *FrameworkHandler) DeleteStandard(c *gin.Context) {
	key := c.Param("key")
	if err := h.frameworks.DeleteStandard(c.Request.Context(), key); err != nil {
		respondServiceError(c, err, "DELETE_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"framework_key": key, "deleted": true})
}
