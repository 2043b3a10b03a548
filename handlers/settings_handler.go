package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles provider selection and usage statistics
type SettingsHandler struct {
	settings SettingsManager
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsManager) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetProvider handles GET /api/settings/llm-provider
func (h *SettingsHandler) GetProvider(c *gin.Context) {
	respondOK(c, http.StatusOK, h.settings.Provider(c.Request.Context()))
}

// SetProviderRequest represents a provider switch
type SetProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// SetProvider handles POST /api/settings/llm-provider
func (h *SettingsHandler) SetProvider(c *gin.Context) {
	var req SetProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	info, err := h.settings.SetProvider(c.Request.Context(), req.Provider)
	if err != nil {
		respondServiceError(c, err, "UPDATE_FAILED")
		return
	}
	respondOK(c, http.StatusOK, info)
}

// LLMStatus handles GET /api/llm/status?provider=NAME
func (h *SettingsHandler) LLMStatus(c *gin.Context) {
	status, err := h.settings.ProviderStatus(c.Request.Context(), c.Query("provider"))
	if err != nil {
		respondServiceError(c, err, "STATUS_FAILED")
		return
	}
	respondOK(c, http.StatusOK, status)
}

// Stats handles GET /api/stats
func (h *SettingsHandler) Stats(c *gin.Context) {
	tokens, err := h.settings.LifetimeTokens(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"lifetime_tokens": tokens})
}

// ResetStats handles POST /api/stats/reset
func (h *SettingsHandler) ResetStats(c *gin.Context) {
	if err := h.settings.ResetLifetimeTokens(c.Request.Context()); err != nil {
		respondServiceError(c, err, "RESET_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"lifetime_tokens": 0})
}
