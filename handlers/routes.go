package handlers

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers for route registration
type Handlers struct {
	Documents  *DocumentHandler
	Analysis   *AnalysisHandler
	Knowledge  *KnowledgeHandler
	Frameworks *FrameworkHandler
	Settings   *SettingsHandler
}

// Register mounts every endpoint under /api
func (h Handlers) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		// Document endpoints
		api.POST("/documents/upload", h.Documents.UploadDocument)
		api.GET("/documents", h.Documents.ListDocuments)
		api.GET("/documents/:id", h.Documents.GetDocument)
		api.DELETE("/documents/:id", h.Documents.DeleteDocument)

		// Analysis and job endpoints
		api.POST("/documents/:id/analyze", h.Analysis.AnalyzeDocument)
		api.POST("/analyze/batch", h.Analysis.AnalyzeBatch)
		api.GET("/jobs", h.Analysis.ListJobs)
		api.GET("/jobs/:id", h.Analysis.GetJob)
		api.POST("/jobs/:id/cancel", h.Analysis.CancelJob)
		api.POST("/jobs/:id/check-frameworks", h.Analysis.CheckFrameworks)

		// Knowledge base endpoints
		api.GET("/kb/documents", h.Knowledge.ListDocuments)
		api.POST("/kb/documents/:id", h.Knowledge.SaveDocument)
		api.DELETE("/kb/documents/:id", h.Knowledge.UnsaveDocument)
		api.POST("/kb/search", h.Knowledge.Search)
		api.GET("/kb/full-text", h.Knowledge.FullText)
		api.GET("/kb/stats", h.Knowledge.Stats)

		// Framework endpoints
		api.GET("/frameworks", h.Frameworks.Catalog)
		api.GET("/frameworks/status", h.Frameworks.Status)
		api.POST("/frameworks/:key/standard", h.Frameworks.UploadStandard)
		api.DELETE("/frameworks/:key/standard", h.Frameworks.DeleteStandard)

		// Settings endpoints
		api.GET("/settings/llm-provider", h.Settings.GetProvider)
		api.POST("/settings/llm-provider", h.Settings.SetProvider)
		api.GET("/llm/status", h.Settings.LLMStatus)
		api.GET("/stats", h.Settings.Stats)
		api.POST("/stats/reset", h.Settings.ResetStats)
	}
}
