package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mehtasarang17/dockguard-ai/app"
	"github.com/mehtasarang17/dockguard-ai/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Setup Gin router
	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxContentLength

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "ok",
			"llm_provider": a.Registry.ActiveProvider(c.Request.Context()),
			"vector_store": cfg.VectorStore,
		})
	})

	// API routes
	a.Handlers().Register(r)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
