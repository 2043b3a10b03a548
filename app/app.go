// Package app wires configuration, storage, repositories and services into a running backend.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/config"
	"github.com/mehtasarang17/dockguard-ai/embedding"
	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/handlers"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/repository"
	"github.com/mehtasarang17/dockguard-ai/service"
	"github.com/mehtasarang17/dockguard-ai/storage"
)

// App holds the wired services of one process
type App struct {
	Config   *config.Config
	DB       *pgxpool.Pool
	Storage  storage.Storage
	Chunks   chunkindex.Store
	Embedder chunkindex.Embedder
	Registry *llm.Registry

	Documents  *service.DocumentService
	Knowledge  *service.KnowledgeService
	Frameworks *service.FrameworkService
	Analysis   *service.AnalysisService
	Settings   *service.SettingsService

	closers []func()
}

// New connects to Postgres and storage and builds every service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := InitPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	a.Storage, err = storage.NewStorageFromEnv(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Println("Storage initialized")

	var gemini *genai.Client
	if cfg.GeminiAPIKey != "" {
		gemini, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { gemini.Close() })
		log.Println("Gemini client initialized")
	}

	a.Embedder, err = NewEmbedder(cfg, gemini)
	if err != nil {
		a.Close()
		return nil, err
	}

	chunks, closeChunks, err := OpenChunkStore(cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Chunks = chunks
	a.closers = append(a.closers, closeChunks)

	catalog, err := frameworks.Load(cfg.FrameworksFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Initialize repositories
	documentRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewAnalysisJobRepository(db)
	frameworkRepo := repository.NewFrameworkRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	a.Registry = llm.NewRegistry(cfg.Providers(),
		llm.RegistryWithProviderSource(settingsRepo),
		llm.RegistryWithGeminiClient(gemini),
	)

	// Initialize services
	a.Frameworks = service.NewFrameworkService(
		service.FrameworkWithCatalog(catalog),
		service.FrameworkWithRepository(frameworkRepo),
		service.FrameworkWithStorage(a.Storage),
		service.FrameworkWithChunkStore(chunks, a.Embedder),
	)
	a.Knowledge = service.NewKnowledgeService(documentRepo, chunks, a.Embedder)
	a.Documents = service.NewDocumentService(
		service.DocumentWithRepository(documentRepo),
		service.DocumentWithStorage(a.Storage),
		service.DocumentWithKnowledgeService(a.Knowledge),
	)

	engine := service.NewEngine(a.Registry.NewRouter, service.EngineWithStandardSearcher(a.Frameworks))
	// cross-reference namespaces live only for one batch, so they stay in memory
	batch := service.NewBatchCoordinator(engine, a.Registry.NewRouter, a.Embedder)

	a.Analysis = service.NewAnalysisService(
		service.AnalysisWithJobRepository(jobRepo),
		service.AnalysisWithDocumentRepository(documentRepo),
		service.AnalysisWithAnalyzer(engine),
		service.AnalysisWithBatchCoordinator(batch),
		service.AnalysisWithFrameworkService(a.Frameworks),
		service.AnalysisWithRouters(a.Registry.NewRouter),
		service.AnalysisWithTokenCounter(settingsRepo),
	)
	a.Settings = service.NewSettingsService(settingsRepo, a.Registry)

	log.Printf("Services initialized (llm provider %s, vector store %s, embeddings %s)",
		a.Registry.ActiveProvider(ctx), cfg.VectorStore, cfg.EmbeddingProvider)
	return a, nil
}

// Handlers builds the HTTP handlers over the services
func (a *App) Handlers() handlers.Handlers {
	maxSize := a.Config.MaxContentLength
	return handlers.Handlers{
		Documents:  handlers.NewDocumentHandler(a.Documents, maxSize),
		Analysis:   handlers.NewAnalysisHandler(a.Analysis),
		Knowledge:  handlers.NewKnowledgeHandler(a.Knowledge),
		Frameworks: handlers.NewFrameworkHandler(a.Frameworks, maxSize),
		Settings:   handlers.NewSettingsHandler(a.Settings),
	}
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// InitPostgres opens a pool and enables pgvector
func InitPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Enable pgvector extension
	_, err = pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
		log.Println("This may be normal if extension is already installed or requires superuser privileges")
	} else {
		log.Println("pgvector extension enabled")
	}

	log.Println("Postgres connection established with pgvector support")
	return pool, nil
}

// OpenChunkStore selects the chunk store named by VECTOR_STORE.
// The returned func releases it; db may be nil unless the store is postgres.
func OpenChunkStore(cfg *config.Config, db *pgxpool.Pool) (chunkindex.Store, func(), error) {
	switch cfg.VectorStore {
	case config.VectorStorePostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("postgres vector store needs a database connection")
		}
		return repository.NewChunkRepository(db, cfg.EmbeddingDimensions), func() {}, nil
	case config.VectorStoreSQLite:
		store, err := repository.NewSQLiteChunkStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite chunk store: %w", err)
		}
		log.Printf("SQLite chunk store at %s", store.Path())
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("Warning: closing sqlite chunk store: %v", err)
			}
		}, nil
	case config.VectorStoreMemory:
		log.Println("Warning: using in-memory chunk store; indexed documents are lost on restart")
		return chunkindex.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
}

// NewEmbedder builds the embedder named by EMBEDDING_PROVIDER.
// gemini may be nil unless the provider is gemini.
func NewEmbedder(cfg *config.Config, gemini *genai.Client) (chunkindex.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingGemini:
		if gemini == nil {
			return nil, fmt.Errorf("gemini embeddings need GEMINI_API_KEY")
		}
		return embedding.NewGeminiEmbedder(gemini, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	case config.EmbeddingOpenAI:
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.LLMTimeout,
		}), nil
	case config.EmbeddingOllama:
		model := cfg.EmbeddingModel
		if model == "" {
			model = defaultOllamaEmbeddingModel
		}
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     "ollama",
			BaseURL:    strings.TrimRight(cfg.OllamaBaseURL, "/") + "/v1",
			Model:      model,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.LLMTimeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

// nomic-embed-text produces 768-dimensional vectors
const defaultOllamaEmbeddingModel = "nomic-embed-text"
