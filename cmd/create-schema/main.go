package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mehtasarang17/dockguard-ai/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Enable pgvector extension (if not already enabled)
	_, err = pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
	} else {
		log.Println("✓ pgvector extension enabled")
	}

	tables := []struct {
		name string
		sql  string
	}{
		{
			name: "documents",
			sql: `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    filename VARCHAR(255) NOT NULL,
    document_type VARCHAR(50) NOT NULL DEFAULT 'policy',
    mime_type VARCHAR(100) NOT NULL,
    size BIGINT NOT NULL,
    storage_path TEXT NOT NULL,
    extracted_text TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'uploaded'
        CHECK (status IN ('uploaded', 'processing', 'completed', 'failed')),
    in_knowledge_base BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "analysis_jobs",
			sql: `
CREATE TABLE IF NOT EXISTS analysis_jobs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    kind VARCHAR(10) NOT NULL CHECK (kind IN ('single', 'batch')),
    document_ids UUID[] NOT NULL,
    document_type VARCHAR(50) NOT NULL DEFAULT 'policy',
    frameworks JSONB NOT NULL DEFAULT '{}'::jsonb,
    status VARCHAR(20) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'in_progress', 'completed', 'failed', 'cancelled')),
    current_step VARCHAR(255),
    steps JSONB NOT NULL DEFAULT '[]'::jsonb,
    result JSONB,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP
);`,
		},
		{
			name: "framework_standards",
			sql: `
CREATE TABLE IF NOT EXISTS framework_standards (
    id UUID PRIMARY KEY,
    framework_key VARCHAR(50) NOT NULL UNIQUE,
    version VARCHAR(100) NOT NULL DEFAULT '',
    filename VARCHAR(255) NOT NULL,
    storage_path TEXT NOT NULL,
    chunk_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "system_settings",
			sql: `
CREATE TABLE IF NOT EXISTS system_settings (
    key VARCHAR(100) PRIMARY KEY,
    value TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "chunk_namespaces",
			sql: `
CREATE TABLE IF NOT EXISTS chunk_namespaces (
    name VARCHAR(255) PRIMARY KEY,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "chunks",
			// seq orders equal-distance hits by insertion
			sql: fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunks (
    seq BIGSERIAL,
    id UUID PRIMARY KEY,
    namespace VARCHAR(255) NOT NULL REFERENCES chunk_namespaces(name) ON DELETE CASCADE,
    source_id VARCHAR(255) NOT NULL,
    label VARCHAR(255) NOT NULL,
    chunk_index INTEGER NOT NULL,
    chunk_text TEXT NOT NULL,
    embedding vector(%d) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`, cfg.EmbeddingDimensions),
		},
	}

	for _, t := range tables {
		if _, err := pool.Exec(ctx, t.sql); err != nil {
			log.Fatalf("Failed to create %s table: %v", t.name, err)
		}
		log.Printf("✓ Created %s table", t.name)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Vector similarity search (HNSW)",
			sql: `CREATE INDEX IF NOT EXISTS idx_chunks_embedding_hnsw ON chunks
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64);`,
		},
		{
			name: "Chunks by namespace and source",
			sql:  "CREATE INDEX IF NOT EXISTS idx_chunks_namespace_source ON chunks(namespace, source_id);",
		},
		{
			name: "Chunks by namespace and label",
			sql:  "CREATE INDEX IF NOT EXISTS idx_chunks_namespace_label ON chunks(namespace, label);",
		},
		{
			name: "Chunk insertion order",
			sql:  "CREATE INDEX IF NOT EXISTS idx_chunks_seq ON chunks(seq);",
		},
		{
			name: "Jobs by creation time",
			sql:  "CREATE INDEX IF NOT EXISTS idx_analysis_jobs_created_at ON analysis_jobs(created_at DESC);",
		},
		{
			name: "Documents by creation time",
			sql:  "CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);",
		},
	}

	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("✓ Created index: %s", idx.name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   Tables: %d\n", len(tables))
	fmt.Printf("   Embedding dimensions: %d\n", cfg.EmbeddingDimensions)
}
