package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"

	"github.com/mehtasarang17/dockguard-ai/app"
	"github.com/mehtasarang17/dockguard-ai/config"
	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/service"
)

func main() {
	docType := flag.String("type", "policy", "document type, for example policy, procedure, contract or privacy")
	frameworkList := flag.String("frameworks", "", "comma-separated framework keys (default: the core set)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-type TYPE] [-frameworks KEY,KEY] file [file ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if flag.NArg() > service.MaxBatchDocuments {
		log.Fatalf("At most %d files can be analyzed together", service.MaxBatchDocuments)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	catalog, err := frameworks.Load(cfg.FrameworksFile)
	if err != nil {
		log.Fatalf("Failed to load framework catalog: %v", err)
	}
	selected, err := selectFrameworks(catalog, *frameworkList)
	if err != nil {
		log.Fatal(err)
	}

	docs, err := readDocuments(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	// Ctrl-C stops a batch before its next document
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var gemini *genai.Client
	if cfg.GeminiAPIKey != "" {
		if gemini, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey); err != nil {
			log.Fatal(err)
		}
		defer gemini.Close()
	}
	registry := llm.NewRegistry(cfg.Providers(), llm.RegistryWithGeminiClient(gemini))
	engine := service.NewEngine(registry.NewRouter)

	if len(docs) == 1 {
		result, err := engine.Run(ctx, service.RunRequest{
			DocumentID:   docs[0].ID,
			Text:         docs[0].Text,
			DocumentType: service.NormalizeDocumentType(*docType),
			Frameworks:   selected,
		})
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		printResult(result)
		log.Printf("Done: score %d, %d tokens", result.OverallScore, result.TotalTokens)
		return
	}

	embedder, err := app.NewEmbedder(cfg, gemini)
	if err != nil {
		log.Fatalf("Failed to initialize embeddings: %v", err)
	}
	batch := service.NewBatchCoordinator(engine, registry.NewRouter, embedder)
	result, err := batch.RunBatch(ctx, service.BatchRequest{
		Documents:    docs,
		DocumentType: service.NormalizeDocumentType(*docType),
		Frameworks:   selected,
		Progress: func(phase string, index, total int) {
			log.Printf("%s %d/%d", phase, index, total)
		},
	})
	// a failed or cancelled batch still prints its partial result
	if result != nil {
		printResult(result)
	}
	if err != nil {
		log.Fatalf("Batch failed: %v", err)
	}
	log.Printf("Done: %d documents, %d tokens", result.DocumentCount, result.TotalTokens)
}

func printResult(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
}

// selectFrameworks validates a comma-separated key list. No framework has an uploaded
// standard here, so every selected key is mapped from model knowledge.
func selectFrameworks(catalog *frameworks.Catalog, list string) (map[string]bool, error) {
	keys := frameworks.CoreKeys
	if strings.TrimSpace(list) != "" {
		var requested []string
		for _, k := range strings.Split(list, ",") {
			if k = strings.TrimSpace(k); k != "" {
				requested = append(requested, k)
			}
		}
		known, unknown := catalog.Filter(requested)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("%w: %s", service.ErrUnsupportedFramework, strings.Join(unknown, ", "))
		}
		keys = known
	}

	selected := make(map[string]bool, len(keys))
	for _, k := range keys {
		selected[k] = false
	}
	return selected, nil
}

func readDocuments(paths []string) ([]models.BatchDocument, error) {
	docs := make([]models.BatchDocument, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		filename := filepath.Base(p)
		text, err := service.DecodeText(filename, content)
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.BatchDocument{ID: uuid.New(), Filename: filename, Text: text})
	}
	return docs, nil
}
