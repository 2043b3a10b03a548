package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/app"
	"github.com/mehtasarang17/dockguard-ai/config"
	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/service"
)

// Standard files are named KEY.md or KEY_VERSION.md, for example GDPR_2016.md
func main() {
	dir := flag.String("dir", "./framework_standards", "directory of framework standard files")
	force := flag.Bool("force", false, "re-index frameworks that already have a standard")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	files, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Failed to read directory: %v", err)
	}

	uploaded, err := a.Frameworks.UploadedFlags(ctx, a.Frameworks.Catalog().Keys())
	if err != nil {
		log.Fatalf("Failed to read framework status: %v", err)
	}

	var indexed, skipped, failed int
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		filename := file.Name()
		key, version := parseStandardName(filename, a.Frameworks.Catalog())
		if key == "" {
			log.Printf("⚠️  Skipping %s: no catalog framework matches the filename", filename)
			skipped++
			continue
		}
		if uploaded[key] && !*force {
			log.Printf("⏭️  Skipping %s (%s already has a standard, use -force to replace)", filename, key)
			skipped++
			continue
		}

		log.Printf("\n📄 Processing: %s", filename)
		content, err := os.ReadFile(filepath.Join(*dir, filename))
		if err != nil {
			log.Printf("   ❌ Error reading %s: %v", filename, err)
			failed++
			continue
		}

		std, err := a.Frameworks.UploadStandard(ctx, service.UploadStandardRequest{
			FrameworkKey: key,
			Version:      version,
			Filename:     filename,
			Content:      content,
		})
		if err != nil {
			log.Printf("   ❌ Error indexing %s: %v", filename, err)
			failed++
			continue
		}
		log.Printf("   ✅ Indexed %s %s (%d chunks)", key, std.Version, std.ChunkCount)
		indexed++
	}

	fmt.Println("\n✅ Framework indexing complete!")
	fmt.Printf("   Indexed: %d, skipped: %d, failed: %d\n", indexed, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// parseStandardName matches the longest catalog key that prefixes the file's base name.
// Whatever follows the key and an underscore is the version.
func parseStandardName(filename string, catalog *frameworks.Catalog) (key, version string) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, k := range catalog.Keys() {
		if !strings.EqualFold(base, k) && !strings.HasPrefix(strings.ToUpper(base), strings.ToUpper(k)+"_") {
			continue
		}
		if len(k) > len(key) {
			key = k
		}
	}
	if key == "" {
		return "", ""
	}
	version = strings.TrimPrefix(base[len(key):], "_")
	return key, version
}
