package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adiuvo-ai/adiuvo/internal/app"
	"github.com/adiuvo-ai/adiuvo/internal/services/ingest"
)

// ingestExtensions maps accepted file extensions to whether the content needs
// HTML normalization first.
var ingestExtensions = map[string]bool{
	".txt":      false,
	".md":       false,
	".markdown": false,
	".html":     true,
	".htm":      true,
}

func runIngest(ctx context.Context, application *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("ingest requires at least one file or directory path")
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := ingestExtensions[strings.ToLower(filepath.Ext(path))]; ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", arg, err)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no ingestible files found (accepted: txt, md, markdown, html)")
	}

	total, degraded := 0, 0
	for _, path := range files {
		isHTML, ok := ingestExtensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return fmt.Errorf("unsupported file type: %s", path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}

		result, err := application.IngestService.Ingest(ctx, ingest.Request{
			SourceURI: "file://" + filepath.ToSlash(abs),
			Content:   string(data),
			Category:  *category,
			HTML:      isHTML,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		total += result.Chunks
		degraded += result.Degraded
		fmt.Printf("Ingested %s: %q, %d chunks (%s)\n", path, result.Title, result.Chunks, result.Duration.Round(time.Millisecond))
	}

	fmt.Printf("\nDone: %d files, %d chunks", len(files), total)
	if degraded > 0 {
		fmt.Printf(", %d degraded embeddings (run 'adiuvo sweep' after the provider recovers)", degraded)
	}
	fmt.Println()
	return nil
}
