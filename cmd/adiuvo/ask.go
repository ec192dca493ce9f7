package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/adiuvo-ai/adiuvo/internal/app"
)

func runAsk(ctx context.Context, application *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("ask requires a question")
	}
	question := strings.Join(args, " ")

	chunks, err := application.Retriever.Retrieve(ctx, question, config.Chat.TopK, *category)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	answer := application.Generator.Generate(ctx, question, texts, *category)

	fmt.Printf("\n%s\n", answer)

	if len(chunks) > 0 {
		fmt.Println("\nSources:")
		seen := map[string]bool{}
		for _, chunk := range chunks {
			if chunk.SourceURI == "" || seen[chunk.SourceURI] {
				continue
			}
			seen[chunk.SourceURI] = true
			fmt.Printf("  - %s (score %.3f)\n", chunk.SourceURI, chunk.Score)
		}
	}

	return nil
}
