package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/adiuvo-ai/adiuvo/internal/app"
)

func runChat(ctx context.Context, application *app.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("chat requires a message")
	}
	message := strings.Join(args, " ")

	reply, err := application.Orchestrator.HandleTurn(ctx, *chatUser, *chatSession, message)
	if err != nil {
		return fmt.Errorf("chat turn failed: %w", err)
	}

	fmt.Printf("\n%s\n", reply)
	return nil
}

func runSweep(ctx context.Context, application *app.App) error {
	stats, err := application.ProcessingService.ProcessDegraded(ctx)
	if err != nil {
		return fmt.Errorf("reprocessing sweep failed: %w", err)
	}

	fmt.Printf("Sweep complete: %d scanned, %d recovered, %d still degraded\n",
		stats.Scanned, stats.Recovered, stats.StillDegraded)
	if stats.Rebuilt {
		fmt.Println("Vector index rebuilt")
	}
	return nil
}
