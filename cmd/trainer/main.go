// Command trainer runs one fine-tuning job and reports progress to the
// output directory.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/agentforge/internal/training"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := training.NewWorkerCommand(logger).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
