package training

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// Watch publishes the progress snapshot in outputDir to hub whenever the file
// changes, until ctx is done. The directory is watched rather than the file
// because snapshots are replaced by rename.
func Watch(ctx context.Context, outputDir string, hub *Hub, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(outputDir); err != nil {
		return fmt.Errorf("watch %s: %w", outputDir, err)
	}

	progress := ProgressPath(outputDir)
	last := ReadState(progress)
	hub.Publish(last)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != ProgressFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			state := ReadState(progress)
			if state == last {
				continue
			}
			last = state
			hub.Publish(state)
			if state.Status == domain.TrainingUnknown {
				logger.Debug("Progress snapshot unreadable", "path", progress)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Progress watcher error", "dir", outputDir, "error", err)
		}
	}
}
