// Package training launches fine-tuning workers and reports their progress.
package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/shared"
)

// Files written into the training output directory.
const (
	ProgressFile   = "training_log.json"
	ProcessLogFile = "process.log"
	AdapterConfig  = "adapter_config.json"
	AdapterModel   = "adapter_model.bin"
)

// ProgressPath returns the progress snapshot path inside outputDir.
func ProgressPath(outputDir string) string {
	return filepath.Join(outputDir, ProgressFile)
}

// ReadState reads a progress snapshot. A missing file means no job has run;
// an unreadable or malformed one reports unknown.
func ReadState(path string) domain.TrainingState {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.TrainingState{Status: domain.TrainingIdle}
	}
	if err != nil {
		return domain.TrainingState{Status: domain.TrainingUnknown}
	}

	var state domain.TrainingState
	if err := json.Unmarshal(data, &state); err != nil || state.Status == "" {
		return domain.TrainingState{Status: domain.TrainingUnknown}
	}
	return state
}

// WriteState atomically replaces the progress snapshot at path.
func WriteState(path string, state domain.TrainingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal training state: %w", err)
	}
	if err := shared.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write training state: %w", err)
	}
	return nil
}
