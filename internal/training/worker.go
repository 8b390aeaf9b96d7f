package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/shared"
)

// Worker defaults.
const (
	DefaultModel      = "TinyLlama/TinyLlama-1.1B-Chat-v1.0"
	DefaultEpochs     = 3
	DefaultBackend    = "train_lora"
	StepsPerEpoch     = 5
	mockFinalLoss     = 0.5
	mockAdapterConfig = `{"base_model_name_or_path":"mock-model","peft_type":"LORA"}`
	mockAdapterModel  = "dummy model content"
)

// Job describes one fine-tuning run.
type Job struct {
	DataPath     string
	OutputDir    string
	ModelName    string
	Epochs       int
	Mock         bool
	StepInterval time.Duration
	// Backend is the executable that performs real training.
	Backend string
}

// Args renders the job as worker command-line flags.
func (j Job) Args() []string {
	args := []string{
		"--data_path", j.DataPath,
		"--output_dir", j.OutputDir,
		"--model_name", j.ModelName,
		"--epochs", strconv.Itoa(j.Epochs),
	}
	if j.Mock {
		args = append(args, "--mock")
	}
	if j.StepInterval > 0 {
		args = append(args, "--step_interval", j.StepInterval.String())
	}
	if j.Backend != "" {
		args = append(args, "--backend", j.Backend)
	}
	return args
}

// RunWorker executes a job in the current process. Real training is
// delegated to the backend executable; when it is not installed the job
// falls back to mock training.
func RunWorker(ctx context.Context, job Job, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if job.Epochs < 1 {
		return ErrInvalidEpochs
	}
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if !job.Mock {
		backend := job.Backend
		if backend == "" {
			backend = DefaultBackend
		}
		path, err := exec.LookPath(backend)
		if err == nil {
			return runBackend(ctx, path, job, logger)
		}
		logger.Warn("Training backend not available, falling back to mock training", "backend", backend, "error", err)
	}
	return runMock(ctx, job, logger)
}

// MockLoss is the synthetic loss reported at zero-based step i.
func MockLoss(i int) float64 {
	return 2.5 - 0.2*float64(i) + 0.1*float64(i%2)
}

func runMock(ctx context.Context, job Job, logger *slog.Logger) error {
	progress := ProgressPath(job.OutputDir)
	steps := job.Epochs * StepsPerEpoch
	interval := job.StepInterval
	if interval <= 0 {
		interval = time.Second
	}

	logger.Info("Starting mock training", "model", job.ModelName, "epochs", job.Epochs, "steps", steps)
	if err := WriteState(progress, domain.TrainingState{Status: domain.TrainingRunning, TotalSteps: steps}); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			_ = WriteState(progress, domain.TrainingState{Status: domain.TrainingFailed, Step: i, TotalSteps: steps, Error: ctx.Err().Error()})
			return ctx.Err()
		case <-ticker.C:
		}

		state := domain.TrainingState{Status: domain.TrainingRunning, Step: i + 1, TotalSteps: steps, Loss: MockLoss(i)}
		if err := WriteState(progress, state); err != nil {
			return err
		}
		logger.Info("Training step", "step", state.Step, "total_steps", steps, "loss", state.Loss)
	}

	if err := WriteState(progress, domain.TrainingState{Status: domain.TrainingCompleted, Step: steps, TotalSteps: steps, Loss: mockFinalLoss}); err != nil {
		return err
	}
	if err := shared.WriteFileAtomic(filepath.Join(job.OutputDir, AdapterConfig), []byte(mockAdapterConfig), 0644); err != nil {
		return fmt.Errorf("write adapter config: %w", err)
	}
	if err := shared.WriteFileAtomic(filepath.Join(job.OutputDir, AdapterModel), []byte(mockAdapterModel), 0644); err != nil {
		return fmt.Errorf("write adapter model: %w", err)
	}

	logger.Info("Mock training completed", "output_dir", job.OutputDir)
	return nil
}

// runBackend runs the real trainer, which owns the progress file while it
// runs. A failing backend leaves a failed snapshot behind.
func runBackend(ctx context.Context, path string, job Job, logger *slog.Logger) error {
	progress := ProgressPath(job.OutputDir)
	if err := WriteState(progress, domain.TrainingState{Status: domain.TrainingRunning}); err != nil {
		return err
	}

	args := []string{
		"--data_path", job.DataPath,
		"--output_dir", job.OutputDir,
		"--model_name", job.ModelName,
		"--epochs", strconv.Itoa(job.Epochs),
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger.Info("Starting training backend", "backend", path, "model", job.ModelName, "epochs", job.Epochs)
	if err := cmd.Run(); err != nil {
		state := ReadState(progress)
		state.Status = domain.TrainingFailed
		state.Error = err.Error()
		if writeErr := WriteState(progress, state); writeErr != nil {
			return errors.Join(err, writeErr)
		}
		return fmt.Errorf("training backend: %w", err)
	}

	if state := ReadState(progress); !state.Terminal() {
		state.Status = domain.TrainingCompleted
		if err := WriteState(progress, state); err != nil {
			return err
		}
	}
	return nil
}
