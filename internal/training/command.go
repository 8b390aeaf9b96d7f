package training

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// NewWorkerCommand returns the command that runs a single training job in
// the current process.
func NewWorkerCommand(logger *slog.Logger) *cobra.Command {
	var job Job

	cmd := &cobra.Command{
		Use:   "trainer",
		Short: "Fine-tune a model on the chat transcript corpus",
		Long: `Run one fine-tuning job and report progress to training_log.json in the
output directory.

With --mock, or when the training backend is not on PATH, a synthetic run of
epochs*5 steps is performed instead.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if job.DataPath == "" {
				return fmt.Errorf("--data_path is required")
			}
			return RunWorker(cmd.Context(), job, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&job.DataPath, "data_path", "", "JSONL transcript corpus")
	flags.StringVar(&job.OutputDir, "output_dir", "./ml/output", "directory for progress and adapter files")
	flags.StringVar(&job.ModelName, "model_name", DefaultModel, "base model to fine-tune")
	flags.IntVar(&job.Epochs, "epochs", DefaultEpochs, "number of epochs")
	flags.BoolVar(&job.Mock, "mock", false, "run synthetic training")
	flags.DurationVar(&job.StepInterval, "step_interval", time.Second, "delay between mock steps")
	flags.StringVar(&job.Backend, "backend", DefaultBackend, "executable that performs real training")

	return cmd
}
