package training

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Launcher starts a worker for a job and returns without waiting for it.
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

// ProcessLauncher runs the worker binary as a child process with its output
// redirected to process.log in the job's output directory.
type ProcessLauncher struct {
	Bin string
	// Args are placed before the job flags.
	Args []string
	// Env is appended to the inherited environment.
	Env    []string
	Logger *slog.Logger
}

// Launch implements Launcher. The child is reaped in the background so it
// never lingers as a zombie; its lifetime is independent of ctx.
func (l *ProcessLauncher) Launch(_ context.Context, job Job) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logPath := filepath.Join(job.OutputDir, ProcessLogFile)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open process log: %w", err)
	}

	args := append(append([]string{}, l.Args...), job.Args()...)
	cmd := exec.Command(l.Bin, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), l.Env...)

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return fmt.Errorf("start worker %s: %w", l.Bin, err)
	}
	logger.Info("Training worker started", "pid", cmd.Process.Pid, "bin", l.Bin, "log", logPath)

	go func() {
		defer logFile.Close()
		if err := cmd.Wait(); err != nil {
			logger.Warn("Training worker exited with error", "pid", cmd.Process.Pid, "error", err)
			return
		}
		logger.Info("Training worker exited", "pid", cmd.Process.Pid)
	}()
	return nil
}

// FuncLauncher runs jobs in-process on a new goroutine.
type FuncLauncher func(ctx context.Context, job Job) error

// Launch implements Launcher. The job runs detached from ctx.
func (f FuncLauncher) Launch(ctx context.Context, job Job) error {
	go func() {
		_ = f(context.WithoutCancel(ctx), job)
	}()
	return nil
}
