package training

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/google/go-cmp/cmp"
)

const helperEnv = "AGENTFORGE_TRAINER_HELPER"

// TestWorkerHelperProcess is not a real test. It runs the worker command when
// the test binary is launched as a child by TestProcessLauncherRunsWorker.
func TestWorkerHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	cmd := NewWorkerCommand(discardLogger())
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestProcessLauncherRunsWorker(t *testing.T) {
	dir := t.TempDir()
	launcher := &ProcessLauncher{
		Bin:    os.Args[0],
		Args:   []string{"-test.run=^TestWorkerHelperProcess$", "--"},
		Env:    []string{helperEnv + "=1"},
		Logger: discardLogger(),
	}
	m := NewManager(ManagerConfig{
		OutputDir:    filepath.Join(dir, "output"),
		DataPath:     filepath.Join(dir, "chat_logs.jsonl"),
		StepInterval: 5 * time.Millisecond,
	}, launcher, nil, discardLogger())

	if _, err := m.Start(context.Background(), StartRequest{Epochs: 1, Mock: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForTerminal(t, m)
	if state.Status != domain.TrainingCompleted || state.Step != StepsPerEpoch {
		t.Fatalf("unexpected final state %+v", state)
	}

	// The worker writes its adapter after the final snapshot; wait for it so
	// the reaper goroutine has exited before leak checks run.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(dir, "output", AdapterModel)); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := os.Stat(filepath.Join(dir, "output", ProcessLogFile)); err != nil {
		t.Fatalf("process log missing: %v", err)
	}
}

func TestJobArgs(t *testing.T) {
	job := Job{DataPath: "d.jsonl", OutputDir: "out", ModelName: "m", Epochs: 2, Mock: true, StepInterval: time.Second}
	got := job.Args()
	want := []string{"--data_path", "d.jsonl", "--output_dir", "out", "--model_name", "m", "--epochs", "2", "--mock", "--step_interval", "1s"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}
