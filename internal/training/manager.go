package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
)

// ErrInvalidEpochs is returned when a job asks for fewer than one epoch.
var ErrInvalidEpochs = errors.New("training: epochs must be >= 1")

// seedExample is written to an absent transcript corpus so a job always has
// input data.
const seedExample = `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}` + "\n"

// StartRequest is the payload of a training start.
type StartRequest struct {
	Epochs    int    `json:"epochs"`
	ModelName string `json:"model_name"`
	Mock      bool   `json:"mock"`
}

// Ack acknowledges a launched job.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	OutputDir    string
	DataPath     string
	DefaultModel string
	StepInterval time.Duration
	Backend      string
}

// Manager launches detached training workers and reports their progress
// from the snapshot they leave in the output directory.
type Manager struct {
	cfg      ManagerConfig
	launcher Launcher
	hub      *Hub
	logger   *slog.Logger
}

// NewManager creates a manager. A nil hub gets a fresh one.
func NewManager(cfg ManagerConfig, launcher Launcher, hub *Hub, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub()
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	return &Manager{cfg: cfg, launcher: launcher, hub: hub, logger: logger}
}

// Start launches a job and returns without waiting for it. Any previous
// snapshot is replaced.
func (m *Manager) Start(ctx context.Context, req StartRequest) (Ack, error) {
	if req.Epochs < 1 {
		return Ack{}, ErrInvalidEpochs
	}
	if req.ModelName == "" {
		req.ModelName = m.cfg.DefaultModel
	}

	if err := os.MkdirAll(m.cfg.OutputDir, 0755); err != nil {
		return Ack{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := m.seedData(); err != nil {
		return Ack{}, err
	}

	job := Job{
		DataPath:     m.cfg.DataPath,
		OutputDir:    m.cfg.OutputDir,
		ModelName:    req.ModelName,
		Epochs:       req.Epochs,
		Mock:         req.Mock,
		StepInterval: m.cfg.StepInterval,
		Backend:      m.cfg.Backend,
	}

	initial := domain.TrainingState{Status: domain.TrainingRunning, TotalSteps: req.Epochs * StepsPerEpoch}
	if err := WriteState(ProgressPath(m.cfg.OutputDir), initial); err != nil {
		return Ack{}, err
	}

	if err := m.launcher.Launch(ctx, job); err != nil {
		failed := initial
		failed.Status = domain.TrainingFailed
		failed.Error = err.Error()
		if writeErr := WriteState(ProgressPath(m.cfg.OutputDir), failed); writeErr != nil {
			m.logger.Warn("Failed to record launch failure", "error", writeErr)
		}
		return Ack{}, fmt.Errorf("launch training worker: %w", err)
	}

	m.logger.Info("Training job started", "model", req.ModelName, "epochs", req.Epochs, "mock", req.Mock)
	return Ack{Status: "started", Message: "Training started in background"}, nil
}

// Status returns the current progress snapshot.
func (m *Manager) Status() domain.TrainingState {
	return ReadState(ProgressPath(m.cfg.OutputDir))
}

// Subscribe streams progress snapshots until ctx is done. Run must be
// active for changes to be delivered.
func (m *Manager) Subscribe(ctx context.Context) <-chan domain.TrainingState {
	return m.hub.Subscribe(ctx)
}

// Run watches the output directory and publishes snapshots until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	return Watch(ctx, m.cfg.OutputDir, m.hub, m.logger)
}

func (m *Manager) seedData() error {
	if m.cfg.DataPath == "" {
		return nil
	}
	if _, err := os.Stat(m.cfg.DataPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat training data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.cfg.DataPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(m.cfg.DataPath, []byte(seedExample), 0644); err != nil {
		return fmt.Errorf("seed training data: %w", err)
	}
	m.logger.Info("Seeded training data", "path", m.cfg.DataPath)
	return nil
}
