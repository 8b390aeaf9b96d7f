package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

const (
	// Resource limits for training containers.
	trainerMemoryLimitBytes = 4 * 1024 * 1024 * 1024 // 4GB
	trainerPidsLimit        = 512

	// Worker entrypoint inside the training image.
	trainerEntrypoint = "trainer"
)

// DockerLauncher runs each job in a fresh container from a trainer image.
// The data file and output directory are bind-mounted at their host paths so
// job flags need no rewriting.
type DockerLauncher struct {
	cli    *client.Client
	image  string
	logger *slog.Logger
}

// NewDockerLauncher creates a launcher using the Docker environment settings.
func NewDockerLauncher(image string, logger *slog.Logger) (*DockerLauncher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	logger.Info("Docker client initialized", "image", image)
	return &DockerLauncher{cli: cli, image: image, logger: logger}, nil
}

// Close releases the Docker client.
func (l *DockerLauncher) Close() error {
	return l.cli.Close()
}

// Launch implements Launcher.
func (l *DockerLauncher) Launch(ctx context.Context, job Job) error {
	outputDir, err := filepath.Abs(job.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	dataPath, err := filepath.Abs(job.DataPath)
	if err != nil {
		return fmt.Errorf("resolve data path: %w", err)
	}
	job.OutputDir = outputDir
	job.DataPath = dataPath

	name := "agentforge-train-" + uuid.New().String()[:8]
	config := &container.Config{
		Image: l.image,
		Cmd:   append([]string{trainerEntrypoint}, job.Args()...),
		Labels: map[string]string{
			"agentforge.job":   "training",
			"agentforge.model": job.ModelName,
		},
	}
	hostConfig := &container.HostConfig{
		AutoRemove: true,
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: outputDir, Target: outputDir},
			{Type: mount.TypeBind, Source: dataPath, Target: dataPath, ReadOnly: true},
		},
		Resources: container.Resources{
			Memory:    trainerMemoryLimitBytes,
			PidsLimit: ptr(int64(trainerPidsLimit)),
		},
	}

	resp, err := l.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("training image %s not found: %w", l.image, err)
		}
		return fmt.Errorf("create training container: %w", err)
	}

	if err := l.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if removeErr := l.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}); removeErr != nil &&
			!errdefs.IsNotFound(removeErr) && !errors.Is(removeErr, context.Canceled) &&
			!strings.Contains(removeErr.Error(), "is already in progress") {
			l.logger.Warn("Failed to remove container after start failure", "container_id", resp.ID, "error", removeErr)
		}
		return fmt.Errorf("start training container %s: %w", resp.ID, err)
	}

	l.logger.Info("Training container started", "container_id", resp.ID, "name", name, "image", l.image)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
