package training

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestReadStateMissingFileIsIdle(t *testing.T) {
	got := ReadState(filepath.Join(t.TempDir(), ProgressFile))
	if got.Status != domain.TrainingIdle {
		t.Fatalf("status = %q, want %q", got.Status, domain.TrainingIdle)
	}
}

func TestReadStateCorruptFileIsUnknown(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":      "{not json",
		"empty status": `{"step":3}`,
		"empty file":   "",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ProgressFile)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if got := ReadState(path); got.Status != domain.TrainingUnknown {
				t.Fatalf("status = %q, want %q", got.Status, domain.TrainingUnknown)
			}
		})
	}
}

func TestWriteStateRoundTrip(t *testing.T) {
	path := ProgressPath(t.TempDir())
	want := domain.TrainingState{Status: domain.TrainingRunning, Step: 4, TotalSteps: 10, Loss: 1.9}
	if err := WriteState(path, want); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if diff := cmp.Diff(want, ReadState(path)); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestMockLoss(t *testing.T) {
	want := []float64{2.5, 2.4, 2.1, 2.0}
	for i, w := range want {
		if got := MockLoss(i); got < w-1e-9 || got > w+1e-9 {
			t.Fatalf("MockLoss(%d) = %v, want %v", i, got, w)
		}
	}
}
