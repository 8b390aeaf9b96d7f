package domain

// Training job states.
const (
	TrainingIdle      = "idle"
	TrainingRunning   = "training"
	TrainingCompleted = "completed"
	TrainingFailed    = "failed"
	TrainingUnknown   = "unknown"
)

// TrainingState is the progress snapshot written by a training worker.
type TrainingState struct {
	Status     string  `json:"status"`
	Step       int     `json:"step,omitempty"`
	TotalSteps int     `json:"total_steps,omitempty"`
	Loss       float64 `json:"loss,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Terminal reports whether the job will not progress further.
func (s TrainingState) Terminal() bool {
	return s.Status == TrainingCompleted || s.Status == TrainingFailed
}
