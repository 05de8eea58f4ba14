package history

import (
	"strings"
	"time"
)

// Status is the lifecycle position of a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusWriting    Status = "writing"
	StatusRendering  Status = "rendering"
	StatusAssembling Status = "assembling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus maps a stored or user-supplied value onto a Status.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusPending, StatusWriting, StatusRendering, StatusAssembling, StatusCompleted, StatusFailed:
		return s, true
	default:
		return "", false
	}
}

// Run is one generation run recorded in history.
type Run struct {
	ID              int64
	RunID           string
	Kind            string
	Topic           string
	Title           string
	OutputDir       string
	Status          Status
	ProgressStage   string
	ProgressMessage string
	TurnCount       int
	SegmentCount    int
	SkippedImages   int
	VideoPath       string
	Outcome         string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
	// NotifiedAt is set once the run's result notification was delivered.
	NotifiedAt *time.Time
}

// SetFailed records a failure with its outcome (failed, rejected, canceled).
func (r *Run) SetFailed(message, outcome string) {
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.ErrorMessage = strings.TrimSpace(message)
	r.Outcome = outcome
	r.FinishedAt = &now
}

// SetCompleted records success.
func (r *Run) SetCompleted() {
	now := time.Now().UTC()
	r.Status = StatusCompleted
	r.Outcome = "completed"
	r.ErrorMessage = ""
	r.ProgressMessage = "Completed"
	r.FinishedAt = &now
}

// Elapsed returns the wall time of a finished run, or time since creation.
func (r Run) Elapsed() time.Duration {
	end := time.Now().UTC()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if r.CreatedAt.IsZero() {
		return 0
	}
	return end.Sub(r.CreatedAt)
}
