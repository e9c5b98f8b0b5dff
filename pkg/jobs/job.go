// Package jobs implements the bounded background-job worker pool that
// backs the Job API surface (submit/status/cancel/retry): graph
// generation runs as a job so an HTTP layer can return a job id
// immediately and poll status rather than blocking on an LLM round-trip.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is a job's lifecycle stage.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Progress mirrors emit.Progress so a job's status can surface a
// pipeline's staged percentage without pkg/jobs depending on internal/emit.
type Progress struct {
	Stage           string
	Percentage      float64
	Message         string
	ChunksProcessed *int
	TotalChunks     *int
}

// Func is the work a submitted job runs. It should report progress via
// the supplied callback and respect ctx cancellation.
type Func func(ctx context.Context, report func(Progress)) (any, error)

// Spec is what a caller submits.
type Spec struct {
	Func        Func
	MaxAttempts int // default 1 (no automatic internal retry; Retry() is caller-driven)
}

// Job is the status(jobId) response shape.
type Job struct {
	ID                      string
	State                   State
	Progress                Progress
	Result                  any
	Err                     error
	Attempts                int
	MaxAttempts             int
	CreatedAt               time.Time
	UpdatedAt               time.Time
	EstimatedCompletionTime *time.Time

	cancel context.CancelFunc
}

func newJobID() string {
	return uuid.NewString()
}
