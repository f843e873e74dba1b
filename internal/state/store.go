// Package state records pipeline run history in SQLite.
// Every command that executes stages creates a run; each executed stage of
// each family adds a stage run with its row counts and outcome.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// ErrRunNotFound is returned when no run matches an id.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run or stage run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded invocation of one or more stages.
type Run struct {
	ID          string        `json:"id"`
	Command     string        `json:"command"`
	Families    []core.Family `json:"families"`
	Steps       []core.Step   `json:"steps"`
	Status      RunStatus     `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Duration returns the elapsed run time, or zero while running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StageRun is the outcome of one step for one family.
type StageRun struct {
	ID          string      `json:"id"`
	RunID       string      `json:"run_id"`
	Family      core.Family `json:"family"`
	Step        core.Step   `json:"step"`
	Status      RunStatus   `json:"status"`
	RowsIn      int         `json:"rows_in"`
	RowsOut     int         `json:"rows_out"`
	Removed     int         `json:"removed"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	// Details is the stage report encoded as JSON.
	Details string `json:"details,omitempty"`
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, command string, families []core.Family, steps []core.Step) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	RecordStage(ctx context.Context, sr *StageRun) error
	ListStageRuns(ctx context.Context, runID string) ([]*StageRun, error)
	Close() error
}
