// Package state records sync runs and their per-row outcomes in a local
// SQLite ledger.
package state

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Direction is the sync direction of a run.
type Direction string

// Sync directions.
const (
	DirectionPull Direction = "pull"
	DirectionPush Direction = "push"
)

// ActionKind describes what happened to one element or row.
type ActionKind string

// Action kinds.
const (
	ActionPulled  ActionKind = "pulled"
	ActionCreated ActionKind = "created"
	ActionUpdated ActionKind = "updated"
	ActionSkipped ActionKind = "skipped"
)

// Run is one pull or push invocation.
type Run struct {
	ID          string     `json:"id"`
	Direction   Direction  `json:"direction"`
	Namespace   string     `json:"namespace"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Action is the outcome for one element (pull) or main-system row (push).
type Action struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	Designation  string     `json:"designation"`
	VariableName string     `json:"variable_name"`
	Kind         ActionKind `json:"action"`
	URN          string     `json:"urn,omitempty"`
	Fallback     bool       `json:"fallback"`
	Detail       string     `json:"detail,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Store persists runs and actions.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(ctx context.Context, direction Direction, namespace string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	RecordAction(ctx context.Context, action *Action) error
	ListActions(ctx context.Context, runID string) ([]*Action, error)
}
