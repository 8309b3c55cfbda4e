package engine

import (
	"context"

	"github.com/leapstack-labs/mdrsync/internal/state"
)

// runRecorder wraps the optional ledger. Ledger failures are logged and
// never abort a sync.
type runRecorder struct {
	e     *Engine
	runID string
}

func (e *Engine) beginRun(ctx context.Context, direction state.Direction) *runRecorder {
	r := &runRecorder{e: e}
	if e.ledger == nil {
		return r
	}
	run, err := e.ledger.CreateRun(ctx, direction, e.namespace)
	if err != nil {
		e.logger.Warn("failed to record run start", "error", err)
		return r
	}
	r.runID = run.ID
	e.logger.Debug("run started", "run_id", run.ID, "direction", direction)
	return r
}

func (r *runRecorder) record(ctx context.Context, a state.Action) {
	if r.runID == "" {
		return
	}
	a.RunID = r.runID
	if err := r.e.ledger.RecordAction(ctx, &a); err != nil {
		r.e.logger.Warn("failed to record action", "run_id", r.runID, "designation", a.Designation, "error", err)
	}
}

// finish marks the run completed or failed by err and returns err unchanged.
func (r *runRecorder) finish(ctx context.Context, err error) error {
	if r.runID == "" {
		return err
	}
	status, msg := state.RunStatusCompleted, ""
	if err != nil {
		status, msg = state.RunStatusFailed, err.Error()
	}
	// The sync context may already be cancelled; the ledger write is local.
	if cerr := r.e.ledger.CompleteRun(context.WithoutCancel(ctx), r.runID, status, msg); cerr != nil {
		r.e.logger.Warn("failed to record run completion", "run_id", r.runID, "error", cerr)
	}
	return err
}
