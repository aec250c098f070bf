package queue

import (
	"context"
	"fmt"
	"time"
)

// ErrStaleTransition reports a compare-and-set status update that found the
// run in a different state than expected, usually because another worker or a
// cancel request got there first.
type ErrStaleTransition struct {
	RunID    string
	Expected Status
	Target   Status
}

func (e *ErrStaleTransition) Error() string {
	return fmt.Sprintf("run %s is no longer %s; refusing transition to %s", e.RunID, e.Expected, e.Target)
}

// TransitionStatus moves a run from one status to another atomically. The
// update only applies when the run is still in the expected status, which is
// how workers claim runs without stepping on each other.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to Status) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		timestamp,
		id,
		from,
	)
	if err != nil {
		return fmt.Errorf("transition run %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition run %s: %w", id, err)
	}
	if affected == 0 {
		return &ErrStaleTransition{RunID: id, Expected: from, Target: to}
	}
	return nil
}

// RequestCancel flags a run for cancellation. Pending runs are cancelled
// immediately; in-flight runs keep the flag and the worker honors it at the
// next stage boundary. Terminal runs are left untouched. The flag is written
// with its own statement so a worker's concurrent progress Update cannot
// overwrite it.
func (s *Store) RequestCancel(ctx context.Context, id string) (*Run, error) {
	run, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if IsTerminal(run.Status) {
		return run, nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET cancel_requested = 1, updated_at = ? WHERE id = ?`,
		timestamp,
		id,
	); err != nil {
		return nil, fmt.Errorf("request cancel for run %s: %w", id, err)
	}
	// A pending run has no worker watching the flag, so finish it here. The
	// status guard keeps this from racing a worker that just claimed it.
	if run.Status == StatusPending {
		if _, err := s.execWithRetry(
			ctx,
			`UPDATE runs
             SET status = ?, error_message = ?, progress_stage = ?, progress_message = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusCancelled,
			UserCancelMessage,
			"Cancelled",
			UserCancelMessage,
			timestamp,
			id,
			StatusPending,
		); err != nil {
			return nil, fmt.Errorf("cancel run %s: %w", id, err)
		}
	}
	return s.GetByID(ctx, id)
}

// RetryFailed resets a failed or cancelled run back to pending so the
// workflow picks it up from the start.
func (s *Store) RetryFailed(ctx context.Context, id string) (*Run, error) {
	run, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if run.Status != StatusFailed && run.Status != StatusCancelled {
		return nil, fmt.Errorf("run %s is %s; only failed or cancelled runs can be retried", id, run.Status)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET cancel_requested = 0, updated_at = ? WHERE id = ?`,
		timestamp,
		id,
	); err != nil {
		return nil, fmt.Errorf("clear cancel for run %s: %w", id, err)
	}
	run.Status = StatusPending
	run.ErrorMessage = ""
	run.CancelRequested = false
	run.SetProgress("", "", 0)
	if err := s.Update(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ResetStuckProcessing rolls runs abandoned mid-stage back to the done status
// of the previous stage so a restart resumes where the crash left off. When
// resume is disabled the runs fall all the way back to pending.
func (s *Store) ResetStuckProcessing(ctx context.Context, resume bool) (int, error) {
	total := 0
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for processing, done := range stageRollback {
		target := done
		if !resume {
			target = StatusPending
		}
		res, err := s.execWithRetry(
			ctx,
			`UPDATE runs SET status = ?, updated_at = ?, progress_message = ? WHERE status = ?`,
			target,
			timestamp,
			"interrupted; resuming",
			processing,
		)
		if err != nil {
			return total, fmt.Errorf("reset stuck runs: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("reset stuck runs: %w", err)
		}
		total += int(affected)
	}
	return total, nil
}
