package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"redub/internal/artifacts"
	"redub/internal/logging"
	"redub/internal/queue"
	"redub/internal/services"
)

// processRun claims the run for its next stage and executes exactly one
// stage. Losing the claim race to another worker is not an error.
func (m *Manager) processRun(ctx context.Context, logger *slog.Logger, run *queue.Run) error {
	stg, ok := m.stageByStart[run.Status]
	if !ok {
		logger.Warn("no stage configured for status", logging.String("status", string(run.Status)))
		m.waitOrShutdown(ctx, m.pollInterval)
		return nil
	}

	if run.CancelRequested {
		return m.finishCancelled(ctx, logger, run)
	}

	if err := m.store.TransitionStatus(ctx, run.ID, stg.startStatus, stg.processingStatus); err != nil {
		var stale *queue.ErrStaleTransition
		if errors.As(err, &stale) {
			// Another worker or a cancel got there first.
			return nil
		}
		m.setLastError(err)
		return err
	}
	run.Status = stg.processingStatus

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(services.WithStage(services.WithRunID(ctx, run.ID), stg.name), requestID)
	stageLogger := logging.WithContext(stageCtx, logger)

	return m.executeStage(stageCtx, stageLogger, stg, run)
}

// executeStage runs one stage with retries. The attempt budget and backoff
// come from the workflow config; only transient failures retry.
func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, stg pipelineStage, run *queue.Run) error {
	maxAttempts := m.cfg.Workflow.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		m.reporter.StageStarted(run, stg.name, attempt)

		err := m.runStageOnce(ctx, stg, run)
		duration := time.Since(start)

		if err == nil {
			m.recordStageResult(ctx, logger, &queue.StageResult{
				RunID:    run.ID,
				Stage:    stg.name,
				Status:   queue.StageSucceeded,
				Attempts: attempt,
				Duration: duration,
			})
			return m.finishStage(ctx, logger, stg, run, attempt)
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// Shutdown, not a stage failure; startup rollback resumes the run.
			return context.Canceled
		}

		lastErr = err
		m.recordStageResult(ctx, logger, &queue.StageResult{
			RunID:        run.ID,
			Stage:        stg.name,
			Status:       queue.StageFailed,
			Attempts:     attempt,
			ErrorMessage: services.Details(err).Message,
			Duration:     duration,
		})

		// Transient failures with attempts left surface as retry_scheduled
		// only; stage_failed is reserved for the terminal outcome.
		if !services.IsTransient(err) || attempt == maxAttempts {
			m.reporter.StageFailed(run, stg.name, attempt, err)
			break
		}

		delay := m.retryDelay(attempt)
		m.reporter.RetryScheduled(run, stg.name, attempt+1, fmt.Sprintf("retrying in %s", delay))
		m.waitOrShutdown(ctx, delay)
		if ctx.Err() != nil {
			return context.Canceled
		}
		if cancelled, err := m.cancelRequested(ctx, run.ID); err == nil && cancelled {
			run.CancelRequested = true
			return m.finishCancelled(ctx, logger, run)
		}
	}

	return m.finishFailed(ctx, logger, stg, run, lastErr)
}

// runStageOnce drives Prepare then Execute under the stage's timeout.
func (m *Manager) runStageOnce(ctx context.Context, stg pipelineStage, run *queue.Run) error {
	if stg.handler == nil {
		return services.Wrap(services.ErrConfiguration, stg.name, "run stage", "stage handler not configured", nil)
	}

	stageCtx := ctx
	if stg.timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, stg.timeout)
		defer cancel()
	}

	if err := stg.handler.Prepare(stageCtx, run); err != nil {
		return err
	}
	if err := m.store.Update(stageCtx, run); err != nil {
		return services.Wrap(services.ErrStorage, stg.name, "persist preparation", "persist stage preparation", err)
	}
	if err := stg.handler.Execute(stageCtx, run); err != nil {
		if stageCtx.Err() != nil && ctx.Err() == nil {
			return services.Wrap(services.ErrTransient, stg.name, "run stage",
				fmt.Sprintf("stage exceeded its %s budget", stg.timeout), stageCtx.Err())
		}
		return err
	}
	return nil
}

func (m *Manager) finishStage(ctx context.Context, logger *slog.Logger, stg pipelineStage, run *queue.Run, attempt int) error {
	run.Status = stg.doneStatus
	if run.Status == queue.StatusCompleted {
		run.ProgressPercent = 100
		if run.ProgressStage == "" {
			run.ProgressStage = "Completed"
		}
	}
	if err := m.store.Update(ctx, run); err != nil {
		m.setLastError(err)
		return services.Wrap(services.ErrStorage, stg.name, "persist result", "persist stage result", err)
	}
	m.reporter.StageSucceeded(run, stg.name, attempt)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(run.Status)),
	)

	if run.Status == queue.StatusCompleted {
		m.reporter.RunCompleted(run, m.finalPath(ctx, run.ID))
	}
	return nil
}

func (m *Manager) finishFailed(ctx context.Context, logger *slog.Logger, stg pipelineStage, run *queue.Run, stageErr error) error {
	details := services.Details(stageErr)
	message := details.Message
	if message == "" {
		message = fmt.Sprintf("%s failed without error detail", stg.name)
	}
	run.SetFailed(message)
	if err := m.store.Update(ctx, run); err != nil {
		logger.Error("failed to persist run failure", logging.Error(err))
	}
	m.reporter.RunFailed(run, stageErr)
	m.setLastError(stageErr)
	return stageErr
}

func (m *Manager) finishCancelled(ctx context.Context, logger *slog.Logger, run *queue.Run) error {
	run.SetCancelled()
	if err := m.store.Update(ctx, run); err != nil {
		logger.Error("failed to persist cancellation", logging.Error(err))
		return err
	}
	m.reporter.RunCancelled(run)
	return nil
}

func (m *Manager) cancelRequested(ctx context.Context, runID string) (bool, error) {
	current, err := m.store.GetByID(ctx, runID)
	if err != nil || current == nil {
		return false, err
	}
	return current.CancelRequested, nil
}

func (m *Manager) retryDelay(attempt int) time.Duration {
	initial := time.Duration(m.cfg.Workflow.RetryInitialDelay) * time.Second
	if initial <= 0 {
		initial = time.Second
	}
	max := time.Duration(m.cfg.Workflow.RetryMaxDelay) * time.Second
	if max <= 0 {
		max = time.Minute
	}
	delay := initial << (attempt - 1)
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay
}

func (m *Manager) finalPath(ctx context.Context, runID string) string {
	artifact, err := m.store.LatestArtifact(ctx, runID, artifacts.KindFinalVideo)
	if err != nil || artifact == nil {
		return ""
	}
	return artifact.Path
}

func (m *Manager) recordStageResult(ctx context.Context, logger *slog.Logger, result *queue.StageResult) {
	if err := m.store.AppendStageResult(ctx, result); err != nil {
		logger.Warn("failed to record stage result", logging.Error(err))
	}
}
