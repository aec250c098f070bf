package progress

import (
	"context"
	"log/slog"

	"redub/internal/logging"
	"redub/internal/queue"
	"redub/internal/services"
)

// Reporter publishes run events to the hub and mirrors them into the log.
type Reporter struct {
	hub    *Hub
	logger *slog.Logger
}

// NewReporter wires a reporter to a hub and logger. A nil logger is replaced
// with a no-op logger; a nil hub disables event publication.
func NewReporter(hub *Hub, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reporter{hub: hub, logger: logger}
}

// Hub exposes the underlying hub for observers.
func (r *Reporter) Hub() *Hub {
	return r.hub
}

func (r *Reporter) publish(event Event, level slog.Level, msg string, attrs ...any) {
	if r.hub != nil {
		event = r.hub.Publish(event)
	}
	fields := append([]any{
		logging.String(logging.FieldRunID, event.RunID),
		logging.String(logging.FieldStage, event.Stage),
		logging.String(logging.FieldEventType, string(event.Type)),
	}, attrs...)
	r.logger.Log(context.Background(), level, msg, fields...)
}

// StageStarted records the beginning of a stage attempt.
func (r *Reporter) StageStarted(run *queue.Run, stage string, attempt int) {
	r.publish(Event{
		Type:    EventStageStarted,
		RunID:   run.ID,
		Stage:   stage,
		Attempt: attempt,
		Percent: run.ProgressPercent,
	}, slog.LevelInfo, "stage started", logging.Int(logging.FieldAttempt, attempt))
}

// StageProgress records mid-stage progress.
func (r *Reporter) StageProgress(run *queue.Run, stage, message string, percent float64) {
	r.publish(Event{
		Type:    EventStageProgress,
		RunID:   run.ID,
		Stage:   stage,
		Message: message,
		Percent: percent,
	}, slog.LevelDebug, "stage progress", logging.Float64("percent", percent))
}

// StageSucceeded records a completed stage attempt.
func (r *Reporter) StageSucceeded(run *queue.Run, stage string, attempt int) {
	r.publish(Event{
		Type:    EventStageSucceeded,
		RunID:   run.ID,
		Stage:   stage,
		Attempt: attempt,
		Percent: run.ProgressPercent,
	}, slog.LevelInfo, "stage succeeded", logging.Int(logging.FieldAttempt, attempt))
}

// StageFailed records a failed stage attempt with its error classification.
func (r *Reporter) StageFailed(run *queue.Run, stage string, attempt int, err error) {
	details := services.Details(err)
	r.publish(Event{
		Type:      EventStageFailed,
		RunID:     run.ID,
		Stage:     stage,
		Attempt:   attempt,
		ErrorKind: string(details.Kind),
		Error:     details.Message,
	}, slog.LevelError, "stage failed",
		logging.Int(logging.FieldAttempt, attempt),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.Error(err),
	)
}

// RetryScheduled records that a failed stage will be retried after a delay.
func (r *Reporter) RetryScheduled(run *queue.Run, stage string, attempt int, message string) {
	r.publish(Event{
		Type:    EventRetryScheduled,
		RunID:   run.ID,
		Stage:   stage,
		Attempt: attempt,
		Message: message,
	}, slog.LevelWarn, "retry scheduled", logging.Int(logging.FieldAttempt, attempt))
}

// Warning records an advisory that does not fail the run, such as a dubbed
// audio track running longer than the source segment.
func (r *Reporter) Warning(run *queue.Run, stage, message string) {
	r.publish(Event{
		Type:    EventWarning,
		RunID:   run.ID,
		Stage:   stage,
		Message: message,
	}, slog.LevelWarn, message)
}

// RunCompleted records the terminal success of a run.
func (r *Reporter) RunCompleted(run *queue.Run, finalPath string) {
	r.publish(Event{
		Type:    EventRunCompleted,
		RunID:   run.ID,
		Message: finalPath,
		Percent: 100,
	}, slog.LevelInfo, "run completed", logging.String("final_path", finalPath))
}

// RunFailed records the terminal failure of a run.
func (r *Reporter) RunFailed(run *queue.Run, err error) {
	details := services.Details(err)
	r.publish(Event{
		Type:      EventRunFailed,
		RunID:     run.ID,
		Stage:     run.ProgressStage,
		ErrorKind: string(details.Kind),
		Error:     details.Message,
	}, slog.LevelError, "run failed",
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.Error(err),
	)
}

// RunCancelled records that a run stopped at a user's request.
func (r *Reporter) RunCancelled(run *queue.Run) {
	r.publish(Event{
		Type:    EventRunCancelled,
		RunID:   run.ID,
		Message: queue.UserCancelMessage,
	}, slog.LevelInfo, "run cancelled")
}
