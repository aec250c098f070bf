package api

import (
	"time"

	"redub/internal/queue"
	"redub/internal/workflow"
)

// FromRun converts a persisted run into its transport shape.
func FromRun(run *queue.Run) Run {
	if run == nil {
		return Run{}
	}
	return Run{
		ID:             run.ID,
		SourceURL:      run.SourceURL,
		TargetLanguage: run.TargetLanguage,
		Status:         string(run.Status),
		Progress: RunProgress{
			Stage:   run.ProgressStage,
			Percent: run.ProgressPercent,
			Message: run.ProgressMessage,
		},
		ErrorMessage:    run.ErrorMessage,
		CancelRequested: run.CancelRequested,
		CreatedAt:       formatTime(run.CreatedAt),
		UpdatedAt:       formatTime(run.UpdatedAt),
	}
}

// FromRuns converts a slice of persisted runs.
func FromRuns(runs []*queue.Run) []Run {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRun(run))
	}
	return out
}

// FromStageResult converts a stage history row.
func FromStageResult(result *queue.StageResult) StageResult {
	if result == nil {
		return StageResult{}
	}
	return StageResult{
		Stage:           result.Stage,
		Status:          result.Status,
		Attempts:        result.Attempts,
		ErrorMessage:    result.ErrorMessage,
		DurationSeconds: result.Duration.Seconds(),
		CreatedAt:       formatTime(result.CreatedAt),
	}
}

// FromArtifact converts an artifact locator row.
func FromArtifact(artifact *queue.Artifact) Artifact {
	if artifact == nil {
		return Artifact{}
	}
	return Artifact{
		Kind:      artifact.Kind,
		Path:      artifact.Path,
		SizeBytes: artifact.SizeBytes,
		Checksum:  artifact.Checksum,
		Stage:     artifact.Stage,
		Attempt:   artifact.Attempt,
		CreatedAt: formatTime(artifact.CreatedAt),
	}
}

// FromSummary flattens queue counts into a stats map keyed by status group.
func FromSummary(summary queue.Summary) map[string]int {
	return map[string]int{
		"total":      summary.Total,
		"pending":    summary.Pending,
		"processing": summary.Processing,
		"completed":  summary.Completed,
		"failed":     summary.Failed,
		"cancelled":  summary.Cancelled,
	}
}

// FromStatusSummary converts the workflow status snapshot.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	checks := make([]StageHealth, 0, len(summary.Stages))
	for _, check := range summary.Stages {
		checks = append(checks, StageHealth{
			Name:   check.Stage,
			Ready:  check.Health.Ready,
			Detail: check.Health.Detail,
		})
	}
	return WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  FromSummary(summary.Queue),
		LastError:   summary.LastError,
		StageHealth: checks,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
