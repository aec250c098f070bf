package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a dubbing run. Every processing status
// has a matching done status so an interrupted run can resume at the first
// incomplete stage.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusExtracting   Status = "extracting"
	StatusExtracted    Status = "extracted"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusTranslating  Status = "translating"
	StatusTranslated   Status = "translated"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusStripping    Status = "stripping"
	StatusStripped     Status = "stripped"
	StatusSubtitling   Status = "subtitling"
	StatusSubtitled    Status = "subtitled"
	StatusMuxing       Status = "muxing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// UserCancelMessage is the error message recorded when a user cancels a run.
const UserCancelMessage = "Cancelled by user"

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusDownloaded,
	StatusExtracting,
	StatusExtracted,
	StatusTranscribing,
	StatusTranscribed,
	StatusTranslating,
	StatusTranslated,
	StatusSynthesizing,
	StatusSynthesized,
	StatusStripping,
	StatusStripped,
	StatusSubtitling,
	StatusSubtitled,
	StatusMuxing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusExtracting:   {},
	StatusTranscribing: {},
	StatusTranslating:  {},
	StatusSynthesizing: {},
	StatusStripping:    {},
	StatusSubtitling:   {},
	StatusMuxing:       {},
}

// stageRollback maps each processing status to the done status the run falls
// back to when the daemon restarts mid-stage.
var stageRollback = map[Status]Status{
	StatusDownloading:  StatusPending,
	StatusExtracting:   StatusDownloaded,
	StatusTranscribing: StatusExtracted,
	StatusTranslating:  StatusTranscribed,
	StatusSynthesizing: StatusTranslated,
	StatusStripping:    StatusSynthesized,
	StatusSubtitling:   StatusStripped,
	StatusMuxing:       StatusSubtitled,
}

// Run represents one dubbing job persisted in SQLite.
type Run struct {
	ID              string
	SourceURL       string
	TargetLanguage  string
	Status          Status
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StageResult is one immutable entry in a run's stage history.
type StageResult struct {
	ID           int64
	RunID        string
	Stage        string
	Status       string
	Attempts     int
	ErrorMessage string
	Duration     time.Duration
	CreatedAt    time.Time
}

// Stage result statuses.
const (
	StageSucceeded = "succeeded"
	StageFailed    = "failed"
	StageCancelled = "cancelled"
)

// Artifact is a locator row for a typed file produced by a stage. Rows are
// append-only; a retried stage writes a new row with a higher attempt.
type Artifact struct {
	ID        int64
	RunID     string
	Kind      string
	Path      string
	SizeBytes int64
	Checksum  string
	Stage     string
	Attempt   int
	CreatedAt time.Time
}

// Summary describes aggregated run counts per key lifecycle states.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing reports whether the status reflects an in-flight stage.
func IsProcessing(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the status ends the run's lifecycle.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// RollbackStatus returns the done status a processing status resumes from.
func RollbackStatus(processing Status) (Status, bool) {
	done, ok := stageRollback[processing]
	return done, ok
}

// SetProgress updates the three progress fields together.
func (r *Run) SetProgress(stage, message string, percent float64) {
	r.ProgressStage = stage
	r.ProgressMessage = message
	r.ProgressPercent = percent
}

// SetFailed marks the run as failed with the given error message.
func (r *Run) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.ProgressStage = "Failed"
	r.ProgressPercent = 0
	r.ProgressMessage = message
}

// SetCancelled marks the run as cancelled.
func (r *Run) SetCancelled() {
	r.Status = StatusCancelled
	r.ErrorMessage = UserCancelMessage
	r.ProgressStage = "Cancelled"
	r.ProgressMessage = UserCancelMessage
}
