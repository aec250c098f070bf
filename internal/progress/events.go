package progress

import "time"

// EventType labels a run lifecycle event.
type EventType string

const (
	EventStageStarted   EventType = "stage_started"
	EventStageProgress  EventType = "stage_progress"
	EventStageSucceeded EventType = "stage_succeeded"
	EventStageFailed    EventType = "stage_failed"
	EventRetryScheduled EventType = "retry_scheduled"
	EventWarning        EventType = "warning"
	EventRunCompleted   EventType = "run_completed"
	EventRunFailed      EventType = "run_failed"
	EventRunCancelled   EventType = "run_cancelled"
)

// Event is one observation of a run's progress. Seq is assigned by the hub
// and increases monotonically across all runs.
type Event struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Percent   float64   `json:"percent,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether the event ends its run's stream.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventRunCompleted, EventRunFailed, EventRunCancelled:
		return true
	default:
		return false
	}
}
