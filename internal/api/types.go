package api

import "redub/internal/progress"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a dubbing run in a transport-friendly format.
type Run struct {
	ID              string      `json:"id"`
	SourceURL       string      `json:"sourceUrl"`
	TargetLanguage  string      `json:"targetLanguage"`
	Status          string      `json:"status"`
	Progress        RunProgress `json:"progress"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	CancelRequested bool        `json:"cancelRequested"`
	CreatedAt       string      `json:"createdAt,omitempty"`
	UpdatedAt       string      `json:"updatedAt,omitempty"`
}

// RunProgress captures stage progress information for a run.
type RunProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// StageResult is one attempt record from a run's stage history.
type StageResult struct {
	Stage           string  `json:"stage"`
	Status          string  `json:"status"`
	Attempts        int     `json:"attempts"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
	CreatedAt       string  `json:"createdAt,omitempty"`
}

// Artifact locates one typed file produced by a stage.
type Artifact struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	Checksum  string `json:"checksum,omitempty"`
	Stage     string `json:"stage"`
	Attempt   int    `json:"attempt"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// RunDetail bundles a run with its stage history and artifact locators.
type RunDetail struct {
	Run       Run           `json:"run"`
	Stages    []StageResult `json:"stages"`
	Artifacts []Artifact    `json:"artifacts"`
}

// Event mirrors the progress hub event shape on the wire.
type Event = progress.Event

// SubmitRequest is the payload for creating a run.
type SubmitRequest struct {
	Source         string `json:"source"`
	TargetLanguage string `json:"target_language"`
}

// SubmitResponse acknowledges a created run.
type SubmitResponse struct {
	RunID string `json:"run_id"`
}

// RunListResponse wraps a collection of runs.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps a single run with its history.
type RunResponse struct {
	Run RunDetail `json:"run"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
