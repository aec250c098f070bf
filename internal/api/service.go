package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"redub/internal/artifacts"
	"redub/internal/progress"
	"redub/internal/queue"
)

// ErrInvalidRequest marks submission errors the caller can fix. HTTP
// handlers map it to a 400 response.
var ErrInvalidRequest = errors.New("invalid request")

// RunService exposes run operations over the queue, artifact store, and
// progress hub, returning API DTOs.
type RunService struct {
	store     *queue.Store
	artifacts *artifacts.Store
	hub       *progress.Hub
}

// NewRunService constructs a RunService. The artifact store and hub are
// optional; operations that need them fail cleanly when absent.
func NewRunService(store *queue.Store, artifactStore *artifacts.Store, hub *progress.Hub) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store, artifacts: artifactStore, hub: hub}
}

// Submit validates a dubbing request and enqueues a new run. The target
// language must be a well-formed BCP 47 tag; it is stored canonicalized.
func (s *RunService) Submit(ctx context.Context, source, targetLanguage string) (Run, error) {
	if s == nil || s.store == nil {
		return Run{}, errors.New("run service unavailable")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return Run{}, fmt.Errorf("%w: source URL is required", ErrInvalidRequest)
	}
	tag, err := NormalizeLanguage(targetLanguage)
	if err != nil {
		return Run{}, err
	}
	run, err := s.store.NewRun(ctx, source, tag)
	if err != nil {
		return Run{}, err
	}
	return FromRun(run), nil
}

// NormalizeLanguage validates a BCP 47 tag and returns its canonical form.
func NormalizeLanguage(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: target language is required", ErrInvalidRequest)
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a valid language tag", ErrInvalidRequest, trimmed)
	}
	return tag.String(), nil
}

// List returns runs filtered by optional statuses, newest last.
func (s *RunService) List(ctx context.Context, statuses ...queue.Status) ([]Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	runs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// Describe fetches a run together with its stage history and artifacts.
// A nil result with nil error means the run does not exist.
func (s *RunService) Describe(ctx context.Context, id string) (*RunDetail, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.GetByID(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}

	detail := &RunDetail{Run: FromRun(run)}
	results, err := s.store.StageResultsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		detail.Stages = append(detail.Stages, FromStageResult(result))
	}
	rows, err := s.store.ArtifactsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		detail.Artifacts = append(detail.Artifacts, FromArtifact(row))
	}
	return detail, nil
}

// Cancel requests cancellation of a run.
func (s *RunService) Cancel(ctx context.Context, id string) (Run, error) {
	if s == nil || s.store == nil {
		return Run{}, errors.New("run service unavailable")
	}
	run, err := s.store.RequestCancel(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return FromRun(run), nil
}

// Retry resets a failed or cancelled run back to pending.
func (s *RunService) Retry(ctx context.Context, id string) (Run, error) {
	if s == nil || s.store == nil {
		return Run{}, errors.New("run service unavailable")
	}
	run, err := s.store.RetryFailed(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return FromRun(run), nil
}

// Purge removes a run's artifact files and locator rows. The run row and
// its stage history are kept.
func (s *RunService) Purge(ctx context.Context, id string) error {
	if s == nil {
		return errors.New("run service unavailable")
	}
	if s.artifacts == nil {
		return errors.New("artifact store unavailable")
	}
	run, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	return s.artifacts.Purge(ctx, id)
}

// Events fetches ordered progress events from the hub, optionally blocking
// until new ones arrive.
func (s *RunService) Events(ctx context.Context, opts progress.FetchOptions) ([]Event, uint64, error) {
	if s == nil || s.hub == nil {
		return nil, opts.Since, nil
	}
	return s.hub.Fetch(ctx, opts)
}

// Summary returns aggregate queue statistics.
func (s *RunService) Summary(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	summary, err := s.store.Summarize(ctx)
	if err != nil {
		return nil, err
	}
	return FromSummary(summary), nil
}
