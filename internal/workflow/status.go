package workflow

import (
	"context"

	"redub/internal/queue"
	"redub/internal/stage"
)

// StageHealth pairs a pipeline stage with its readiness probe result.
type StageHealth struct {
	Stage  string
	Health stage.Health
}

// StatusSummary captures a point-in-time view of the workflow for the API and
// the status command.
type StatusSummary struct {
	Running   bool
	LastError string
	Queue     queue.Summary
	Stages    []StageHealth
}

// Running reports whether the worker pool is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent background processing error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Status collects queue counts and per-stage health probes.
func (m *Manager) Status(ctx context.Context) (StatusSummary, error) {
	summary, err := m.store.Summarize(ctx)
	if err != nil {
		return StatusSummary{}, err
	}
	out := StatusSummary{
		Running: m.Running(),
		Queue:   summary,
		Stages:  m.CheckHealth(ctx),
	}
	if err := m.LastError(); err != nil {
		out.LastError = err.Error()
	}
	return out, nil
}

// CheckHealth probes every configured stage handler.
func (m *Manager) CheckHealth(ctx context.Context) []StageHealth {
	checks := make([]StageHealth, 0, len(m.stages))
	for _, stg := range m.stages {
		if stg.handler == nil {
			checks = append(checks, StageHealth{
				Stage:  stg.name,
				Health: stage.Unhealthy(stg.name, "handler not configured"),
			})
			continue
		}
		checks = append(checks, StageHealth{Stage: stg.name, Health: stg.handler.HealthCheck(ctx)})
	}
	return checks
}
