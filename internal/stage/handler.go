package stage

import (
	"context"

	"redub/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare validates inputs and locates the artifacts the stage consumes;
// Execute performs the work and commits outputs. Both receive the run and
// mutate its progress fields; the manager persists the run between calls.
type Handler interface {
	Prepare(context.Context, *queue.Run) error
	Execute(context.Context, *queue.Run) error
	HealthCheck(context.Context) Health
}
