package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
)

// Manager coordinates run processing across a pool of stage workers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	reporter     *progress.Reporter
	logger       *slog.Logger
	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	claimOrder   []queue.Status
	pollInterval time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager over a stage set.
func NewManager(cfg *config.Config, store *queue.Store, reporter *progress.Reporter, logger *slog.Logger, set StageSet) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if reporter == nil {
		reporter = progress.NewReporter(nil, logger)
	}
	stages := buildPipeline(cfg, set)
	byStart := make(map[queue.Status]pipelineStage, len(stages))
	claimOrder := make([]queue.Status, 0, len(stages))
	for _, stg := range stages {
		byStart[stg.startStatus] = stg
		claimOrder = append(claimOrder, stg.startStatus)
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		reporter:     reporter,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		stages:       stages,
		stageByStart: byStart,
		claimOrder:   claimOrder,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
	}
}

// Start rolls interrupted runs back to their last checkpoint and launches the
// worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	reset, err := m.store.ResetStuckProcessing(ctx, m.cfg.Workflow.Resume)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if reset > 0 {
		m.logger.Info("rolled back interrupted runs",
			logging.Int("count", reset),
			logging.Bool("resume", m.cfg.Workflow.Resume),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for workers to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		run, err := m.store.NextForStatuses(ctx, m.claimOrder...)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to fetch next run",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
			)
			m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}
		if run == nil {
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}

		if err := m.processRun(ctx, logger, run); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
