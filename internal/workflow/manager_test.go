package workflow_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/services"
	"redub/internal/stage"
	"redub/internal/testsupport"
	"redub/internal/workflow"
)

type fakeHandler struct {
	name string

	mu       sync.Mutex
	prepares int
	executes int
	execute  func(ctx context.Context, run *queue.Run, attempt int) error
}

func (f *fakeHandler) Prepare(ctx context.Context, run *queue.Run) error {
	f.mu.Lock()
	f.prepares++
	f.mu.Unlock()
	return nil
}

func (f *fakeHandler) Execute(ctx context.Context, run *queue.Run) error {
	f.mu.Lock()
	f.executes++
	attempt := f.executes
	fn := f.execute
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, run, attempt)
	}
	return nil
}

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func (f *fakeHandler) executeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executes
}

type fakeStages struct {
	download   *fakeHandler
	extract    *fakeHandler
	transcribe *fakeHandler
	translate  *fakeHandler
	synthesize *fakeHandler
	strip      *fakeHandler
	subtitles  *fakeHandler
	mux        *fakeHandler
}

func newFakeStages() *fakeStages {
	return &fakeStages{
		download:   &fakeHandler{name: "download"},
		extract:    &fakeHandler{name: "extract"},
		transcribe: &fakeHandler{name: "transcribe"},
		translate:  &fakeHandler{name: "translate"},
		synthesize: &fakeHandler{name: "synthesize"},
		strip:      &fakeHandler{name: "strip"},
		subtitles:  &fakeHandler{name: "subtitles"},
		mux:        &fakeHandler{name: "mux"},
	}
}

func (f *fakeStages) set() workflow.StageSet {
	return workflow.StageSet{
		Download:   f.download,
		Extract:    f.extract,
		Transcribe: f.transcribe,
		Translate:  f.translate,
		Synthesize: f.synthesize,
		Strip:      f.strip,
		Subtitles:  f.subtitles,
		Mux:        f.mux,
	}
}

func startManager(t *testing.T, manager *workflow.Manager) {
	t.Helper()
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	t.Cleanup(manager.Stop)
}

func waitForStatus(t *testing.T, store *queue.Store, runID string, want queue.Status, timeout time.Duration) *queue.Run {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		run, err := store.GetByID(context.Background(), runID)
		if err != nil {
			t.Fatalf("fetch run: %v", err)
		}
		if run != nil && run.Status == want {
			return run
		}
		if time.Now().After(deadline) {
			status := queue.Status("missing")
			if run != nil {
				status = run.Status
			}
			t.Fatalf("run %s never reached %s (last status %s)", runID, want, status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func fetchEvents(t *testing.T, hub *progress.Hub, runID string) []progress.Event {
	t.Helper()
	events, _, err := hub.Fetch(context.Background(), progress.FetchOptions{RunID: runID})
	if err != nil {
		t.Fatalf("fetch events: %v", err)
	}
	return events
}

func findEvent(events []progress.Event, eventType progress.EventType) (progress.Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return progress.Event{}, false
}

func TestManagerProcessesRunToCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(0)
	reporter := progress.NewReporter(hub, logging.NewNop())

	fakes := newFakeStages()
	fakes.mux.execute = func(ctx context.Context, run *queue.Run, attempt int) error {
		return store.AddArtifact(ctx, &queue.Artifact{
			RunID:   run.ID,
			Kind:    "final_video",
			Path:    "/tmp/final-1.mp4",
			Stage:   "mux",
			Attempt: attempt,
		})
	}

	run := testsupport.NewRun(t, store, "https://example.com/watch?v=1", "fr")
	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())
	startManager(t, manager)

	final := waitForStatus(t, store, run.ID, queue.StatusCompleted, 10*time.Second)
	if final.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", final.ProgressPercent)
	}
	if final.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", final.ErrorMessage)
	}

	results, err := store.StageResultsForRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("stage results: %v", err)
	}
	if len(results) != 8 {
		t.Fatalf("expected 8 stage results, got %d", len(results))
	}
	for _, result := range results {
		if result.Status != queue.StageSucceeded {
			t.Fatalf("stage %s recorded %s", result.Stage, result.Status)
		}
	}

	events := fetchEvents(t, hub, run.ID)
	completed, ok := findEvent(events, progress.EventRunCompleted)
	if !ok {
		t.Fatal("expected a run_completed event")
	}
	if completed.Message != "/tmp/final-1.mp4" {
		t.Fatalf("expected final path in completion event, got %q", completed.Message)
	}
}

func TestManagerRetriesTransientFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	cfg.Workflow.RetryInitialDelay = 1
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(0)
	reporter := progress.NewReporter(hub, logging.NewNop())

	fakes := newFakeStages()
	fakes.extract.execute = func(ctx context.Context, run *queue.Run, attempt int) error {
		if attempt == 1 {
			return services.Wrap(services.ErrTransient, "extract", "extract audio", "ffmpeg timed out", nil)
		}
		return nil
	}

	run := testsupport.NewRun(t, store, "https://example.com/watch?v=2", "fr")
	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())
	startManager(t, manager)

	waitForStatus(t, store, run.ID, queue.StatusCompleted, 15*time.Second)
	if got := fakes.extract.executeCount(); got != 2 {
		t.Fatalf("expected 2 extract attempts, got %d", got)
	}

	results, err := store.StageResultsForRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("stage results: %v", err)
	}
	var failed, succeeded bool
	for _, result := range results {
		if result.Stage != "extract" {
			continue
		}
		switch result.Status {
		case queue.StageFailed:
			failed = true
			if result.ErrorMessage == "" {
				t.Fatal("failed result should carry the error message")
			}
		case queue.StageSucceeded:
			succeeded = true
		}
	}
	if !failed || !succeeded {
		t.Fatalf("expected a failed then succeeded extract result (failed=%v succeeded=%v)", failed, succeeded)
	}

	events := fetchEvents(t, hub, run.ID)
	if _, ok := findEvent(events, progress.EventRetryScheduled); !ok {
		t.Fatal("expected a retry_scheduled event")
	}
	if failedEvent, ok := findEvent(events, progress.EventStageFailed); ok {
		t.Fatalf("recovered stage should not emit stage_failed, got %+v", failedEvent)
	}
}

func TestManagerDoesNotRetryPermanentFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(0)
	reporter := progress.NewReporter(hub, logging.NewNop())

	fakes := newFakeStages()
	fakes.transcribe.execute = func(ctx context.Context, run *queue.Run, attempt int) error {
		return services.Wrap(services.ErrPermanent, "transcribe", "transcribe audio", "audio track is empty", nil)
	}

	run := testsupport.NewRun(t, store, "https://example.com/watch?v=3", "fr")
	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())
	startManager(t, manager)

	final := waitForStatus(t, store, run.ID, queue.StatusFailed, 10*time.Second)
	if !strings.Contains(final.ErrorMessage, "audio track is empty") {
		t.Fatalf("expected failure message on run, got %q", final.ErrorMessage)
	}
	if got := fakes.transcribe.executeCount(); got != 1 {
		t.Fatalf("permanent failure should not retry, got %d attempts", got)
	}
	if got := fakes.translate.executeCount(); got != 0 {
		t.Fatalf("later stages should not run after a failure, got %d", got)
	}

	events := fetchEvents(t, hub, run.ID)
	failedEvent, ok := findEvent(events, progress.EventRunFailed)
	if !ok {
		t.Fatal("expected a run_failed event")
	}
	if failedEvent.ErrorKind != "permanent" {
		t.Fatalf("expected permanent error kind, got %q", failedEvent.ErrorKind)
	}
}

func TestManagerHonorsCancelRequests(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(0)
	reporter := progress.NewReporter(hub, logging.NewNop())

	fakes := newFakeStages()
	run := testsupport.NewRun(t, store, "https://example.com/watch?v=4", "fr")
	run.Status = queue.StatusDownloaded
	if err := store.Update(context.Background(), run); err != nil {
		t.Fatalf("update run: %v", err)
	}
	if _, err := store.RequestCancel(context.Background(), run.ID); err != nil {
		t.Fatalf("request cancel: %v", err)
	}

	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())
	startManager(t, manager)

	final := waitForStatus(t, store, run.ID, queue.StatusCancelled, 10*time.Second)
	if final.ErrorMessage != queue.UserCancelMessage {
		t.Fatalf("expected cancel message, got %q", final.ErrorMessage)
	}
	if got := fakes.extract.executeCount(); got != 0 {
		t.Fatalf("cancelled run should not reach the next stage, got %d executions", got)
	}

	events := fetchEvents(t, hub, run.ID)
	if _, ok := findEvent(events, progress.EventRunCancelled); !ok {
		t.Fatal("expected a run_cancelled event")
	}
}

func TestManagerCancelsRunFlaggedMidStage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	hub := progress.NewHub(0)
	reporter := progress.NewReporter(hub, logging.NewNop())

	fakes := newFakeStages()
	started := make(chan struct{})
	release := make(chan struct{})
	fakes.transcribe.execute = func(ctx context.Context, run *queue.Run, attempt int) error {
		close(started)
		<-release
		return nil
	}

	run := testsupport.NewRun(t, store, "https://example.com/watch?v=7", "fr")
	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())
	startManager(t, manager)

	<-started
	if _, err := store.RequestCancel(context.Background(), run.ID); err != nil {
		t.Fatalf("request cancel: %v", err)
	}
	close(release)

	final := waitForStatus(t, store, run.ID, queue.StatusCancelled, 15*time.Second)
	if final.ErrorMessage != queue.UserCancelMessage {
		t.Fatalf("expected cancel message, got %q", final.ErrorMessage)
	}
	if got := fakes.translate.executeCount(); got != 0 {
		t.Fatalf("cancel during transcribe should stop before translate, got %d executions", got)
	}
	events := fetchEvents(t, hub, run.ID)
	if _, ok := findEvent(events, progress.EventRunCancelled); !ok {
		t.Fatal("expected a run_cancelled event")
	}
}

func TestManagerResumesInterruptedRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	reporter := progress.NewReporter(progress.NewHub(0), logging.NewNop())

	fakes := newFakeStages()
	run := testsupport.NewRun(t, store, "https://example.com/watch?v=5", "fr")
	run.Status = queue.StatusTranscribing
	if err := store.Update(context.Background(), run); err != nil {
		t.Fatalf("update run: %v", err)
	}

	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())
	startManager(t, manager)

	waitForStatus(t, store, run.ID, queue.StatusCompleted, 10*time.Second)
	if got := fakes.download.executeCount(); got != 0 {
		t.Fatalf("resume should skip completed stages, download ran %d times", got)
	}
	if got := fakes.extract.executeCount(); got != 0 {
		t.Fatalf("resume should skip completed stages, extract ran %d times", got)
	}
	if got := fakes.transcribe.executeCount(); got != 1 {
		t.Fatalf("interrupted stage should rerun once, got %d", got)
	}
}

func TestManagerStatusReportsQueueAndStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	reporter := progress.NewReporter(progress.NewHub(0), logging.NewNop())

	testsupport.NewRun(t, store, "https://example.com/watch?v=6", "fr")

	fakes := newFakeStages()
	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), fakes.set())

	summary, err := manager.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if summary.Running {
		t.Fatal("manager should not report running before Start")
	}
	if summary.Queue.Pending != 1 || summary.Queue.Total != 1 {
		t.Fatalf("unexpected queue summary: %+v", summary.Queue)
	}
	if len(summary.Stages) != 8 {
		t.Fatalf("expected 8 stage health checks, got %d", len(summary.Stages))
	}
	for _, check := range summary.Stages {
		if !check.Health.Ready {
			t.Fatalf("stage %s reported unhealthy: %s", check.Stage, check.Health.Detail)
		}
	}

	startManager(t, manager)
	if !manager.Running() {
		t.Fatal("manager should report running after Start")
	}
}
