package progress_test

import (
	"context"
	"errors"
	"testing"

	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/services"
)

func TestReporterPublishesLifecycle(t *testing.T) {
	hub := progress.NewHub(32)
	reporter := progress.NewReporter(hub, nil)
	run := &queue.Run{ID: "run-1", Status: queue.StatusDownloading}

	reporter.StageStarted(run, "download", 1)
	reporter.StageFailed(run, "download", 1, services.Wrap(services.ErrTransient, "download", "fetch", "connection reset", errors.New("reset")))
	reporter.RetryScheduled(run, "download", 2, "retrying in 2s")
	reporter.StageSucceeded(run, "download", 2)
	reporter.RunCompleted(run, "/tmp/final.mp4")

	events, _, err := hub.Fetch(context.Background(), progress.FetchOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}

	failed := events[1]
	if failed.Type != progress.EventStageFailed {
		t.Fatalf("unexpected event order: %#v", events)
	}
	if failed.ErrorKind != "transient" {
		t.Fatalf("expected transient classification, got %q", failed.ErrorKind)
	}
	if failed.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", failed.Attempt)
	}

	last := events[len(events)-1]
	if !last.Terminal() || last.Type != progress.EventRunCompleted {
		t.Fatalf("expected terminal completion, got %#v", last)
	}
	if last.Percent != 100 {
		t.Fatalf("expected 100 percent on completion, got %v", last.Percent)
	}
}

func TestReporterWithoutHub(t *testing.T) {
	reporter := progress.NewReporter(nil, nil)
	run := &queue.Run{ID: "run-2"}

	// Must not panic when no hub is attached.
	reporter.Warning(run, "synthesize", "dubbed audio runs 0.8s long")
	reporter.RunFailed(run, services.Wrap(services.ErrPermanent, "mux", "mux", "no video stream", nil))
}
