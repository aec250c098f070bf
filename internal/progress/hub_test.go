package progress_test

import (
	"context"
	"testing"
	"time"

	"redub/internal/progress"
)

func TestHubAssignsSequences(t *testing.T) {
	hub := progress.NewHub(16)

	first := hub.Publish(progress.Event{Type: progress.EventStageStarted, RunID: "a"})
	second := hub.Publish(progress.Event{Type: progress.EventStageSucceeded, RunID: "a"})
	if first.Seq == 0 || second.Seq != first.Seq+1 {
		t.Fatalf("unexpected sequences: %d, %d", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected publish to stamp the event")
	}
}

func TestFetchResumesFromCursor(t *testing.T) {
	hub := progress.NewHub(16)
	hub.Publish(progress.Event{Type: progress.EventStageStarted, RunID: "a"})
	hub.Publish(progress.Event{Type: progress.EventStageSucceeded, RunID: "a"})

	events, next, err := hub.Fetch(context.Background(), progress.FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	hub.Publish(progress.Event{Type: progress.EventRunCompleted, RunID: "a"})
	events, _, err = hub.Fetch(context.Background(), progress.FetchOptions{Since: next})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != progress.EventRunCompleted {
		t.Fatalf("expected only the new event, got %#v", events)
	}
}

func TestFetchFiltersByRun(t *testing.T) {
	hub := progress.NewHub(16)
	hub.Publish(progress.Event{Type: progress.EventStageStarted, RunID: "a"})
	hub.Publish(progress.Event{Type: progress.EventStageStarted, RunID: "b"})
	hub.Publish(progress.Event{Type: progress.EventStageSucceeded, RunID: "a"})

	events, _, err := hub.Fetch(context.Background(), progress.FetchOptions{RunID: "a"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for run a, got %d", len(events))
	}
	for _, event := range events {
		if event.RunID != "a" {
			t.Fatalf("unexpected run in results: %#v", event)
		}
	}
}

func TestFetchWaitWakesOnPublish(t *testing.T) {
	hub := progress.NewHub(16)

	done := make(chan progress.Event, 1)
	go func() {
		events, _, err := hub.Fetch(context.Background(), progress.FetchOptions{Wait: true})
		if err != nil || len(events) == 0 {
			close(done)
			return
		}
		done <- events[0]
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Publish(progress.Event{Type: progress.EventWarning, RunID: "a", Message: "drift"})

	select {
	case event, ok := <-done:
		if !ok {
			t.Fatal("fetch returned without events")
		}
		if event.Type != progress.EventWarning {
			t.Fatalf("unexpected event: %#v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake on publish")
	}
}

func TestFetchWaitHonorsContext(t *testing.T) {
	hub := progress.NewHub(16)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, progress.FetchOptions{Wait: true})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBufferDropsOldest(t *testing.T) {
	hub := progress.NewHub(4)
	for i := 0; i < 10; i++ {
		hub.Publish(progress.Event{Type: progress.EventStageProgress, RunID: "a"})
	}

	events, _, err := hub.Fetch(context.Background(), progress.FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected capacity-bounded replay, got %d", len(events))
	}
	if events[0].Seq != 7 {
		t.Fatalf("expected oldest retained seq 7, got %d", events[0].Seq)
	}
}
