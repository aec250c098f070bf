package daemon_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"redub/internal/api"
	"redub/internal/artifacts"
	"redub/internal/daemon"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/testsupport"
	"redub/internal/workflow"
)

func startTestDaemon(t *testing.T) (*daemon.Daemon, *api.Client) {
	t.Helper()
	d, _, _ := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, api.NewClient("http://"+d.Addr(), "")
}

func waitForRunStatus(t *testing.T, client *api.Client, runID, want string, timeout time.Duration) *api.RunDetail {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		detail, err := client.GetRun(context.Background(), runID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if detail.Run.Status == want {
			return detail
		}
		if time.Now().After(deadline) {
			t.Fatalf("run %s never reached %s (last %s)", runID, want, detail.Run.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestAPISubmitAndDescribe(t *testing.T) {
	_, client := startTestDaemon(t)
	ctx := context.Background()

	resp, err := client.Submit(ctx, "https://example.com/watch?v=1", "FR")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("expected a run id")
	}

	detail := waitForRunStatus(t, client, resp.RunID, string(queue.StatusCompleted), 10*time.Second)
	if detail.Run.TargetLanguage != "fr" {
		t.Fatalf("expected canonical language fr, got %q", detail.Run.TargetLanguage)
	}
	if len(detail.Stages) != 8 {
		t.Fatalf("expected 8 stage results, got %d", len(detail.Stages))
	}

	runs, err := client.ListRuns(ctx, string(queue.StatusCompleted))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != resp.RunID {
		t.Fatalf("unexpected list result: %+v", runs)
	}
}

func TestAPIListRejectsUnknownStatus(t *testing.T) {
	_, client := startTestDaemon(t)

	_, err := client.ListRuns(context.Background(), "bogus")
	if err == nil {
		t.Fatal("expected list to fail")
	}
	if !strings.Contains(err.Error(), `unknown status "bogus"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPISubmitRejectsBadLanguage(t *testing.T) {
	_, client := startTestDaemon(t)

	_, err := client.Submit(context.Background(), "https://example.com/watch?v=2", "not a language")
	if err == nil {
		t.Fatal("expected submission to fail")
	}
	if !strings.Contains(err.Error(), "not a valid language tag") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPIRunNotFound(t *testing.T) {
	_, client := startTestDaemon(t)

	if _, err := client.GetRun(context.Background(), "missing"); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestAPIEventsStreamToCompletion(t *testing.T) {
	_, client := startTestDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Submit(ctx, "https://example.com/watch?v=3", "fr")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var events []api.Event
	err = client.WatchEvents(ctx, resp.RunID, 0, func(event api.Event) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("watch events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected events from the stream")
	}
	last := events[len(events)-1]
	if last.Type != progress.EventRunCompleted {
		t.Fatalf("expected terminal run_completed event, got %s", last.Type)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("events out of order at %d: %d then %d", i, events[i-1].Seq, events[i].Seq)
		}
	}
}

func TestAPIPurgeRemovesArtifacts(t *testing.T) {
	_, client := startTestDaemon(t)
	ctx := context.Background()

	resp, err := client.Submit(ctx, "https://example.com/watch?v=4", "fr")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForRunStatus(t, client, resp.RunID, string(queue.StatusCompleted), 10*time.Second)

	if err := client.PurgeRun(ctx, resp.RunID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	detail, err := client.GetRun(ctx, resp.RunID)
	if err != nil {
		t.Fatalf("get run after purge: %v", err)
	}
	if len(detail.Artifacts) != 0 {
		t.Fatalf("expected no artifacts after purge, got %d", len(detail.Artifacts))
	}
}

func TestAPIBearerTokenAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "sekrit"
	store := testsupport.MustOpenStore(t, cfg)
	artifactStore := artifacts.NewStore(cfg, store)
	hub := progress.NewHub(0)
	reporter := progress.NewReporter(hub, logging.NewNop())
	manager := workflow.NewManager(cfg, store, reporter, logging.NewNop(), stubStages())

	d, err := daemon.New(cfg, store, artifactStore, hub, manager, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/status", d.Addr()))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	client := api.NewClient("http://"+d.Addr(), "sekrit")
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("authorized status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon status")
	}
}
