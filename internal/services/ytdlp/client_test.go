package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"redub/internal/services"
)

func TestNewCLIWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/yt-dlp"))
	if cli.binary != "/opt/yt-dlp" {
		t.Fatalf("expected binary override, got %q", cli.binary)
	}
	if NewCLI(WithBinary("")).binary != "yt-dlp" {
		t.Fatal("empty override must keep the default")
	}
}

func TestDownloadRequiresInputs(t *testing.T) {
	cli := NewCLI()
	if err := cli.Download(context.Background(), "", "/tmp/out.mp4", nil); err == nil {
		t.Fatal("expected error for missing url")
	}
	if err := cli.Download(context.Background(), "https://example.com/v", "", nil); err == nil {
		t.Fatal("expected error for missing destination")
	}
}

func TestDownloadReportsProgress(t *testing.T) {
	setHelperCommand(t, "success")

	cli := NewCLI()
	dest := filepath.Join(t.TempDir(), "video.mp4")

	var updates []ProgressUpdate
	err := cli.Download(context.Background(), "https://example.com/watch?v=1", dest, func(update ProgressUpdate) {
		updates = append(updates, update)
	})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 progress updates, got %d", len(updates))
	}
	if updates[len(updates)-1].Percent != 100 {
		t.Fatalf("expected final 100 percent, got %f", updates[len(updates)-1].Percent)
	}
}

func TestDownloadClassifiesUnavailableVideo(t *testing.T) {
	setHelperCommand(t, "unavailable")

	cli := NewCLI()
	err := cli.Download(context.Background(), "https://example.com/watch?v=2", "/tmp/out.mp4", nil)
	if err == nil {
		t.Fatal("expected failure for unavailable video")
	}
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestDownloadClassifiesNetworkFailure(t *testing.T) {
	setHelperCommand(t, "network")

	cli := NewCLI()
	err := cli.Download(context.Background(), "https://example.com/watch?v=3", "/tmp/out.mp4", nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !services.IsTransient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("YTDLP_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("YTDLP_HELPER_MODE") {
	case "success":
		fmt.Println("[download] Destination: video.mp4")
		fmt.Println("[download]   0.0% of ~120.00MiB at 4.20MiB/s")
		fmt.Println("[download]  55.5% of ~120.00MiB at 4.20MiB/s")
		fmt.Println("[download] 100% of 120.00MiB in 00:29")
		os.Exit(0)
	case "unavailable":
		fmt.Println("ERROR: [youtube] abc: Video unavailable")
		os.Exit(1)
	case "network":
		fmt.Println("ERROR: unable to download video data: <urlopen error timed out>")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
