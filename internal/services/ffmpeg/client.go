package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/services"
)

// Client invokes ffmpeg and ffprobe.
type Client struct {
	ffmpegBin  string
	ffprobeBin string
	logger     *slog.Logger
}

// NewClient builds a client using the binaries named in the config.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		ffmpegBin:  cfg.FFmpegBinary(),
		ffprobeBin: cfg.FFprobeBinary(),
		logger:     logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// FFmpegBinary returns the configured ffmpeg binary name.
func (c *Client) FFmpegBinary() string {
	return c.ffmpegBin
}

// FFprobeBinary returns the configured ffprobe binary name.
func (c *Client) FFprobeBinary() string {
	return c.ffprobeBin
}

func (c *Client) run(ctx context.Context, operation string, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegBin, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("running ffmpeg",
		logging.String("operation", operation),
		logging.String("args", strings.Join(args, " ")),
	)
	if err := cmd.Run(); err != nil {
		output := tailLines(stderr.String(), 12)
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTransient, "ffmpeg", operation, "ffmpeg interrupted", ctx.Err())
		}
		marker := classifyStderr(output)
		message := fmt.Sprintf("ffmpeg %s failed", operation)
		if output != "" {
			message = fmt.Sprintf("%s: %s", message, output)
		}
		return services.Wrap(marker, "ffmpeg", operation, message, err)
	}
	return nil
}

func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
