package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"redub/internal/services"
)

// ProbeDuration returns a media file's duration in seconds as reported by the
// container. ffprobe failures on an existing file mean the download or a
// previous transform produced garbage, so they classify as permanent.
func (c *Client) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := exec.CommandContext(ctx, c.ffprobeBin, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, services.Wrap(services.ErrTransient, "ffmpeg", "probe", "ffprobe interrupted", ctx.Err())
		}
		output := tailLines(stderr.String(), 4)
		message := "ffprobe failed"
		if output != "" {
			message = fmt.Sprintf("%s: %s", message, output)
		}
		return 0, services.Wrap(services.ErrPermanent, "ffmpeg", "probe", message, err)
	}

	raw := strings.TrimSpace(stdout.String())
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrPermanent, "ffmpeg", "probe", fmt.Sprintf("ffprobe returned unparseable duration %q", raw), err)
	}
	if duration <= 0 {
		return 0, services.Wrap(services.ErrPermanent, "ffmpeg", "probe", fmt.Sprintf("ffprobe reported non-positive duration %v", duration), nil)
	}
	return duration, nil
}
