package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"redub/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures one yt-dlp download progress line.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Client defines download behaviour.
type Client interface {
	Download(ctx context.Context, sourceURL, destPath string, progress func(ProgressUpdate)) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the yt-dlp command line downloader.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// progressLine matches yt-dlp's "[download]  42.3% of ~10.2MiB" output.
var progressLine = regexp.MustCompile(`\[download\]\s+([0-9.]+)%`)

// Patterns that mark the source itself as unusable.
var permanentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)video unavailable`),
	regexp.MustCompile(`(?i)private video`),
	regexp.MustCompile(`(?i)this video is not available`),
	regexp.MustCompile(`(?i)unsupported url`),
	regexp.MustCompile(`(?i)is not a valid url`),
	regexp.MustCompile(`(?i)http error 40[134]`),
	regexp.MustCompile(`(?i)sign in to confirm`),
	regexp.MustCompile(`(?i)copyright`),
}

// Download fetches the source video into destPath as MP4. Output lines are
// scanned for progress percentages and the stderr tail rides along on the
// returned error.
func (c *CLI) Download(ctx context.Context, sourceURL, destPath string, progress func(ProgressUpdate)) error {
	if strings.TrimSpace(sourceURL) == "" {
		return services.Wrap(services.ErrConfiguration, "download", "download", "source url required", nil)
	}
	if strings.TrimSpace(destPath) == "" {
		return services.Wrap(services.ErrConfiguration, "download", "download", "destination path required", nil)
	}

	args := []string{
		"--no-playlist",
		"--no-part",
		"--newline",
		"-f", "mp4/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best",
		"-o", destPath,
		sourceURL,
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "download", "stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrConfiguration, "download", "download", "start yt-dlp", err)
	}

	var outputTail []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		outputTail = append(outputTail, line)
		if len(outputTail) > 12 {
			outputTail = outputTail[1:]
		}
		if match := progressLine.FindStringSubmatch(line); match != nil {
			if percent, err := strconv.ParseFloat(match[1], 64); err == nil && progress != nil {
				progress(ProgressUpdate{Percent: percent, Message: strings.TrimSpace(line)})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return services.Wrap(services.ErrTransient, "download", "download", "read yt-dlp output", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTransient, "download", "download", "download interrupted", ctx.Err())
		}
		tail := strings.TrimSpace(strings.Join(outputTail, "\n"))
		marker := classifyOutput(tail)
		message := "yt-dlp failed"
		if tail != "" {
			message += ": " + tail
		}
		return services.Wrap(marker, "download", "download", message, err)
	}
	return nil
}

func classifyOutput(output string) error {
	for _, pattern := range permanentPatterns {
		if pattern.MatchString(output) {
			return services.ErrPermanent
		}
	}
	return services.ErrTransient
}

var _ Client = (*CLI)(nil)

// ErrBinaryMissing reports an unresolvable yt-dlp binary.
var ErrBinaryMissing = errors.New("yt-dlp binary not found")

// CheckBinary verifies the configured binary resolves in PATH.
func (c *CLI) CheckBinary() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return ErrBinaryMissing
	}
	return nil
}
