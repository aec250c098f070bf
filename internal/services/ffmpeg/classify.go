package ffmpeg

import (
	"regexp"
	"strings"

	"redub/internal/services"
)

// Patterns that mark an input or invocation problem no retry will fix.
var permanentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)no such file or directory`),
	regexp.MustCompile(`(?i)invalid data found when processing input`),
	regexp.MustCompile(`(?i)moov atom not found`),
	regexp.MustCompile(`(?i)invalid argument`),
	regexp.MustCompile(`(?i)unknown encoder`),
	regexp.MustCompile(`(?i)unrecognized option`),
	regexp.MustCompile(`(?i)stream map .* matches no streams`),
	regexp.MustCompile(`(?i)does not contain any stream`),
	regexp.MustCompile(`(?i)permission denied`),
}

// Patterns for conditions that tend to clear on a second attempt.
var transientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)connection (reset|refused|timed out)`),
	regexp.MustCompile(`(?i)temporary failure`),
	regexp.MustCompile(`(?i)resource temporarily unavailable`),
	regexp.MustCompile(`(?i)no space left on device`),
	regexp.MustCompile(`(?i)input/output error`),
}

// classifyStderr decides whether an ffmpeg failure is worth retrying based on
// the captured stderr tail. Unknown failures default to transient so a flaky
// environment gets its retries; genuinely bad input matches a permanent
// pattern and fails fast.
func classifyStderr(output string) error {
	normalized := strings.ToLower(output)
	for _, pattern := range permanentPatterns {
		if pattern.MatchString(normalized) {
			return services.ErrPermanent
		}
	}
	for _, pattern := range transientPatterns {
		if pattern.MatchString(normalized) {
			return services.ErrTransient
		}
	}
	return services.ErrTransient
}
