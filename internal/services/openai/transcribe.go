package openai

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"redub/internal/logging"
	"redub/internal/segments"
	"redub/internal/services"
)

// Transcribe converts an audio file into ordered, timestamped segments using
// the verbose Whisper response. Silent stretches produce no segments; an
// entirely silent file returns an empty slice, which the caller treats as a
// contract failure.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]segments.TranscriptSegment, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, classifyAPIError("transcribe", err)
	}

	transcript := make([]segments.TranscriptSegment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		transcript = append(transcript, segments.TranscriptSegment{
			Index: len(transcript) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	if err := segments.ValidateOrdering(transcript); err != nil {
		return nil, services.Wrap(services.ErrContractViolation, "transcribe", "transcribe", "provider returned malformed segment timing", err)
	}
	c.logger.Info("transcription complete",
		logging.Int("segments", len(transcript)),
		logging.Float64("duration_seconds", resp.Duration),
	)
	return transcript, nil
}
