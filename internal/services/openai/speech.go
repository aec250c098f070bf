package openai

import (
	"context"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"redub/internal/logging"
	"redub/internal/services"
)

// Synthesize renders text as spoken audio and writes it to destPath as MP3
// using the configured voice.
func (c *Client) Synthesize(ctx context.Context, text, destPath string) error {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return classifyAPIError("synthesize", err)
	}
	defer resp.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return services.Wrap(services.ErrStorage, "synthesize", "synthesize", "create audio file", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp)
	if err != nil {
		return services.Wrap(services.ErrStorage, "synthesize", "synthesize", "write audio file", err)
	}
	c.logger.Debug("synthesized speech",
		logging.String("path", destPath),
		logging.Int64("bytes", written),
	)
	return nil
}
