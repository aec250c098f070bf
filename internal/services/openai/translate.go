package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"redub/internal/logging"
	"redub/internal/segments"
	"redub/internal/services"
)

// TranslateSegments translates each transcript segment into the target
// language, preserving count, order, and timing. Each segment is translated
// in its own request with the surrounding text as context so pronouns and
// phrasing stay coherent across cuts.
func (c *Client) TranslateSegments(ctx context.Context, transcript []segments.TranscriptSegment, targetTag string) ([]segments.TranslatedSegment, error) {
	languageName, err := displayName(targetTag)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "translate", fmt.Sprintf("invalid target language %q", targetTag), err)
	}

	systemPrompt := fmt.Sprintf(
		"You are a professional subtitle translator. Translate the user's text into %s. "+
			"Keep the register and tone of the original. Reply with the translation only, "+
			"no quotes and no commentary.", languageName)

	translated := make([]segments.TranslatedSegment, 0, len(transcript))
	for i, seg := range transcript {
		messages := []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		}
		// Offer the previous exchange as context for continuity.
		if i > 0 {
			messages = append(messages,
				openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: transcript[i-1].Text},
				openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: translated[i-1].TargetText},
			)
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: seg.Text})

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.translateModel,
			Messages: messages,
		})
		if err != nil {
			return nil, classifyAPIError("translate", err)
		}
		if len(resp.Choices) == 0 {
			return nil, services.Wrap(services.ErrTransient, "translate", "translate", "provider returned no choices", nil)
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return nil, services.Wrap(services.ErrContractViolation, "translate", "translate", fmt.Sprintf("empty translation for segment %d", seg.Index), nil)
		}

		translated = append(translated, seg.Translate(text))
	}

	c.logger.Info("translation complete",
		logging.Int("segments", len(translated)),
		logging.String("target_language", targetTag),
	)
	return translated, nil
}

// displayName renders a BCP-47 tag as an English language name for prompts.
func displayName(tag string) (string, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", err
	}
	return display.English.Languages().Name(parsed), nil
}
