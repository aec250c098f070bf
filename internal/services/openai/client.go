package openai

import (
	"errors"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/services"
)

// Client wraps the OpenAI API for transcription, translation, and synthesis.
type Client struct {
	api             *openai.Client
	transcribeModel string
	translateModel  string
	speechModel     string
	voice           string
	logger          *slog.Logger
}

// NewClient builds a client from the configured credentials and model names.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	apiConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		apiConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	return &Client{
		api:             openai.NewClientWithConfig(apiConfig),
		transcribeModel: cfg.OpenAI.TranscribeModel,
		translateModel:  cfg.OpenAI.TranslateModel,
		speechModel:     cfg.OpenAI.SpeechModel,
		voice:           cfg.Dubbing.Voice,
		logger:          logging.NewComponentLogger(logger, "openai"),
	}
}

// classifyAPIError maps an API failure onto the retry policy. Rate limits and
// server-side errors retry; auth problems point at configuration; anything
// the API rejected outright is permanent.
func classifyAPIError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return services.Wrap(services.ErrTransient, "openai", operation, "rate limited", err)
		case apiErr.HTTPStatusCode >= 500:
			return services.Wrap(services.ErrTransient, "openai", operation, "provider unavailable", err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "openai", operation, "credentials rejected", err)
		default:
			return services.Wrap(services.ErrPermanent, "openai", operation, "request rejected", err)
		}
	}
	// Anything that never reached the API is a network-level problem.
	return services.Wrap(services.ErrTransient, "openai", operation, "request failed", err)
}
