package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeDubbing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	if strings.TrimSpace(c.OpenAI.TranscribeModel) == "" {
		c.OpenAI.TranscribeModel = defaultTranscribeModel
	}
	if strings.TrimSpace(c.OpenAI.TranslateModel) == "" {
		c.OpenAI.TranslateModel = defaultTranslateModel
	}
	if strings.TrimSpace(c.OpenAI.SpeechModel) == "" {
		c.OpenAI.SpeechModel = defaultSpeechModel
	}
}

func (c *Config) normalizeDubbing() {
	c.Dubbing.TargetLanguage = strings.TrimSpace(c.Dubbing.TargetLanguage)
	if c.Dubbing.TargetLanguage == "" {
		c.Dubbing.TargetLanguage = defaultTargetLanguage
	}
	c.Dubbing.Voice = strings.TrimSpace(c.Dubbing.Voice)
	if c.Dubbing.Voice == "" {
		c.Dubbing.Voice = defaultVoice
	}
	if c.Dubbing.TimingToleranceSeconds <= 0 {
		c.Dubbing.TimingToleranceSeconds = defaultTimingTolerance
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
