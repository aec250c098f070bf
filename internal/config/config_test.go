package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"redub/internal/config"
)

func validConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OpenAI.APIKey = "test"
	return cfg
}

func TestDefaultValidatesWithAPIKey(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "openai.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestValidateRejectsBadLanguageTag(t *testing.T) {
	cfg := validConfig(t)
	cfg.Dubbing.TargetLanguage = "not a tag"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid language tag to be rejected")
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	cfg := validConfig(t)
	cfg.Workflow.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero workers to be rejected")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	missing := filepath.Join(t.TempDir(), "absent.toml")

	cfg, path, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path != missing {
		t.Fatalf("unexpected resolved path %q", path)
	}
	if cfg.Dubbing.TargetLanguage != "fr" {
		t.Fatalf("expected default target language, got %q", cfg.Dubbing.TargetLanguage)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Fatal("expected api key to come from environment")
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
workspace_dir = "` + filepath.Join(dir, "work") + `"

[dubbing]
target_language = "fr-CA"

[openai]
api_key = "file-key"

[workflow]
workers = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Dubbing.TargetLanguage != "fr-CA" {
		t.Fatalf("unexpected target language %q", cfg.Dubbing.TargetLanguage)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("unexpected workers %d", cfg.Workflow.Workers)
	}
	if !filepath.IsAbs(cfg.Paths.WorkspaceDir) {
		t.Fatalf("workspace dir not absolute: %q", cfg.Paths.WorkspaceDir)
	}
}

func TestStageTimeoutFallback(t *testing.T) {
	if config.StageTimeout(0) <= 0 {
		t.Fatal("expected positive fallback timeout")
	}
	if got := config.StageTimeout(90); got.Seconds() != 90 {
		t.Fatalf("unexpected timeout %v", got)
	}
}

func TestSampleConfigMentionsEverySection(t *testing.T) {
	sample := config.SampleConfig()
	for _, section := range []string{"[paths]", "[dubbing]", "[openai]", "[tools]", "[workflow]", "[stage_timeouts]", "[logging]"} {
		if !strings.Contains(sample, section) {
			t.Fatalf("sample config missing %s", section)
		}
	}
}
