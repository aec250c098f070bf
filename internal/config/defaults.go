package config

const (
	defaultWorkspaceDir    = "~/.local/share/redub/workspace"
	defaultLogDir          = "~/.local/share/redub/logs"
	defaultAPIBind         = "127.0.0.1:7587"
	defaultTargetLanguage  = "fr"
	defaultVoice           = "nova"
	defaultTimingTolerance = 0.5
	defaultTranscribeModel = "whisper-1"
	defaultTranslateModel  = "gpt-4o-mini"
	defaultSpeechModel     = "tts-1"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Dubbing: Dubbing{
			TargetLanguage:         defaultTargetLanguage,
			Voice:                  defaultVoice,
			TimingToleranceSeconds: defaultTimingTolerance,
		},
		OpenAI: OpenAI{
			TranscribeModel: defaultTranscribeModel,
			TranslateModel:  defaultTranslateModel,
			SpeechModel:     defaultSpeechModel,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			Workers:            2,
			MaxAttempts:        3,
			RetryInitialDelay:  2,
			RetryMaxDelay:      60,
			Resume:             true,
		},
		Timeouts: StageTimeouts{
			Download:   1800,
			Extract:    300,
			Transcribe: 1800,
			Translate:  600,
			Synthesize: 1800,
			Strip:      300,
			Subtitles:  60,
			Mux:        600,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
