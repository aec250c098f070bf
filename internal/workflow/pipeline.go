package workflow

import (
	"log/slog"
	"time"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/dubbing"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Download   stage.Handler
	Extract    stage.Handler
	Transcribe stage.Handler
	Translate  stage.Handler
	Synthesize stage.Handler
	Strip      stage.Handler
	Subtitles  stage.Handler
	Mux        stage.Handler
}

// DefaultStages builds the production stage set.
func DefaultStages(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) StageSet {
	return StageSet{
		Download:   dubbing.NewDownload(cfg, store, artifactStore, reporter, logger),
		Extract:    dubbing.NewExtract(cfg, store, artifactStore, reporter, logger),
		Transcribe: dubbing.NewTranscribe(cfg, store, artifactStore, reporter, logger),
		Translate:  dubbing.NewTranslate(cfg, store, artifactStore, reporter, logger),
		Synthesize: dubbing.NewSynthesize(cfg, store, artifactStore, reporter, logger),
		Strip:      dubbing.NewStrip(cfg, store, artifactStore, reporter, logger),
		Subtitles:  dubbing.NewSubtitles(cfg, store, artifactStore, reporter, logger),
		Mux:        dubbing.NewMux(cfg, store, artifactStore, reporter, logger),
	}
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
	timeout          time.Duration
}

func buildPipeline(cfg *config.Config, set StageSet) []pipelineStage {
	return []pipelineStage{
		{
			name:             "download",
			handler:          set.Download,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusDownloading,
			doneStatus:       queue.StatusDownloaded,
			timeout:          config.StageTimeout(cfg.Timeouts.Download),
		},
		{
			name:             "extract",
			handler:          set.Extract,
			startStatus:      queue.StatusDownloaded,
			processingStatus: queue.StatusExtracting,
			doneStatus:       queue.StatusExtracted,
			timeout:          config.StageTimeout(cfg.Timeouts.Extract),
		},
		{
			name:             "transcribe",
			handler:          set.Transcribe,
			startStatus:      queue.StatusExtracted,
			processingStatus: queue.StatusTranscribing,
			doneStatus:       queue.StatusTranscribed,
			timeout:          config.StageTimeout(cfg.Timeouts.Transcribe),
		},
		{
			name:             "translate",
			handler:          set.Translate,
			startStatus:      queue.StatusTranscribed,
			processingStatus: queue.StatusTranslating,
			doneStatus:       queue.StatusTranslated,
			timeout:          config.StageTimeout(cfg.Timeouts.Translate),
		},
		{
			name:             "synthesize",
			handler:          set.Synthesize,
			startStatus:      queue.StatusTranslated,
			processingStatus: queue.StatusSynthesizing,
			doneStatus:       queue.StatusSynthesized,
			timeout:          config.StageTimeout(cfg.Timeouts.Synthesize),
		},
		{
			name:             "strip",
			handler:          set.Strip,
			startStatus:      queue.StatusSynthesized,
			processingStatus: queue.StatusStripping,
			doneStatus:       queue.StatusStripped,
			timeout:          config.StageTimeout(cfg.Timeouts.Strip),
		},
		{
			name:             "subtitles",
			handler:          set.Subtitles,
			startStatus:      queue.StatusStripped,
			processingStatus: queue.StatusSubtitling,
			doneStatus:       queue.StatusSubtitled,
			timeout:          config.StageTimeout(cfg.Timeouts.Subtitles),
		},
		{
			name:             "mux",
			handler:          set.Mux,
			startStatus:      queue.StatusSubtitled,
			processingStatus: queue.StatusMuxing,
			doneStatus:       queue.StatusCompleted,
			timeout:          config.StageTimeout(cfg.Timeouts.Mux),
		},
	}
}
