package dubbing

import (
	"context"

	"redub/internal/segments"
	"redub/internal/services/ytdlp"
)

// Downloader fetches a source video to a local file.
type Downloader interface {
	Download(ctx context.Context, sourceURL, destPath string, progress func(ytdlp.ProgressUpdate)) error
}

// MediaProcessor covers the ffmpeg-backed transforms.
type MediaProcessor interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	StripSubtitles(ctx context.Context, source, dest string) error
	ConcatAudio(ctx context.Context, listFile, dest string) error
	Mux(ctx context.Context, video, audio, subtitles, dest, languageTag string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Transcriber converts audio into timestamped transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]segments.TranscriptSegment, error)
}

// Translator translates transcript segments while preserving their timing.
type Translator interface {
	TranslateSegments(ctx context.Context, transcript []segments.TranscriptSegment, targetTag string) ([]segments.TranslatedSegment, error)
}

// Synthesizer renders text as spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, destPath string) error
}
