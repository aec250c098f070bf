package ffmpeg

import (
	"context"

	"golang.org/x/text/language"

	"redub/internal/services"
)

// ExtractAudio pulls the first audio stream out of a video file as MP3. The
// VBR quality setting favors transcription accuracy over file size.
func (c *Client) ExtractAudio(ctx context.Context, source, dest string) error {
	return c.run(ctx, "extract audio", extractAudioArgs(source, dest))
}

func extractAudioArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		dest,
	}
}

// StripSubtitles copies every stream except subtitles into a new container
// without re-encoding.
func (c *Client) StripSubtitles(ctx context.Context, source, dest string) error {
	return c.run(ctx, "strip subtitles", stripSubtitlesArgs(source, dest))
}

func stripSubtitlesArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-c", "copy",
		"-sn",
		dest,
	}
}

// Mux assembles the final output: the stripped video's picture, the dubbed
// audio, and the generated subtitle track tagged with the target language.
// Video is stream-copied; audio re-encodes to AAC and the SRT becomes a
// mov_text stream so the result plays as a plain MP4.
func (c *Client) Mux(ctx context.Context, video, audio, subtitles, dest, languageTag string) error {
	lang3, err := iso3(languageTag)
	if err != nil {
		return services.Wrap(services.ErrContractViolation, "ffmpeg", "mux", "target language has no ISO 639 code", err)
	}
	return c.run(ctx, "mux", muxArgs(video, audio, subtitles, dest, lang3))
}

func muxArgs(video, audio, subtitles, dest, lang3 string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", video,
		"-i", audio,
		"-i", subtitles,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-map", "2:s:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-c:s", "mov_text",
		"-metadata:s:s:0", "language=" + lang3,
		dest,
	}
}

// ConcatAudio stitches per-segment audio files into one track using the
// concat demuxer. The list file must contain one `file '<path>'` line per
// segment in playback order.
func (c *Client) ConcatAudio(ctx context.Context, listFile, dest string) error {
	return c.run(ctx, "concat audio", concatAudioArgs(listFile, dest))
}

func concatAudioArgs(listFile, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		dest,
	}
}

// iso3 maps a BCP-47 tag to the three-letter code container metadata uses.
func iso3(tag string) (string, error) {
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", err
	}
	base, _ := parsed.Base()
	return base.ISO3(), nil
}
