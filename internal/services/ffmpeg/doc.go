// Package ffmpeg wraps the ffmpeg and ffprobe binaries for the media
// transforms the dubbing pipeline needs: pulling the audio track out of a
// download, dropping embedded subtitle streams, probing durations, and muxing
// the dubbed audio and generated subtitles back into the final container.
// Errors carry the tail of ffmpeg's stderr and are classified so the workflow
// knows which failures are worth retrying.
package ffmpeg
