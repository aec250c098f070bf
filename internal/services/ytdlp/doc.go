// Package ytdlp wraps the yt-dlp command line downloader. It fetches a source
// video to a local MP4, surfaces download percentages as progress callbacks,
// and classifies failures so unavailable videos fail fast while network
// hiccups stay retryable.
package ytdlp
