package deps

import "redub/internal/config"

// Requirements lists the external binaries the dubbing pipeline shells out
// to, resolved against the configured tool overrides.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtdlpBinary(),
			Description: "Downloads source videos",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Extracts, strips, concatenates, and muxes media",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Measures media durations for timing checks",
		},
	}
}

// Check evaluates the standard redub requirements.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}
