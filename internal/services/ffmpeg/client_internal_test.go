package ffmpeg

import (
	"errors"
	"strings"
	"testing"

	"redub/internal/services"
)

func TestClassifyStderr(t *testing.T) {
	cases := []struct {
		name      string
		stderr    string
		transient bool
	}{
		{"missing input", "input.mp4: No such file or directory", false},
		{"corrupt container", "[mov,mp4,m4a] moov atom not found", false},
		{"no subtitle stream", "Stream map '2:s:0' matches no streams.", false},
		{"connection reset", "tls @ 0x55: Connection reset by peer", true},
		{"disk full", "av_interleaved_write_frame(): No space left on device", true},
		{"unknown output", "something unexpected happened", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			marker := classifyStderr(tc.stderr)
			if tc.transient && !errors.Is(marker, services.ErrTransient) {
				t.Fatalf("expected transient for %q, got %v", tc.stderr, marker)
			}
			if !tc.transient && !errors.Is(marker, services.ErrPermanent) {
				t.Fatalf("expected permanent for %q, got %v", tc.stderr, marker)
			}
		})
	}
}

func TestExtractAudioArgs(t *testing.T) {
	args := extractAudioArgs("in.mp4", "out.mp3")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-vn -acodec libmp3lame -q:a 2") {
		t.Fatalf("unexpected extract args: %s", joined)
	}
	if args[len(args)-1] != "out.mp3" {
		t.Fatalf("destination must be last: %s", joined)
	}
}

func TestStripSubtitlesArgsCopiesStreams(t *testing.T) {
	joined := strings.Join(stripSubtitlesArgs("in.mp4", "out.mp4"), " ")
	if !strings.Contains(joined, "-c copy -sn") {
		t.Fatalf("expected stream copy without subtitles: %s", joined)
	}
}

func TestMuxArgsMapsAllInputs(t *testing.T) {
	joined := strings.Join(muxArgs("video.mp4", "dub.mp3", "subs.srt", "final.mp4", "fra"), " ")
	for _, want := range []string{
		"-map 0:v:0",
		"-map 1:a:0",
		"-map 2:s:0",
		"-c:v copy",
		"-c:a aac",
		"-c:s mov_text",
		"-metadata:s:s:0 language=fra",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("mux args missing %q: %s", want, joined)
		}
	}
}

func TestConcatAudioArgsUsesConcatDemuxer(t *testing.T) {
	joined := strings.Join(concatAudioArgs("list.txt", "dub.mp3"), " ")
	if !strings.Contains(joined, "-f concat -safe 0 -i list.txt -c copy") {
		t.Fatalf("unexpected concat args: %s", joined)
	}
}

func TestISO3(t *testing.T) {
	cases := map[string]string{
		"fr":    "fra",
		"es":    "spa",
		"de-DE": "deu",
		"ja":    "jpn",
	}
	for tag, want := range cases {
		got, err := iso3(tag)
		if err != nil {
			t.Fatalf("iso3(%q) failed: %v", tag, err)
		}
		if got != want {
			t.Fatalf("iso3(%q) = %q, want %q", tag, got, want)
		}
	}
	if _, err := iso3("not-a-language-tag!!"); err == nil {
		t.Fatal("expected parse error for invalid tag")
	}
}
