package segments_test

import (
	"strings"
	"testing"

	"redub/internal/segments"
)

func TestFormatSRTTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{59.999, "00:00:59,999"},
		{61.25, "00:01:01,250"},
		{3661.042, "01:01:01,042"},
	}
	for _, tc := range cases {
		if got := segments.FormatSRTTimestamp(tc.seconds); got != tc.want {
			t.Errorf("FormatSRTTimestamp(%f) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestRenderSRTShape(t *testing.T) {
	cues := []segments.Cue{
		{Seq: 1, Start: 0, End: 3, Text: "Bonjour le monde"},
		{Seq: 2, Start: 3, End: 6, Text: "Ceci est un exemple"},
	}
	out := segments.RenderSRT(cues)
	want := "1\n00:00:00,000 --> 00:00:03,000\nBonjour le monde\n\n" +
		"2\n00:00:03,000 --> 00:00:06,000\nCeci est un exemple\n\n"
	if out != want {
		t.Fatalf("unexpected srt output:\n%q\nwant\n%q", out, want)
	}
}

func TestSRTRoundTrip(t *testing.T) {
	translated := []segments.TranslatedSegment{
		{Index: 0, Start: 0.042, End: 2.999, TargetText: "Bonjour"},
		{Index: 1, Start: 3.5, End: 6.001, TargetText: "Comment allez-vous ?"},
		{Index: 2, Start: 7, End: 10.25, TargetText: "Au revoir"},
	}
	cues := segments.CuesFromTranslated(translated)
	parsed, err := segments.ParseSRT(segments.RenderSRT(cues))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(parsed) != len(cues) {
		t.Fatalf("expected %d cues, got %d", len(cues), len(parsed))
	}
	for i, cue := range cues {
		got := parsed[i]
		if got.Seq != i+1 {
			t.Errorf("cue %d: seq %d", i, got.Seq)
		}
		// Round-trip must preserve timing to the millisecond.
		if diff := got.Start - cue.Start; diff > 0.0005 || diff < -0.0005 {
			t.Errorf("cue %d: start %f != %f", i, got.Start, cue.Start)
		}
		if diff := got.End - cue.End; diff > 0.0005 || diff < -0.0005 {
			t.Errorf("cue %d: end %f != %f", i, got.End, cue.End)
		}
		if got.Text != cue.Text {
			t.Errorf("cue %d: text %q != %q", i, got.Text, cue.Text)
		}
	}
}

func TestParseSRTToleratesCRLFAndPeriodMillis(t *testing.T) {
	content := "1\r\n00:00:00.000 --> 00:00:02.500\r\nSalut\r\n\r\n"
	cues, err := segments.ParseSRT(content)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(cues) != 1 || cues[0].End != 2.5 || cues[0].Text != "Salut" {
		t.Fatalf("unexpected cues %#v", cues)
	}
}

func TestParseSRTRejectsGarbage(t *testing.T) {
	for _, content := range []string{
		"not a number\n00:00:00,000 --> 00:00:01,000\nhi\n\n",
		"1\nno arrow here\nhi\n\n",
		"1\n00:00 --> 00:01\nhi\n\n",
	} {
		if _, err := segments.ParseSRT(content); err == nil {
			t.Errorf("expected parse failure for %q", strings.Split(content, "\n")[1])
		}
	}
}

func TestParseSRTMultilineText(t *testing.T) {
	content := "1\n00:00:00,000 --> 00:00:02,000\nligne un\nligne deux\n\n"
	cues, err := segments.ParseSRT(content)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if cues[0].Text != "ligne un\nligne deux" {
		t.Fatalf("unexpected text %q", cues[0].Text)
	}
}
