package segments_test

import (
	"testing"

	"redub/internal/segments"
)

func validTranscript() []segments.TranscriptSegment {
	return []segments.TranscriptSegment{
		{Index: 0, Start: 0, End: 3, Text: "Hello world"},
		{Index: 1, Start: 3, End: 6, Text: "This is a sample"},
		{Index: 2, Start: 6.5, End: 9, Text: "Goodbye"},
	}
}

func TestValidateOrderingAcceptsSorted(t *testing.T) {
	if err := segments.ValidateOrdering(validTranscript()); err != nil {
		t.Fatalf("expected valid transcript, got %v", err)
	}
}

func TestValidateOrderingRejectsOverlap(t *testing.T) {
	segs := validTranscript()
	segs[2].Start = 5.5 // overlaps previous end at 6
	if err := segments.ValidateOrdering(segs); err == nil {
		t.Fatal("expected overlap rejection")
	}
}

func TestValidateOrderingRejectsInvertedTimes(t *testing.T) {
	segs := []segments.TranscriptSegment{{Index: 0, Start: 4, End: 2, Text: "backwards"}}
	if err := segments.ValidateOrdering(segs); err == nil {
		t.Fatal("expected start>=end rejection")
	}
}

func TestValidateNonEmpty(t *testing.T) {
	if err := segments.ValidateNonEmpty(nil); err == nil {
		t.Fatal("expected empty transcript rejection")
	}
	if err := segments.ValidateNonEmpty(validTranscript()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTranslateCarriesTiming(t *testing.T) {
	src := segments.TranscriptSegment{Index: 3, Start: 1.25, End: 4.75, Text: "Hello"}
	out := src.Translate("Bonjour")
	if out.Index != 3 || out.Start != 1.25 || out.End != 4.75 {
		t.Fatalf("timing not carried: %#v", out)
	}
	if out.SourceText != "Hello" || out.TargetText != "Bonjour" {
		t.Fatalf("text not carried: %#v", out)
	}
}

func TestCuesFromTranslatedSequencesContiguously(t *testing.T) {
	translated := []segments.TranslatedSegment{
		{Index: 5, Start: 0, End: 2, TargetText: "Un"},
		{Index: 9, Start: 2, End: 4, TargetText: "Deux"},
	}
	cues := segments.CuesFromTranslated(translated)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	for i, cue := range cues {
		if cue.Seq != i+1 {
			t.Fatalf("cue %d has seq %d", i, cue.Seq)
		}
	}
}

func TestReconcileDurationsFlagsOnlyBeyondTolerance(t *testing.T) {
	translated := []segments.TranslatedSegment{
		{Index: 0, Start: 0, End: 3},   // source 3s
		{Index: 1, Start: 3, End: 6},   // source 3s
		{Index: 2, Start: 6, End: 10},  // source 4s
	}
	synthesized := []float64{3.2, 4.1, 4.0}

	deltas := segments.ReconcileDurations(translated, synthesized, 0.5)
	if len(deltas) != 1 {
		t.Fatalf("expected one delta, got %#v", deltas)
	}
	if deltas[0].Index != 1 {
		t.Fatalf("expected delta on segment 1, got %#v", deltas[0])
	}
	if deltas[0].Delta < 1.0 || deltas[0].Delta > 1.2 {
		t.Fatalf("unexpected delta %f", deltas[0].Delta)
	}
}

func TestReconcileDurationsMissingAudioCountsAsZero(t *testing.T) {
	translated := []segments.TranslatedSegment{{Index: 0, Start: 0, End: 2}}
	deltas := segments.ReconcileDurations(translated, nil, 0.5)
	if len(deltas) != 1 || deltas[0].Delta != -2 {
		t.Fatalf("expected -2s delta for missing audio, got %#v", deltas)
	}
}

func TestTotalDuration(t *testing.T) {
	translated := []segments.TranslatedSegment{
		{Start: 0, End: 3},
		{Start: 3, End: 7.5},
	}
	if got := segments.TotalDuration(translated); got != 7.5 {
		t.Fatalf("unexpected total %f", got)
	}
}
