package segments

import (
	"fmt"
	"math"
	"strings"
)

// TranscriptSegment is one timed utterance from the transcription stage.
// Times are seconds from the start of the source audio.
type TranscriptSegment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.End - s.Start
}

// TranslatedSegment pairs a source segment with its translated text. Timing
// is inherited from the source segment by ordinal; it is never re-derived
// from the translated text, since synthesized audio length is reconciled
// separately at the dubbing stage.
type TranslatedSegment struct {
	Index      int     `json:"index"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SourceText string  `json:"source_text"`
	TargetText string  `json:"target_text"`
}

// Duration returns the inherited segment length in seconds.
func (s TranslatedSegment) Duration() float64 {
	return s.End - s.Start
}

// Translate builds a TranslatedSegment carrying the source timing.
func (s TranscriptSegment) Translate(target string) TranslatedSegment {
	return TranslatedSegment{
		Index:      s.Index,
		Start:      s.Start,
		End:        s.End,
		SourceText: s.Text,
		TargetText: target,
	}
}

// Cue is one subtitle entry. Sequence numbers are 1-based and contiguous.
type Cue struct {
	Seq   int     `json:"seq"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// CuesFromTranslated renders subtitle cues from translated segments. Timing
// is copied, never recomputed.
func CuesFromTranslated(translated []TranslatedSegment) []Cue {
	cues := make([]Cue, 0, len(translated))
	for i, seg := range translated {
		cues = append(cues, Cue{
			Seq:   i + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.TargetText),
		})
	}
	return cues
}

// ValidateNonEmpty fails when the segment list is empty.
func ValidateNonEmpty(segs []TranscriptSegment) error {
	if len(segs) == 0 {
		return fmt.Errorf("transcript contains no segments")
	}
	return nil
}

// ValidateOrdering checks the per-transcript timing invariants: every
// segment's start precedes its end, segments are sorted by start time, and
// no segment starts before the previous one ends.
func ValidateOrdering(segs []TranscriptSegment) error {
	var prevEnd float64
	for i, seg := range segs {
		if seg.Start >= seg.End {
			return fmt.Errorf("segment %d: start %.3f must precede end %.3f", i, seg.Start, seg.End)
		}
		if i > 0 && seg.Start < prevEnd {
			return fmt.Errorf("segment %d: start %.3f overlaps previous end %.3f", i, seg.Start, prevEnd)
		}
		prevEnd = seg.End
	}
	return nil
}

// DurationDelta reports a segment whose synthesized audio length diverges
// from the source timing by more than the tolerance.
type DurationDelta struct {
	Index int     `json:"index"`
	Delta float64 `json:"delta"`
}

// ReconcileDurations compares synthesized per-segment durations against the
// source timing and returns the deltas that exceed tolerance. The result is
// advisory: callers surface it as warnings and never adjust audio.
// Synthesized entries beyond the segment list are ignored; missing entries
// count as zero-length audio.
func ReconcileDurations(translated []TranslatedSegment, synthesized []float64, tolerance float64) []DurationDelta {
	var deltas []DurationDelta
	for i, seg := range translated {
		var actual float64
		if i < len(synthesized) {
			actual = synthesized[i]
		}
		delta := actual - seg.Duration()
		if math.Abs(delta) > tolerance {
			deltas = append(deltas, DurationDelta{Index: seg.Index, Delta: delta})
		}
	}
	return deltas
}

// TotalDuration sums the inherited source durations of translated segments.
func TotalDuration(translated []TranslatedSegment) float64 {
	var total float64
	for _, seg := range translated {
		total += seg.Duration()
	}
	return total
}
