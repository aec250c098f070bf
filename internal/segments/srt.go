package segments

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderSRT serializes cues in SubRip format: `<index>\n<start> --> <end>\n
// <text>\n\n` with HH:MM:SS,mmm timestamps and 1-based contiguous indices.
// Cue sequence numbers are re-assigned from position so the output is always
// contiguous regardless of input numbering.
func RenderSRT(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(FormatSRTTimestamp(cue.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatSRTTimestamp(cue.End))
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimSpace(cue.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// ParseSRT reads SubRip content back into cues. It accepts the subset of the
// format RenderSRT produces: blocks separated by blank lines, each with an
// index line, a timing line, and one or more text lines.
func ParseSRT(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")
	cues := make([]Cue, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("srt block %d: expected index and timing lines", len(cues)+1)
		}
		seq, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("srt block %d: bad index %q", len(cues)+1, lines[0])
		}
		start, end, err := parseTimingLine(lines[1])
		if err != nil {
			return nil, fmt.Errorf("srt block %d: %w", len(cues)+1, err)
		}
		text := ""
		if len(lines) > 2 {
			text = strings.TrimSpace(strings.Join(lines[2:], "\n"))
		}
		cues = append(cues, Cue{Seq: seq, Start: start, End: end, Text: text})
	}
	return cues, nil
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad timing line %q", line)
	}
	start, err := ParseSRTTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseSRTTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseSRTTimestamp reads an HH:MM:SS,mmm timestamp into seconds. A period
// is tolerated in place of the comma.
func ParseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ".", ","))
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
