package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// ToSRT renders segments as an SRT document. Records are numbered from 1 in
// input order; text is trimmed. An empty list yields an empty string.
func ToSRT(segs []Segment) string {
	if len(segs) == 0 {
		return ""
	}
	records := make([]string, 0, len(segs))
	for i, seg := range segs {
		var b strings.Builder
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(FormatTimecode(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimecode(seg.End))
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteByte('\n')
		records = append(records, b.String())
	}
	return strings.Join(records, "\n")
}

// CountCues returns the number of non-empty cue blocks in an SRT document.
func CountCues(content string) int {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return 0
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// Bounds reports the earliest start and latest end time in an SRT document.
// found is false when no cue carries a parseable start time.
func Bounds(content string) (first, last float64, found bool) {
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			continue
		}
		if start, err := ParseTimecode(parts[0]); err == nil {
			if !found || start < first {
				first = start
			}
			found = true
		}
		if end, err := ParseTimecode(parts[1]); err == nil && end > last {
			last = end
		}
	}
	return first, last, found
}

// Validate checks an SRT document for format issues. An empty slice means
// validation passed.
func Validate(content string) []string {
	var issues []string

	cues := CountCues(content)
	if cues == 0 {
		return append(issues, "empty_subtitle_file")
	}

	first, last, found := Bounds(content)
	if !found {
		issues = append(issues, "no_valid_timestamps")
	} else if last < first {
		issues = append(issues, fmt.Sprintf("inverted_bounds: first=%.3fs last=%.3fs", first, last))
	}
	return issues
}
