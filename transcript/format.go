// Package transcript turns pipeline segments into the plain-text transcript
// and writes it to disk.
package transcript

import (
	"fmt"
	"math"
	"strings"
)

const (
	// NoResults is returned by both formatters for an empty segment list.
	NoResults = "No transcription results."

	// UnknownSpeaker labels segments the diarizer did not attribute.
	UnknownSpeaker = "UNKNOWN"
)

// FormatTimestamp renders seconds as HH:MM:SS, truncating at every unit.
// Hours grow past two digits when needed.
func FormatTimestamp(seconds float64) string {
	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// WithSpeakers groups consecutive segments of the same speaker into one
// "[HH:MM:SS] SPEAKER: text" line. The timestamp is the start of the first
// non-empty segment in the block.
func WithSpeakers(segments []Segment) string {
	if len(segments) == 0 {
		return NoResults
	}

	var (
		lines   []string
		current string
		open    bool
		parts   []string
		start   float64
	)
	flush := func() {
		if open && len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", FormatTimestamp(start), current, strings.Join(parts, " ")))
		}
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := seg.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}

		if !open || speaker != current {
			flush()
			current = speaker
			open = true
			parts = []string{text}
			start = seg.Start
			continue
		}
		parts = append(parts, text)
	}
	flush()

	return strings.Join(lines, "\n\n")
}

// Simple renders one "[HH:MM:SS] text" line per non-empty segment.
func Simple(segments []Segment) string {
	if len(segments) == 0 {
		return NoResults
	}

	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", FormatTimestamp(seg.Start), text))
	}
	return strings.Join(lines, "\n\n")
}
