package caption

import (
	"fmt"
	"strings"
)

// placeholder cue emitted when there is no timing data, so that exports are
// always valid, non-empty files.
const (
	placeholderText  = "No timing data available"
	placeholderEndMs = 3000
)

// formatTimecode renders ms as HH:MM:SS<sep>mmm with unbounded hours.
func formatTimecode(ms int64, sep byte) string {
	totalSec := ms / 1000
	millis := ms % 1000
	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	seconds := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, millis)
}

// SRTTimecode formats a millisecond offset in SRT style (comma separator).
func SRTTimecode(ms int64) string {
	return formatTimecode(ms, ',')
}

// VTTTimecode formats a millisecond offset in WebVTT style (period separator).
func VTTTimecode(ms int64) string {
	return formatTimecode(ms, '.')
}

func placeholderCue() Cue {
	return Cue{Index: 1, Start: 0, End: placeholderEndMs, Text: placeholderText}
}

// FormatSRT serializes cues as an SRT document. An empty cue list produces a
// single placeholder cue rather than an empty file.
func FormatSRT(cues []Cue) string {
	if len(cues) == 0 {
		cues = []Cue{placeholderCue()}
	}

	var sb strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, SRTTimecode(c.Start), SRTTimecode(c.End), c.Text)
	}
	return sb.String()
}

// FormatVTT serializes cues as a WebVTT document. Cues carry no index in VTT.
// An empty cue list produces a single placeholder cue after the header.
func FormatVTT(cues []Cue) string {
	if len(cues) == 0 {
		cues = []Cue{placeholderCue()}
	}

	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, c := range cues {
		fmt.Fprintf(&sb, "%s --> %s\n%s\n\n",
			VTTTimecode(c.Start), VTTTimecode(c.End), c.Text)
	}
	return sb.String()
}
