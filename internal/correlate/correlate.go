package correlate

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"clipcontext/internal/frames"
)

// Tolerance is the largest frame-to-speech distance, in seconds, that still
// counts as a match.
const Tolerance = 5.0

var segmentPattern = regexp.MustCompile(`\[(\d{2}):(\d{2})\]\s*(.+)`)

// Segment is one timestamped transcript line.
type Segment struct {
	Timestamp int
	Text      string
}

// Entry pairs a frame with its nearest segment. Segment is nil when no
// segment lies within Tolerance.
type Entry struct {
	Frame    frames.Sample
	Segment  *Segment
	Distance float64
	Matched  bool
}

// Parse extracts "[MM:SS] text" segments from a transcript, one per line.
// Lines that do not match are ignored; a sentinel transcript yields none.
func Parse(transcript string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(transcript, "\n") {
		match := segmentPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		minutes, _ := strconv.Atoi(match[1])
		seconds, _ := strconv.Atoi(match[2])
		text := strings.TrimSpace(norm.NFC.String(match[3]))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Timestamp: minutes*60 + seconds, Text: text})
	}
	return segments
}

// Correlate assigns each frame its nearest segment. On ties the earliest
// segment in transcript order wins.
func Correlate(samples []frames.Sample, segments []Segment) []Entry {
	entries := make([]Entry, 0, len(samples))
	for _, sample := range samples {
		entry := Entry{Frame: sample}
		best := -1
		bestDistance := math.Inf(1)
		for i, segment := range segments {
			distance := math.Abs(float64(segment.Timestamp) - sample.Timestamp)
			if distance < bestDistance {
				best = i
				bestDistance = distance
			}
		}
		if best >= 0 && bestDistance <= Tolerance {
			segment := segments[best]
			entry.Segment = &segment
			entry.Distance = bestDistance
			entry.Matched = true
		}
		entries = append(entries, entry)
	}
	return entries
}
