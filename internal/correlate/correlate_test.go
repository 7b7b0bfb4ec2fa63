package correlate

import (
	"testing"

	"clipcontext/internal/audioprep"
	"clipcontext/internal/frames"
	"clipcontext/internal/transcribe"
)

func TestParse(t *testing.T) {
	segments := Parse("[00:03] a\n[00:10] b")
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0] != (Segment{Timestamp: 3, Text: "a"}) || segments[1] != (Segment{Timestamp: 10, Text: "b"}) {
		t.Fatalf("unexpected segments: %+v", segments)
	}
}

func TestParseToleratesNoise(t *testing.T) {
	transcript := "Here is your transcript:\r\n[01:05]   spaced out text  \r\nnot a line\n[1:05] short minutes\n[00:07]\n- [00:20] prefixed bullet"
	segments := Parse(transcript)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segments)
	}
	if segments[0].Timestamp != 65 || segments[0].Text != "spaced out text" {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[1].Timestamp != 20 || segments[1].Text != "prefixed bullet" {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
}

func TestParseNormalizesText(t *testing.T) {
	segments := Parse("[00:01] café")
	if len(segments) != 1 || segments[0].Text != "café" {
		t.Fatalf("expected NFC text, got %+v", segments)
	}
}

func TestParseSentinelsYieldNothing(t *testing.T) {
	for _, sentinel := range []string{
		audioprep.SentinelNoAudio,
		audioprep.SentinelExtractionFailed,
		audioprep.SentinelNoContent,
		audioprep.SentinelSilent,
		transcribe.SentinelFailed,
		"",
	} {
		if segments := Parse(sentinel); len(segments) != 0 {
			t.Fatalf("Parse(%q) = %+v", sentinel, segments)
		}
	}
}

func TestCorrelateTolerance(t *testing.T) {
	segments := Parse("[00:03] a\n[00:10] b")
	entries := Correlate([]frames.Sample{{Timestamp: 4}, {Timestamp: 50}}, segments)
	if !entries[0].Matched || entries[0].Segment.Text != "a" || entries[0].Distance != 1 {
		t.Fatalf("frame at 4 should match a: %+v", entries[0])
	}
	if entries[1].Matched {
		t.Fatalf("frame at 50 should be unmatched: %+v", entries[1])
	}
}

func TestCorrelateTieBreaksOnFirstSegment(t *testing.T) {
	segments := []Segment{{Timestamp: 5, Text: "first"}, {Timestamp: 9, Text: "second"}, {Timestamp: 5, Text: "dupe"}}
	entries := Correlate([]frames.Sample{{Timestamp: 7}, {Timestamp: 5}}, segments)
	if entries[0].Segment.Text != "first" {
		t.Fatalf("tie should resolve to first segment, got %q", entries[0].Segment.Text)
	}
	if entries[1].Segment.Text != "first" || entries[1].Distance != 0 {
		t.Fatalf("exact match should resolve to first segment, got %+v", entries[1])
	}
}

func TestCorrelateBoundary(t *testing.T) {
	segments := []Segment{{Timestamp: 10, Text: "x"}}
	entries := Correlate([]frames.Sample{{Timestamp: 5}, {Timestamp: 4.5}, {Timestamp: 15}}, segments)
	if !entries[0].Matched || entries[1].Matched || !entries[2].Matched {
		t.Fatalf("unexpected boundary matches: %+v", entries)
	}
}

func TestCorrelateEmpty(t *testing.T) {
	samples := []frames.Sample{{Timestamp: 2}, {Timestamp: 7}}
	entries := Correlate(samples, nil)
	if len(entries) != 2 {
		t.Fatalf("expected one entry per frame, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Matched {
			t.Fatalf("no segment should match: %+v", entry)
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	samples := []frames.Sample{{Timestamp: 2}, {Timestamp: 7}, {Timestamp: 12}, {Timestamp: 17}}
	entries := Correlate(samples, Parse("[00:05] fix this button"))
	for i, entry := range entries {
		if entry.Frame.Timestamp == 7 {
			if !entry.Matched || entry.Distance != 2 || entry.Segment.Text != "fix this button" {
				t.Fatalf("frame at 7 should match with distance 2: %+v", entry)
			}
			continue
		}
		if entry.Matched {
			t.Fatalf("entry %d should be unmatched: %+v", i, entry)
		}
	}
}
