package frames

import (
	"fmt"
	"sort"
	"strings"

	"clipcontext/internal/config"
	"clipcontext/internal/media/ffmpeg"
)

// Policy decides which timestamps to capture for a recording.
type Policy struct {
	Mode        string
	Fixed       []float64
	Interval    float64
	StartOffset float64
	MaxFrames   int
}

// PolicyFromConfig builds a Policy from the frames config section.
func PolicyFromConfig(cfg config.Frames) Policy {
	return Policy{
		Mode:        cfg.Mode,
		Fixed:       append([]float64(nil), cfg.Timestamps...),
		Interval:    cfg.IntervalSeconds,
		StartOffset: cfg.StartOffsetSeconds,
		MaxFrames:   cfg.MaxFrames,
	}
}

// Timestamps returns the capture points for a recording of the given
// duration: strictly increasing, all below duration, at most MaxFrames long.
func (p Policy) Timestamps(duration float64) []float64 {
	var candidates []float64
	if p.Mode == config.FrameModeFixed {
		candidates = append(candidates, p.Fixed...)
	} else {
		candidates = p.intervalCandidates(duration)
	}

	kept := make([]float64, 0, len(candidates))
	for _, ts := range candidates {
		if ts < 0 || ts >= duration {
			continue
		}
		kept = append(kept, ts)
	}
	sort.Float64s(kept)

	out := kept[:0]
	for i, ts := range kept {
		if i > 0 && ts == out[len(out)-1] {
			continue
		}
		out = append(out, ts)
	}
	if p.MaxFrames > 0 && len(out) > p.MaxFrames {
		out = out[:p.MaxFrames]
	}
	return out
}

// intervalCandidates multiplies rather than accumulates so long recordings do
// not drift through float rounding.
func (p Policy) intervalCandidates(duration float64) []float64 {
	if p.Interval <= 0 {
		return []float64{p.StartOffset}
	}
	var out []float64
	for k := 0; ; k++ {
		ts := p.StartOffset + float64(k)*p.Interval
		if ts >= duration {
			break
		}
		out = append(out, ts)
		if p.MaxFrames > 0 && len(out) >= p.MaxFrames {
			break
		}
	}
	return out
}

// Describe renders the policy for the document header.
func (p Policy) Describe() string {
	if p.Mode == config.FrameModeFixed {
		parts := make([]string, 0, len(p.Fixed))
		for _, ts := range p.Fixed {
			parts = append(parts, ffmpeg.FormatSeconds(ts)+"s")
		}
		return "frames at " + strings.Join(parts, ", ")
	}
	return fmt.Sprintf("1 frame every %ss starting at %ss", ffmpeg.FormatSeconds(p.Interval), ffmpeg.FormatSeconds(p.StartOffset))
}
