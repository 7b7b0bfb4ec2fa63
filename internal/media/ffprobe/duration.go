package ffprobe

import (
	"context"
	"math"
	"strconv"
	"strings"

	"clipcontext/internal/procexec"
)

// DefaultDurationSeconds is used when neither the container nor the video
// stream reports a usable duration.
const DefaultDurationSeconds = 5.0

// DurationSource records which probe produced a DurationEstimate.
type DurationSource string

const (
	SourceFormat  DurationSource = "format"
	SourceStream  DurationSource = "stream"
	SourceDefault DurationSource = "default"
)

// DurationEstimate is a positive duration in seconds with its provenance.
type DurationEstimate struct {
	Seconds float64        `json:"seconds"`
	Source  DurationSource `json:"source"`
}

// ProbeDuration resolves the recording duration: the container value first,
// then the first video stream, then DefaultDurationSeconds. It never fails.
func (p *Prober) ProbeDuration(ctx context.Context, path string) DurationEstimate {
	if seconds, ok := p.probeValue(ctx, path, "format=duration"); ok {
		return DurationEstimate{Seconds: seconds, Source: SourceFormat}
	}
	if seconds, ok := p.probeValue(ctx, path, "stream=duration", "-select_streams", "v:0"); ok {
		return DurationEstimate{Seconds: seconds, Source: SourceStream}
	}
	return DurationEstimate{Seconds: DefaultDurationSeconds, Source: SourceDefault}
}

// HasAudio reports whether the file has at least one audio stream. Probe
// failures count as no audio.
func (p *Prober) HasAudio(ctx context.Context, path string) bool {
	res, err := p.runner.Run(ctx, procexec.Command{
		Name: p.binary,
		Args: keyValueArgs(path, "stream=codec_name", "-select_streams", "a:0"),
	})
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(res.Stdout)) != ""
}

func (p *Prober) probeValue(ctx context.Context, path, entries string, selectors ...string) (float64, bool) {
	res, err := p.runner.Run(ctx, procexec.Command{
		Name: p.binary,
		Args: keyValueArgs(path, entries, selectors...),
	})
	if err != nil {
		return 0, false
	}
	return parseDuration(string(res.Stdout))
}

func keyValueArgs(path, entries string, selectors ...string) []string {
	args := []string{"-v", "error"}
	args = append(args, selectors...)
	args = append(args, "-show_entries", entries, "-of", "default=noprint_wrappers=1:nokey=1", path)
	return args
}

// parseDuration accepts the first line of ffprobe key-value output. WebM
// captures from browsers commonly report "N/A" here.
func parseDuration(output string) (float64, bool) {
	line := strings.TrimSpace(output)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, false
	}
	return value, true
}
