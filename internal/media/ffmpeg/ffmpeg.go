package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"clipcontext/internal/procexec"
	"clipcontext/internal/services"
)

// Tool runs ffmpeg through a procexec.Runner.
type Tool struct {
	runner procexec.Runner
	binary string
}

// New constructs a Tool. An empty binary resolves to "ffmpeg".
func New(runner procexec.Runner, binary string) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{runner: runner, binary: binary}
}

// Sanitize remuxes src into dst with stream copy to repair container
// metadata. A missing or empty src fails without invoking ffmpeg.
func (t *Tool) Sanitize(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return services.Wrap(services.ErrSanitizationFailed, "sanitize", "stat recording", "recording unreadable", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return services.Wrap(services.ErrSanitizationFailed, "sanitize", "stat recording", "recording is empty", nil)
	}
	if _, err := t.run(ctx, SanitizeArgs(src, dst)); err != nil {
		return services.Wrap(services.ErrSanitizationFailed, "sanitize", "remux", "stream copy failed", err)
	}
	return nil
}

// ExtractFrame writes a single PNG frame captured at the given second.
func (t *Tool) ExtractFrame(ctx context.Context, src string, seconds float64, dst string) error {
	if _, err := t.run(ctx, FrameArgs(src, seconds, dst)); err != nil {
		return fmt.Errorf("extract frame at %ss: %w", FormatSeconds(seconds), err)
	}
	return nil
}

// AudioOptions controls audio extraction.
type AudioOptions struct {
	Gain       float64
	SampleRate int
}

// ExtractAudio writes a mono 16-bit PCM WAV with the configured gain applied.
func (t *Tool) ExtractAudio(ctx context.Context, src, dst string, opts AudioOptions) error {
	if _, err := t.run(ctx, AudioArgs(src, dst, opts)); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}

// SilenceOptions controls the silencedetect filter.
type SilenceOptions struct {
	NoiseDB    float64
	MinSeconds float64
}

// CountSilenceIntervals runs silencedetect and counts reported intervals.
// Diagnostics are parsed even when ffmpeg exits non-zero; only a missing
// binary or cancellation is returned as an error.
func (t *Tool) CountSilenceIntervals(ctx context.Context, path string, opts SilenceOptions) (int, error) {
	res, err := t.run(ctx, SilenceDetectArgs(path, opts))
	if err != nil && !errors.Is(err, procexec.ErrToolFailed) {
		return 0, fmt.Errorf("silencedetect: %w", err)
	}
	return CountSilenceStarts(string(res.Stdout) + string(res.Stderr)), nil
}

// MaxVolume runs volumedetect and returns the peak level in dB. The second
// result is false when ffmpeg did not report a peak.
func (t *Tool) MaxVolume(ctx context.Context, path string) (float64, bool, error) {
	res, err := t.run(ctx, VolumeDetectArgs(path))
	if err != nil && !errors.Is(err, procexec.ErrToolFailed) {
		return 0, false, fmt.Errorf("volumedetect: %w", err)
	}
	peak, ok := ParseMaxVolume(string(res.Stdout) + string(res.Stderr))
	return peak, ok, nil
}

func (t *Tool) run(ctx context.Context, args []string) (procexec.Result, error) {
	return t.runner.Run(ctx, procexec.Command{Name: t.binary, Args: args})
}

// FormatSeconds renders seconds in the shortest decimal form ffmpeg accepts.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
