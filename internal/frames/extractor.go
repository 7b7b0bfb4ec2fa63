package frames

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clipcontext/internal/logging"
	"clipcontext/internal/media/ffmpeg"
	"clipcontext/internal/services"
)

// FrameTool captures a single frame. *ffmpeg.Tool satisfies it.
type FrameTool interface {
	ExtractFrame(ctx context.Context, src string, seconds float64, dst string) error
}

// Extractor captures frames according to a Policy.
type Extractor struct {
	tool       FrameTool
	policy     Policy
	skipFailed bool
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSkipFailed continues past individual capture failures.
func WithSkipFailed(skip bool) Option {
	return func(e *Extractor) { e.skipFailed = skip }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor constructs an Extractor.
func NewExtractor(tool FrameTool, policy Policy, opts ...Option) *Extractor {
	e := &Extractor{tool: tool, policy: policy, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the timestamp policy in use.
func (e *Extractor) Policy() Policy {
	return e.policy
}

// Extract captures one frame per policy timestamp into dir. Each capture is a
// separate ffmpeg call. By default any failure aborts with
// ErrFrameExtractionFailed; with skip-failed enabled the failing timestamp is
// dropped and the call fails only when nothing was captured.
func (e *Extractor) Extract(ctx context.Context, src string, duration float64, dir string) ([]Sample, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFrameExtractionFailed, "frames", "create frame dir", "", err)
	}
	if err := removeStale(dir); err != nil {
		return nil, services.Wrap(services.ErrFrameExtractionFailed, "frames", "clear frame dir", "", err)
	}

	timestamps := e.policy.Timestamps(duration)
	if len(timestamps) == 0 {
		return nil, services.Wrap(services.ErrFrameExtractionFailed, "frames", "plan", fmt.Sprintf("no timestamps below %ss", ffmpeg.FormatSeconds(duration)), nil)
	}
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("extracting frames",
		logging.Int("frame_count", len(timestamps)),
		logging.Any("timestamps", timestamps),
	)

	samples := make([]Sample, 0, len(timestamps))
	for _, ts := range timestamps {
		dst := filepath.Join(dir, FileName(ts))
		err := e.tool.ExtractFrame(ctx, src, ts, dst)
		if err == nil {
			err = verifyFrame(dst)
		}
		if err != nil {
			if ctx.Err() != nil || !e.skipFailed {
				return nil, services.Wrap(services.ErrFrameExtractionFailed, "frames", "capture", "timestamp "+ffmpeg.FormatSeconds(ts)+"s", err)
			}
			logging.WarnWithContext(logger, "frame capture failed; skipping timestamp", "frame_skipped",
				logging.Float64("timestamp", ts),
				logging.Error(err),
				logging.String(logging.FieldImpact, "document omits this frame"),
				logging.String(logging.FieldErrorHint, "check that the recording is decodable at this offset"),
			)
			continue
		}
		samples = append(samples, Sample{Timestamp: ts, Path: dst})
	}
	if len(samples) == 0 {
		return nil, services.Wrap(services.ErrFrameExtractionFailed, "frames", "capture", "no frame could be extracted", nil)
	}
	return samples, nil
}

func verifyFrame(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("frame output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("frame output is empty")
	}
	return nil
}
