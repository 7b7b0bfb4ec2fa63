package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"clipcontext/internal/audioprep"
	"clipcontext/internal/config"
	"clipcontext/internal/contextdoc"
	"clipcontext/internal/correlate"
	"clipcontext/internal/frames"
	"clipcontext/internal/logging"
	"clipcontext/internal/media/ffmpeg"
	"clipcontext/internal/media/ffprobe"
	"clipcontext/internal/procexec"
	"clipcontext/internal/transcribe"
)

// Input identifies one recording to process.
type Input struct {
	// RawPath is the uploaded recording. Defaults to the work dir's recording.webm.
	RawPath    string
	WorkDir    string
	CapturedAt time.Time
}

// Report is everything a run produced. Warnings holds the recoverable audio
// and transcription failures that were absorbed into sentinel transcripts.
type Report struct {
	Document      contextdoc.Document
	Duration      ffprobe.DurationEstimate
	Frames        []frames.Sample
	Audio         audioprep.Outcome
	Transcription transcribe.Result
	Transcript    string
	Entries       []correlate.Entry
	Warnings      []error
}

// Pipeline runs the capture-to-context stages in order.
type Pipeline struct {
	ffmpeg      *ffmpeg.Tool
	prober      *ffprobe.Prober
	extractor   *frames.Extractor
	audio       *audioprep.Preparer
	transcriber *transcribe.Transcriber
	renderer    *contextdoc.Renderer
	logger      *slog.Logger
}

type options struct {
	logger  *slog.Logger
	sleeper transcribe.Sleeper
	reader  contextdoc.ImageReader
}

// Option customizes pipeline construction.
type Option func(*options)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSleeper replaces the transcription backoff sleeper.
func WithSleeper(sleeper transcribe.Sleeper) Option {
	return func(o *options) { o.sleeper = sleeper }
}

// WithImageReader replaces the frame reader used for inline images.
func WithImageReader(reader contextdoc.ImageReader) Option {
	return func(o *options) { o.reader = reader }
}

// New wires every stage from configuration. All media tools run through runner.
func New(cfg *config.Config, runner procexec.Runner, backend transcribe.Backend, opts ...Option) *Pipeline {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	tool := ffmpeg.New(runner, cfg.Media.FFmpegBinary)
	prober := ffprobe.New(runner, cfg.Media.FFprobeBinary)

	transcriberOpts := []transcribe.Option{transcribe.WithLogger(logging.NewComponentLogger(logger, "transcriber"))}
	if o.sleeper != nil {
		transcriberOpts = append(transcriberOpts, transcribe.WithSleeper(o.sleeper))
	}
	var rendererOpts []contextdoc.Option
	if o.reader != nil {
		rendererOpts = append(rendererOpts, contextdoc.WithImageReader(o.reader))
	}

	return &Pipeline{
		ffmpeg: tool,
		prober: prober,
		extractor: frames.NewExtractor(tool, frames.PolicyFromConfig(cfg.Frames),
			frames.WithSkipFailed(cfg.Frames.SkipFailed),
			frames.WithLogger(logging.NewComponentLogger(logger, "frames")),
		),
		audio: audioprep.New(prober, tool,
			ffmpeg.AudioOptions{Gain: cfg.Audio.Gain, SampleRate: cfg.Audio.SampleRate},
			audioprep.ThresholdsFromConfig(cfg.Audio),
			logging.NewComponentLogger(logger, "audio"),
		),
		transcriber: transcribe.New(backend, transcribe.PolicyFromConfig(cfg.Transcriber), transcriberOpts...),
		renderer:    contextdoc.New(cfg.Frames.ImageMode, rendererOpts...),
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run processes one recording into a context document. Only sanitization,
// frame extraction, cancellation, and local I/O failures are returned as
// errors; audio and transcription problems surface in Report.Warnings.
func (p *Pipeline) Run(ctx context.Context, in Input) (Report, error) {
	layout := LayoutFor(in.WorkDir)
	raw := in.RawPath
	if raw == "" {
		raw = layout.Raw
	}
	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	logger := logging.WithContext(ctx, p.logger)
	defer func() {
		if err := os.Remove(layout.Sanitized); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("sanitized recording cleanup failed", logging.Error(err))
		}
	}()

	var report Report

	if err := p.runStage(ctx, StageSanitize, func(ctx context.Context, _ *slog.Logger) error {
		return p.ffmpeg.Sanitize(ctx, raw, layout.Sanitized)
	}); err != nil {
		return Report{}, err
	}

	if err := p.runStage(ctx, StageProbe, func(ctx context.Context, logger *slog.Logger) error {
		report.Duration = p.prober.ProbeDuration(ctx, layout.Sanitized)
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("recording duration resolved",
			logging.Float64("duration_seconds", report.Duration.Seconds),
			logging.String("duration_source", string(report.Duration.Source)),
		)
		if logger.Enabled(ctx, slog.LevelDebug) {
			p.logInspection(ctx, logger, layout.Sanitized)
		}
		return writeDuration(layout.Duration, report.Duration)
	}); err != nil {
		return Report{}, err
	}

	if err := p.runStage(ctx, StageFrames, func(ctx context.Context, _ *slog.Logger) error {
		samples, err := p.extractor.Extract(ctx, layout.Sanitized, report.Duration.Seconds, layout.FramesDir)
		report.Frames = samples
		return err
	}); err != nil {
		return Report{}, err
	}

	if err := p.runStage(ctx, StageAudio, func(ctx context.Context, _ *slog.Logger) error {
		outcome, err := p.audio.Prepare(ctx, layout.Sanitized, layout.Audio, layout.Transcript)
		report.Audio = outcome
		return err
	}); err != nil {
		return Report{}, err
	}

	if report.Audio.Ready() {
		if err := p.runStage(ctx, StageTranscribe, func(ctx context.Context, _ *slog.Logger) error {
			result, err := p.transcriber.Run(ctx, report.Audio.AudioPath, layout.Transcript)
			report.Transcription = result
			return err
		}); err != nil {
			return Report{}, err
		}
		report.Transcript = report.Transcription.Text
		if report.Transcription.Err != nil {
			report.Warnings = append(report.Warnings, report.Transcription.Err)
		}
	} else {
		report.Transcript = report.Audio.Sentinel
		if report.Audio.Err != nil {
			report.Warnings = append(report.Warnings, report.Audio.Err)
		}
	}

	if err := p.runStage(ctx, StageCorrelate, func(_ context.Context, logger *slog.Logger) error {
		segments := correlate.Parse(report.Transcript)
		report.Entries = correlate.Correlate(report.Frames, segments)
		logger.Info("frames correlated with speech",
			logging.Int("segment_count", len(segments)),
			logging.Int("matched_frames", countMatched(report.Entries)),
		)
		return nil
	}); err != nil {
		return Report{}, err
	}

	if err := p.runStage(ctx, StageAssemble, func(_ context.Context, logger *slog.Logger) error {
		report.Document = p.renderer.Render(contextdoc.Input{
			Duration:    report.Duration.Seconds,
			Entries:     report.Entries,
			Transcript:  report.Transcript,
			CapturedAt:  capturedAt,
			FramePolicy: p.extractor.Policy().Describe(),
		})
		logger.Info("context document assembled",
			logging.Int("frame_count", report.Document.FrameCount),
			logging.Int("document_bytes", len(report.Document.Text)),
		)
		return nil
	}); err != nil {
		return Report{}, err
	}

	return report, nil
}

// Rebuild re-renders a document from the artifacts kept in workDir: frames
// recovered from their file names, the transcript file, and the duration the
// run resolved. Sessions without a stored duration fall back to probing the
// kept raw recording.
func (p *Pipeline) Rebuild(ctx context.Context, workDir string, capturedAt time.Time) (Report, error) {
	layout := LayoutFor(workDir)
	samples, err := frames.Scan(layout.FramesDir)
	if err != nil {
		return Report{}, err
	}
	if len(samples) == 0 {
		return Report{}, fmt.Errorf("no frames found in %s", layout.FramesDir)
	}
	transcript, err := os.ReadFile(layout.Transcript)
	if err != nil {
		return Report{}, fmt.Errorf("read transcript: %w", err)
	}

	duration, ok := readDuration(layout.Duration)
	if !ok {
		duration = p.prober.ProbeDuration(ctx, layout.Raw)
	}
	report := Report{
		Frames:     samples,
		Transcript: string(transcript),
		Duration:   duration,
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	report.Entries = correlate.Correlate(samples, correlate.Parse(report.Transcript))
	report.Document = p.renderer.Render(contextdoc.Input{
		Duration:    report.Duration.Seconds,
		Entries:     report.Entries,
		Transcript:  report.Transcript,
		CapturedAt:  capturedAt,
		FramePolicy: p.extractor.Policy().Describe(),
	})
	return report, nil
}

func writeDuration(path string, estimate ffprobe.DurationEstimate) error {
	data, err := json.Marshal(estimate)
	if err != nil {
		return fmt.Errorf("encode duration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write duration: %w", err)
	}
	return nil
}

func readDuration(path string) (ffprobe.DurationEstimate, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ffprobe.DurationEstimate{}, false
	}
	var estimate ffprobe.DurationEstimate
	if err := json.Unmarshal(data, &estimate); err != nil || estimate.Seconds <= 0 {
		return ffprobe.DurationEstimate{}, false
	}
	return estimate, true
}

// logInspection records container details for debugging uploads that
// decode oddly. Failures are only logged.
func (p *Pipeline) logInspection(ctx context.Context, logger *slog.Logger, path string) {
	info, err := p.prober.Inspect(ctx, path)
	if err != nil {
		logger.Debug("recording inspection failed", logging.Error(err))
		return
	}
	logger.Debug("recording inspected",
		logging.Int("video_streams", info.VideoStreamCount()),
		logging.Int("audio_streams", info.AudioStreamCount()),
		logging.Int64("size_bytes", info.SizeBytes()),
		logging.Int64("bit_rate", info.BitRate()),
	)
}

func countMatched(entries []correlate.Entry) int {
	n := 0
	for _, entry := range entries {
		if entry.Matched {
			n++
		}
	}
	return n
}
