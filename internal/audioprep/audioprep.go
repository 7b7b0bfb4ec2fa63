package audioprep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"clipcontext/internal/config"
	"clipcontext/internal/logging"
	"clipcontext/internal/media/ffmpeg"
	"clipcontext/internal/services"
)

// Sentinel transcripts written in place of speech when audio cannot be used.
const (
	SentinelNoAudio          = "[No audio detected in recording]"
	SentinelExtractionFailed = "[Audio extraction failed]"
	SentinelNoContent        = "[No audio content found]"
	SentinelSilent           = "[Audio is silent - no sound detected]"
)

// missingPeakDB stands in for a volumedetect run that reported no peak.
const missingPeakDB = -100.0

// Status is the terminal state of audio preparation.
type Status string

const (
	StatusReady            Status = "ready"
	StatusNoAudioStream    Status = "no_audio_stream"
	StatusExtractionFailed Status = "extraction_failed"
	StatusEmpty            Status = "empty"
	StatusSilent           Status = "silent"
)

// Outcome describes what audio preparation produced. When Status is
// StatusReady, AudioPath holds the validated WAV. Otherwise Sentinel has been
// written to the transcript file and Err carries the recoverable marker.
type Outcome struct {
	Status    Status
	AudioPath string
	Sentinel  string
	Err       error
}

// Ready reports whether the audio should be transcribed.
func (o Outcome) Ready() bool {
	return o.Status == StatusReady
}

// Thresholds control silence classification.
type Thresholds struct {
	NoiseDB             float64
	MinSilenceSeconds   float64
	MaxSilenceIntervals int
	MinPeakDB           float64
}

// ThresholdsFromConfig reads thresholds from the audio config section.
func ThresholdsFromConfig(cfg config.Audio) Thresholds {
	return Thresholds{
		NoiseDB:             cfg.SilenceNoiseDB,
		MinSilenceSeconds:   cfg.SilenceMinSeconds,
		MaxSilenceIntervals: cfg.MaxSilenceIntervals,
		MinPeakDB:           cfg.MinPeakDB,
	}
}

// Classify reports whether audio is silent. A quiet peak catches uniformly
// low audio; many silence intervals catch mostly-silent audio with brief noise.
func (t Thresholds) Classify(peakDB float64, silenceIntervals int) bool {
	return peakDB < t.MinPeakDB || silenceIntervals > t.MaxSilenceIntervals
}

// Prober reports whether a recording carries an audio stream.
type Prober interface {
	HasAudio(ctx context.Context, path string) bool
}

// Tool extracts and analyses audio. *ffmpeg.Tool satisfies it.
type Tool interface {
	ExtractAudio(ctx context.Context, src, dst string, opts ffmpeg.AudioOptions) error
	CountSilenceIntervals(ctx context.Context, path string, opts ffmpeg.SilenceOptions) (int, error)
	MaxVolume(ctx context.Context, path string) (float64, bool, error)
}

// Preparer runs the audio steps ahead of transcription.
type Preparer struct {
	prober     Prober
	tool       Tool
	extract    ffmpeg.AudioOptions
	thresholds Thresholds
	logger     *slog.Logger
}

// New constructs a Preparer.
func New(prober Prober, tool Tool, extract ffmpeg.AudioOptions, thresholds Thresholds, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Preparer{prober: prober, tool: tool, extract: extract, thresholds: thresholds, logger: logger}
}

// Prepare probes, extracts, and validates the audio track of src. Each step
// may stop early by writing a sentinel to transcriptPath; those outcomes are
// not errors. The returned error is reserved for cancellation and for
// failures to write the transcript file.
func (p *Preparer) Prepare(ctx context.Context, src, audioPath, transcriptPath string) (Outcome, error) {
	logger := logging.WithContext(ctx, p.logger)

	if !p.prober.HasAudio(ctx, src) {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		return p.stop(logger, transcriptPath, audioPath, StatusNoAudioStream, SentinelNoAudio,
			services.Wrap(services.ErrAudioUnavailable, "audio", "probe", "recording has no audio stream", nil))
	}

	if err := p.tool.ExtractAudio(ctx, src, audioPath, p.extract); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		return p.stop(logger, transcriptPath, audioPath, StatusExtractionFailed, SentinelExtractionFailed,
			services.Wrap(services.ErrAudioUnavailable, "audio", "extract", "", err))
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		return p.stop(logger, transcriptPath, audioPath, StatusEmpty, SentinelNoContent,
			services.Wrap(services.ErrAudioUnavailable, "audio", "verify", "extracted audio is missing or empty", err))
	}

	intervals, err := p.tool.CountSilenceIntervals(ctx, audioPath, ffmpeg.SilenceOptions{
		NoiseDB:    p.thresholds.NoiseDB,
		MinSeconds: p.thresholds.MinSilenceSeconds,
	})
	if err != nil && ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	peak, ok, err := p.tool.MaxVolume(ctx, audioPath)
	if err != nil && ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	if !ok {
		peak = missingPeakDB
	}
	logger.Debug("audio analysed",
		logging.Float64("max_volume_db", peak),
		logging.Int("silence_intervals", intervals),
	)
	if p.thresholds.Classify(peak, intervals) {
		return p.stop(logger, transcriptPath, audioPath, StatusSilent, SentinelSilent,
			services.Wrap(services.ErrAudioSilent, "audio", "analyse", fmt.Sprintf("peak %.1f dB, %d silence intervals", peak, intervals), nil))
	}

	return Outcome{Status: StatusReady, AudioPath: audioPath}, nil
}

func (p *Preparer) stop(logger *slog.Logger, transcriptPath, audioPath string, status Status, sentinel string, cause error) (Outcome, error) {
	if err := WriteTranscript(transcriptPath, sentinel); err != nil {
		return Outcome{}, err
	}
	if err := os.Remove(audioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("audio cleanup failed", logging.Error(err))
	}
	logging.WarnWithContext(logger, "audio unusable; continuing without speech", "audio_"+string(status),
		logging.String("sentinel", sentinel),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.Error(cause),
		logging.String(logging.FieldImpact, "document will contain no matched speech"),
		logging.String(logging.FieldErrorHint, "check the microphone was enabled during capture"),
	)
	return Outcome{Status: status, AudioPath: "", Sentinel: sentinel, Err: cause}, nil
}

// WriteTranscript replaces the transcript file with text.
func WriteTranscript(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
