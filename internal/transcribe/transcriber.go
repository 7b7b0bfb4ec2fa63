package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"clipcontext/internal/config"
	"clipcontext/internal/logging"
	"clipcontext/internal/services"
)

// SentinelFailed is written when every attempt failed.
const SentinelFailed = "[Audio transcription failed - API unavailable]"

// Result describes a finished transcription stage.
type Result struct {
	Text     string
	Attempts int
	// Err carries ErrTranscriptionFailed when Text is the failure sentinel.
	Err error
}

// Transcriber runs a Backend with bounded retries and writes the transcript.
type Transcriber struct {
	backend Backend
	policy  RetryPolicy
	sleep   Sleeper
	logger  *slog.Logger
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithSleeper overrides how backoff waits are performed.
func WithSleeper(sleeper Sleeper) Option {
	return func(t *Transcriber) {
		if sleeper != nil {
			t.sleep = sleeper
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcriber) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New constructs a Transcriber.
func New(backend Backend, policy RetryPolicy, opts ...Option) *Transcriber {
	t := &Transcriber{backend: backend, policy: policy, sleep: ContextSleeper, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PolicyFromConfig reads the retry policy from the transcriber config section.
func PolicyFromConfig(cfg config.Transcriber) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BackoffBaseSeconds) * time.Second,
	}
}

// Run transcribes audioPath into transcriptPath. Exhausted or permanent
// failures write SentinelFailed and are reported through Result.Err, never
// as an error return. The returned error is limited to cancellation and
// transcript write failures. audioPath is removed in every case.
func (t *Transcriber) Run(ctx context.Context, audioPath, transcriptPath string) (Result, error) {
	logger := logging.WithContext(ctx, t.logger)
	defer func() {
		if err := os.Remove(audioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("audio cleanup failed", logging.Error(err))
		}
	}()

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return t.fail(logger, transcriptPath, 0, fmt.Errorf("read audio: %w", err))
	}

	attempts := t.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := t.backend.Transcribe(ctx, Prompt, audio, AudioMIMEType)
		if err == nil {
			if err := writeTranscript(transcriptPath, text); err != nil {
				return Result{}, err
			}
			logger.Info("transcription complete",
				logging.Int("attempts", attempt),
				logging.Int("transcript_bytes", len(text)),
			)
			return Result{Text: text, Attempts: attempt}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		lastErr = err
		if !Retryable(err) || attempt == attempts {
			return t.fail(logger, transcriptPath, attempt, err)
		}

		delay := t.policy.retryDelay(err, attempt)
		logger.Info("transcription attempt failed; retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		if err := t.sleep(ctx, delay); err != nil {
			return Result{}, err
		}
	}
	return t.fail(logger, transcriptPath, attempts, lastErr)
}

func (t *Transcriber) fail(logger *slog.Logger, transcriptPath string, attempts int, cause error) (Result, error) {
	if err := writeTranscript(transcriptPath, SentinelFailed); err != nil {
		return Result{}, err
	}
	wrapped := services.Wrap(services.ErrTranscriptionFailed, "transcribe", "request", fmt.Sprintf("gave up after %d attempt(s)", attempts), cause)
	logging.WarnWithContext(logger, "transcription failed; continuing without speech", "transcription_failed",
		logging.Int("attempts", attempts),
		logging.Error(wrapped),
		logging.String(logging.FieldImpact, "document will contain no matched speech"),
		logging.String(logging.FieldErrorHint, "check transcriber.api_key and network access to the speech service"),
	)
	return Result{Text: SentinelFailed, Attempts: attempts, Err: wrapped}, nil
}

func writeTranscript(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
