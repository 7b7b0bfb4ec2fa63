package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipcontext/internal/logging"
	"clipcontext/internal/pipeline"
	"clipcontext/internal/services"
)

// State is a capture session lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingUpload State = "awaiting_upload"
	StateProcessing     State = "processing"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var (
	// ErrUploadRejected is returned for uploads outside awaiting_upload.
	ErrUploadRejected = errors.New("upload rejected")
	// ErrInvalidTransition is returned when Arm is called twice.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// Processor turns an accepted recording into a report.
type Processor interface {
	Run(ctx context.Context, in pipeline.Input) (pipeline.Report, error)
}

// Session tracks one capture from arming to a terminal state.
type Session struct {
	ID      string
	WorkDir string

	processor     Processor
	keepArtifacts bool
	logger        *slog.Logger
	now           func() time.Time

	mu     sync.Mutex
	state  State
	runCtx context.Context
	report pipeline.Report
	err    error
	done   chan struct{}
}

// Option customizes a Session.
type Option func(*Session)

// WithKeepArtifacts retains the work directory after a terminal state.
func WithKeepArtifacts(keep bool) Option {
	return func(s *Session) { s.keepArtifacts = keep }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an idle session with a fresh work directory under workRoot.
func New(workRoot string, processor Processor, opts ...Option) (*Session, error) {
	if processor == nil {
		return nil, errors.New("session processor is required")
	}
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		WorkDir:   filepath.Join(workRoot, id),
		processor: processor,
		logger:    logging.NewNop(),
		now:       time.Now,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(s.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session work dir: %w", err)
	}
	s.logger = logging.NewComponentLogger(s.logger, "session")
	return s, nil
}

// Context annotates ctx with the session id for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return services.WithSessionID(ctx, s.ID)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Layout returns the artifact paths of the session.
func (s *Session) Layout() pipeline.Layout {
	return pipeline.LayoutFor(s.WorkDir)
}

// Arm opens the session for exactly one upload. Processing later runs under
// ctx, so cancelling it aborts an in-flight pipeline.
func (s *Session) Arm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: arm from %s", ErrInvalidTransition, s.state)
	}
	s.runCtx = s.Context(ctx)
	s.state = StateAwaitingUpload
	logging.WithContext(s.runCtx, s.logger).Info("session armed",
		logging.String(logging.FieldEventType, "session_armed"),
		logging.String("work_dir", s.WorkDir),
	)
	return nil
}

// Accept stores the uploaded recording and starts processing in the
// background. Only the first call from awaiting_upload succeeds; a failed
// write leaves the session armed for another attempt. ctx bounds the copy.
func (s *Session) Accept(ctx context.Context, r io.Reader) error {
	s.mu.Lock()
	if s.state != StateAwaitingUpload {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrUploadRejected, state)
	}
	s.state = StateProcessing
	s.mu.Unlock()

	layout := s.Layout()
	size, err := writeRecording(ctx, layout.Raw, r)
	if err != nil {
		_ = os.Remove(layout.Raw)
		s.mu.Lock()
		s.state = StateAwaitingUpload
		s.mu.Unlock()
		logging.WarnWithContext(logging.WithContext(s.runCtx, s.logger), "upload could not be stored", "upload_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session remains armed"),
			logging.String(logging.FieldErrorHint, "retry the upload"),
		)
		return fmt.Errorf("store recording: %w", err)
	}

	logger := logging.WithContext(s.runCtx, s.logger)
	logger.Info("recording accepted",
		logging.String(logging.FieldEventType, "upload_accepted"),
		logging.Int64("size_bytes", size),
	)
	go s.process(s.runCtx, layout.Raw)
	return nil
}

// AcceptFile accepts an existing recording from disk.
func (s *Session) AcceptFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return s.Accept(ctx, f)
}

func (s *Session) process(ctx context.Context, rawPath string) {
	logger := logging.WithContext(ctx, s.logger)
	report, err := s.processor.Run(ctx, pipeline.Input{
		RawPath:    rawPath,
		WorkDir:    s.WorkDir,
		CapturedAt: s.now(),
	})

	s.mu.Lock()
	s.report = report
	s.err = err
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateCompleted
	}
	state := s.state
	s.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(logger, "session failed", "session_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, failureHint(err)),
			logging.Error(err),
		)
	} else {
		logger.Info("session completed",
			logging.String(logging.FieldEventType, "session_completed"),
			logging.Int("frame_count", report.Document.FrameCount),
			logging.Int("warning_count", len(report.Warnings)),
		)
	}
	s.finish(logger, state)
}

// Discard ends a session that never received an upload. It is a no-op once
// processing has started.
func (s *Session) Discard(cause error) {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateAwaitingUpload {
		s.mu.Unlock()
		return
	}
	if cause == nil {
		cause = services.ErrCanceled
	}
	s.state = StateFailed
	s.err = services.Wrap(services.ErrCanceled, "session", "discard", "no recording received", cause)
	s.mu.Unlock()
	s.finish(logging.WithContext(s.Context(context.Background()), s.logger), StateFailed)
}

func (s *Session) finish(logger *slog.Logger, state State) {
	if !s.keepArtifacts {
		if err := os.RemoveAll(s.WorkDir); err != nil {
			logger.Warn("session cleanup failed",
				logging.String("work_dir", s.WorkDir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "session_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	} else {
		logger.Info("session artifacts kept",
			logging.String("work_dir", s.WorkDir),
			logging.String("state", string(state)),
		)
	}
	close(s.done)
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Await blocks until the session is terminal or ctx ends.
func (s *Session) Await(ctx context.Context) (pipeline.Report, error) {
	select {
	case <-s.done:
		outcome, _ := s.Result()
		return outcome.Report, outcome.Err
	case <-ctx.Done():
		return pipeline.Report{}, ctx.Err()
	}
}

// Outcome is the terminal result of a session.
type Outcome struct {
	Report pipeline.Report
	Err    error
}

// Result returns the outcome without blocking. The second value is false
// until the session is terminal.
func (s *Session) Result() (Outcome, bool) {
	select {
	case <-s.done:
	default:
		return Outcome{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Outcome{Report: s.report, Err: s.err}, true
}

// Snapshot is a point-in-time view of the session for status endpoints.
type Snapshot struct {
	ID        string `json:"session_id"`
	State     State  `json:"state"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{ID: s.ID, State: s.state}
	if s.err != nil && s.state.Terminal() {
		snap.Error = s.err.Error()
		snap.ErrorKind = services.Kind(s.err)
	}
	return snap
}

func writeRecording(ctx context.Context, path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(f, contextReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr != nil {
		return n, copyErr
	}
	return n, closeErr
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrSanitizationFailed):
		return "the upload was empty or not a readable recording; record again"
	case errors.Is(err, services.ErrFrameExtractionFailed):
		return "check ffmpeg output or set frames.skip_failed"
	case errors.Is(err, services.ErrCanceled), errors.Is(err, context.Canceled):
		return "the host stopped the session"
	default:
		return "check logs for details"
	}
}
