package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"clipcontext/internal/audioprep"
	"clipcontext/internal/config"
	"clipcontext/internal/media/ffprobe"
	"clipcontext/internal/pipeline"
	"clipcontext/internal/services"
	"clipcontext/internal/testsupport"
	"clipcontext/internal/transcribe"
)

var capturedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	cfg     *config.Config
	media   *testsupport.FakeMedia
	gemini  *testsupport.GeminiServer
	layout  pipeline.Layout
	mu      sync.Mutex
	delays  []time.Duration
	options []pipeline.Option
}

func newHarness(t *testing.T, replies []testsupport.GeminiReply, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	gemini := testsupport.NewGeminiServer(t, replies...)
	opts = append([]testsupport.ConfigOption{testsupport.WithTranscriberURL(gemini.URL), testsupport.WithFixedFrames(2, 7, 12, 17)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	workDir := t.TempDir()
	h := &harness{
		cfg:    cfg,
		media:  testsupport.NewFakeMedia(),
		gemini: gemini,
		layout: pipeline.LayoutFor(workDir),
	}
	testsupport.WriteFile(t, h.layout.Raw, 4096)
	return h
}

func (h *harness) pipeline() *pipeline.Pipeline {
	sleeper := func(ctx context.Context, d time.Duration) error {
		h.mu.Lock()
		h.delays = append(h.delays, d)
		h.mu.Unlock()
		return ctx.Err()
	}
	backend := transcribe.NewGeminiBackend(h.cfg.Transcriber)
	opts := append([]pipeline.Option{pipeline.WithSleeper(sleeper)}, h.options...)
	return pipeline.New(h.cfg, h.media, backend, opts...)
}

func (h *harness) run(t *testing.T) (pipeline.Report, error) {
	t.Helper()
	return h.pipeline().Run(context.Background(), pipeline.Input{WorkDir: h.layout.WorkDir, CapturedAt: capturedAt})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be removed, stat err = %v", path, err)
	}
}

func TestRunProducesDocument(t *testing.T) {
	h := newHarness(t, []testsupport.GeminiReply{{Text: "[00:05] fix this button"}})

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
	if report.Duration.Seconds != 20 || report.Duration.Source != ffprobe.SourceFormat {
		t.Fatalf("unexpected duration: %+v", report.Duration)
	}
	if report.Document.FrameCount != 4 || len(report.Frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", report.Document.FrameCount)
	}
	text := report.Document.Text
	wants := []string{
		"- Duration: 20 seconds\n",
		"- Frames: 4 (frames at 2s, 7s, 12s, 17s)\n",
		"- Timestamp: 2025-06-01 12:00:00\n",
		"### Issue 2 - Frame at 00:07\n**Visual Context:** [Base64 Image Data]\ncG5n\n",
		"**Developer Explanation:** \"fix this button\"\n**Speech Timestamp:** 00:05\n",
		"**Full Audio Transcript:**\n[00:05] fix this button\n",
		"Developer demonstrating 4 different issues/enhancements\n",
	}
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Fatalf("document missing %q:\n%s", want, text)
		}
	}
	if got := strings.Count(text, "[No speech at this time]"); got != 3 {
		t.Fatalf("expected 3 unmatched frames, got %d", got)
	}

	if got := readFile(t, h.layout.Transcript); got != "[00:05] fix this button" {
		t.Fatalf("transcript file = %q", got)
	}
	assertMissing(t, h.layout.Sanitized)
	assertMissing(t, h.layout.Audio)
	if h.gemini.Requests() != 1 {
		t.Fatalf("expected one transcription request, got %d", h.gemini.Requests())
	}
}

func TestRunEmptyUploadFailsSanitization(t *testing.T) {
	h := newHarness(t, nil)
	if err := os.WriteFile(h.layout.Raw, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := h.run(t)
	if !errors.Is(err, services.ErrSanitizationFailed) {
		t.Fatalf("expected sanitization failure, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatalf("sanitization failure must be fatal")
	}
	if calls := h.media.Calls(); len(calls) != 0 {
		t.Fatalf("no media tool should run, got %v", calls)
	}
}

func TestRunRemuxFailureStopsBeforeFrames(t *testing.T) {
	h := newHarness(t, nil)
	h.media.FailSanitize = true

	_, err := h.run(t)
	if !errors.Is(err, services.ErrSanitizationFailed) {
		t.Fatalf("expected sanitization failure, got %v", err)
	}
	if n := h.media.CountCalls("-frames:v") + h.media.CountCalls("-acodec"); n != 0 {
		t.Fatalf("frame or audio stages ran after sanitize failure: %d calls", n)
	}
}

func TestRunWithoutAudioStreamUsesSentinel(t *testing.T) {
	h := newHarness(t, nil)
	h.media.AudioCodec = ""

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Transcript != audioprep.SentinelNoAudio {
		t.Fatalf("transcript = %q", report.Transcript)
	}
	if len(report.Warnings) != 1 || !errors.Is(report.Warnings[0], services.ErrAudioUnavailable) {
		t.Fatalf("expected audio unavailable warning, got %v", report.Warnings)
	}
	if h.gemini.Requests() != 0 {
		t.Fatalf("speech service must not be called without audio")
	}
	if got := strings.Count(report.Document.Text, "[No speech at this time]"); got != 4 {
		t.Fatalf("every frame should be unmatched, got %d", got)
	}
	if got := readFile(t, h.layout.Transcript); got != audioprep.SentinelNoAudio {
		t.Fatalf("transcript file = %q", got)
	}
}

func TestRunSilentAudioSkipsTranscription(t *testing.T) {
	h := newHarness(t, nil)
	h.media.MaxVolume = "-91.0"

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Audio.Status != audioprep.StatusSilent || report.Transcript != audioprep.SentinelSilent {
		t.Fatalf("unexpected audio outcome: %+v", report.Audio)
	}
	if len(report.Warnings) != 1 || !errors.Is(report.Warnings[0], services.ErrAudioSilent) {
		t.Fatalf("expected silent warning, got %v", report.Warnings)
	}
	if h.gemini.Requests() != 0 {
		t.Fatalf("speech service must not be called for silent audio")
	}
	assertMissing(t, h.layout.Audio)
}

func TestRunTranscriptionFailureStillProducesDocument(t *testing.T) {
	h := newHarness(t, []testsupport.GeminiReply{{Status: http.StatusServiceUnavailable}})
	h.cfg.Transcriber.BackoffBaseSeconds = 1

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.gemini.Requests() != 3 {
		t.Fatalf("expected 3 attempts, got %d", h.gemini.Requests())
	}
	if want := []time.Duration{2 * time.Second, 4 * time.Second}; len(h.delays) != 2 || h.delays[0] != want[0] || h.delays[1] != want[1] {
		t.Fatalf("backoff delays = %v, want %v", h.delays, want)
	}
	if report.Transcript != transcribe.SentinelFailed {
		t.Fatalf("transcript = %q", report.Transcript)
	}
	if len(report.Warnings) != 1 || !errors.Is(report.Warnings[0], services.ErrTranscriptionFailed) {
		t.Fatalf("expected transcription warning, got %v", report.Warnings)
	}
	if !strings.Contains(report.Document.Text, "**Full Audio Transcript:**\n"+transcribe.SentinelFailed+"\n") {
		t.Fatalf("document should carry the failure sentinel:\n%s", report.Document.Text)
	}
	assertMissing(t, h.layout.Audio)
}

func TestRunFrameFailureAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.media.FailFrameAt = []string{"7"}

	_, err := h.run(t)
	if !errors.Is(err, services.ErrFrameExtractionFailed) {
		t.Fatalf("expected frame extraction failure, got %v", err)
	}
	if h.media.CountCalls("-acodec") != 0 {
		t.Fatalf("audio stage should not run after a frame failure")
	}
	assertMissing(t, h.layout.Sanitized)
}

func TestRunSkipsFailedFramesWhenConfigured(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Frames.SkipFailed = true
	h.media.FailFrameAt = []string{"7"}

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Document.FrameCount != 3 {
		t.Fatalf("expected 3 frames, got %d", report.Document.FrameCount)
	}
	if strings.Contains(report.Document.Text, "Frame at 00:07") {
		t.Fatalf("failed frame should be omitted")
	}
}

func TestRunFallsBackToDefaultDuration(t *testing.T) {
	h := newHarness(t, nil)
	h.media.Duration = ""

	report, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Duration.Source != ffprobe.SourceDefault || report.Duration.Seconds != ffprobe.DefaultDurationSeconds {
		t.Fatalf("unexpected duration: %+v", report.Duration)
	}
	if report.Document.FrameCount != 1 || !strings.Contains(report.Document.Text, "- Duration: 5 seconds\n") {
		t.Fatalf("expected one frame in a 5 second recording:\n%s", report.Document.Text)
	}
	if !strings.Contains(report.Document.Text, "Developer demonstrating an application workflow") {
		t.Fatalf("single frame summary missing")
	}
}

func TestRunCanceledDuringSanitize(t *testing.T) {
	h := newHarness(t, nil)
	h.media.Hold = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := h.pipeline().Run(ctx, pipeline.Input{WorkDir: h.layout.WorkDir})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, services.ErrCanceled) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
		if services.Kind(err) != "canceled" {
			t.Fatalf("kind = %q", services.Kind(err))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
}

func TestRebuildMatchesOriginalDocument(t *testing.T) {
	h := newHarness(t, []testsupport.GeminiReply{{Text: "[00:05] fix this button\n[00:16] and this menu"}})
	// Browser uploads carry no duration until remuxed.
	h.media.DurationByName = map[string]string{pipeline.RawRecordingName: "N/A"}
	p := h.pipeline()

	report, err := p.Run(context.Background(), pipeline.Input{WorkDir: h.layout.WorkDir, CapturedAt: capturedAt})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Duration.Seconds != 20 {
		t.Fatalf("run duration = %v", report.Duration.Seconds)
	}
	if _, err := os.Stat(h.layout.Duration); err != nil {
		t.Fatalf("resolved duration not stored: %v", err)
	}
	rebuilt, err := p.Rebuild(context.Background(), h.layout.WorkDir, capturedAt)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.Duration != report.Duration {
		t.Fatalf("rebuilt duration %+v, want %+v", rebuilt.Duration, report.Duration)
	}
	if rebuilt.Document != report.Document {
		t.Fatalf("rebuilt document differs:\n%s\n---\n%s", rebuilt.Document.Text, report.Document.Text)
	}
}

func TestRebuildProbesRawWithoutStoredDuration(t *testing.T) {
	h := newHarness(t, nil)
	p := h.pipeline()
	if _, err := p.Run(context.Background(), pipeline.Input{WorkDir: h.layout.WorkDir, CapturedAt: capturedAt}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := os.Remove(h.layout.Duration); err != nil {
		t.Fatal(err)
	}
	h.media.Duration = "12.5"
	rebuilt, err := p.Rebuild(context.Background(), h.layout.WorkDir, capturedAt)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.Duration.Seconds != 12.5 || rebuilt.Duration.Source != ffprobe.SourceFormat {
		t.Fatalf("expected the raw recording duration, got %+v", rebuilt.Duration)
	}
}

func TestRebuildRequiresFrames(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.pipeline().Rebuild(context.Background(), h.layout.WorkDir, capturedAt); err == nil {
		t.Fatal("expected error for a work dir without frames")
	}
}
