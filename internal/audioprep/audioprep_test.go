package audioprep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipcontext/internal/config"
	"clipcontext/internal/media/ffmpeg"
	"clipcontext/internal/services"
)

type fakeProber struct{ hasAudio bool }

func (f fakeProber) HasAudio(context.Context, string) bool { return f.hasAudio }

type fakeTool struct {
	extractErr  error
	writeBytes  []byte
	intervals   int
	peak        float64
	peakOK      bool
	analysisErr error
	extracted   bool
	analysed    bool
}

func (f *fakeTool) ExtractAudio(_ context.Context, _, dst string, _ ffmpeg.AudioOptions) error {
	f.extracted = true
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(dst, f.writeBytes, 0o644)
}

func (f *fakeTool) CountSilenceIntervals(context.Context, string, ffmpeg.SilenceOptions) (int, error) {
	f.analysed = true
	return f.intervals, f.analysisErr
}

func (f *fakeTool) MaxVolume(context.Context, string) (float64, bool, error) {
	return f.peak, f.peakOK, f.analysisErr
}

func defaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.Default().Audio)
}

func TestClassify(t *testing.T) {
	th := defaultThresholds()
	tests := []struct {
		name      string
		peak      float64
		intervals int
		silent    bool
	}{
		{"very quiet peak", -70, 0, true},
		{"very quiet peak many intervals", -70, 10, true},
		{"loud no intervals", -10, 0, false},
		{"loud at interval limit", -10, 3, false},
		{"loud many intervals", -10, 4, true},
		{"peak at threshold", -60, 0, false},
		{"missing peak", missingPeakDB, 0, true},
	}
	for _, tc := range tests {
		if got := th.Classify(tc.peak, tc.intervals); got != tc.silent {
			t.Errorf("%s: Classify(%v, %d) = %v, want %v", tc.name, tc.peak, tc.intervals, got, tc.silent)
		}
	}
}

func TestPrepareOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		hasAudio  bool
		tool      *fakeTool
		status    Status
		sentinel  string
		marker    error
		wantAudio bool
	}{
		{"no audio stream", false, &fakeTool{}, StatusNoAudioStream, SentinelNoAudio, services.ErrAudioUnavailable, false},
		{"extraction failed", true, &fakeTool{extractErr: errors.New("boom")}, StatusExtractionFailed, SentinelExtractionFailed, services.ErrAudioUnavailable, false},
		{"empty output", true, &fakeTool{writeBytes: nil}, StatusEmpty, SentinelNoContent, services.ErrAudioUnavailable, false},
		{"silent peak", true, &fakeTool{writeBytes: []byte("wav"), peak: -70, peakOK: true}, StatusSilent, SentinelSilent, services.ErrAudioSilent, false},
		{"no peak reading", true, &fakeTool{writeBytes: []byte("wav")}, StatusSilent, SentinelSilent, services.ErrAudioSilent, false},
		{"many intervals", true, &fakeTool{writeBytes: []byte("wav"), peak: -5, peakOK: true, intervals: 5}, StatusSilent, SentinelSilent, services.ErrAudioSilent, false},
		{"ready", true, &fakeTool{writeBytes: []byte("wav"), peak: -10, peakOK: true}, StatusReady, "", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			audioPath := filepath.Join(dir, "audio.wav")
			transcriptPath := filepath.Join(dir, "transcript.txt")
			prep := New(fakeProber{hasAudio: tc.hasAudio}, tc.tool, ffmpeg.AudioOptions{Gain: 10, SampleRate: 16000}, defaultThresholds(), nil)

			outcome, err := prep.Prepare(context.Background(), "in.webm", audioPath, transcriptPath)
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if outcome.Status != tc.status {
				t.Fatalf("status = %s, want %s", outcome.Status, tc.status)
			}
			if outcome.Ready() != tc.wantAudio {
				t.Fatalf("Ready() = %v", outcome.Ready())
			}
			if tc.marker != nil && !errors.Is(outcome.Err, tc.marker) {
				t.Fatalf("Err = %v, want %v", outcome.Err, tc.marker)
			}
			if tc.marker != nil && services.IsFatal(outcome.Err) {
				t.Fatalf("audio outcome must be recoverable: %v", outcome.Err)
			}

			content, readErr := os.ReadFile(transcriptPath)
			if tc.sentinel == "" {
				if !os.IsNotExist(readErr) {
					t.Fatalf("ready outcome must not write a transcript, got %q", content)
				}
				if outcome.AudioPath != audioPath {
					t.Fatalf("AudioPath = %q", outcome.AudioPath)
				}
				return
			}
			if string(content) != tc.sentinel {
				t.Fatalf("transcript = %q, want %q", content, tc.sentinel)
			}
			if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
				t.Fatalf("audio file should be removed after a sentinel outcome")
			}
		})
	}
}

func TestPrepareNoAudioSkipsExtraction(t *testing.T) {
	tool := &fakeTool{}
	dir := t.TempDir()
	prep := New(fakeProber{}, tool, ffmpeg.AudioOptions{}, defaultThresholds(), nil)
	if _, err := prep.Prepare(context.Background(), "in.webm", filepath.Join(dir, "a.wav"), filepath.Join(dir, "t.txt")); err != nil {
		t.Fatal(err)
	}
	if tool.extracted || tool.analysed {
		t.Fatal("later steps must not run once no audio stream is found")
	}
}

func TestPrepareCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	tool := &fakeTool{extractErr: context.Canceled}
	prep := New(fakeProber{hasAudio: true}, tool, ffmpeg.AudioOptions{}, defaultThresholds(), nil)
	if _, err := prep.Prepare(ctx, "in.webm", filepath.Join(dir, "a.wav"), filepath.Join(dir, "t.txt")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
