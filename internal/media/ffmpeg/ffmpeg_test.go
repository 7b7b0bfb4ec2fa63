package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"clipcontext/internal/procexec"
	"clipcontext/internal/services"
)

type recordingRunner struct {
	calls  []procexec.Command
	result procexec.Result
	err    error
}

func (r *recordingRunner) Run(_ context.Context, cmd procexec.Command) (procexec.Result, error) {
	r.calls = append(r.calls, cmd)
	return r.result, r.err
}

func TestSanitizeRejectsEmptyInputWithoutRunning(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "recording.webm")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &recordingRunner{}
	tool := New(runner, "")

	for _, src := range []string{empty, filepath.Join(dir, "missing.webm")} {
		err := tool.Sanitize(context.Background(), src, filepath.Join(dir, "fixed.webm"))
		if !errors.Is(err, services.ErrSanitizationFailed) {
			t.Fatalf("Sanitize(%s) = %v, want ErrSanitizationFailed", src, err)
		}
	}
	if len(runner.calls) != 0 {
		t.Fatalf("ffmpeg must not run for unusable input, got %d calls", len(runner.calls))
	}
}

func TestSanitizeWrapsToolFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "recording.webm")
	if err := os.WriteFile(src, []byte("webm"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &recordingRunner{err: &procexec.ToolError{Command: procexec.Command{Name: "ffmpeg"}, Result: procexec.Result{ExitCode: 1}}}
	err := New(runner, "/opt/ffmpeg").Sanitize(context.Background(), src, filepath.Join(dir, "fixed.webm"))
	if !errors.Is(err, services.ErrSanitizationFailed) || !errors.Is(err, procexec.ErrToolFailed) {
		t.Fatalf("expected sanitization + tool failure markers, got %v", err)
	}
	want := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", src, "-c", "copy", filepath.Join(dir, "fixed.webm")}
	if runner.calls[0].Name != "/opt/ffmpeg" || !reflect.DeepEqual(runner.calls[0].Args, want) {
		t.Fatalf("unexpected command: %v", runner.calls[0])
	}
}

func TestFrameArgs(t *testing.T) {
	got := strings.Join(FrameArgs("in.webm", 1.5, "frame-1.5.png"), " ")
	if !strings.Contains(got, "-ss 1.5 -i in.webm -frames:v 1") {
		t.Fatalf("unexpected frame args: %s", got)
	}
	if !strings.HasSuffix(got, "frame-1.5.png") {
		t.Fatalf("output must be last: %s", got)
	}
}

func TestAudioArgs(t *testing.T) {
	got := strings.Join(AudioArgs("in.webm", "audio.wav", AudioOptions{Gain: 10, SampleRate: 16000}), " ")
	for _, want := range []string{"-af volume=10", "-acodec pcm_s16le", "-ar 16000", "-ac 1", "-vn", "-f wav audio.wav"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %s", want, got)
		}
	}
}

func TestSilenceDetectArgs(t *testing.T) {
	got := strings.Join(SilenceDetectArgs("a.wav", SilenceOptions{NoiseDB: -30, MinSeconds: 0.5}), " ")
	if !strings.Contains(got, "silencedetect=noise=-30dB:d=0.5") {
		t.Fatalf("unexpected filter: %s", got)
	}
}

func TestParseDiagnostics(t *testing.T) {
	output := `[silencedetect @ 0x1] silence_start: 0.5
[silencedetect @ 0x1] silence_end: 1.2 | silence_duration: 0.7
[silencedetect @ 0x1] silence_start: 3
[Parsed_volumedetect_0 @ 0x2] mean_volume: -31.4 dB
[Parsed_volumedetect_0 @ 0x2] max_volume: -12.5 dB`
	if got := CountSilenceStarts(output); got != 2 {
		t.Fatalf("CountSilenceStarts = %d", got)
	}
	peak, ok := ParseMaxVolume(output)
	if !ok || peak != -12.5 {
		t.Fatalf("ParseMaxVolume = %v, %v", peak, ok)
	}
	if _, ok := ParseMaxVolume("no reading"); ok {
		t.Fatal("expected missing reading")
	}
}

func TestAnalysisParsesOutputOfFailedRun(t *testing.T) {
	runner := &recordingRunner{
		result: procexec.Result{ExitCode: 1, Stderr: []byte("silence_start: 0\nmax_volume: -70.0 dB\n")},
		err:    &procexec.ToolError{Result: procexec.Result{ExitCode: 1}},
	}
	tool := New(runner, "")
	count, err := tool.CountSilenceIntervals(context.Background(), "a.wav", SilenceOptions{NoiseDB: -30, MinSeconds: 0.5})
	if err != nil || count != 1 {
		t.Fatalf("CountSilenceIntervals = %d, %v", count, err)
	}
	peak, ok, err := tool.MaxVolume(context.Background(), "a.wav")
	if err != nil || !ok || peak != -70 {
		t.Fatalf("MaxVolume = %v, %v, %v", peak, ok, err)
	}
}

func TestAnalysisPropagatesCancellation(t *testing.T) {
	runner := &recordingRunner{err: context.Canceled}
	if _, err := New(runner, "").CountSilenceIntervals(context.Background(), "a.wav", SilenceOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
