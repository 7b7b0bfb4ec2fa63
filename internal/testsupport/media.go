package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"clipcontext/internal/procexec"
)

// FakeMedia is a procexec.Runner that imitates ffmpeg and ffprobe closely
// enough for pipeline tests. Output files named by the final argument are
// written with placeholder bytes.
type FakeMedia struct {
	// Duration is printed for format=duration probes. Empty prints N/A.
	Duration string
	// DurationByName overrides Duration for probes of files with the given
	// base name. "N/A" mimics a browser upload without duration metadata.
	DurationByName map[string]string
	// AudioCodec is printed for audio stream probes. Empty means no audio.
	AudioCodec string
	// MaxVolume is the volumedetect peak, e.g. "-5.0". Empty omits the line.
	MaxVolume     string
	SilenceStarts int
	// FailSanitize makes the remux exit non-zero.
	FailSanitize bool
	// FailFrameAt lists frame timestamps (ffmpeg -ss values) that fail.
	FailFrameAt []string
	// Hold, when set, blocks the sanitize call until it is closed or the
	// context ends.
	Hold chan struct{}

	mu    sync.Mutex
	calls []procexec.Command
}

// NewFakeMedia returns a runner describing a 20 second recording with
// audible speech.
func NewFakeMedia() *FakeMedia {
	return &FakeMedia{Duration: "20.000000", AudioCodec: "opus", MaxVolume: "-5.0"}
}

// Run implements procexec.Runner.
func (f *FakeMedia) Run(ctx context.Context, command procexec.Command) (procexec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return procexec.Result{ExitCode: -1}, err
	}
	args := command.Args
	switch filepath.Base(command.Name) {
	case "ffprobe":
		return f.probe(args), nil
	case "ffmpeg":
		return f.ffmpeg(ctx, command)
	default:
		return procexec.Result{}, fmt.Errorf("%s: %w", command.Name, procexec.ErrToolUnavailable)
	}
}

func (f *FakeMedia) probe(args []string) procexec.Result {
	switch {
	case slices.Contains(args, "format=duration"):
		duration := f.Duration
		if override, ok := f.DurationByName[filepath.Base(args[len(args)-1])]; ok {
			duration = override
		}
		if duration == "" {
			return procexec.Result{Stdout: []byte("N/A\n")}
		}
		return procexec.Result{Stdout: []byte(duration + "\n")}
	case slices.Contains(args, "stream=codec_name"):
		if f.AudioCodec == "" {
			return procexec.Result{}
		}
		return procexec.Result{Stdout: []byte(f.AudioCodec + "\n")}
	default:
		return procexec.Result{Stdout: []byte("N/A\n")}
	}
}

func (f *FakeMedia) ffmpeg(ctx context.Context, command procexec.Command) (procexec.Result, error) {
	args := command.Args
	dst := args[len(args)-1]
	switch {
	case slices.Contains(args, "copy"):
		if f.Hold != nil {
			select {
			case <-f.Hold:
			case <-ctx.Done():
				return procexec.Result{ExitCode: -1}, ctx.Err()
			}
		}
		if f.FailSanitize {
			return failed(command, "Invalid data found when processing input")
		}
		return procexec.Result{}, writePlaceholder(dst, "webm")
	case slices.Contains(args, "-frames:v"):
		if at := argAfter(args, "-ss"); slices.Contains(f.FailFrameAt, at) {
			return failed(command, "Output file is empty, nothing was encoded")
		}
		return procexec.Result{}, writePlaceholder(dst, "png")
	case slices.Contains(args, "-acodec"):
		return procexec.Result{}, writePlaceholder(dst, "RIFF")
	case strings.HasPrefix(argAfter(args, "-af"), "silencedetect"):
		var b strings.Builder
		for i := 0; i < f.SilenceStarts; i++ {
			fmt.Fprintf(&b, "[silencedetect @ 0x1] silence_start: %d\n[silencedetect @ 0x1] silence_end: %d.5 | silence_duration: 0.5\n", i, i)
		}
		return procexec.Result{Stderr: []byte(b.String())}, nil
	case argAfter(args, "-af") == "volumedetect":
		out := "[Parsed_volumedetect_0 @ 0x1] mean_volume: -20.0 dB\n"
		if f.MaxVolume != "" {
			out += "[Parsed_volumedetect_0 @ 0x1] max_volume: " + f.MaxVolume + " dB\n"
		}
		return procexec.Result{Stderr: []byte(out)}, nil
	default:
		return failed(command, "unexpected invocation")
	}
}

// Calls returns a copy of every command run so far.
func (f *FakeMedia) Calls() []procexec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CountCalls counts commands whose arguments contain marker.
func (f *FakeMedia) CountCalls(marker string) int {
	count := 0
	for _, call := range f.Calls() {
		for _, arg := range call.Args {
			if strings.Contains(arg, marker) {
				count++
				break
			}
		}
	}
	return count
}

func failed(command procexec.Command, stderr string) (procexec.Result, error) {
	res := procexec.Result{ExitCode: 1, Stderr: []byte(stderr + "\n")}
	return res, &procexec.ToolError{Command: command, Result: res}
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func writePlaceholder(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
