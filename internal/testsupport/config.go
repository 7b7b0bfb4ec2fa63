package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipcontext/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Transcriber.APIKey = "test"
	cfgVal.Transcriber.BackoffBaseSeconds = 0
	cfgVal.Paths.WorkRoot = filepath.Join(base, "sessions")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Capture.Bind = "127.0.0.1:0"
	cfgVal.Capture.OpenBrowser = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTranscriberURL points the speech service at a test server.
func WithTranscriberURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcriber.BaseURL = url
	}
}

// WithFixedFrames switches the frame policy to the provided timestamps.
func WithFixedFrames(timestamps ...float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Frames.Mode = config.FrameModeFixed
		b.cfg.Frames.Timestamps = timestamps
	}
}

// WithKeepArtifacts retains session directories after processing.
func WithKeepArtifacts() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.KeepArtifacts = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkRoot)
}
