package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipcontext/internal/config"
	"clipcontext/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	media      *testsupport.FakeMedia
	gemini     *testsupport.GeminiServer
	opened     []string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	gemini := testsupport.NewGeminiServer(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithTranscriberURL(gemini.URL),
		testsupport.WithFixedFrames(2, 7, 12, 17),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		media:      testsupport.NewFakeMedia(),
		gemini:     gemini,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	configFlag := ""
	ctx := newCommandContext(&configFlag)
	ctx.runner = env.media
	ctx.opener = func(url string) error {
		env.opened = append(env.opened, url)
		return nil
	}
	cmd := newRootCommandWithContext(ctx, &configFlag)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
