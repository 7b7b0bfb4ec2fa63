package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkRoot string `toml:"work_root"`
	LogDir   string `toml:"log_dir"`
}

// Capture contains configuration for the upload boundary.
type Capture struct {
	Bind                string   `toml:"bind"`
	MaxUploadMB         int      `toml:"max_upload_mb"`
	MaxRecordingSeconds int      `toml:"max_recording_seconds"`
	AllowedOrigins      []string `toml:"allowed_origins"`
	OpenBrowser         bool     `toml:"open_browser"`
}

// Media contains configuration for the external media toolkit.
type Media struct {
	FFmpegBinary       string `toml:"ffmpeg_binary"`
	FFprobeBinary      string `toml:"ffprobe_binary"`
	ToolTimeoutSeconds int    `toml:"tool_timeout_seconds"`
}

// Frames contains the frame timestamp policy and rendering choice.
type Frames struct {
	// Mode selects the timestamp policy: "interval" or "fixed".
	Mode string `toml:"mode"`
	// Timestamps lists the seconds used by the fixed policy.
	Timestamps []float64 `toml:"timestamps"`
	// IntervalSeconds and StartOffsetSeconds drive the interval policy.
	IntervalSeconds    float64 `toml:"interval_seconds"`
	StartOffsetSeconds float64 `toml:"start_offset_seconds"`
	// MaxFrames is the safety cap on extracted frames.
	MaxFrames int `toml:"max_frames"`
	// SkipFailed keeps going when a single timestamp cannot be extracted.
	SkipFailed bool `toml:"skip_failed"`
	// ImageMode is "inline" (base64 in the document) or "reference" (file path).
	ImageMode string `toml:"image_mode"`
}

// Audio contains extraction and silence classification thresholds.
type Audio struct {
	Gain                float64 `toml:"gain"`
	SampleRate          int     `toml:"sample_rate"`
	SilenceNoiseDB      float64 `toml:"silence_noise_db"`
	SilenceMinSeconds   float64 `toml:"silence_min_seconds"`
	MaxSilenceIntervals int     `toml:"max_silence_intervals"`
	MinPeakDB           float64 `toml:"min_peak_db"`
}

// Transcriber contains the speech-recognition service settings.
type Transcriber struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	MaxAttempts        int    `toml:"max_attempts"`
	BackoffBaseSeconds int    `toml:"backoff_base_seconds"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Session contains session lifecycle settings.
type Session struct {
	KeepArtifacts   bool `toml:"keep_artifacts"`
	StaleAfterHours int  `toml:"stale_after_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipcontext.
//
// Configuration sections by subsystem:
//   - Paths: session work root and log directory
//   - Capture: upload endpoint bind address, limits, CORS origins
//   - Media: ffmpeg/ffprobe binaries and per-invocation timeout
//   - Frames: timestamp policy, safety cap, image rendering mode
//   - Audio: extraction gain and silence thresholds
//   - Transcriber: speech-recognition credentials and retry policy
//   - Session: artifact retention
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Capture     Capture     `toml:"capture"`
	Media       Media       `toml:"media"`
	Frames      Frames      `toml:"frames"`
	Audio       Audio       `toml:"audio"`
	Transcriber Transcriber `toml:"transcriber"`
	Session     Session     `toml:"session"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipcontext.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkRoot, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ToolTimeout returns the per-invocation timeout for media tools.
func (c *Config) ToolTimeout() time.Duration {
	if c.Media.ToolTimeoutSeconds <= 0 {
		return time.Duration(defaultToolTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Media.ToolTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the request body cap for the upload endpoint.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Capture.MaxUploadMB) * 1024 * 1024
}

// StaleAfter returns the age after which leftover session directories are removed.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Session.StaleAfterHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
