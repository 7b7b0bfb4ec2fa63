package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeMedia()
	c.normalizeFrames()
	c.normalizeTranscriber()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkRoot) == "" {
		c.Paths.WorkRoot = defaultWorkRoot
	}
	if c.Paths.WorkRoot, err = expandPath(c.Paths.WorkRoot); err != nil {
		return fmt.Errorf("paths.work_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	if value, ok := os.LookupEnv("CLIPCONTEXT_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Capture.Bind = value
	}
	c.Capture.Bind = strings.TrimSpace(c.Capture.Bind)
	if c.Capture.Bind == "" {
		c.Capture.Bind = defaultBind
	}
	origins := make([]string, 0, len(c.Capture.AllowedOrigins))
	seen := make(map[string]struct{}, len(c.Capture.AllowedOrigins))
	for _, origin := range c.Capture.AllowedOrigins {
		normalized := strings.TrimRight(strings.TrimSpace(origin), "/")
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		origins = append(origins, normalized)
	}
	c.Capture.AllowedOrigins = origins
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeFrames() {
	c.Frames.Mode = strings.ToLower(strings.TrimSpace(c.Frames.Mode))
	if c.Frames.Mode == "" {
		c.Frames.Mode = defaultFrameMode
	}
	c.Frames.ImageMode = strings.ToLower(strings.TrimSpace(c.Frames.ImageMode))
	if c.Frames.ImageMode == "" {
		c.Frames.ImageMode = defaultImageMode
	}
	if len(c.Frames.Timestamps) > 0 {
		stamps := append([]float64(nil), c.Frames.Timestamps...)
		sort.Float64s(stamps)
		c.Frames.Timestamps = stamps
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.APIKey = strings.TrimSpace(c.Transcriber.APIKey)
	if c.Transcriber.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Transcriber.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcriber.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcriber.BaseURL), "/")
	if c.Transcriber.BaseURL == "" {
		c.Transcriber.BaseURL = defaultTranscriberBaseURL
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
