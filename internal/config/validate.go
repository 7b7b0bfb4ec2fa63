package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingSpeechKey marks a config without a speech-service API key.
var ErrMissingSpeechKey = errors.New("speech api key missing")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Session.StaleAfterHours < 0 {
		return errors.New("session.stale_after_hours must not be negative")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	return ensurePositiveMap(map[string]int{
		"transcriber.max_attempts":    c.Transcriber.MaxAttempts,
		"transcriber.timeout_seconds": c.Transcriber.TimeoutSeconds,
	})
}

// RequireSpeechKey reports a missing speech-service API key. Only commands
// that transcribe call it, so diagnostics and session maintenance run without
// a key.
func (c *Config) RequireSpeechKey() error {
	if c.Transcriber.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%w: transcriber.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'clipcontext config init')", ErrMissingSpeechKey, defaultPath)
}

func (c *Config) validateCapture() error {
	if err := ensurePositiveMap(map[string]int{
		"capture.max_upload_mb":         c.Capture.MaxUploadMB,
		"capture.max_recording_seconds": c.Capture.MaxRecordingSeconds,
		"media.tool_timeout_seconds":    c.Media.ToolTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Transcriber.BackoffBaseSeconds < 0 {
		return errors.New("transcriber.backoff_base_seconds must not be negative")
	}
	for _, origin := range c.Capture.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("capture.allowed_origins: %q must start with http:// or https://", origin)
		}
	}
	return nil
}

func (c *Config) validateFrames() error {
	switch c.Frames.Mode {
	case FrameModeInterval:
		if c.Frames.IntervalSeconds <= 0 {
			return errors.New("frames.interval_seconds must be positive")
		}
		if c.Frames.StartOffsetSeconds < 0 {
			return errors.New("frames.start_offset_seconds must not be negative")
		}
	case FrameModeFixed:
		if len(c.Frames.Timestamps) == 0 {
			return errors.New("frames.timestamps must list at least one timestamp when frames.mode is \"fixed\"")
		}
		for _, ts := range c.Frames.Timestamps {
			if ts < 0 {
				return fmt.Errorf("frames.timestamps: negative timestamp %v", ts)
			}
		}
	default:
		return fmt.Errorf("frames.mode: unsupported value %q (want %q or %q)", c.Frames.Mode, FrameModeInterval, FrameModeFixed)
	}
	if c.Frames.MaxFrames <= 0 {
		return errors.New("frames.max_frames must be positive")
	}
	switch c.Frames.ImageMode {
	case ImageModeInline, ImageModeReference:
	default:
		return fmt.Errorf("frames.image_mode: unsupported value %q (want %q or %q)", c.Frames.ImageMode, ImageModeInline, ImageModeReference)
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.Gain <= 0 {
		return errors.New("audio.gain must be positive")
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.SilenceMinSeconds <= 0 {
		return errors.New("audio.silence_min_seconds must be positive")
	}
	if c.Audio.MaxSilenceIntervals < 0 {
		return errors.New("audio.max_silence_intervals must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
