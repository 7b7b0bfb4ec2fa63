package config

const (
	defaultConfigPath          = "~/.config/clipcontext/config.toml"
	defaultWorkRoot            = "~/.local/share/clipcontext/sessions"
	defaultLogDir              = "~/.local/share/clipcontext/logs"
	defaultBind                = "127.0.0.1:8765"
	defaultMaxUploadMB         = 200
	defaultMaxRecordingSeconds = 30
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultToolTimeoutSeconds  = 120
	defaultFrameMode           = FrameModeInterval
	defaultFrameInterval       = 3.0
	defaultFrameOffset         = 1.5
	defaultMaxFrames           = 6
	defaultImageMode           = ImageModeInline
	defaultAudioGain           = 10.0
	defaultAudioSampleRate     = 16000
	defaultSilenceNoiseDB      = -30.0
	defaultSilenceMinSeconds   = 0.5
	defaultMaxSilenceIntervals = 3
	defaultMinPeakDB           = -60.0
	defaultTranscriberBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	defaultTranscriberModel    = "gemini-1.5-flash"
	defaultTranscriberAttempts = 3
	defaultBackoffBaseSeconds  = 1
	defaultTranscriberTimeout  = 120
	defaultStaleAfterHours     = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Frame timestamp policies.
const (
	FrameModeInterval = "interval"
	FrameModeFixed    = "fixed"
)

// Image rendering modes for the context document.
const (
	ImageModeInline    = "inline"
	ImageModeReference = "reference"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkRoot: defaultWorkRoot,
			LogDir:   defaultLogDir,
		},
		Capture: Capture{
			Bind:                defaultBind,
			MaxUploadMB:         defaultMaxUploadMB,
			MaxRecordingSeconds: defaultMaxRecordingSeconds,
			OpenBrowser:         true,
		},
		Media: Media{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			ToolTimeoutSeconds: defaultToolTimeoutSeconds,
		},
		Frames: Frames{
			Mode:               defaultFrameMode,
			Timestamps:         []float64{2, 7, 12, 17, 22, 27},
			IntervalSeconds:    defaultFrameInterval,
			StartOffsetSeconds: defaultFrameOffset,
			MaxFrames:          defaultMaxFrames,
			ImageMode:          defaultImageMode,
		},
		Audio: Audio{
			Gain:                defaultAudioGain,
			SampleRate:          defaultAudioSampleRate,
			SilenceNoiseDB:      defaultSilenceNoiseDB,
			SilenceMinSeconds:   defaultSilenceMinSeconds,
			MaxSilenceIntervals: defaultMaxSilenceIntervals,
			MinPeakDB:           defaultMinPeakDB,
		},
		Transcriber: Transcriber{
			BaseURL:            defaultTranscriberBaseURL,
			Model:              defaultTranscriberModel,
			MaxAttempts:        defaultTranscriberAttempts,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
			TimeoutSeconds:     defaultTranscriberTimeout,
		},
		Session: Session{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
