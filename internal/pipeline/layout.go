package pipeline

import "path/filepath"

// File names inside a session work directory.
const (
	RawRecordingName       = "recording.webm"
	SanitizedRecordingName = "recording-fixed.webm"
	FramesDirName          = "frames"
	AudioName              = "audio.wav"
	TranscriptName         = "transcript.txt"
	DurationName           = "duration.json"
)

// Layout resolves artifact paths for one work directory.
type Layout struct {
	WorkDir    string
	Raw        string
	Sanitized  string
	FramesDir  string
	Audio      string
	Transcript string
	Duration   string
}

// LayoutFor returns the artifact paths under workDir.
func LayoutFor(workDir string) Layout {
	return Layout{
		WorkDir:    workDir,
		Raw:        filepath.Join(workDir, RawRecordingName),
		Sanitized:  filepath.Join(workDir, SanitizedRecordingName),
		FramesDir:  filepath.Join(workDir, FramesDirName),
		Audio:      filepath.Join(workDir, AudioName),
		Transcript: filepath.Join(workDir, TranscriptName),
		Duration:   filepath.Join(workDir, DurationName),
	}
}
