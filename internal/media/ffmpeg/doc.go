// Package ffmpeg builds and runs the ffmpeg invocations used by the capture
// pipeline: stream-copy sanitization, single-frame capture, mono PCM audio
// extraction, and the silencedetect/volumedetect analysis passes whose
// diagnostic text is parsed here.
package ffmpeg
