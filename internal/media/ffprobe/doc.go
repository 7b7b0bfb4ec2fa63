// Package ffprobe wraps the ffprobe command-line tool.
//
// Key types:
//   - Prober: runs ffprobe through a procexec.Runner
//   - Result: parsed JSON output containing streams and format metadata
//   - DurationEstimate: a positive duration with the probe that produced it
//
// ProbeDuration never fails: it falls back from the container duration to the
// first video stream and finally to DefaultDurationSeconds. HasAudio treats
// any probe failure as "no audio".
package ffprobe
