package ffmpeg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SanitizeArgs builds the stream-copy remux invocation.
func SanitizeArgs(src, dst string) []string {
	return []string{"-hide_banner", "-loglevel", "error", "-y", "-i", src, "-c", "copy", dst}
}

// FrameArgs builds a single-frame capture. Input seeking keeps each capture
// independent of the others.
func FrameArgs(src string, seconds float64, dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", FormatSeconds(seconds),
		"-i", src,
		"-frames:v", "1",
		"-y", dst,
	}
}

// AudioArgs builds the mono PCM extraction with a volume boost.
func AudioArgs(src, dst string, opts AudioOptions) []string {
	gain := opts.Gain
	if gain <= 0 {
		gain = 1
	}
	rate := opts.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-y",
		"-af", "volume=" + FormatSeconds(gain),
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", "1",
		"-vn",
		"-f", "wav",
		dst,
	}
}

// SilenceDetectArgs builds the silencedetect analysis pass. Output goes to
// the null muxer; diagnostics arrive on stderr.
func SilenceDetectArgs(path string, opts SilenceOptions) []string {
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s", FormatSeconds(opts.NoiseDB), FormatSeconds(opts.MinSeconds))
	return []string{"-hide_banner", "-nostats", "-i", path, "-af", filter, "-f", "null", "-"}
}

// VolumeDetectArgs builds the volumedetect analysis pass.
func VolumeDetectArgs(path string) []string {
	return []string{"-hide_banner", "-nostats", "-i", path, "-af", "volumedetect", "-f", "null", "-"}
}

var maxVolumePattern = regexp.MustCompile(`max_volume:\s*([-\d.]+)\s*dB`)

// CountSilenceStarts counts silence_start markers in silencedetect output.
func CountSilenceStarts(output string) int {
	return strings.Count(output, "silence_start")
}

// ParseMaxVolume extracts the first max_volume reading from volumedetect output.
func ParseMaxVolume(output string) (float64, bool) {
	match := maxVolumePattern.FindStringSubmatch(output)
	if len(match) < 2 {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
