package frames

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"clipcontext/internal/media/ffmpeg"
)

const (
	filePrefix = "frame-"
	fileSuffix = ".png"
)

// Sample is one extracted still image.
type Sample struct {
	Timestamp float64
	Path      string
}

// FileName returns the stable file name for a capture at the given second.
func FileName(seconds float64) string {
	return filePrefix + ffmpeg.FormatSeconds(seconds) + fileSuffix
}

// ParseFileName recovers the timestamp embedded by FileName.
func ParseFileName(name string) (float64, bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

// Scan re-derives samples from the frame files in dir, ordered by timestamp.
// A missing directory yields no samples.
func Scan(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan frames: %w", err)
	}
	samples := make([]Sample, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		samples = append(samples, Sample{Timestamp: ts, Path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp < samples[j].Timestamp })
	return samples, nil
}

func removeStale(dir string) error {
	samples, err := Scan(dir)
	if err != nil {
		return err
	}
	for _, sample := range samples {
		if err := os.Remove(sample.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale frame: %w", err)
		}
	}
	return nil
}
