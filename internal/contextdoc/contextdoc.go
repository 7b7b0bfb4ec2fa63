package contextdoc

import (
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"clipcontext/internal/config"
	"clipcontext/internal/correlate"
)

// TimestampLayout formats the capture time in the document header.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	noSpeech         = "[No speech at this time]"
	noSpeechTime     = "N/A"
	imageUnavailable = "[Image unavailable]"
)

// Document is a rendered context document.
type Document struct {
	Text       string
	FrameCount int
	Duration   float64
}

// Input carries everything the renderer needs. Nothing is read from the
// session beyond the frame images.
type Input struct {
	Duration   float64
	Entries    []correlate.Entry
	Transcript string
	CapturedAt time.Time
	// FramePolicy describes how frames were chosen, e.g. "1 frame every 3s starting at 1.5s".
	FramePolicy string
}

// ImageReader loads frame bytes for inline rendering.
type ImageReader func(path string) ([]byte, error)

// Renderer assembles Markdown context documents.
type Renderer struct {
	imageMode string
	readImage ImageReader
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithImageReader swaps the frame reader, mainly for tests.
func WithImageReader(reader ImageReader) Option {
	return func(r *Renderer) {
		if reader != nil {
			r.readImage = reader
		}
	}
}

// New builds a renderer for the given image mode. Unknown modes fall back to inline.
func New(imageMode string, opts ...Option) *Renderer {
	if imageMode != config.ImageModeReference {
		imageMode = config.ImageModeInline
	}
	r := &Renderer{imageMode: imageMode, readImage: os.ReadFile}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the document. Identical input yields identical text.
func (r *Renderer) Render(in Input) Document {
	var b strings.Builder

	b.WriteString("## Video Context Captured\n\n")
	b.WriteString("**Recording Details:**\n")
	fmt.Fprintf(&b, "- Duration: %d seconds\n", int(math.Floor(in.Duration)))
	if policy := strings.TrimSpace(in.FramePolicy); policy != "" {
		fmt.Fprintf(&b, "- Frames: %d (%s)\n", len(in.Entries), policy)
	} else {
		fmt.Fprintf(&b, "- Frames: %d\n", len(in.Entries))
	}
	fmt.Fprintf(&b, "- Timestamp: %s\n\n", in.CapturedAt.UTC().Format(TimestampLayout))
	b.WriteString("**Issues/Enhancements with Visual Context:**\n")

	for i, entry := range in.Entries {
		fmt.Fprintf(&b, "\n### Issue %d - Frame at %s\n", i+1, Clock(entry.Frame.Timestamp))
		r.writeVisual(&b, entry.Frame.Path)

		explanation := noSpeech
		speechAt := noSpeechTime
		if entry.Matched && entry.Segment != nil {
			explanation = entry.Segment.Text
			speechAt = Clock(float64(entry.Segment.Timestamp))
		}
		fmt.Fprintf(&b, "\n**Developer Explanation:** \"%s\"\n", explanation)
		fmt.Fprintf(&b, "**Speech Timestamp:** %s\n\n---\n", speechAt)
	}

	b.WriteString("\n**Full Audio Transcript:**\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\n**Context Summary:**\n")
	b.WriteString(Summary(len(in.Entries)))
	b.WriteString("\n")

	return Document{Text: b.String(), FrameCount: len(in.Entries), Duration: in.Duration}
}

func (r *Renderer) writeVisual(b *strings.Builder, path string) {
	if r.imageMode == config.ImageModeReference {
		b.WriteString("**Visual Context:** [Frame File]\n")
		b.WriteString(path)
		b.WriteString("\n")
		return
	}
	b.WriteString("**Visual Context:** [Base64 Image Data]\n")
	data, err := r.readImage(path)
	if err != nil || len(data) == 0 {
		b.WriteString(imageUnavailable)
		b.WriteString("\n")
		return
	}
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	b.WriteString("\n")
}

// Summary is the closing line of the document.
func Summary(frameCount int) string {
	if frameCount > 1 {
		return fmt.Sprintf("Developer demonstrating %d different issues/enhancements", frameCount)
	}
	return "Developer demonstrating an application workflow"
}

// Clock formats seconds as MM:SS, flooring fractions.
func Clock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
