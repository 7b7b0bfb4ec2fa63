package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fatal markers abort the session. Without a usable recording or visual
// evidence there is nothing to hand back to the host.
var (
	ErrSanitizationFailed    = errors.New("sanitization failed")
	ErrFrameExtractionFailed = errors.New("frame extraction failed")
)

// Recoverable markers are absorbed into sentinel transcripts so the pipeline
// still produces a document.
var (
	ErrAudioUnavailable    = errors.New("audio unavailable")
	ErrAudioSilent         = errors.New("audio silent")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrCanceled      = errors.New("session canceled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err should move a session to the failed state.
// Recoverable audio and transcription markers never are.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrAudioUnavailable),
		errors.Is(err, ErrAudioSilent),
		errors.Is(err, ErrTranscriptionFailed):
		return false
	default:
		return true
	}
}

// Kind returns a short classification label for logs and API payloads.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrSanitizationFailed):
		return "sanitization_failed"
	case errors.Is(err, ErrFrameExtractionFailed):
		return "frame_extraction_failed"
	case errors.Is(err, ErrAudioUnavailable):
		return "audio_unavailable"
	case errors.Is(err, ErrAudioSilent):
		return "audio_silent"
	case errors.Is(err, ErrTranscriptionFailed):
		return "transcription_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
