package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend sends one transcription request to a speech model.
type Backend interface {
	Transcribe(ctx context.Context, prompt string, audio []byte, mimeType string) (string, error)
}

// ErrInvalidRequest marks a request that cannot succeed as built, such as a
// missing API key or empty audio.
var ErrInvalidRequest = errors.New("invalid speech request")

// StatusError reports a non-2xx response from the speech service.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech request: http %d: %s", e.StatusCode, summarize(e.Body))
}

// EmptyResponseError reports a successful response without transcript text.
type EmptyResponseError struct {
	FinishReason string
	BlockReason  string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("speech request: empty content (finish_reason=%q, block_reason=%q)", e.FinishReason, e.BlockReason)
}

func summarize(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
