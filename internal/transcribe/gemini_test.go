package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"clipcontext/internal/config"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *GeminiBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default().Transcriber
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1beta"
	return NewGeminiBackend(cfg)
}

func TestGeminiTranscribeRequestShape(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		var req generateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || !strings.Contains(parts[0].Text, "[MM:SS]") {
			t.Errorf("unexpected parts: %+v", parts)
		}
		audio, _ := base64.StdEncoding.DecodeString(parts[1].InlineData.Data)
		if string(audio) != "RIFF" || parts[1].InlineData.MimeType != "audio/wav" {
			t.Errorf("unexpected inline data: %+v", parts[1].InlineData)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[00:05] fix this button\n"}]},"finishReason":"STOP"}]}`))
	})

	text, err := backend.Transcribe(context.Background(), Prompt, []byte("RIFF"), AudioMIMEType)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "[00:05] fix this button" {
		t.Fatalf("text = %q", text)
	}
}

func TestGeminiStatusError(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	})
	_, err := backend.Transcribe(context.Background(), Prompt, []byte("RIFF"), AudioMIMEType)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != 429 || statusErr.RetryAfter != 3*time.Second {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if !Retryable(err) {
		t.Fatal("429 must be retryable")
	}
}

func TestGeminiEmptyResponse(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})
	_, err := backend.Transcribe(context.Background(), Prompt, []byte("RIFF"), AudioMIMEType)
	var empty *EmptyResponseError
	if !errors.As(err, &empty) || empty.BlockReason != "SAFETY" {
		t.Fatalf("expected EmptyResponseError, got %v", err)
	}
}

func TestGeminiHealthCheck(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1beta/models/gemini-1.5-flash" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/gemini-1.5-flash"}`))
	})
	if err := backend.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	backend := NewGeminiBackend(config.Transcriber{})
	if _, err := backend.Transcribe(context.Background(), Prompt, []byte("x"), AudioMIMEType); err == nil {
		t.Fatal("expected missing key error")
	}
	if backend.Model() != "gemini-1.5-flash" {
		t.Fatalf("default model = %q", backend.Model())
	}
}

func TestTranscriberRetriesClientTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[00:02] slow start"}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	cfg := config.Default().Transcriber
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1beta"
	backend := NewGeminiBackend(cfg, WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))

	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	transcript := filepath.Join(dir, "transcript.txt")

	res, err := New(backend, RetryPolicy{MaxAttempts: 3}).Run(context.Background(), audio, transcript)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Err != nil || res.Attempts != 2 || hits.Load() != 2 {
		t.Fatalf("timeout was not retried: attempts=%d hits=%d err=%v", res.Attempts, hits.Load(), res.Err)
	}
	if res.Text != "[00:02] slow start" {
		t.Fatalf("Text = %q", res.Text)
	}
}

func TestGeminiMissingKeyIsNotRetried(t *testing.T) {
	backend := NewGeminiBackend(config.Transcriber{})
	_, err := backend.Transcribe(context.Background(), Prompt, []byte("x"), AudioMIMEType)
	if !errors.Is(err, ErrInvalidRequest) || Retryable(err) {
		t.Fatalf("missing key must be a permanent invalid request, got %v", err)
	}
}

func TestTranscriberWithGeminiEndToEnd(t *testing.T) {
	calls := 0
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[00:03] a\n[00:10] b"}]}}]}`))
	})
	audio, transcript := setupAudio(t)
	sleeper := &recordingSleeper{}
	res, err := New(backend, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}, WithSleeper(sleeper.sleep)).Run(context.Background(), audio, transcript)
	if err != nil || res.Err != nil {
		t.Fatalf("Run: %v / %v", err, res.Err)
	}
	if calls != 2 || res.Attempts != 2 {
		t.Fatalf("calls=%d attempts=%d", calls, res.Attempts)
	}
	assertTranscript(t, transcript, "[00:03] a\n[00:10] b")
}
