package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// GeminiServer fakes the generateContent endpoint. Each request consumes the
// next reply; the last reply repeats once the list is exhausted.
type GeminiServer struct {
	*httptest.Server
	requests atomic.Int32
}

// GeminiReply is one scripted response.
type GeminiReply struct {
	Status int
	Text   string
}

// NewGeminiServer starts a fake speech service and registers its shutdown
// with t.Cleanup.
func NewGeminiServer(t testing.TB, replies ...GeminiReply) *GeminiServer {
	t.Helper()
	if len(replies) == 0 {
		replies = []GeminiReply{{Status: http.StatusOK, Text: "[00:01] hello"}}
	}
	srv := &GeminiServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name":"models/test"}`))
			return
		}
		idx := int(srv.requests.Add(1)) - 1
		if idx >= len(replies) {
			idx = len(replies) - 1
		}
		reply := replies[idx]
		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"scripted failure"}}`))
			return
		}
		payload := map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": reply.Text}}},
				"finishReason": "STOP",
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Requests reports how many generateContent calls were served.
func (s *GeminiServer) Requests() int {
	return int(s.requests.Load())
}
