package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipcontext/internal/config"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-1.5-flash"
	defaultHTTPTimeout = 120 * time.Second
)

// GeminiBackend calls the Generative Language generateContent endpoint.
type GeminiBackend struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// GeminiOption customizes the backend.
type GeminiOption func(*GeminiBackend)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiBackend) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGeminiBackend constructs a backend from the transcriber config section.
func NewGeminiBackend(cfg config.Transcriber, opts ...GeminiOption) *GeminiBackend {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	g := &GeminiBackend{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.baseURL == "" {
		g.baseURL = defaultBaseURL
	}
	if g.model == "" {
		g.model = defaultModel
	}
	return g
}

// Model returns the configured model name.
func (g *GeminiBackend) Model() string {
	return g.model
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Transcribe sends the prompt and inline audio and returns the model text.
func (g *GeminiBackend) Transcribe(ctx context.Context, prompt string, audio []byte, mimeType string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("speech request: %w: api key required", ErrInvalidRequest)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("speech request: %w: audio required", ErrInvalidRequest)
	}
	payload := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(audio)}},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("speech request: encode payload: %w", err)
	}

	endpoint := g.baseURL + "/models/" + url.PathEscape(g.model) + ":generateContent"
	respBody, err := g.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("speech request: decode response: %w", err)
	}
	var text strings.Builder
	var finishReason string
	for _, candidate := range parsed.Candidates {
		if finishReason == "" {
			finishReason = candidate.FinishReason
		}
		for _, p := range candidate.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		empty := &EmptyResponseError{FinishReason: finishReason}
		if parsed.PromptFeedback != nil {
			empty.BlockReason = parsed.PromptFeedback.BlockReason
		}
		return "", empty
	}
	return out, nil
}

// HealthCheck verifies the key and model by fetching the model resource.
func (g *GeminiBackend) HealthCheck(ctx context.Context) error {
	if g.apiKey == "" {
		return errors.New("speech health: api key required")
	}
	_, err := g.do(ctx, http.MethodGet, g.baseURL+"/models/"+url.PathEscape(g.model), nil)
	return err
}

func (g *GeminiBackend) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("speech request: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: http error (timeout=%s): %w", g.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return respBody, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
			RetryAfter: retryAfter,
		}
	}
	return respBody, nil
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
