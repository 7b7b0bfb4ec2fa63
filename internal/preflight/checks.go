package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"clipcontext/internal/config"
	"clipcontext/internal/deps"
	"clipcontext/internal/transcribe"
)

const speechCheckTimeout = 15 * time.Second

// CheckSpeechService verifies that the speech API is reachable and the key
// is accepted. It makes a single request with no retries.
func CheckSpeechService(ctx context.Context, cfg config.Transcriber) Result {
	const name = "Speech service"
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, speechCheckTimeout)
	defer cancel()

	backend := transcribe.NewGeminiBackend(cfg, transcribe.WithHTTPClient(&http.Client{Timeout: speechCheckTimeout}))
	if err := backend.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeSpeechError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", backend.Model())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// BrowserOpeners lists the commands tried, in order, to open the capture page.
var BrowserOpeners = []string{"wslview", "xdg-open", "open"}

// CheckSystemDeps evaluates the external binaries for the given config. The
// browser opener is optional; without it the capture URL is only printed.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	opener, ok := deps.FirstAvailable(BrowserOpeners...)
	if !ok {
		opener = BrowserOpeners[len(BrowserOpeners)-1]
	}
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "Required for remux, frames, and audio",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobeBinary,
			Description: "Required for duration and stream probing",
		},
		{
			Name:        "Browser opener",
			Command:     opener,
			Description: "Opens the capture page",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

// summarizeSpeechError produces a human-readable summary for health check failures.
func summarizeSpeechError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (speech API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (speech API unreachable)"
	}
	var statusErr *transcribe.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth failed (invalid api key)"
		case http.StatusNotFound:
			return "model not found"
		}
	}
	return err.Error()
}
