package preflight

import (
	"context"

	"clipcontext/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the readiness checks for a capture host: writable work
// and log directories and a reachable speech service.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Work root", cfg.Paths.WorkRoot),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckSpeechService(ctx, cfg.Transcriber),
	}
}
