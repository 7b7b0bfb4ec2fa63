package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipcontext/internal/config"
	"clipcontext/internal/deps"
	"clipcontext/internal/hostlock"
	"clipcontext/internal/logging"
	"clipcontext/internal/pipeline"
	"clipcontext/internal/preflight"
	"clipcontext/internal/session"
	"clipcontext/internal/staging"
)

// hostRun holds what every session-producing command needs.
type hostRun struct {
	cfg    *config.Config
	logger *slog.Logger
	lock   *hostlock.Lock
}

// startHost requires a speech API key, runs the local readiness checks, takes the work root lock, and
// clears sessions left behind by killed hosts.
func (c *commandContext) startHost(ctx context.Context) (*hostRun, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	if err := cfg.RequireSpeechKey(); err != nil {
		return nil, err
	}
	if check := preflight.CheckDirectoryAccess("Work root", cfg.Paths.WorkRoot); !check.Passed {
		return nil, fmt.Errorf("work root not usable: %s", check.Detail)
	}
	if c.runner == nil {
		if missing := deps.MissingRequired(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
			return nil, fmt.Errorf("required tools missing: %s (run 'clipcontext deps' for details)", strings.Join(missing, ", "))
		}
	}

	lock, err := hostlock.Acquire(cfg.Paths.WorkRoot)
	if err != nil {
		return nil, err
	}
	staging.CleanStale(ctx, cfg.Paths.WorkRoot, cfg.StaleAfter(), logging.NewComponentLogger(logger, "staging"))
	return &hostRun{cfg: cfg, logger: logger, lock: lock}, nil
}

func (h *hostRun) close() {
	if err := h.lock.Release(); err != nil {
		h.logger.Debug("host lock release failed", logging.Error(err))
	}
}

func (h *hostRun) newSession(c *commandContext, keep bool) (*session.Session, error) {
	return session.New(h.cfg.Paths.WorkRoot, c.newPipeline(h.cfg, h.logger),
		session.WithKeepArtifacts(keep || h.cfg.Session.KeepArtifacts),
		session.WithLogger(h.logger),
	)
}

// deliver writes the document to outputPath, or to out when empty, and
// the run summary to summaryOut.
func deliver(out, summaryOut io.Writer, outputPath string, report pipeline.Report, workDir string, kept bool) error {
	if outputPath != "" {
		target, err := config.ExpandPath(outputPath)
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(report.Document.Text), 0o644); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
	} else {
		fmt.Fprint(out, report.Document.Text)
	}
	fmt.Fprintln(summaryOut, renderSummary(report, workDir, kept, outputPath))
	return nil
}
