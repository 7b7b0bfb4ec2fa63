package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"clipcontext/internal/pipeline"
	"clipcontext/internal/staging"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <session-dir|session-id>",
		Short: "Re-assemble the document from a kept session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			workDir := args[0]
			if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
				if !staging.IsSessionDir(workDir) {
					return fmt.Errorf("session %s not found", workDir)
				}
				workDir = filepath.Join(cfg.Paths.WorkRoot, workDir)
			}

			report, err := ctx.newPipeline(cfg, logger).Rebuild(cmd.Context(), workDir, capturedAt(workDir))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Document.Text)
			return nil
		},
	}
}

// capturedAt recovers the capture time from the kept recording, falling back
// to the transcript.
func capturedAt(workDir string) time.Time {
	layout := pipeline.LayoutFor(workDir)
	for _, path := range []string{layout.Raw, layout.Transcript} {
		if info, err := os.Stat(path); err == nil {
			return info.ModTime()
		}
	}
	return time.Now()
}
