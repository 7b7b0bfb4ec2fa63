package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipcontext/internal/hostlock"
	"clipcontext/internal/logging"
	"clipcontext/internal/staging"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage kept session directories",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsCleanCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List session directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListSessions(cfg.Paths.WorkRoot)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No session directories found")
				return nil
			}

			fmt.Fprintf(out, "Work root: %s\n\n", cfg.Paths.WorkRoot)
			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				totalSize += dir.Size
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				rows = append(rows, []string{dir.Name, formatAge(age), formatBytes(dir.Size)})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Session", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d sessions, %s\n", len(dirs), formatBytes(totalSize))
			return nil
		},
	}
}

func newSessionsCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove old session directories",
		Long: `Remove session directories older than --older-than.

The command refuses to run while another clipcontext host holds the work root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			lock, err := hostlock.Acquire(cfg.Paths.WorkRoot)
			if err != nil {
				return err
			}
			defer lock.Release()

			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkRoot, olderThan, logging.NewComponentLogger(logger, "staging"))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d session directories\n", len(result.Removed))
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", failure.Path, failure.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d session directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "Minimum age of directories to remove")
	return cmd
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
