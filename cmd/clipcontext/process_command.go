package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var keep bool
	var outputPath string
	cmd := &cobra.Command{
		Use:   "process <recording>",
		Short: "Build a context document from an existing recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			source := args[0]
			if info, err := os.Stat(source); err != nil {
				return fmt.Errorf("recording: %w", err)
			} else if info.IsDir() {
				return fmt.Errorf("recording: %s is a directory", source)
			}

			host, err := ctx.startHost(signalCtx)
			if err != nil {
				return err
			}
			defer host.close()

			sess, err := host.newSession(ctx, keep)
			if err != nil {
				return err
			}
			if err := sess.Arm(signalCtx); err != nil {
				return err
			}
			if err := sess.AcceptFile(signalCtx, source); err != nil {
				sess.Discard(err)
				return err
			}
			report, err := sess.Await(context.Background())
			if err != nil {
				return err
			}
			return deliver(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputPath, report, sess.WorkDir, keep || host.cfg.Session.KeepArtifacts)
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the session work directory after processing")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the document to a file instead of stdout")
	return cmd
}
