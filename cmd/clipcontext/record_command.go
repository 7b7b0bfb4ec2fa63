package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipcontext/internal/capture"
	"clipcontext/internal/logging"
	"clipcontext/internal/services"
	"clipcontext/internal/session"
)

type recordOptions struct {
	noBrowser  bool
	keep       bool
	outputPath string
	wait       time.Duration
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var opts recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Open the capture page and wait for one recording",
		Long: "Serve the capture page, wait for a single uploaded recording, process it, " +
			"and print the resulting context document to stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, ctx, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Print the capture URL instead of opening a browser")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "Keep the session work directory after processing")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().DurationVar(&opts.wait, "wait", 10*time.Minute, "How long to wait for an upload (0 waits forever)")
	return cmd
}

func runRecord(cmd *cobra.Command, ctx *commandContext, opts recordOptions) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	host, err := ctx.startHost(signalCtx)
	if err != nil {
		return err
	}
	defer host.close()

	sess, err := host.newSession(ctx, opts.keep)
	if err != nil {
		return err
	}
	if err := sess.Arm(signalCtx); err != nil {
		return err
	}
	logger := logging.WithContext(sess.Context(signalCtx), host.logger)

	waitCtx := signalCtx
	if opts.wait > 0 {
		var cancelWait context.CancelFunc
		waitCtx, cancelWait = context.WithTimeout(signalCtx, opts.wait)
		defer cancelWait()
	}

	stderr := cmd.ErrOrStderr()
	server := capture.NewServer(host.cfg, sess, host.logger)
	runErr := server.Run(waitCtx, func(url string) {
		fmt.Fprintf(stderr, "Capture page: %s\n", url)
		if opts.noBrowser || !host.cfg.Capture.OpenBrowser {
			return
		}
		if err := ctx.openURL(signalCtx, url); err != nil {
			logging.WarnWithContext(logger, "could not open browser", "browser_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "open the capture page manually"),
				logging.String(logging.FieldErrorHint, "install xdg-open or pass --no-browser"),
			)
		}
	})
	if runErr != nil {
		sess.Discard(runErr)
		return runErr
	}

	switch sess.State() {
	case session.StateIdle, session.StateAwaitingUpload:
		cause := waitCtx.Err()
		if cause == nil {
			cause = services.ErrCanceled
		}
		sess.Discard(cause)
	}

	report, err := sess.Await(context.Background())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && signalCtx.Err() == nil {
			return fmt.Errorf("no recording received within %s: %w", opts.wait, err)
		}
		return err
	}
	return deliver(cmd.OutOrStdout(), stderr, opts.outputPath, report, sess.WorkDir, opts.keep || host.cfg.Session.KeepArtifacts)
}
