package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clipcontext/internal/logging"
	"clipcontext/internal/services"
)

// Stage names used in logs and error details.
const (
	StageSanitize   = "sanitize"
	StageProbe      = "probe"
	StageFrames     = "frames"
	StageAudio      = "audio"
	StageTranscribe = "transcribe"
	StageCorrelate  = "correlate"
	StageAssemble   = "assemble"
)

// runStage executes fn with the stage recorded in the context and logs the
// start, completion, or failure of the stage.
func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCanceled, name, "", "", err)
	}
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	err := fn(stageCtx, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, services.ErrCanceled) {
			err = services.Wrap(services.ErrCanceled, name, "", "", errors.Join(ctxErr, err))
		}
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
