package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chrimage/content-mill/internal/history"
	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/services"
)

// Pipeline runs stages in order against one run record.
type Pipeline struct {
	Recorder Recorder
	Logger   *slog.Logger
	Stages   []Stage
}

// Execute drives run through every stage and marks it completed. The first
// failing stage stops the pipeline and its error is returned unchanged.
func (p *Pipeline) Execute(ctx context.Context, run *history.Run) error {
	if run == nil {
		return errors.New("run record is required")
	}
	if len(p.Stages) == 0 {
		return errors.New("pipeline has no stages")
	}
	if run.RunID != "" {
		ctx = services.WithRunID(ctx, run.RunID)
	}
	if run.Kind != "" {
		ctx = services.WithKind(ctx, run.Kind)
	}
	logger := logging.WithContext(ctx, p.Logger)

	started := time.Now()
	for _, stage := range p.Stages {
		if err := ctx.Err(); err != nil {
			run.SetFailed(err.Error(), services.FailureOutcome(err))
			_ = persist(context.WithoutCancel(ctx), p.Recorder, run)
			return err
		}
		if err := RunStage(ctx, Options{
			Logger:     p.Logger,
			Recorder:   p.Recorder,
			Handler:    stage.Handler,
			StageName:  stage.Name,
			Processing: stage.Processing,
			Run:        run,
		}); err != nil {
			return err
		}
	}

	run.SetCompleted()
	if err := persist(ctx, p.Recorder, run); err != nil {
		return fmt.Errorf("persist run completion: %w", err)
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("segments", run.SegmentCount),
		logging.Int("skipped_images", run.SkippedImages),
		logging.String("video", run.VideoPath),
	)
	return nil
}
