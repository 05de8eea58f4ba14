package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/chrimage/content-mill/internal/history"
	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/services"
)

// Options controls a single stage execution.
type Options struct {
	Logger     *slog.Logger
	Recorder   Recorder
	Handler    Handler
	StageName  string
	Processing history.Status
	Run        *history.Run
}

// RunStage executes one stage and records its status transitions. A nil
// Recorder skips persistence.
func RunStage(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Run == nil {
		return errors.New("run record is required")
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	started := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String("topic", strings.TrimSpace(opts.Run.Topic)),
	)

	setProcessingState(opts.Run, opts.Processing)
	if err := persist(stageCtx, opts.Recorder, opts.Run); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := opts.Handler.Prepare(stageCtx, opts.Run); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Recorder, opts.Run, err)
	}
	if err := persist(stageCtx, opts.Recorder, opts.Run); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, opts.Run); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Recorder, opts.Run, err)
	}
	if err := persist(stageCtx, opts.Recorder, opts.Run); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("progress_message", strings.TrimSpace(opts.Run.ProgressMessage)),
	)
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, recorder Recorder, run *history.Run, stageErr error) error {
	message := "stage failed"
	if stageErr != nil {
		message = strings.TrimSpace(stageErr.Error())
	}
	outcome := services.FailureOutcome(stageErr)
	run.SetFailed(message, outcome)

	if outcome == "canceled" {
		logger.Warn("stage interrupted",
			logging.String(logging.FieldEventType, "stage_canceled"),
		)
	} else {
		logger.Error(
			"stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("outcome", outcome),
			logging.String("error_message", message),
			logging.Error(stageErr),
		)
	}

	// The caller's context may already be canceled; the failure still needs recording.
	if err := persist(context.WithoutCancel(ctx), recorder, run); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	return stageErr
}

func persist(ctx context.Context, recorder Recorder, run *history.Run) error {
	if recorder == nil {
		return nil
	}
	return recorder.Update(ctx, run)
}

func setProcessingState(run *history.Run, processing history.Status) {
	run.Status = processing
	run.ProgressStage = deriveStageLabel(processing)
	run.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	run.ErrorMessage = ""
}

func deriveStageLabel(status history.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
