package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrimage/content-mill/internal/assembly"
	"github.com/chrimage/content-mill/internal/config"
	"github.com/chrimage/content-mill/internal/history"
	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/notifications"
	"github.com/chrimage/content-mill/internal/pipeline"
	"github.com/chrimage/content-mill/internal/preflight"
	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/services/synth"
	"github.com/chrimage/content-mill/internal/workspace"
)

// generation describes one content run from topic to video.
type generation struct {
	Kind   string
	Topic  string
	Output string
	Write  pipeline.Writer
	Voices render.VoicePolicy
}

func (c *commandContext) generate(cmd *cobra.Command, p *prompter, cl *clients, gen generation) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	if err := requireReady(ctx, out, cfg); err != nil {
		return err
	}
	ok, err := p.confirm(fmt.Sprintf("Generate a %s about %q? This makes paid API calls.", gen.Kind, gen.Topic))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Canceled; nothing was generated")
		return nil
	}

	store, err := c.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	reconcileInterrupted(ctx, store, logger)

	ws, err := workspace.Create(cfg.Paths.OutputDir, gen.Kind, gen.Topic)
	if err != nil {
		return err
	}
	defer ws.Close()
	runLogger, err := ws.Logger(logger)
	if err != nil {
		return err
	}
	if voices, ok := gen.Voices.(render.VoiceMap); ok {
		if err := render.SaveVoices(ws.Dir, voices); err != nil {
			return err
		}
	}

	run, err := store.Create(ctx, ws.RunID, gen.Kind, gen.Topic, ws.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run %s writing to %s\n", shortID(run.RunID), ws.Dir)

	job := &pipeline.Job{Dir: ws.Dir, Output: ws.Path(gen.Output)}
	return c.execute(ctx, out, store, runLogger, run, job, gen.Write, newRenderer(cfg, cl, gen.Voices, false, out), newAssembler(cfg, runLogger))
}

// execute drives the pipeline and prints the outcome.
func (c *commandContext) execute(ctx context.Context, out io.Writer, store *history.Store, logger *slog.Logger, run *history.Run, job *pipeline.Job, write pipeline.Writer, renderer *render.Renderer, assembler *assembly.Assembler) error {
	pl := &pipeline.Pipeline{
		Recorder: store,
		Logger:   logger,
		Stages:   pipeline.Stages(job, write, renderer, assembler),
	}
	err := pl.Execute(ctx, run)
	printRunSummary(out, run, job)
	c.notify(ctx, logger, store, run, err)
	return err
}

// notify reports a finished run to ntfy and records the delivery in history.
// Canceled runs are not reported and delivery failures only warn.
func (c *commandContext) notify(ctx context.Context, logger *slog.Logger, store *history.Store, run *history.Run, runErr error) {
	if c.config == nil || errors.Is(runErr, context.Canceled) {
		return
	}
	service := notifications.NewService(c.config)
	if !service.Enabled() {
		return
	}
	summary := notifications.Run{
		Kind:     run.Kind,
		Title:    displayTitle(run),
		Video:    run.VideoPath,
		Segments: run.SegmentCount,
		Skipped:  run.SkippedImages,
		Elapsed:  run.Elapsed(),
	}
	var err error
	if runErr != nil {
		err = service.NotifyRunFailed(ctx, summary, runErr)
	} else {
		err = service.NotifyRunCompleted(ctx, summary)
	}
	if err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run result was not announced"),
		)
		return
	}
	if err := store.MarkNotified(ctx, run); err != nil {
		logger.Debug("notification not recorded", logging.Error(err))
	}
}

func newRenderer(cfg *config.Config, cl *clients, voices render.VoicePolicy, resume bool, out io.Writer) *render.Renderer {
	return &render.Renderer{
		Narrator:    cl.synth,
		Painter:     cl.synth,
		Rephraser:   render.LLMRephraser{Client: cl.llm, Temperature: cfg.LLM.Temperature},
		Refused:     synth.IsContentPolicy,
		Voices:      voices,
		MaxAttempts: cfg.Images.MaxAttempts,
		FillGaps:    cfg.Images.FillGaps,
		Resume:      resume,
		OnLine: func(index, total int, line render.Line) {
			fmt.Fprintf(out, "Rendering %d of %d\n", index+1, total)
		},
	}
}

func newAssembler(cfg *config.Config, logger *slog.Logger) *assembly.Assembler {
	return assembly.New(assembly.Config{
		FFmpegBinary:  cfg.Video.FFmpegBinary,
		FFprobeBinary: cfg.Video.FFprobeBinary,
		FPS:           cfg.Video.FPS,
		VideoCodec:    cfg.Video.VideoCodec,
		AudioCodec:    cfg.Video.AudioCodec,
	}, logger)
}

// requireReady runs the local checks a run depends on before any paid call.
func requireReady(ctx context.Context, out io.Writer, cfg *config.Config) error {
	results := preflight.RunAll(ctx, cfg, preflight.Scope{Assembly: true})
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	fmt.Fprint(out, renderPreflight(failed))
	names := make([]string, 0, len(failed))
	for _, result := range failed {
		names = append(names, result.Name)
	}
	return fmt.Errorf("preflight failed: %s (run 'contentmill doctor' for details)", strings.Join(names, ", "))
}

// reconcileInterrupted fails unfinished runs whose directory is no longer
// locked, which means the process that owned them is gone.
func reconcileInterrupted(ctx context.Context, store *history.Store, logger *slog.Logger) {
	runs, err := store.Unfinished(ctx)
	if err != nil {
		logger.Warn("list unfinished runs failed", logging.Error(err))
		return
	}
	var stale []int64
	for _, run := range runs {
		if strings.TrimSpace(run.OutputDir) != "" {
			ws, err := workspace.Open(run.OutputDir)
			if errors.Is(err, workspace.ErrLocked) {
				continue
			}
			if err == nil {
				_ = ws.Close()
			}
		}
		stale = append(stale, run.ID)
	}
	if len(stale) == 0 {
		return
	}
	changed, err := store.MarkInterrupted(ctx, stale...)
	if err != nil {
		logger.Warn("mark interrupted runs failed", logging.Error(err))
		return
	}
	if changed > 0 {
		logger.Info("marked interrupted runs failed", logging.Int64("runs", changed))
	}
}

func printRunSummary(out io.Writer, run *history.Run, job *pipeline.Job) {
	fmt.Fprintln(out)
	if title := strings.TrimSpace(run.Title); title != "" {
		fmt.Fprintf(out, "Title:    %s\n", title)
	}
	fmt.Fprintf(out, "Status:   %s\n", statusText(out, string(run.Status)))
	fmt.Fprintf(out, "Lines:    %d\n", run.TurnCount)
	if len(job.Render.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped:  %d images (%s)\n", len(job.Render.Skipped), joinInts(job.Render.Skipped))
	}
	if run.VideoPath != "" {
		fmt.Fprintf(out, "Video:    %s (%d segments, %.1fs)\n", run.VideoPath, run.SegmentCount, job.Video.Duration)
	}
	if run.Status == history.StatusFailed && run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
	}
	fmt.Fprintf(out, "Directory: %s\n", run.OutputDir)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
