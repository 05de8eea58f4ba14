package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/chrimage/content-mill/internal/assembly"
	"github.com/chrimage/content-mill/internal/history"
	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/services"
)

// Writer produces the run's content and saves its source document
// (transcript, script, outline) inside dir. logger carries the run's fields.
type Writer func(ctx context.Context, dir string, logger *slog.Logger) (Content, error)

// Job carries state between the stages of one run.
type Job struct {
	Dir     string
	Output  string
	Content Content
	Render  render.Report
	Video   assembly.Result
}

// Stages returns the write, render and assemble stages sharing job. A nil
// writer means job.Content is already populated and the write stage is
// omitted; a nil assembler omits assembly.
func Stages(job *Job, write Writer, renderer *render.Renderer, assembler *assembly.Assembler) []Stage {
	var stages []Stage
	if write != nil {
		stages = append(stages, Stage{Name: "write", Processing: history.StatusWriting, Handler: &WriteStage{Job: job, Write: write}})
	}
	if renderer != nil {
		stages = append(stages, Stage{Name: "render", Processing: history.StatusRendering, Handler: &RenderStage{Job: job, Renderer: renderer}})
	}
	if assembler != nil {
		stages = append(stages, Stage{Name: "assemble", Processing: history.StatusAssembling, Handler: &AssembleStage{Job: job, Assembler: assembler}})
	}
	return stages
}

// WriteStage asks the model for the run's transcript or script.
type WriteStage struct {
	Job    *Job
	Write  Writer
	logger *slog.Logger
}

func (s *WriteStage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *WriteStage) Prepare(_ context.Context, run *history.Run) error {
	if s.Job == nil || strings.TrimSpace(s.Job.Dir) == "" {
		return services.Wrap(services.ErrConfiguration, "write", "prepare", "run directory required", nil)
	}
	if err := os.MkdirAll(s.Job.Dir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	run.OutputDir = s.Job.Dir
	return nil
}

func (s *WriteStage) Execute(ctx context.Context, run *history.Run) error {
	logger := s.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	content, err := s.Write(ctx, s.Job.Dir, logger)
	if err != nil {
		return err
	}
	if len(content.Lines) == 0 {
		return services.Wrap(services.ErrMalformedResponse, "write", "execute", "no lines produced", nil)
	}
	s.Job.Content = content
	if title := strings.TrimSpace(content.Title); title != "" {
		run.Title = title
	}
	run.TurnCount = len(content.Lines)
	run.ProgressMessage = fmt.Sprintf("Wrote %d lines", len(content.Lines))
	return nil
}

// RenderStage synthesizes narration and stills for every line.
type RenderStage struct {
	Job      *Job
	Renderer *render.Renderer
	logger   *slog.Logger
}

func (s *RenderStage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *RenderStage) Prepare(_ context.Context, run *history.Run) error {
	if len(s.Job.Content.Lines) == 0 {
		return services.Wrap(services.ErrValidation, "render", "prepare", "nothing to render", nil)
	}
	if run.TurnCount == 0 {
		run.TurnCount = len(s.Job.Content.Lines)
	}
	if s.logger != nil {
		s.Renderer.Logger = s.logger
	}
	return nil
}

func (s *RenderStage) Execute(ctx context.Context, run *history.Run) error {
	report, err := s.Renderer.Render(ctx, s.Job.Dir, s.Job.Content.Lines)
	s.Job.Render = report
	run.SkippedImages = len(report.Skipped)
	if err != nil {
		return err
	}
	run.ProgressMessage = fmt.Sprintf("Rendered %d clips and %d images", report.Clips, report.Images)
	return nil
}

// AssembleStage joins the rendered pairs into the final video.
type AssembleStage struct {
	Job       *Job
	Assembler *assembly.Assembler
	logger    *slog.Logger
}

func (s *AssembleStage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *AssembleStage) Prepare(_ context.Context, _ *history.Run) error {
	if strings.TrimSpace(s.Job.Output) == "" {
		return services.Wrap(services.ErrConfiguration, "assemble", "prepare", "output path required", nil)
	}
	return nil
}

func (s *AssembleStage) Execute(ctx context.Context, run *history.Run) error {
	result, err := s.Assembler.Assemble(ctx, s.Job.Dir, s.Job.Output)
	if err != nil {
		return err
	}
	s.Job.Video = result
	run.SegmentCount = len(result.Segments)
	run.VideoPath = result.Output
	run.ProgressMessage = fmt.Sprintf("Assembled %d segments (%.1fs)", len(result.Segments), result.Duration)
	if s.logger != nil && len(result.Segments) < len(s.Job.Content.Lines) {
		logging.WarnWithContext(s.logger, "video shorter than transcript", "segments_truncated",
			logging.Int("segments", len(result.Segments)),
			logging.Int("lines", len(s.Job.Content.Lines)),
			logging.String(logging.FieldImpact, "trailing lines have no matching image or clip"),
			logging.String(logging.FieldErrorHint, "rerun the render with --resume to regenerate missing files"),
		)
	}
	return nil
}
