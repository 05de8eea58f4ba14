package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrimage/content-mill/internal/history"
	"github.com/chrimage/content-mill/internal/pipeline"
	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/workspace"
)

// existingRun is a reopened run directory together with its history record.
type existingRun struct {
	ws     *workspace.Workspace
	store  *history.Store
	run    *history.Run
	logger *slog.Logger
}

func (e *existingRun) Close() {
	_ = e.ws.Close()
	_ = e.store.Close()
}

// openExisting locks dir and finds or creates its history record.
func (c *commandContext) openExisting(ctx context.Context, dir string) (*existingRun, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Open(dir)
	if err != nil {
		return nil, err
	}
	store, err := c.openHistory()
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	e := &existingRun{ws: ws, store: store}
	if e.logger, err = ws.Logger(logger); err != nil {
		e.Close()
		return nil, err
	}

	var run *history.Run
	if ws.RunID != "" {
		if run, err = store.FindByRunID(ctx, ws.RunID); err != nil {
			e.Close()
			return nil, err
		}
	}
	if run == nil {
		run, err = store.Create(ctx, ws.RunID, kindFromDir(ws.Dir), "", ws.Dir)
		if err != nil {
			e.Close()
			return nil, err
		}
	}
	run.OutputDir = ws.Dir
	run.Outcome = ""
	run.FinishedAt = nil
	e.run = run
	return e, nil
}

// kindFromDir reads the kind from a <root>/<kind>/<slug>-<id> layout.
func kindFromDir(dir string) string {
	parent := filepath.Base(filepath.Dir(dir))
	switch parent {
	case "debate", "roundtable", "explainer", "listicle", "haiku", "scripted", "long":
		return parent
	default:
		return "render"
	}
}

func videoFileFor(kind string) string {
	switch kind {
	case "debate":
		return debateVideoFile
	case "roundtable":
		return roundtableVideoFile
	default:
		return scriptVideoFile
	}
}

// locateContent resolves a directory or content file argument to the run
// directory and the transcript or script inside it.
func locateContent(target string) (string, string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", "", services.Wrap(services.ErrNotFound, "", "locate content", target, err)
	}
	if !info.IsDir() {
		return filepath.Dir(target), target, nil
	}
	for _, name := range []string{scriptFile, transcriptFile} {
		candidate := filepath.Join(target, name)
		if _, err := os.Stat(candidate); err == nil {
			return target, candidate, nil
		}
	}
	return "", "", services.Wrap(services.ErrNotFound, "", "locate content",
		fmt.Sprintf("no %s or %s in %s", scriptFile, transcriptFile, target), nil)
}

// savedVoices returns the voice assignments stored with the run, falling back
// to transcriptVoices for directories written without them.
func savedVoices(dir, kind string, lines []render.Line) (render.VoicePolicy, error) {
	voices, ok, err := render.LoadVoices(dir)
	if err != nil {
		return nil, err
	}
	if ok {
		return voices, nil
	}
	return transcriptVoices(kind, lines), nil
}

// transcriptVoices rebuilds the speaker voice map from the order speakers
// first appear. Roundtable order can differ from the roster's seat order.
func transcriptVoices(kind string, lines []render.Line) render.VoicePolicy {
	var speakers []string
	seen := make(map[string]bool)
	for _, line := range lines {
		key := strings.ToLower(strings.TrimSpace(line.Speaker))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		speakers = append(speakers, line.Speaker)
	}
	if len(speakers) == 0 {
		return nil
	}
	if kind == "debate" && len(speakers) == 3 {
		return render.DebateVoices(speakers[0], speakers[1], speakers[2])
	}
	return render.RoundtableVoices(speakers)
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var resume bool
	var skipAssemble bool
	var voice string
	var yes bool

	cmd := &cobra.Command{
		Use:   "render <dir|file>",
		Short: "Render narration and stills for a saved transcript or script",
		Long: `Render narration clips and stills for an existing transcript.json or
script.json, then assemble the video.

With --resume, clips and stills that already exist are kept, so an interrupted
render picks up where it stopped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, contentPath, err := locateContent(args[0])
			if err != nil {
				return err
			}
			content, err := pipeline.LoadContent(contentPath)
			if err != nil {
				return err
			}
			cl, err := ctx.newClients()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := requireReady(cmd.Context(), out, cfg); err != nil {
				return err
			}
			p := newPrompter(cmd, yes)
			ok, err := p.confirm(fmt.Sprintf("Render %d lines in %s? This makes paid API calls.", len(content.Lines), dir))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Canceled; nothing was rendered")
				return nil
			}

			existing, err := ctx.openExisting(cmd.Context(), dir)
			if err != nil {
				return err
			}
			defer existing.Close()
			run := existing.run
			if run.Title == "" {
				run.Title = content.Title
			}

			voices, err := savedVoices(existing.ws.Dir, run.Kind, content.Lines)
			if err != nil {
				return err
			}
			if voices == nil || cmd.Flags().Changed("voice") {
				if voices, err = voicePolicy(voice, voicePerRun); err != nil {
					return err
				}
			}

			job := &pipeline.Job{Dir: existing.ws.Dir, Output: existing.ws.Path(videoFileFor(run.Kind)), Content: content}
			renderer := newRenderer(cfg, cl, voices, resume, out)
			assembler := newAssembler(cfg, existing.logger)
			if skipAssemble {
				assembler = nil
			}
			return ctx.execute(cmd.Context(), out, existing.store, existing.logger, run, job, nil, renderer, assembler)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Keep clips and stills that already exist")
	cmd.Flags().BoolVar(&skipAssemble, "no-assemble", false, "Stop after rendering")
	addVoiceFlag(cmd, &voice, voicePerRun)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "assemble <dir>",
		Short: "Assemble rendered clips and stills into a video",
		Long: `Pair NNN.png stills with NNN.mp3 clips in a run directory and join them
into one video. When the counts differ only the leading pairs are used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := requireReady(cmd.Context(), out, cfg); err != nil {
				return err
			}
			existing, err := ctx.openExisting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer existing.Close()
			run := existing.run

			target := strings.TrimSpace(output)
			if target == "" {
				target = existing.ws.Path(videoFileFor(run.Kind))
			} else if abs, err := filepath.Abs(target); err == nil {
				target = abs
			}

			job := &pipeline.Job{Dir: existing.ws.Dir, Output: target}
			if _, contentPath, err := locateContent(existing.ws.Dir); err == nil {
				if content, err := pipeline.LoadContent(contentPath); err == nil {
					job.Content = content
					if run.Title == "" {
						run.Title = content.Title
					}
				}
			}
			if run.TurnCount == 0 {
				run.TurnCount = len(job.Content.Lines)
			}
			err = ctx.execute(cmd.Context(), out, existing.store, existing.logger, run, job, nil, nil, newAssembler(cfg, existing.logger))
			if errors.Is(err, services.ErrValidation) {
				return fmt.Errorf("nothing to assemble in %s: %w", existing.ws.Dir, err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Video path (defaults to the kind's video name inside the directory)")
	return cmd
}
