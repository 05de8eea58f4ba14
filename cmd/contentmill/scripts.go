package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrimage/content-mill/internal/config"
	"github.com/chrimage/content-mill/internal/pipeline"
	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/script"
	"github.com/chrimage/content-mill/internal/services/synth"
)

const (
	scriptFile      = "script.json"
	outlineFile     = "outline.json"
	scriptVideoFile = "final_video.mp4"
)

const (
	voicePerRun  = "run"
	voicePerLine = "line"
)

type scriptKind struct {
	kind  script.Kind
	short string
	voice string
}

func newScriptCommands(ctx *commandContext) []*cobra.Command {
	kinds := []scriptKind{
		{kind: script.KindExplainer, short: "Generate a narrated explainer video", voice: voicePerLine},
		{kind: script.KindListicle, short: "Generate a narrated top-ten list video", voice: voicePerLine},
		{kind: script.KindHaiku, short: "Generate a narrated haiku video", voice: voicePerLine},
	}
	cmds := make([]*cobra.Command, 0, len(kinds)+2)
	for _, k := range kinds {
		cmds = append(cmds, newOneShotCommand(ctx, k))
	}
	cmds = append(cmds, newScriptedCommand(ctx), newLongCommand(ctx))
	return cmds
}

func newOneShotCommand(ctx *commandContext, k scriptKind) *cobra.Command {
	var topic string
	var voice string
	var yes bool

	cmd := &cobra.Command{
		Use:   string(k.kind),
		Short: k.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			voices, err := voicePolicy(voice, k.voice)
			if err != nil {
				return err
			}
			p := newPrompter(cmd, yes)
			topic, err = p.text("Topic", "topic", topic)
			if err != nil {
				return err
			}
			cl, err := ctx.newClients()
			if err != nil {
				return err
			}
			write := func(ctx context.Context, dir string, logger *slog.Logger) (pipeline.Content, error) {
				s, err := scriptWriter(cfg, cl, logger).Write(ctx, k.kind, topic)
				if err != nil {
					return pipeline.Content{}, err
				}
				return saveScript(s, dir)
			}
			return ctx.generate(cmd, p, cl, generation{
				Kind:   string(k.kind),
				Topic:  topic,
				Output: scriptVideoFile,
				Write:  write,
				Voices: voices,
			})
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Video topic")
	addVoiceFlag(cmd, &voice, k.voice)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip prompts and confirmation")
	return cmd
}

func newScriptedCommand(ctx *commandContext) *cobra.Command {
	var voice string
	var yes bool

	cmd := &cobra.Command{
		Use:   "scripted <draft>",
		Short: "Turn a written draft into a narrated video",
		Long: `Turn an operator-written draft (plain text or Markdown) into a video.

The model revises the draft into narrated segments with image descriptions,
then the segments are rendered and assembled as usual.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			voices, err := voicePolicy(voice, voicePerRun)
			if err != nil {
				return err
			}
			draft, err := script.LoadDraft(args[0])
			if err != nil {
				return err
			}
			cl, err := ctx.newClients()
			if err != nil {
				return err
			}
			write := func(ctx context.Context, dir string, logger *slog.Logger) (pipeline.Content, error) {
				s, err := scriptWriter(cfg, cl, logger).Revise(ctx, draft)
				if err != nil {
					return pipeline.Content{}, err
				}
				return saveScript(s, dir)
			}
			topic := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			return ctx.generate(cmd, newPrompter(cmd, yes), cl, generation{
				Kind:   string(script.KindScripted),
				Topic:  topic,
				Output: scriptVideoFile,
				Write:  write,
				Voices: voices,
			})
		},
	}

	addVoiceFlag(cmd, &voice, voicePerRun)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newLongCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var voice string
	var yes bool

	cmd := &cobra.Command{
		Use:   "long",
		Short: "Generate a long-form video from an outline",
		Long: `Generate a long-form video in two passes.

The model first outlines the video, then writes each outline section in order
with the script so far as context. The outline is kept as outline.json next to
the script.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			voices, err := voicePolicy(voice, voicePerRun)
			if err != nil {
				return err
			}
			p := newPrompter(cmd, yes)
			topic, err = p.text("Topic", "topic", topic)
			if err != nil {
				return err
			}
			cl, err := ctx.newClients()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			write := func(ctx context.Context, dir string, logger *slog.Logger) (pipeline.Content, error) {
				writer := scriptWriter(cfg, cl, logger)
				outline, err := writer.Outline(ctx, topic)
				if err != nil {
					return pipeline.Content{}, err
				}
				if err := outline.Save(filepath.Join(dir, outlineFile)); err != nil {
					return pipeline.Content{}, fmt.Errorf("save outline: %w", err)
				}
				s, err := writer.Expand(ctx, outline, func(index, total int, unit script.OutlineItem) {
					fmt.Fprintf(out, "Writing section %d of %d: %s\n", index+1, total, unit.Title)
				})
				if err != nil {
					if len(s.Segments) > 0 {
						_ = s.Save(filepath.Join(dir, scriptFile))
					}
					return pipeline.Content{}, err
				}
				return saveScript(s, dir)
			}
			return ctx.generate(cmd, p, cl, generation{
				Kind:   string(script.KindLong),
				Topic:  topic,
				Output: scriptVideoFile,
				Write:  write,
				Voices: voices,
			})
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Video topic")
	addVoiceFlag(cmd, &voice, voicePerRun)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip prompts and confirmation")
	return cmd
}

func scriptWriter(cfg *config.Config, cl *clients, logger *slog.Logger) *script.Writer {
	return &script.Writer{
		Client:      cl.llm,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	}
}

func saveScript(s script.Script, dir string) (pipeline.Content, error) {
	if err := s.Save(filepath.Join(dir, scriptFile)); err != nil {
		return pipeline.Content{}, fmt.Errorf("save script: %w", err)
	}
	return pipeline.Content{Title: s.Title, Lines: pipeline.SegmentLines(s.Lines())}, nil
}

func addVoiceFlag(cmd *cobra.Command, target *string, fallback string) {
	names := make([]string, 0, len(synth.Voices()))
	for _, v := range synth.Voices() {
		names = append(names, string(v))
	}
	cmd.Flags().StringVar(target, "voice", fallback,
		fmt.Sprintf("Narration voice: %q for one random voice, %q for a random voice per line, or one of %s", voicePerRun, voicePerLine, strings.Join(names, ", ")))
}

// voicePolicy maps the --voice flag onto a render voice policy.
func voicePolicy(value, fallback string) (render.VoicePolicy, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		value = fallback
	}
	switch value {
	case voicePerRun:
		return render.RandomVoicePerRun(nil), nil
	case voicePerLine:
		return render.RandomVoicePerLine{}, nil
	}
	if v := synth.Voice(value); v.Valid() {
		return render.FixedVoice(v), nil
	}
	return nil, fmt.Errorf("unknown voice %q", value)
}
