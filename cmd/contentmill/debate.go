package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrimage/content-mill/internal/dialogue"
	"github.com/chrimage/content-mill/internal/pipeline"
	"github.com/chrimage/content-mill/internal/render"
)

const (
	transcriptFile  = "transcript.json"
	debateVideoFile = "debate.mp4"
)

func newDebateCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var proponent string
	var opponent string
	var yes bool

	cmd := &cobra.Command{
		Use:   "debate",
		Short: "Generate a moderated debate video",
		Long: `Generate a fixed-round debate between a proponent and an opponent.

The moderator opens, runs cross-examination and closing rounds, then concludes.
Debater names are suggested by the model unless --proponent and --opponent are
given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := newPrompter(cmd, yes)
			topic, err = p.text("Debate topic", "topic", topic)
			if err != nil {
				return err
			}
			format := dialogue.DefaultFormat()
			if path := strings.TrimSpace(cfg.Debate.FormatPath); path != "" {
				if format, err = dialogue.LoadFormat(path); err != nil {
					return err
				}
			}

			cl, err := ctx.newClients()
			if err != nil {
				return err
			}
			pro, opp := strings.TrimSpace(proponent), strings.TrimSpace(opponent)
			if pro == "" || opp == "" {
				suggestedPro, suggestedOpp, err := dialogue.SuggestDebaters(cmd.Context(), cl.llm, topic)
				if err != nil {
					return fmt.Errorf("suggest debaters: %w", err)
				}
				if pro == "" {
					pro = suggestedPro
				}
				if opp == "" {
					opp = suggestedOpp
				}
			}

			seat := func(name, model string, pos dialogue.Position) dialogue.Participant {
				return dialogue.Participant{Name: name, Position: pos, Model: model, Temperature: cfg.Debate.Temperature}
			}
			cast := dialogue.Cast{
				Moderator: seat(dialogue.ModeratorName, cfg.Debate.ModeratorModel, dialogue.PositionModerator),
				Proponent: seat(pro, cfg.Debate.DebaterModel, dialogue.PositionProponent),
				Opponent:  seat(opp, cfg.Debate.DebaterModel, dialogue.PositionOpponent),
			}
			if err := cast.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s argues for, %s argues against (%d turns)\n", pro, opp, format.StepCount())

			write := func(ctx context.Context, dir string, logger *slog.Logger) (pipeline.Content, error) {
				debate := &dialogue.Debate{
					Topic:     topic,
					Cast:      cast,
					Format:    format,
					Responder: dialogue.NewLLMResponder(cl.llm),
					Logger:    logger,
					OnTurn: func(index int, turn dialogue.Turn) {
						printTurn(out, index, turn)
					},
				}
				transcript, err := debate.Run(ctx)
				if saveErr := saveTranscript(transcript, dir); saveErr != nil && err == nil {
					err = saveErr
				}
				if err != nil {
					return pipeline.Content{}, err
				}
				return pipeline.Content{Title: topic, Lines: pipeline.TurnLines(transcript.Lines())}, nil
			}

			return ctx.generate(cmd, p, cl, generation{
				Kind:   "debate",
				Topic:  topic,
				Output: debateVideoFile,
				Write:  write,
				Voices: render.DebateVoices(cast.Moderator.Name, cast.Proponent.Name, cast.Opponent.Name),
			})
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Debate topic")
	cmd.Flags().StringVar(&proponent, "proponent", "", "Name of the debater arguing for the topic")
	cmd.Flags().StringVar(&opponent, "opponent", "", "Name of the debater arguing against the topic")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip prompts and confirmation")
	return cmd
}

// savedTranscript is the slice of a transcript the commands persist.
type savedTranscript interface {
	Len() int
	Save(path string) error
}

// saveTranscript writes whatever turns were recorded, so a failed run keeps
// its partial transcript for inspection.
func saveTranscript(t savedTranscript, dir string) error {
	if t == nil || t.Len() == 0 {
		return nil
	}
	if err := t.Save(filepath.Join(dir, transcriptFile)); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

func printTurn(out io.Writer, index int, turn dialogue.Turn) {
	fmt.Fprintf(out, "[%d] %s: %s\n", index+1, turn.Speaker, turn.Content)
}
