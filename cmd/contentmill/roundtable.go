package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chrimage/content-mill/internal/config"
	"github.com/chrimage/content-mill/internal/dialogue"
	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/pipeline"
	"github.com/chrimage/content-mill/internal/render"
)

const roundtableVideoFile = "roundtable.mp4"

func newRoundtableCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var participants int
	var maxTurns int
	var yes bool

	cmd := &cobra.Command{
		Use:   "roundtable",
		Short: "Generate a moderated roundtable discussion video",
		Long: `Generate a roundtable discussion led by a moderator.

Each speaker nominates who talks next and the discussion ends when the
moderator hands the floor to End, or when --max-turns is reached. Names and
roles are suggested by the model and picked interactively; with --yes the first
suggestions are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := newPrompter(cmd, yes)
			topic, err = p.text("Roundtable topic", "topic", topic)
			if err != nil {
				return err
			}
			if participants == 0 {
				if participants, err = chooseParticipantCount(p, cfg.Roundtable.MaxParticipants); err != nil {
					return err
				}
			}
			if participants < 1 || participants > cfg.Roundtable.MaxParticipants {
				return fmt.Errorf("--participants must be between 1 and %d", cfg.Roundtable.MaxParticipants)
			}
			if !cmd.Flags().Changed("max-turns") {
				maxTurns = cfg.Roundtable.MaxTurns
			}
			if maxTurns < 0 {
				return fmt.Errorf("--max-turns must not be negative")
			}

			cl, err := ctx.newClients()
			if err != nil {
				return err
			}
			members, err := pickParticipants(cmd.Context(), p, cl, cfg, topic, participants)
			if err != nil {
				return err
			}
			roster, err := dialogue.NewRoster(dialogue.Participant{
				Name:        dialogue.ModeratorName,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
			}, members)
			if err != nil {
				return err
			}

			speakers := make([]string, 0, len(members)+1)
			for _, member := range roster.Members() {
				speakers = append(speakers, member.Name)
			}
			out := cmd.OutOrStdout()

			write := func(ctx context.Context, dir string, logger *slog.Logger) (pipeline.Content, error) {
				table := &dialogue.Roundtable{
					Topic:               topic,
					Roster:              roster,
					Responder:           dialogue.NewLLMResponder(cl.llm),
					MaxTurns:            maxTurns,
					AllowParticipantEnd: cfg.Roundtable.AllowParticipantEnd,
					Logger:              logger,
					OnTurn: func(index int, turn dialogue.DirectedTurn) {
						printTurn(out, index, turn.Base())
					},
				}
				result, err := table.Run(ctx)
				if saveErr := saveTranscript(result.Transcript, dir); saveErr != nil && err == nil {
					err = saveErr
				}
				if err != nil {
					return pipeline.Content{}, err
				}
				if !result.Concluded {
					logging.WarnWithContext(logger, "roundtable stopped at the turn limit", "roundtable_truncated",
						logging.Int("max_turns", maxTurns),
						logging.String(logging.FieldImpact, "discussion ends without a closing remark"),
						logging.String(logging.FieldErrorHint, "raise --max-turns or roundtable.max_turns"),
					)
				}
				return pipeline.Content{Title: topic, Lines: pipeline.TurnLines(result.Transcript.Lines())}, nil
			}

			return ctx.generate(cmd, p, cl, generation{
				Kind:   "roundtable",
				Topic:  topic,
				Output: roundtableVideoFile,
				Write:  write,
				Voices: render.RoundtableVoices(speakers),
			})
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Discussion topic")
	cmd.Flags().IntVarP(&participants, "participants", "n", 0, "Number of participants besides the moderator")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Stop after this many turns (0 for no limit; defaults to roundtable.max_turns)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip prompts and confirmation")
	return cmd
}

func chooseParticipantCount(p *prompter, limit int) (int, error) {
	if p.auto {
		return min(2, limit), nil
	}
	options := make([]string, 0, limit)
	for i := 1; i <= limit; i++ {
		options = append(options, strconv.Itoa(i))
	}
	choice, err := p.choose("How many participants?", options)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(choice)
}

// pickParticipants builds the participant list from suggested names and
// roles and the configured models and temperatures.
func pickParticipants(ctx context.Context, p *prompter, cl *clients, cfg *config.Config, topic string, count int) ([]dialogue.Participant, error) {
	names, err := dialogue.SuggestNames(ctx, cl.llm, topic)
	if err != nil {
		return nil, fmt.Errorf("suggest names: %w", err)
	}
	roles, err := dialogue.SuggestRoles(ctx, cl.llm, topic)
	if err != nil {
		return nil, fmt.Errorf("suggest roles: %w", err)
	}
	names = dialogue.Without(names, dialogue.ModeratorName)
	if len(names) < count {
		return nil, fmt.Errorf("model suggested %d names, need %d", len(names), count)
	}
	if len(roles) < count {
		return nil, fmt.Errorf("model suggested %d roles, need %d", len(roles), count)
	}

	temperatures := make([]string, len(cfg.Roundtable.Temperatures))
	for i, t := range cfg.Roundtable.Temperatures {
		temperatures[i] = strconv.FormatFloat(t, 'f', -1, 64)
	}

	members := make([]dialogue.Participant, 0, count)
	for i := 0; i < count; i++ {
		label := fmt.Sprintf("participant %d", i+1)
		name, err := p.choose("Name for "+label, names)
		if err != nil {
			return nil, err
		}
		names = dialogue.Without(names, name)

		role, err := p.choose("Role for "+name, roles)
		if err != nil {
			return nil, err
		}
		roles = dialogue.Without(roles, role)
		model, err := p.choose("Model for "+name, cfg.Roundtable.Models)
		if err != nil {
			return nil, err
		}
		tempText, err := p.choose("Temperature for "+name, temperatures)
		if err != nil {
			return nil, err
		}
		temperature, err := strconv.ParseFloat(tempText, 64)
		if err != nil {
			return nil, fmt.Errorf("parse temperature: %w", err)
		}
		members = append(members, dialogue.Participant{
			Name:        name,
			Role:        role,
			Position:    dialogue.PositionParticipant,
			Model:       model,
			Temperature: temperature,
		})
	}
	return members, nil
}
