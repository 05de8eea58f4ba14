package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/services"
)

// Debate runs a fixed-round debate: every step of every round, in order,
// exactly once.
type Debate struct {
	Topic     string
	Cast      Cast
	Format    Format
	Responder Responder
	Logger    *slog.Logger
	// OnTurn, when set, observes each turn as it is recorded.
	OnTurn func(index int, turn Turn)
}

type scheduledStep struct {
	round       string
	speaker     Participant
	instruction string
}

// Run produces the transcript. It fails on the first turn that cannot be
// produced; turns recorded before the failure are returned with the error.
func (d *Debate) Run(ctx context.Context) (*Transcript[Turn], error) {
	transcript := NewTranscript[Turn]()
	logger := logging.NewComponentLogger(d.Logger, "debate")

	topic := strings.TrimSpace(d.Topic)
	if topic == "" {
		return transcript, services.Wrap(services.ErrValidation, "", "debate", "topic required", nil)
	}
	if d.Responder == nil {
		return transcript, services.Wrap(services.ErrConfiguration, "", "debate", "responder required", nil)
	}
	if err := d.Cast.Validate(); err != nil {
		return transcript, err
	}
	format := d.Format
	if len(format.Rounds) == 0 {
		format = DefaultFormat()
	}
	if err := format.Validate(); err != nil {
		return transcript, err
	}

	systems, err := d.systemPrompts(topic)
	if err != nil {
		return transcript, err
	}
	schedule, err := d.schedule(topic, format)
	if err != nil {
		return transcript, err
	}

	p := producer[Turn]{responder: d.Responder, validator: turnSchema, logger: logger}
	logger.Info("debate started",
		logging.String("topic", topic),
		logging.Int("rounds", len(format.Rounds)),
		logging.Int("turns", len(schedule)),
	)
	for _, step := range schedule {
		if err := ctx.Err(); err != nil {
			return transcript, err
		}
		index := transcript.Len()
		turn, err := p.next(ctx, step.speaker, systems[step.speaker.Position], transcript, step.instruction)
		if err != nil {
			return transcript, err
		}
		transcript.Append(turn)
		logger.Info("turn recorded", logging.Args(append(logging.Turn(index, turn.Speaker), logging.String("round", step.round))...)...)
		if d.OnTurn != nil {
			d.OnTurn(index, turn)
		}
	}
	logger.Info("debate finished", logging.Int("turns", transcript.Len()))
	return transcript, nil
}

func (d *Debate) systemPrompts(topic string) (map[Position]string, error) {
	doc := turnSchema.Document()
	data := promptData{Topic: topic, Proponent: d.Cast.Proponent.Name, Opponent: d.Cast.Opponent.Name}
	out := make(map[Position]string, 3)
	for _, seat := range []struct {
		pos  Position
		tmpl string
	}{
		{PositionModerator, "debate_moderator"},
		{PositionProponent, "debate_proponent"},
		{PositionOpponent, "debate_opponent"},
	} {
		p, _ := d.Cast.Seat(seat.pos)
		data.Self = p
		prompt, err := systemPrompt(seat.tmpl, data, doc)
		if err != nil {
			return nil, err
		}
		out[seat.pos] = prompt
	}
	return out, nil
}

func (d *Debate) schedule(topic string, format Format) ([]scheduledStep, error) {
	data := instructionData{
		Topic:     topic,
		Moderator: d.Cast.Moderator.Name,
		Proponent: d.Cast.Proponent.Name,
		Opponent:  d.Cast.Opponent.Name,
	}
	steps := make([]scheduledStep, 0, format.StepCount())
	for _, r := range format.Rounds {
		for _, s := range r.Steps {
			speaker, ok := d.Cast.Seat(s.Position)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "", "debate", fmt.Sprintf("no seat for %q", s.Position), nil)
			}
			instruction, err := renderInstruction(s.Instruction, data)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "", "debate", "render instruction", err)
			}
			steps = append(steps, scheduledStep{round: r.Name, speaker: speaker, instruction: instruction})
		}
	}
	return steps, nil
}
