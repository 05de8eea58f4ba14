package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/services"
)

// Roundtable runs a moderator-directed discussion. The moderator opens, each
// speaker nominates the next, and the discussion closes when the moderator
// nominates End.
type Roundtable struct {
	Topic     string
	Roster    *Roster
	Responder Responder
	// MaxTurns stops the discussion after that many turns; zero means no limit.
	// When a limit is set, the final slot is given to the moderator with an
	// instruction to close.
	MaxTurns int
	// AllowParticipantEnd lets any speaker's End close the discussion. When
	// unset, a participant's End passes the floor to the moderator instead.
	AllowParticipantEnd bool
	// Rand picks the fallback speaker for unknown nominations.
	Rand   *rand.Rand
	Logger *slog.Logger
	// OnTurn, when set, observes each turn as it is recorded.
	OnTurn func(index int, turn DirectedTurn)
}

// RoundtableResult is the outcome of a roundtable run.
type RoundtableResult struct {
	Transcript *Transcript[DirectedTurn]
	// Concluded is false when the turn limit stopped the discussion before
	// it was closed.
	Concluded bool
	// Fallbacks counts nominations that matched nobody.
	Fallbacks int
}

// Run produces the transcript. Turn-production failures end the run and are
// returned alongside the turns recorded so far.
func (r *Roundtable) Run(ctx context.Context) (RoundtableResult, error) {
	result := RoundtableResult{Transcript: NewTranscript[DirectedTurn]()}
	logger := logging.NewComponentLogger(r.Logger, "roundtable")

	topic := strings.TrimSpace(r.Topic)
	if topic == "" {
		return result, services.Wrap(services.ErrValidation, "", "roundtable", "topic required", nil)
	}
	if r.Roster == nil {
		return result, services.Wrap(services.ErrValidation, "", "roundtable", "roster required", nil)
	}
	if r.Responder == nil {
		return result, services.Wrap(services.ErrConfiguration, "", "roundtable", "responder required", nil)
	}
	systems, err := r.systemPrompts(topic)
	if err != nil {
		return result, err
	}

	moderator := r.Roster.Moderator()
	p := producer[DirectedTurn]{responder: r.Responder, validator: directedTurnSchema, logger: logger}
	speaker := moderator
	instruction := roundtableOpening

	logger.Info("roundtable started",
		logging.String("topic", topic),
		logging.Int("participants", len(r.Roster.Participants())),
		logging.Int("max_turns", r.MaxTurns),
	)
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		index := result.Transcript.Len()
		if r.MaxTurns > 0 && index >= r.MaxTurns {
			logging.WarnWithContext(logger, "roundtable stopped at turn limit", "turn_limit_reached",
				logging.Int("max_turns", r.MaxTurns),
				logging.String(logging.FieldErrorHint, "raise roundtable.max_turns or pass --max-turns 0 for no limit"),
				logging.String(logging.FieldImpact, "discussion ends without a closing turn"),
			)
			return result, nil
		}
		if r.MaxTurns > 0 && index > 0 && index == r.MaxTurns-1 {
			speaker = moderator
			instruction = roundtableClosing
		}

		turn, err := p.next(ctx, speaker, systems[speaker.Name], result.Transcript, instruction)
		if err != nil {
			return result, err
		}
		result.Transcript.Append(turn)
		logger.Info("turn recorded", logging.Args(append(logging.Turn(index, turn.Speaker), logging.String("next_speaker", turn.NextSpeaker))...)...)
		if r.OnTurn != nil {
			r.OnTurn(index, turn)
		}

		isModerator := speaker.Name == moderator.Name
		if IsEnd(turn.NextSpeaker) {
			if isModerator || r.AllowParticipantEnd {
				result.Concluded = true
				logger.Info("roundtable concluded", logging.Int("turns", result.Transcript.Len()))
				return result, nil
			}
			logger.Info("participant asked to end; floor returns to moderator", logging.Args(logging.Turn(index, speaker.Name)...)...)
			instruction = fmt.Sprintf(roundtableHandback, speaker.Name)
			speaker = moderator
			continue
		}

		res := r.Roster.Resolve(turn.NextSpeaker, r.Rand)
		if res.Fallback {
			result.Fallbacks++
			logging.WarnWithContext(logger, "next speaker not on roster; picked a participant at random", "speaker_fallback",
				logging.String("nominated", turn.NextSpeaker),
				logging.String("chosen", res.Participant.Name),
				logging.Error(services.ErrResolution),
				logging.String(logging.FieldErrorHint, "the model named someone outside the roster"),
				logging.String(logging.FieldImpact, "discussion continues with a random participant"),
			)
		}
		speaker = res.Participant
		instruction = ""
	}
}

func (r *Roundtable) systemPrompts(topic string) (map[string]string, error) {
	doc := directedTurnSchema.Document()
	participants := r.Roster.Participants()
	moderator := r.Roster.Moderator()
	out := make(map[string]string, len(participants)+1)

	prompt, err := systemPrompt("roundtable_moderator", promptData{Topic: topic, Self: moderator, Others: participants}, doc)
	if err != nil {
		return nil, err
	}
	out[moderator.Name] = prompt
	for _, p := range participants {
		prompt, err := systemPrompt("roundtable_participant", promptData{Topic: topic, Self: p}, doc)
		if err != nil {
			return nil, err
		}
		out[p.Name] = prompt
	}
	return out, nil
}
