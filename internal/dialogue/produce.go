package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/schema"
)

var (
	turnSchema         = schema.MustNew[Turn]("turn.schema.json")
	directedTurnSchema = schema.MustNew[DirectedTurn]("directed_turn.schema.json")
)

// TurnSchema returns the JSON Schema a debate turn must satisfy.
func TurnSchema() string { return turnSchema.Document() }

// DirectedTurnSchema returns the JSON Schema a roundtable turn must satisfy.
func DirectedTurnSchema() string { return directedTurnSchema.Document() }

// producer performs the turn-production contract for one turn shape: send the
// serialized history and instruction, decode exactly one conforming record,
// and attribute it to the participant that was asked.
type producer[T Utterance] struct {
	responder Responder
	validator *schema.Validator[T]
	logger    *slog.Logger
}

func (p producer[T]) next(ctx context.Context, speaker Participant, system string, transcript *Transcript[T], instruction string) (T, error) {
	var zero T
	index := transcript.Len()
	history, err := transcript.MarshalJSON()
	if err != nil {
		return zero, fmt.Errorf("turn %d: encode history: %w", index, err)
	}
	raw, err := p.responder.Respond(ctx, speaker, Prompt{
		System:      system,
		History:     string(history),
		Instruction: instruction,
	})
	if err != nil {
		return zero, fmt.Errorf("turn %d (%s): %w", index, speaker.Name, err)
	}
	turn, err := p.validator.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("turn %d (%s): %w", index, speaker.Name, err)
	}
	if claimed := strings.TrimSpace(turn.Base().Speaker); claimed != speaker.Name {
		p.logger.Debug("reply claimed a different speaker",
			logging.Args(append(logging.Turn(index, speaker.Name), logging.String("claimed", claimed))...)...)
	}
	return withSpeaker(turn, speaker.Name), nil
}
