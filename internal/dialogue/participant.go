package dialogue

import (
	"fmt"
	"strings"

	"github.com/chrimage/content-mill/internal/services"
)

// Position is the structural seat a participant occupies in a conversation.
// It drives step dispatch in debates and voice assignment during rendering.
type Position string

const (
	PositionModerator   Position = "moderator"
	PositionProponent   Position = "proponent"
	PositionOpponent    Position = "opponent"
	PositionParticipant Position = "participant"
)

// ParsePosition maps a configured role string onto a Position.
func ParsePosition(value string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(value))) {
	case PositionModerator:
		return PositionModerator, nil
	case PositionProponent:
		return PositionProponent, nil
	case PositionOpponent:
		return PositionOpponent, nil
	case PositionParticipant:
		return PositionParticipant, nil
	default:
		return "", fmt.Errorf("unknown position %q", value)
	}
}

// Participant is a named voice in a conversation together with the model
// settings that answer on its behalf.
type Participant struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Position    Position `json:"position"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
}

// Validate checks the participant is usable by a responder.
func (p Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return services.Wrap(services.ErrValidation, "", "participant", "name required", nil)
	}
	if strings.EqualFold(strings.TrimSpace(p.Name), EndSentinel) {
		return services.Wrap(services.ErrValidation, "", "participant", fmt.Sprintf("name %q is reserved", p.Name), nil)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return services.Wrap(services.ErrValidation, "", "participant", fmt.Sprintf("%s: temperature %.2f outside 0..2", p.Name, p.Temperature), nil)
	}
	return nil
}

// Cast is the fixed three-seat lineup of a debate.
type Cast struct {
	Moderator Participant
	Proponent Participant
	Opponent  Participant
}

// Validate ensures every seat is filled, correctly positioned, and uniquely named.
func (c Cast) Validate() error {
	seats := []struct {
		want Position
		p    Participant
	}{
		{PositionModerator, c.Moderator},
		{PositionProponent, c.Proponent},
		{PositionOpponent, c.Opponent},
	}
	seen := make(map[string]struct{}, len(seats))
	for _, seat := range seats {
		if err := seat.p.Validate(); err != nil {
			return err
		}
		if seat.p.Position != seat.want {
			return services.Wrap(services.ErrValidation, "", "cast", fmt.Sprintf("%s seated as %q, want %q", seat.p.Name, seat.p.Position, seat.want), nil)
		}
		key := foldName(seat.p.Name)
		if _, dup := seen[key]; dup {
			return services.Wrap(services.ErrValidation, "", "cast", fmt.Sprintf("duplicate name %q", seat.p.Name), nil)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Seat returns the participant holding pos.
func (c Cast) Seat(pos Position) (Participant, bool) {
	switch pos {
	case PositionModerator:
		return c.Moderator, true
	case PositionProponent:
		return c.Proponent, true
	case PositionOpponent:
		return c.Opponent, true
	default:
		return Participant{}, false
	}
}

// Members lists the cast in seat order.
func (c Cast) Members() []Participant {
	return []Participant{c.Moderator, c.Proponent, c.Opponent}
}

func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
