package dialogue

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/chrimage/content-mill/internal/services"
)

const (
	// ModeratorName is the fixed name of the roundtable moderator.
	ModeratorName = "Moderator"
	// EndSentinel is the next_speaker value that closes a roundtable.
	EndSentinel = "End"
)

// IsEnd reports whether a nominated next speaker is the terminal sentinel.
func IsEnd(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), EndSentinel)
}

// Roster is the validated membership of a roundtable: one moderator plus at
// least one participant, all names unique ignoring case and spacing.
type Roster struct {
	moderator    Participant
	participants []Participant
	exact        map[string]int
	folded       map[string]int
}

// moderatorIndex marks the moderator in the lookup maps.
const moderatorIndex = -1

// NewRoster validates the membership and builds the name index.
func NewRoster(moderator Participant, participants []Participant) (*Roster, error) {
	moderator.Name = strings.TrimSpace(moderator.Name)
	if moderator.Name == "" {
		moderator.Name = ModeratorName
	}
	moderator.Position = PositionModerator
	if err := moderator.Validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "roster", "at least one participant required", nil)
	}

	r := &Roster{
		moderator:    moderator,
		participants: make([]Participant, 0, len(participants)),
		exact:        map[string]int{moderator.Name: moderatorIndex},
		folded:       map[string]int{foldName(moderator.Name): moderatorIndex, foldName(ModeratorName): moderatorIndex},
	}
	for _, p := range participants {
		p.Name = strings.TrimSpace(p.Name)
		if p.Position == "" {
			p.Position = PositionParticipant
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := foldName(p.Name)
		if _, dup := r.folded[key]; dup {
			return nil, services.Wrap(services.ErrValidation, "", "roster", fmt.Sprintf("duplicate name %q", p.Name), nil)
		}
		idx := len(r.participants)
		r.participants = append(r.participants, p)
		r.exact[p.Name] = idx
		r.folded[key] = idx
	}
	return r, nil
}

// Moderator returns the moderator.
func (r *Roster) Moderator() Participant {
	return r.moderator
}

// Participants returns the non-moderator members in roster order.
func (r *Roster) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// Members returns the moderator followed by every participant.
func (r *Roster) Members() []Participant {
	return append([]Participant{r.moderator}, r.participants...)
}

// Lookup finds a member by exact name, then by case- and spacing-insensitive
// match. The literal "Moderator" always finds the moderator.
func (r *Roster) Lookup(name string) (Participant, bool) {
	idx, ok := r.exact[name]
	if !ok {
		idx, ok = r.folded[foldName(name)]
	}
	if !ok {
		return Participant{}, false
	}
	if idx == moderatorIndex {
		return r.moderator, true
	}
	return r.participants[idx], true
}

// Resolution is the outcome of resolving a nominated next speaker.
type Resolution struct {
	Participant Participant
	// Fallback is set when the nomination matched nobody and a participant
	// was drawn at random instead.
	Fallback bool
}

// Resolve maps a nomination to a member. Unknown names resolve to a
// participant drawn uniformly from the non-moderator roster using rng.
// Callers handle the terminal sentinel before resolving.
func (r *Roster) Resolve(name string, rng *rand.Rand) Resolution {
	if p, ok := r.Lookup(name); ok {
		return Resolution{Participant: p}
	}
	var idx int
	if rng != nil {
		idx = rng.IntN(len(r.participants))
	} else {
		idx = rand.IntN(len(r.participants))
	}
	return Resolution{Participant: r.participants[idx], Fallback: true}
}
