package dialogue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chrimage/content-mill/internal/fileutil"
)

// Turn is one recorded utterance.
type Turn struct {
	Speaker          string `json:"speaker" jsonschema:"minLength=1" jsonschema_description:"Your own name."`
	Content          string `json:"content" jsonschema:"minLength=1,pattern=\\S" jsonschema_description:"What you say out loud."`
	ImageDescription string `json:"image_description" jsonschema:"minLength=1,pattern=\\S" jsonschema_description:"A description of a still image to accompany your statement."`
}

// Base returns the turn itself.
func (t Turn) Base() Turn {
	return t
}

// DirectedTurn is a roundtable turn that also nominates the next speaker.
type DirectedTurn struct {
	Turn
	NextSpeaker string `json:"next_speaker" jsonschema:"minLength=1,pattern=\\S" jsonschema_description:"Name of whoever should speak next, or End to close the discussion."`
}

// Utterance is the set of turn shapes a transcript can hold.
type Utterance interface {
	Turn | DirectedTurn
	Base() Turn
}

// withSpeaker returns u attributed to speaker.
func withSpeaker[T Utterance](u T, speaker string) T {
	switch v := any(u).(type) {
	case Turn:
		v.Speaker = speaker
		return any(v).(T)
	case DirectedTurn:
		v.Speaker = speaker
		return any(v).(T)
	}
	return u
}

// Transcript is the ordered, append-only record of a conversation.
type Transcript[T Utterance] struct {
	turns []T
}

// NewTranscript returns an empty transcript.
func NewTranscript[T Utterance]() *Transcript[T] {
	return &Transcript[T]{}
}

// Append records a turn at the end of the transcript.
func (t *Transcript[T]) Append(turn T) {
	t.turns = append(t.turns, turn)
}

// Len returns the number of recorded turns.
func (t *Transcript[T]) Len() int {
	return len(t.turns)
}

// Turns returns a copy of the recorded turns.
func (t *Transcript[T]) Turns() []T {
	out := make([]T, len(t.turns))
	copy(out, t.turns)
	return out
}

// Lines returns the speaker/content/image view of every turn, which is all
// rendering needs regardless of turn shape.
func (t *Transcript[T]) Lines() []Turn {
	out := make([]Turn, len(t.turns))
	for i, turn := range t.turns {
		out[i] = turn.Base()
	}
	return out
}

// MarshalJSON encodes the transcript as a JSON array with non-ASCII text and
// HTML characters left unescaped.
func (t *Transcript[T]) MarshalJSON() ([]byte, error) {
	return encodeTurns(t.turns, "")
}

// UnmarshalJSON replaces the transcript with the decoded array.
func (t *Transcript[T]) UnmarshalJSON(data []byte) error {
	var turns []T
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}
	t.turns = turns
	return nil
}

// Save writes the transcript to path as indented JSON.
func (t *Transcript[T]) Save(path string) error {
	data, err := encodeTurns(t.turns, "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := fileutil.WriteAtomic(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// LoadTranscript reads a transcript previously written by Save.
func LoadTranscript[T Utterance](path string) (*Transcript[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	t := NewTranscript[T]()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	return t, nil
}

func encodeTurns[T Utterance](turns []T, indent string) ([]byte, error) {
	if turns == nil {
		turns = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(turns); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
