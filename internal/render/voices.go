package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/chrimage/content-mill/internal/fileutil"
	"github.com/chrimage/content-mill/internal/services/synth"
)

// VoicesFileName stores a run's speaker voice assignments next to its
// transcript, so re-rendering keeps every speaker's voice.
const VoicesFileName = "voices.json"

// VoicePolicy picks the narration voice for a line.
type VoicePolicy interface {
	Voice(index int, line Line) synth.Voice
}

// VoiceMap assigns voices by speaker name with a fallback for anyone else.
type VoiceMap struct {
	bySpeaker map[string]synth.Voice
	fallback  synth.Voice
}

// Voice implements VoicePolicy.
func (m VoiceMap) Voice(_ int, line Line) synth.Voice {
	if v, ok := m.bySpeaker[strings.ToLower(strings.TrimSpace(line.Speaker))]; ok {
		return v
	}
	return m.fallback
}

type voicesFile struct {
	Fallback synth.Voice            `json:"fallback"`
	Speakers map[string]synth.Voice `json:"speakers"`
}

// SaveVoices writes m to dir/voices.json.
func SaveVoices(dir string, m VoiceMap) error {
	data, err := json.MarshalIndent(voicesFile{Fallback: m.fallback, Speakers: m.bySpeaker}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode voices: %w", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(dir, VoicesFileName), bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("save voices: %w", err)
	}
	return nil
}

// LoadVoices reads the assignments SaveVoices wrote to dir. ok is false when
// the run has none.
func LoadVoices(dir string) (m VoiceMap, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, VoicesFileName))
	if errors.Is(err, os.ErrNotExist) {
		return VoiceMap{}, false, nil
	}
	if err != nil {
		return VoiceMap{}, false, fmt.Errorf("load voices: %w", err)
	}
	var file voicesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return VoiceMap{}, false, fmt.Errorf("load voices: %w", err)
	}
	if !file.Fallback.Valid() {
		file.Fallback = synth.VoiceAlloy
	}
	m = VoiceMap{bySpeaker: make(map[string]synth.Voice, len(file.Speakers)), fallback: file.Fallback}
	for name, voice := range file.Speakers {
		if !voice.Valid() {
			return VoiceMap{}, false, fmt.Errorf("load voices: unknown voice %q for %s", voice, name)
		}
		m.bySpeaker[strings.ToLower(strings.TrimSpace(name))] = voice
	}
	return m, true, nil
}

// DebateVoices gives the moderator alloy, the proponent echo, and the
// opponent fable.
func DebateVoices(moderator, proponent, opponent string) VoiceMap {
	return VoiceMap{
		bySpeaker: map[string]synth.Voice{
			strings.ToLower(moderator): synth.VoiceAlloy,
			strings.ToLower(proponent): synth.VoiceEcho,
			strings.ToLower(opponent):  synth.VoiceFable,
		},
		fallback: synth.VoiceAlloy,
	}
}

// RoundtableVoices assigns voices from the end of the enumeration in speaker
// order, so the first name (the moderator) gets shimmer. With more speakers
// than voices the assignment wraps around.
func RoundtableVoices(speakers []string) VoiceMap {
	voices := synth.Voices()
	m := VoiceMap{bySpeaker: make(map[string]synth.Voice, len(speakers)), fallback: synth.VoiceAlloy}
	for i, name := range speakers {
		m.bySpeaker[strings.ToLower(strings.TrimSpace(name))] = voices[len(voices)-1-(i%len(voices))]
	}
	return m
}

// FixedVoice narrates every line with one voice.
type FixedVoice synth.Voice

// Voice implements VoicePolicy.
func (f FixedVoice) Voice(int, Line) synth.Voice { return synth.Voice(f) }

// RandomVoicePerRun picks one voice at random for the whole run.
func RandomVoicePerRun(rng *rand.Rand) FixedVoice {
	voices := synth.Voices()
	return FixedVoice(voices[intN(rng, len(voices))])
}

// RandomVoicePerLine picks a fresh random voice for every line.
type RandomVoicePerLine struct {
	Rand *rand.Rand
}

// Voice implements VoicePolicy.
func (r RandomVoicePerLine) Voice(int, Line) synth.Voice {
	voices := synth.Voices()
	return voices[intN(r.Rand, len(voices))]
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
