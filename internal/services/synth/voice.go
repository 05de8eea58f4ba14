package synth

import openai "github.com/sashabaranov/go-openai"

// Voice is one of the provider's fixed narration voices.
type Voice string

const (
	VoiceAlloy   = Voice(openai.VoiceAlloy)
	VoiceEcho    = Voice(openai.VoiceEcho)
	VoiceFable   = Voice(openai.VoiceFable)
	VoiceOnyx    = Voice(openai.VoiceOnyx)
	VoiceNova    = Voice(openai.VoiceNova)
	VoiceShimmer = Voice(openai.VoiceShimmer)
)

// Voices lists the enumeration in its canonical order.
func Voices() []Voice {
	return []Voice{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}
}

// Valid reports whether v belongs to the enumeration.
func (v Voice) Valid() bool {
	for _, known := range Voices() {
		if v == known {
			return true
		}
	}
	return false
}
