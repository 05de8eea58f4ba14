package dialogue

import (
	"context"
	"strings"

	"github.com/chrimage/content-mill/internal/services/llm"
)

// Prompt is everything a responder needs to produce one turn.
type Prompt struct {
	System      string
	History     string
	Instruction string
}

// Responder produces the raw reply for one participant's turn.
type Responder interface {
	Respond(ctx context.Context, speaker Participant, prompt Prompt) (string, error)
}

// Completer is the slice of the llm client the responder uses.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// LLMResponder answers turns through a chat completion endpoint using each
// participant's own model and temperature.
type LLMResponder struct {
	Client Completer
}

// NewLLMResponder wraps a chat client.
func NewLLMResponder(client Completer) *LLMResponder {
	return &LLMResponder{Client: client}
}

// Respond sends the system prompt, the serialized history, and the
// instruction (when present) as ordered chat messages.
func (r *LLMResponder) Respond(ctx context.Context, speaker Participant, prompt Prompt) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.System},
		{Role: llm.RoleUser, Content: prompt.History},
	}
	if instruction := strings.TrimSpace(prompt.Instruction); instruction != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: instruction})
	}
	return r.Client.Complete(ctx, llm.Request{
		Model:       speaker.Model,
		Temperature: speaker.Temperature,
		Messages:    messages,
	})
}
