package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/services/llm"
)

// Rephraser rewrites an image prompt that the generator refused.
type Rephraser interface {
	Rephrase(ctx context.Context, prompt string, cause error) (string, error)
}

// JSONCompleter is the slice of the llm client used for rephrasing.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

const rephraseSystem = `You rewrite prompts for a text to image generator that applies a strict content policy.
Keep the subject, mood, and composition of the original prompt.
Remove or soften anything violent, sexual, hateful, or otherwise inappropriate.
Replace named real people, celebrities, brands, and copyrighted works with generic descriptions.
Respond with a json object with the single key 'prompt'.`

// LLMRephraser asks the language model for a content-policy-safe rewrite.
type LLMRephraser struct {
	Client      JSONCompleter
	Temperature float64
}

// Rephrase implements Rephraser.
func (r LLMRephraser) Rephrase(ctx context.Context, prompt string, cause error) (string, error) {
	user := "Rewrite this image prompt:\n\n" + prompt
	if cause != nil {
		user += "\n\nThe generator rejected it with: " + cause.Error()
	}
	temperature := r.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	raw, err := r.Client.CompleteJSON(ctx, rephraseSystem, user, temperature)
	if err != nil {
		return "", fmt.Errorf("rephrase: %w", err)
	}
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		return "", services.Wrap(services.ErrMalformedResponse, "", "rephrase", "decode", err)
	}
	rewritten := strings.TrimSpace(payload.Prompt)
	if rewritten == "" {
		return "", services.Wrap(services.ErrMalformedResponse, "", "rephrase", "empty prompt", nil)
	}
	return rewritten, nil
}
