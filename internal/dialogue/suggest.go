package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/services/llm"
)

// JSONCompleter is the slice of the llm client used for suggestions.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

const suggestSystem = "Your response should be a json object holding a list of strings."

// SuggestNames asks the model for gender neutral participant names suited to topic.
func SuggestNames(ctx context.Context, client JSONCompleter, topic string) ([]string, error) {
	prompt := fmt.Sprintf("Make a list of gender neutral names of people who might participate in a roundtable discussion on %s. Use the key 'names' for the list.", topic)
	var payload struct {
		Names []string `json:"names"`
	}
	if err := suggest(ctx, client, prompt, &payload); err != nil {
		return nil, err
	}
	return cleanChoices(payload.Names), nil
}

// SuggestRoles asks the model for roundtable roles suited to topic, excluding the moderator.
func SuggestRoles(ctx context.Context, client JSONCompleter, topic string) ([]string, error) {
	prompt := fmt.Sprintf("Make a list of roles that people might have in a roundtable discussion on %s. Use the key 'roles' for the list. Do not include the moderator.", topic)
	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := suggest(ctx, client, prompt, &payload); err != nil {
		return nil, err
	}
	return cleanChoices(payload.Roles), nil
}

// SuggestDebaters asks the model for a proponent and an opponent name.
func SuggestDebaters(ctx context.Context, client JSONCompleter, topic string) (string, string, error) {
	prompt := fmt.Sprintf("Suggest two gender neutral names for debaters on %s: one arguing for, one arguing against. Use the keys 'proponent' and 'opponent'.", topic)
	var payload struct {
		Proponent string `json:"proponent"`
		Opponent  string `json:"opponent"`
	}
	if err := suggest(ctx, client, prompt, &payload); err != nil {
		return "", "", err
	}
	pro, opp := strings.TrimSpace(payload.Proponent), strings.TrimSpace(payload.Opponent)
	if pro == "" || opp == "" || strings.EqualFold(pro, opp) {
		return "", "", services.Wrap(services.ErrMalformedResponse, "", "suggest debaters", "two distinct names required", nil)
	}
	return pro, opp, nil
}

// Without returns choices minus chosen, compared case-insensitively.
func Without(choices []string, chosen string) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		if !strings.EqualFold(c, chosen) {
			out = append(out, c)
		}
	}
	return out
}

func suggest(ctx context.Context, client JSONCompleter, prompt string, target any) error {
	if client == nil {
		return services.Wrap(services.ErrConfiguration, "", "suggest", "llm client required", nil)
	}
	raw, err := client.CompleteJSON(ctx, suggestSystem, prompt, 1.0)
	if err != nil {
		return fmt.Errorf("suggest: %w", err)
	}
	if err := llm.DecodeLLMJSON(raw, target); err != nil {
		return services.Wrap(services.ErrMalformedResponse, "", "suggest", "decode", err)
	}
	return nil
}

func cleanChoices(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || IsEnd(v) || strings.EqualFold(v, ModeratorName) {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
