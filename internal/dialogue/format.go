package dialogue

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/chrimage/content-mill/internal/services"
)

// Step is one scheduled turn in a debate round. Instruction is a text/template
// over Topic, Proponent, Opponent, and Moderator names.
type Step struct {
	Position    Position `yaml:"position"`
	Instruction string   `yaml:"instruction,omitempty"`
}

// Round is a named, ordered group of steps.
type Round struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Format is the complete fixed schedule of a debate.
type Format struct {
	Rounds []Round `yaml:"rounds"`
}

// DefaultFormat returns the three-round debate followed by a moderator
// conclusion: thirteen turns.
func DefaultFormat() Format {
	round := func(name, instruction string) Round {
		return Round{Name: name, Steps: []Step{
			{Position: PositionModerator, Instruction: instruction},
			{Position: PositionProponent},
			{Position: PositionModerator},
			{Position: PositionOpponent},
		}}
	}
	return Format{Rounds: []Round{
		round("Opening Statements", "Moderator, please introduce the debate on {{.Topic}}. Ask {{.Proponent}} and {{.Opponent}} for their opening statements."),
		round("Cross-Examination", "Moderator, now facilitate a cross-examination round. First, allow {{.Proponent}} to question {{.Opponent}}, then vice versa."),
		round("Closing Statements", "Moderator, please ask {{.Opponent}} and {{.Proponent}} for their closing statements, concluding the debate on {{.Topic}}."),
		{Name: "Conclusion", Steps: []Step{
			{Position: PositionModerator, Instruction: "Moderator, please give your closing remarks and formally conclude the debate on {{.Topic}}."},
		}},
	}}
}

// LoadFormat reads a debate format from a YAML file.
func LoadFormat(path string) (Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Format{}, services.Wrap(services.ErrConfiguration, "", "load debate format", path, err)
	}
	var f Format
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Format{}, services.Wrap(services.ErrConfiguration, "", "load debate format", path, err)
	}
	if err := f.Validate(); err != nil {
		return Format{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// StepCount is the number of turns the format produces.
func (f Format) StepCount() int {
	total := 0
	for _, r := range f.Rounds {
		total += len(r.Steps)
	}
	return total
}

// Validate checks every step names a debate seat and every instruction parses.
func (f Format) Validate() error {
	if len(f.Rounds) == 0 {
		return services.Wrap(services.ErrValidation, "", "debate format", "at least one round required", nil)
	}
	for i, r := range f.Rounds {
		if len(r.Steps) == 0 {
			return services.Wrap(services.ErrValidation, "", "debate format", fmt.Sprintf("round %d (%s) has no steps", i+1, r.Name), nil)
		}
		for j, s := range r.Steps {
			switch s.Position {
			case PositionModerator, PositionProponent, PositionOpponent:
			default:
				return services.Wrap(services.ErrValidation, "", "debate format", fmt.Sprintf("round %d step %d: position %q is not a debate seat", i+1, j+1, s.Position), nil)
			}
			if _, err := parseInstruction(s.Instruction); err != nil {
				return services.Wrap(services.ErrValidation, "", "debate format", fmt.Sprintf("round %d step %d", i+1, j+1), err)
			}
		}
	}
	return nil
}

type instructionData struct {
	Topic     string
	Moderator string
	Proponent string
	Opponent  string
}

func parseInstruction(text string) (*template.Template, error) {
	return template.New("instruction").Option("missingkey=error").Parse(text)
}

func renderInstruction(text string, data instructionData) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	tmpl, err := parseInstruction(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
