package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errAborted = errors.New("aborted by operator")

// prompter asks the operator for missing inputs. With auto set it never
// prompts: inputs must come from flags, confirmations pass, and selects take
// the first option.
type prompter struct {
	in   io.Reader
	out  io.Writer
	auto bool
}

func newPrompter(cmd *cobra.Command, auto bool) *prompter {
	return &prompter{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), auto: auto}
}

func (p *prompter) run(fields ...huh.Field) error {
	form := huh.NewForm(huh.NewGroup(fields...)).
		WithInput(p.in).
		WithOutput(p.out)

	// Accessible mode reads plain lines, which keeps piped input working.
	if f, ok := p.in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errAborted
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// text returns value when set, otherwise asks for it.
func (p *prompter) text(title, flagName, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		return value, nil
	}
	if p.auto {
		return "", fmt.Errorf("--%s is required with --yes", flagName)
	}
	err := p.run(huh.NewInput().
		Title(title).
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(title))
			}
			return nil
		}))
	return strings.TrimSpace(value), err
}

func (p *prompter) confirm(question string) (bool, error) {
	if p.auto {
		return true, nil
	}
	var confirmed bool
	err := p.run(huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed))
	return confirmed, err
}

func (p *prompter) choose(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: no options to choose from", strings.ToLower(title))
	}
	if p.auto || len(options) == 1 {
		return options[0], nil
	}
	choice := options[0]
	err := p.run(huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&choice))
	return choice, err
}
