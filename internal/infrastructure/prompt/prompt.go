package prompt

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
)

// Prompter wraps the interactive questions the CLI asks. Every method
// blocks on the terminal, so callers must only use it in interactive mode.
type Prompter struct{}

func New() *Prompter {
	return &Prompter{}
}

func (p *Prompter) Input(message, defaultValue string) (string, error) {
	var answer string
	prompt := &survey.Input{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return answer, nil
}

func (p *Prompter) InputInt(message string, defaultValue int) (int, error) {
	var answer string
	prompt := &survey.Input{Message: message, Default: strconv.Itoa(defaultValue)}
	numeric := func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("expected a string answer")
		}
		if _, err := strconv.Atoi(s); err != nil {
			return fmt.Errorf("enter a whole number")
		}
		return nil
	}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(numeric)); err != nil {
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	return strconv.Atoi(answer)
}

func (p *Prompter) Password(message string) (string, error) {
	var answer string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return answer, nil
}

func (p *Prompter) Select(message string, options []string, defaultValue string) (string, error) {
	var answer string
	prompt := &survey.Select{Message: message, Options: options, Default: defaultValue}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return answer, nil
}

func (p *Prompter) Confirm(message string, defaultValue bool) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return answer, nil
}

// Summary prints a titled key/value block between prompts.
func (p *Prompter) Summary(title string, rows [][2]string) {
	color.New(color.Bold).Printf("\n%s\n", title)
	key := color.New(color.FgCyan)
	for _, row := range rows {
		key.Printf("  %-14s", row[0])
		fmt.Println(row[1])
	}
	fmt.Println()
}
