package main

import (
	"context"

	"github.com/charmbracelet/huh"
)

// huhPrompter collects operator input for the interactive agent through a
// huh form.
type huhPrompter struct{}

func (p *huhPrompter) Prompt(_ context.Context, message string) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(message).
		Value(&value)
	if err := huh.NewForm(huh.NewGroup(inp)).WithShowHelp(true).Run(); err != nil {
		return "", err
	}
	return value, nil
}

// promptTask asks for the task description when none was passed on the
// command line.
func promptTask() (string, error) {
	var task string
	inp := huh.NewText().
		Title("What do you want the agent to do?").
		Value(&task)
	if err := huh.NewForm(huh.NewGroup(inp)).WithShowHelp(true).Run(); err != nil {
		return "", err
	}
	return task, nil
}
