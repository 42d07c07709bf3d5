package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig asks for a text, date-time or file-path answer.
type InputConfig struct {
	Message string
	Default string
	Help    string
}

// ConfirmConfig asks for a checkbox answer. Answering re-runs the rules the
// checkbox triggers.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig lists the labels of a choice field. DefaultIndex is used by
// Select and Defaults by MultiSelect; both index into Options.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int
	Help         string
	PageSize     int
}

// TextAreaConfig asks for free-form notes such as incident or injury details.
type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// PromptDriver is the terminal a care form is filled in on. Tests swap in a
// scripted driver.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

func newSurveyDriver() PromptDriver {
	return &surveyDriver{out: os.Stdout}
}

// ask runs one survey prompt, stopping early when the fill was cancelled.
func (d *surveyDriver) ask(ctx context.Context, prompt survey.Prompt, answer any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := survey.AskOne(prompt, answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return ErrAborted
		}
		return fmt.Errorf("tui: %s: %w", promptMessage(prompt), err)
	}
	return nil
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}, &answer)
	return answer, err
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := d.ask(ctx, &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}, &answer)
	return answer, err
}

func (d *surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: cfg.PageSize}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		prompt.Default = cfg.Options[cfg.DefaultIndex]
	}
	var answer survey.OptionAnswer
	if err := d.ask(ctx, prompt, &answer); err != nil {
		return 0, err
	}
	return answer.Index, nil
}

// MultiSelect returns the indexes of the ticked options in list order. It
// drives checklist fields.
func (d *surveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	prompt := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help, PageSize: cfg.PageSize}
	var ticked []string
	for _, idx := range cfg.Defaults {
		if idx >= 0 && idx < len(cfg.Options) {
			ticked = append(ticked, cfg.Options[idx])
		}
	}
	if len(ticked) > 0 {
		prompt.Default = ticked
	}
	var answers []survey.OptionAnswer
	if err := d.ask(ctx, prompt, &answers); err != nil {
		return nil, err
	}
	indexes := make([]int, len(answers))
	for i, answer := range answers {
		indexes[i] = answer.Index
	}
	return indexes, nil
}

func (d *surveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	var answer string
	err := d.ask(ctx, &survey.Multiline{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}, &answer)
	return answer, err
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func promptMessage(prompt survey.Prompt) string {
	switch p := prompt.(type) {
	case *survey.Input:
		return p.Message
	case *survey.Confirm:
		return p.Message
	case *survey.Select:
		return p.Message
	case *survey.MultiSelect:
		return p.Message
	case *survey.Multiline:
		return p.Message
	default:
		return "prompt"
	}
}
