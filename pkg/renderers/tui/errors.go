package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoDiscloser is returned when Render is called without a discloser.
	ErrNoDiscloser = errors.New("tui: discloser is required")
)
