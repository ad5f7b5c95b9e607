package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Options configures the terminal player.
type Options struct {
	Theme  string
	Logger *logrus.Logger
}

// Run boots the TUI program and blocks until it exits.
func Run(ctx context.Context, nav Navigator, opts Options) error {
	if nav == nil {
		return eris.New("navigator is required")
	}

	m := newModel(ctx, nav, opts.Theme, opts.Logger)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return eris.Wrap(err, "running terminal player")
	}
	return nil
}
