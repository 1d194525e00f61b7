// Package tui is the interactive list and detail pages.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run blocks until the user quits. Every page controller is closed on return.
func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()

	m := newAppModel(ctx, opts)
	defer func() {
		for _, c := range opts.Pages {
			c.Close()
		}
	}()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
