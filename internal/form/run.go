package form

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the form until the user quits.
func Run(ctx context.Context, initial Values, generate GenerateFunc) error {
	if generate == nil {
		return fmt.Errorf("form generate func is required")
	}
	p := tea.NewProgram(New(ctx, initial, generate), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
