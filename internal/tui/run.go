package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the schedule until the user quits or ctx is canceled.
func Run(ctx context.Context, schedule *model.Schedule, activity *model.ActivityTable, theme themes.Theme) error {
	if schedule == nil {
		return fmt.Errorf("schedule is required")
	}

	p := tea.NewProgram(
		NewModel(schedule, activity, theme),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
