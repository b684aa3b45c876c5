package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := "Schedule"
	if m.view == ViewActivity {
		title = "Activity detail"
	}

	subtitle := fmt.Sprintf("%d accounts · %d periods · balances through %q",
		len(m.schedule.Rows), len(m.schedule.Periods), m.schedule.BoundaryAccount)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render(title),
		m.theme.Subtitle.Render(subtitle),
		m.theme.BorderedBox.Render(m.table.View()),
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderStatus() string {
	var parts []string
	if account := m.SelectedAccount(); account != "" {
		kind := "activity"
		switch {
		case m.view == ViewActivity:
			kind = "debit, credit, balance and activity"
		case m.schedule.IsBalanceRow(m.table.Cursor()):
			kind = "ending balance"
		}
		parts = append(parts, m.theme.StatusInfo.Render(fmt.Sprintf("%s: %s", account, kind)))
	}
	if n := len(m.schedule.Warnings); n > 0 {
		parts = append(parts, m.theme.StatusWarn.Render(fmt.Sprintf("%d duplicate account warning(s)", n)))
	}
	return strings.Join(parts, "  ")
}
