// Package tui is an interactive viewer for reshaped trial balance schedules.
package tui

import (
	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// View represents the current view mode.
type View int

// View modes.
const (
	ViewSchedule View = iota
	ViewActivity
)

const (
	accountWidth = 32
	amountWidth  = 14
	// chrome is the number of lines around the table: title, subtitle, status and help.
	chrome = 6
)

// Model holds the viewer state.
type Model struct {
	schedule *model.Schedule
	activity *model.ActivityTable
	theme    themes.Theme
	keys     KeyMap
	help     help.Model
	table    table.Model
	view     View
	width    int
	height   int
	quitting bool
}

// NewModel builds a viewer over schedule. activity may be nil, in which case the
// activity view is unavailable.
func NewModel(schedule *model.Schedule, activity *model.ActivityTable, theme themes.Theme) Model {
	m := Model{
		schedule: schedule,
		activity: activity,
		theme:    theme,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		height:   24,
	}

	styles := table.DefaultStyles()
	styles.Header = theme.Header
	styles.Cell = theme.Cell
	styles.Selected = theme.Selected

	m.table = table.New(
		table.WithFocused(true),
		table.WithStyles(styles),
		table.WithHeight(m.tableHeight()),
	)
	m.loadView()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(m.tableHeight())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.ToggleView):
			m.toggleView()
			return m, nil
		case key.Matches(msg, m.keys.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			m.table.SetHeight(m.tableHeight())
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// CurrentView returns the active view mode.
func (m Model) CurrentView() View {
	return m.view
}

// SelectedAccount returns the account on the highlighted row.
func (m Model) SelectedAccount() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func (m *Model) toggleView() {
	if m.activity == nil {
		return
	}
	if m.view == ViewSchedule {
		m.view = ViewActivity
	} else {
		m.view = ViewSchedule
	}
	m.loadView()
}

// loadView swaps the table contents. Rows are cleared first because the table
// renders rows against the current columns.
func (m *Model) loadView() {
	var (
		headers []string
		rows    []table.Row
	)

	switch m.view {
	case ViewActivity:
		headers = m.activity.Columns()
		for _, r := range m.activity.Rows {
			rows = append(rows, amountRow(r.Account, r.Values()))
		}
	default:
		headers = m.schedule.Columns()
		for _, r := range m.schedule.Rows {
			rows = append(rows, amountRow(r.Account, r.Values))
		}
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := amountWidth
		if i == 0 {
			width = accountWidth
		}
		columns[i] = table.Column{Title: h, Width: max(width, len(h))}
	}

	m.table.SetRows(nil)
	m.table.SetColumns(columns)
	m.table.SetRows(rows)
}

func amountRow(account string, values []decimal.Decimal) table.Row {
	row := make(table.Row, 0, 1+len(values))
	row = append(row, account)
	for _, v := range values {
		row = append(row, cli.FormatAmount(v))
	}
	return row
}

func (m Model) tableHeight() int {
	reserved := chrome
	if m.help.ShowAll {
		reserved += 3
	}
	return max(m.height-reserved, 3)
}
