package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// Table is a header plus rows of preformatted cells.
type Table struct {
	Header []string
	Rows   [][]string
	// Highlight is the row index rendered in BoundaryRowStyle, or -1.
	Highlight int
}

// NewTable returns a table with no highlighted row.
func NewTable(header ...string) *Table {
	return &Table{Header: header, Highlight: -1}
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render draws the table with a rounded border. Columns after the first are
// right aligned.
func (t *Table) Render() string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		Headers(t.Header...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle.Padding(0, 1)
			case col == 0:
				style = cellStyle
			default:
				style = numberStyle
			}
			if row == t.Highlight {
				style = style.Inherit(BoundaryRowStyle)
			}
			return style
		})

	return tbl.Render()
}

// FormatAmount renders d with thousands separators and two decimals. Negative
// amounts are parenthesized the way accountants write them.
func FormatAmount(d decimal.Decimal) string {
	negative := d.IsNegative()
	text := d.Abs().StringFixed(2)

	whole, frac, _ := strings.Cut(text, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)

	if negative {
		return "(" + b.String() + ")"
	}
	return b.String()
}
