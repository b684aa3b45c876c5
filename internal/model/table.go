// Package model defines the tables and records that flow between the books pipeline stages.
package model

import "strings"

// Column and field names shared by every table shape.
const (
	ColumnAccount       = "Account"
	FieldDebit          = "Debit"
	FieldCredit         = "Credit"
	FieldEndingBalance  = "Ending Balance"
	FieldActivity       = "Activity"
	DefaultSentinel     = "TOTAL"
	DefaultBoundary     = "Retained Earnings"
	defaultColumnJoiner = " "
)

// RawTable is an unprocessed grid of cell text as read from a spreadsheet export.
// Rows may be ragged; a missing trailing cell reads as blank.
type RawTable struct {
	Rows [][]string
}

// Cell returns the trimmed text at row, col or "" when out of range.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Width returns the length of the widest row.
func (t *RawTable) Width() int {
	width := 0
	for _, r := range t.Rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

// IsBlankRow reports whether every cell in the row is empty after trimming.
func (t *RawTable) IsBlankRow(row int) bool {
	if row < 0 || row >= len(t.Rows) {
		return true
	}
	for _, c := range t.Rows[row] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ColumnName joins a period label and a field into a column header.
func ColumnName(period, field string) string {
	return strings.TrimSpace(period + defaultColumnJoiner + field)
}
