package model

import "github.com/shopspring/decimal"

// WarningKind classifies non-fatal findings.
type WarningKind string

// WarningDuplicateAccount flags an account name that appears on more than one row.
const WarningDuplicateAccount WarningKind = "duplicate_account"

// Warning is a non-fatal finding reported alongside a schedule.
type Warning struct {
	Kind    WarningKind
	Account string
	Message string
	Rows    []int
}

// ScheduleRow holds one value per period for an account.
type ScheduleRow struct {
	Account string
	Values  []decimal.Decimal
}

// Schedule is the month-over-month output: rows up to and including the boundary
// account report ending balances, rows below it report period activity.
type Schedule struct {
	BoundaryAccount string
	Periods         []Period
	Rows            []ScheduleRow
	Warnings        []Warning
	BoundaryIndex   int
}

// Columns returns Account followed by one column per period label.
func (s *Schedule) Columns() []string {
	cols := make([]string, 0, 1+len(s.Periods))
	cols = append(cols, ColumnAccount)
	return append(cols, PeriodLabels(s.Periods)...)
}

// IsBalanceRow reports whether the row at index reports ending balances in every period.
func (s *Schedule) IsBalanceRow(index int) bool {
	return index <= s.BoundaryIndex
}
