package model

import "github.com/shopspring/decimal"

// Period is one reporting interval discovered from the column headers.
type Period struct {
	Label string
	Index int
}

// Entry holds the debit and credit reported for an account in one period.
type Entry struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// LedgerRow is one account line of a normalized trial balance.
// Entries is aligned with the owning table's Periods.
type LedgerRow struct {
	Account string
	Entries []Entry
}

// LedgerTable is a normalized trial balance: one row per account, a debit and a
// credit column per period, periods in left-to-right input order.
type LedgerTable struct {
	Periods []Period
	Rows    []LedgerRow
}

// Columns returns the column headers in table order.
func (t *LedgerTable) Columns() []string {
	cols := make([]string, 0, 1+2*len(t.Periods))
	cols = append(cols, ColumnAccount)
	for _, p := range t.Periods {
		cols = append(cols, ColumnName(p.Label, FieldDebit), ColumnName(p.Label, FieldCredit))
	}
	return cols
}

// Accounts returns the account names in row order.
func (t *LedgerTable) Accounts() []string {
	accounts := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		accounts[i] = r.Account
	}
	return accounts
}

// PeriodLabels returns the period labels in discovery order.
func PeriodLabels(periods []Period) []string {
	labels := make([]string, len(periods))
	for i, p := range periods {
		labels[i] = p.Label
	}
	return labels
}
