package trialbalance

import (
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// exportRows builds a raw trial balance the way the accounting export lays it out:
// title lines, a blank line, the period group row, the Debit/Credit field row, then data.
func exportRows(periods []string, data ...[]string) *model.RawTable {
	group := []string{""}
	field := []string{""}
	for _, p := range periods {
		group = append(group, p, "")
		field = append(field, "Debit", "Credit")
	}

	rows := [][]string{
		{"Mountain Accounting LLC"},
		{"Trial Balance"},
		{"January - February, 2024"},
		{},
		group,
		field,
	}
	rows = append(rows, data...)
	return &model.RawTable{Rows: rows}
}

func exampleExport() *model.RawTable {
	return exportRows([]string{"Jan 2024", "Feb 2024"},
		[]string{"Cash", "100.00", "", "150.00", ""},
		[]string{"Retained Earnings", "", "500.00", "", "500.00"},
		[]string{"Revenue", "", "1,000.00", "", "1,200.00"},
		[]string{"TOTAL", "100.00", "1,500.00", "150.00", "1,700.00"},
	)
}
