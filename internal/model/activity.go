package model

import "github.com/shopspring/decimal"

// Figures are the per-period values of an activity row.
// Activity is zero and meaningless for the first period.
type Figures struct {
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	EndingBalance decimal.Decimal
	Activity      decimal.Decimal
}

// ActivityRow is a ledger row extended with derived figures.
type ActivityRow struct {
	Account string
	Figures []Figures
}

// ActivityTable is a LedgerTable extended with ending balance and activity per period.
type ActivityTable struct {
	Periods []Period
	Rows    []ActivityRow
}

// Columns returns Account, then per period Debit, Credit, Ending Balance and,
// after the first period, Activity.
func (t *ActivityTable) Columns() []string {
	cols := make([]string, 0, 1+4*len(t.Periods))
	cols = append(cols, ColumnAccount)
	for i, p := range t.Periods {
		cols = append(cols,
			ColumnName(p.Label, FieldDebit),
			ColumnName(p.Label, FieldCredit),
			ColumnName(p.Label, FieldEndingBalance),
		)
		if i > 0 {
			cols = append(cols, ColumnName(p.Label, FieldActivity))
		}
	}
	return cols
}

// Values flattens a row in Columns order, excluding the account.
func (r *ActivityRow) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, 4*len(r.Figures))
	for i, f := range r.Figures {
		values = append(values, f.Debit, f.Credit, f.EndingBalance)
		if i > 0 {
			values = append(values, f.Activity)
		}
	}
	return values
}
