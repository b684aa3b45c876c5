package trialbalance

import (
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// ComputeActivity derives ending balance (debit - credit) for every period and
// activity (change in ending balance from the previous period) for every period
// after the first. The input table is not modified.
func ComputeActivity(table *model.LedgerTable) *model.ActivityTable {
	out := &model.ActivityTable{
		Periods: append([]model.Period(nil), table.Periods...),
		Rows:    make([]model.ActivityRow, len(table.Rows)),
	}

	for i, row := range table.Rows {
		figures := make([]model.Figures, len(row.Entries))
		previous := decimal.Zero
		for p, e := range row.Entries {
			ending := e.Debit.Sub(e.Credit)
			f := model.Figures{
				Debit:         e.Debit,
				Credit:        e.Credit,
				EndingBalance: ending,
			}
			if p > 0 {
				f.Activity = ending.Sub(previous)
			}
			figures[p] = f
			previous = ending
		}
		out.Rows[i] = model.ActivityRow{Account: row.Account, Figures: figures}
	}

	return out
}
