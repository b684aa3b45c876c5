package trialbalance

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// FindBoundary returns the index of the first account equal to boundary.
func FindBoundary(accounts []string, boundary string) (int, error) {
	for i, account := range accounts {
		if account == boundary {
			return i, nil
		}
	}
	return -1, &StageError{Stage: StageReshape, Value: boundary, Err: ErrBoundaryAccountNotFound}
}

// DuplicateAccounts reports every non-blank account name that appears on more
// than one row, in order of first appearance.
func DuplicateAccounts(accounts []string) []model.Warning {
	rows := make(map[string][]int)
	var order []string
	for i, account := range accounts {
		if account == "" {
			continue
		}
		if _, ok := rows[account]; !ok {
			order = append(order, account)
		}
		rows[account] = append(rows[account], i)
	}

	var warnings []model.Warning
	for _, account := range order {
		if len(rows[account]) < 2 {
			continue
		}
		warnings = append(warnings, model.Warning{
			Kind:    model.WarningDuplicateAccount,
			Account: account,
			Rows:    rows[account],
			Message: fmt.Sprintf("account %q appears on %d rows; the first is used for lookups", account, len(rows[account])),
		})
	}
	return warnings
}

// Reshape computes activity for the table and selects, per period, each row's
// reported value: the first period always reports ending balance; later periods
// report ending balance for rows up to and including the boundary account and
// activity for every row below it.
func Reshape(table *model.LedgerTable, boundary string) (*model.Schedule, error) {
	if table == nil || len(table.Periods) == 0 {
		return nil, &StageError{Stage: StageReshape, Err: fmt.Errorf("%w: table has no periods", ErrMalformedHeader)}
	}
	return SelectValues(ComputeActivity(table), boundary)
}

// SelectValues builds the schedule from an already computed activity table.
func SelectValues(activity *model.ActivityTable, boundary string) (*model.Schedule, error) {
	boundary = strings.TrimSpace(boundary)

	accounts := make([]string, len(activity.Rows))
	for i, row := range activity.Rows {
		accounts[i] = row.Account
	}

	k, err := FindBoundary(accounts, boundary)
	if err != nil {
		return nil, err
	}

	warnings := DuplicateAccounts(accounts)
	for _, w := range warnings {
		slog.Warn("Duplicate account in trial balance",
			"account", w.Account,
			"rows", w.Rows)
	}

	schedule := &model.Schedule{
		BoundaryAccount: boundary,
		BoundaryIndex:   k,
		Periods:         append([]model.Period(nil), activity.Periods...),
		Rows:            make([]model.ScheduleRow, len(activity.Rows)),
		Warnings:        warnings,
	}

	for i, row := range activity.Rows {
		values := make([]decimal.Decimal, len(row.Figures))
		for p, f := range row.Figures {
			if p == 0 || i <= k {
				values[p] = f.EndingBalance
			} else {
				values[p] = f.Activity
			}
		}
		schedule.Rows[i] = model.ScheduleRow{Account: row.Account, Values: values}
	}

	return schedule, nil
}
