package trialbalance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_ExampleScenario(t *testing.T) {
	result, err := Process(exampleExport(), "Retained Earnings", Options{})
	require.NoError(t, err)

	schedule := result.Schedule
	assert.Equal(t, []string{"Account", "Jan 2024", "Feb 2024"}, schedule.Columns())
	assert.Equal(t, 1, schedule.BoundaryIndex)
	require.Len(t, schedule.Rows, 3)

	want := map[string][]string{
		"Cash":              {"100", "150"},
		"Retained Earnings": {"-500", "-500"},
		"Revenue":           {"-1000", "-200"},
	}
	for _, row := range schedule.Rows {
		require.Contains(t, want, row.Account)
		require.Len(t, row.Values, 2)
		for p, v := range row.Values {
			assertDecimal(t, want[row.Account][p], v, row.Account, p)
		}
	}
	assert.Empty(t, schedule.Warnings)
}

func TestComputeActivity_Columns(t *testing.T) {
	ledger, err := Normalize(exampleExport(), Options{})
	require.NoError(t, err)

	activity := ComputeActivity(ledger)
	assert.Equal(t, []string{
		"Account",
		"Jan 2024 Debit", "Jan 2024 Credit", "Jan 2024 Ending Balance",
		"Feb 2024 Debit", "Feb 2024 Credit", "Feb 2024 Ending Balance", "Feb 2024 Activity",
	}, activity.Columns())
	assert.Len(t, activity.Rows[0].Values(), len(activity.Columns())-1)
}

// ledgerFixture builds a ledger with rows*periods entries of varied amounts.
func ledgerFixture(rows, periods int) *model.LedgerTable {
	table := &model.LedgerTable{}
	for p := 0; p < periods; p++ {
		table.Periods = append(table.Periods, model.Period{Label: fmt.Sprintf("M%d", p+1), Index: p})
	}
	for r := 0; r < rows; r++ {
		row := model.LedgerRow{Account: fmt.Sprintf("Account %d", r)}
		for p := 0; p < periods; p++ {
			row.Entries = append(row.Entries, model.Entry{
				Debit:  decimal.New(int64((r+1)*(p+3)*37%1000), -2).Add(decimal.NewFromInt(int64(p * 10))),
				Credit: decimal.New(int64((r+2)*(p+1)*53%1000), -1),
			})
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func TestComputeActivity_ActivityIsChangeInEndingBalance(t *testing.T) {
	table := ledgerFixture(9, 6)
	activity := ComputeActivity(table)

	require.Len(t, activity.Rows, 9)
	for r, row := range activity.Rows {
		for p, f := range row.Figures {
			e := table.Rows[r].Entries[p]
			assert.True(t, f.EndingBalance.Equal(e.Debit.Sub(e.Credit)))
			if p == 0 {
				assert.True(t, f.Activity.IsZero())
				continue
			}
			assert.True(t, f.Activity.Equal(f.EndingBalance.Sub(row.Figures[p-1].EndingBalance)),
				"row %d period %d", r, p)
		}
	}
}

func TestReshape_BoundarySplit(t *testing.T) {
	table := ledgerFixture(6, 4)
	activity := ComputeActivity(table)

	for k := 0; k < len(table.Rows); k++ {
		t.Run(fmt.Sprintf("boundary at %d", k), func(t *testing.T) {
			schedule, err := Reshape(table, table.Rows[k].Account)
			require.NoError(t, err)
			assert.Equal(t, k, schedule.BoundaryIndex)

			for r, row := range schedule.Rows {
				assert.Equal(t, table.Rows[r].Account, row.Account)
				assert.Equal(t, r <= k, schedule.IsBalanceRow(r))
				for p, v := range row.Values {
					f := activity.Rows[r].Figures[p]
					if p == 0 || r <= k {
						assert.True(t, v.Equal(f.EndingBalance), "row %d period %d", r, p)
					} else {
						assert.True(t, v.Equal(f.Activity), "row %d period %d", r, p)
					}
				}
			}
		})
	}
}

func TestReshape_BoundaryNotFound(t *testing.T) {
	ledger, err := Normalize(exampleExport(), Options{})
	require.NoError(t, err)

	schedule, err := Reshape(ledger, "Retained Earnings (typo)")
	require.Error(t, err)
	assert.Nil(t, schedule)
	assert.True(t, errors.Is(err, ErrBoundaryAccountNotFound))

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageReshape, stageErr.Stage)
	assert.Equal(t, "Retained Earnings (typo)", stageErr.Value)
}

func TestReshape_NoPeriods(t *testing.T) {
	_, err := Reshape(&model.LedgerTable{}, "Cash")
	assert.ErrorIs(t, err, ErrMalformedHeader)
	assert.Equal(t, StageReshape, StageOf(err))
}

func TestReshape_DuplicateAccounts(t *testing.T) {
	raw := exportRows([]string{"Jan 2024", "Feb 2024"},
		[]string{"Cash", "10", "", "20", ""},
		[]string{"Equity", "", "5", "", "5"},
		[]string{"Sales", "", "100", "", "150"},
		[]string{"Equity", "", "1", "", "2"},
	)

	result, err := Process(raw, "Equity", Options{})
	require.NoError(t, err)

	schedule := result.Schedule
	assert.Equal(t, 1, schedule.BoundaryIndex, "first match wins")
	require.Len(t, schedule.Warnings, 1)
	assert.Equal(t, model.WarningDuplicateAccount, schedule.Warnings[0].Kind)
	assert.Equal(t, "Equity", schedule.Warnings[0].Account)
	assert.Equal(t, []int{1, 3}, schedule.Warnings[0].Rows)

	require.Len(t, schedule.Rows, 4)
	assertDecimal(t, "-50", schedule.Rows[2].Values[1])
	assertDecimal(t, "-1", schedule.Rows[3].Values[1])
}

func TestReshape_SinglePeriodReportsEndingBalances(t *testing.T) {
	table := ledgerFixture(3, 1)
	schedule, err := Reshape(table, "Account 0")
	require.NoError(t, err)

	assert.Equal(t, []string{"Account", "M1"}, schedule.Columns())
	for r, row := range schedule.Rows {
		e := table.Rows[r].Entries[0]
		assert.True(t, row.Values[0].Equal(e.Debit.Sub(e.Credit)))
	}
}

func TestReshape_DoesNotModifyInput(t *testing.T) {
	table := ledgerFixture(4, 3)
	before := ToRaw(table)

	_, err := Reshape(table, "Account 1")
	require.NoError(t, err)
	assert.Equal(t, before, ToRaw(table))
}

func TestProcess_PeriodOrderPreserved(t *testing.T) {
	months := []string{"Dec 2023", "Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024"}
	raw := exportRows(months,
		[]string{"Cash", "1", "", "2", "", "3", "", "4", "", "5", ""},
		[]string{"Retained Earnings", "", "", "", "", "", "", "", "", "", ""},
		[]string{"Revenue", "", "1", "", "3", "", "6", "", "10", "", "15"},
	)

	result, err := Process(raw, "Retained Earnings", Options{})
	require.NoError(t, err)
	assert.Equal(t, months, model.PeriodLabels(result.Schedule.Periods))
	assert.Equal(t, months, model.PeriodLabels(result.Ledger.Periods))

	revenue := result.Schedule.Rows[2]
	for p, want := range []string{"-1", "-2", "-3", "-4", "-5"} {
		assertDecimal(t, want, revenue.Values[p])
	}
}

func TestProcess_FailureReturnsNothing(t *testing.T) {
	result, err := Process(exampleExport(), "Missing", Options{})
	require.Error(t, err)
	assert.Nil(t, result)

	result, err = Process(&model.RawTable{Rows: [][]string{{"junk"}}}, "Cash", Options{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, StageNormalize, StageOf(err))
}

func TestDuplicateAccounts_IgnoresBlankNames(t *testing.T) {
	warnings := DuplicateAccounts([]string{"", "Cash", "", "Cash", "Cash", "AR"})
	require.Len(t, warnings, 1)
	assert.Equal(t, []int{1, 3, 4}, warnings[0].Rows)
	assert.Contains(t, warnings[0].Message, "3 rows")
}
