package trialbalance

import (
	"fmt"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitColumn(t *testing.T) {
	tests := []struct {
		column    string
		wantLabel string
		wantField string
		wantOK    bool
	}{
		{column: "Jan 2024 Debit", wantLabel: "Jan 2024", wantField: "Debit", wantOK: true},
		{column: "Jan 2024 Credit", wantLabel: "Jan 2024", wantField: "Credit", wantOK: true},
		{column: "  Q1 credit ", wantLabel: "Q1", wantField: "Credit", wantOK: true},
		{column: "Account"},
		{column: "Debit"},
		{column: "Jan 2024Debit"},
		{column: "Jan 2024 Ending Balance"},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			label, field, ok := SplitColumn(tt.column)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestDiscoverPeriods(t *testing.T) {
	periods, err := DiscoverPeriods([]string{
		"Account",
		"Jan 2024 Debit", "Jan 2024 Credit",
		"Feb 2024 Credit", "Feb 2024 Debit",
		"Jan 2024 Debit",
		"Notes",
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Period{
		{Label: "Jan 2024", Index: 0},
		{Label: "Feb 2024", Index: 1},
	}, periods)
}

func TestDiscoverPeriods_PreservesOrderForAnyCount(t *testing.T) {
	for _, n := range []int{1, 2, 7, 24} {
		t.Run(fmt.Sprintf("%d periods", n), func(t *testing.T) {
			columns := []string{"Account"}
			var want []string
			// Labels deliberately not in calendar order.
			for i := n; i > 0; i-- {
				label := fmt.Sprintf("P%02d", i)
				want = append(want, label)
				columns = append(columns, label+" Debit", label+" Credit")
			}

			periods, err := DiscoverPeriods(columns)
			require.NoError(t, err)
			assert.Equal(t, want, model.PeriodLabels(periods))
			for i, p := range periods {
				assert.Equal(t, i, p.Index)
			}
		})
	}
}

func TestDiscoverPeriods_NoPeriods(t *testing.T) {
	_, err := DiscoverPeriods([]string{"Account", "Memo"})
	assert.ErrorIs(t, err, ErrMalformedHeader)
}
