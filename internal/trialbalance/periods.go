package trialbalance

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

var fieldTokens = []string{model.FieldDebit, model.FieldCredit}

// canonicalField maps a header token to Debit or Credit, ignoring case.
func canonicalField(token string) (string, bool) {
	token = strings.TrimSpace(token)
	for _, field := range fieldTokens {
		if strings.EqualFold(token, field) {
			return field, true
		}
	}
	return "", false
}

// SplitColumn splits "<label> Debit" or "<label> Credit" into its period label and
// canonical field. ok is false for any other column, including Account.
func SplitColumn(column string) (label, field string, ok bool) {
	column = strings.TrimSpace(column)
	for _, f := range fieldTokens {
		if len(column) <= len(f) {
			continue
		}
		suffix := column[len(column)-len(f):]
		if !strings.EqualFold(suffix, f) {
			continue
		}
		rest := column[:len(column)-len(f)]
		if !strings.HasSuffix(rest, " ") {
			continue
		}
		label = strings.TrimSpace(rest)
		if label == "" {
			continue
		}
		return label, f, true
	}
	return "", "", false
}

// DiscoverPeriods derives the ordered period list from column headers. A period is
// appended the first time its label is seen; it needs at least one match to succeed.
func DiscoverPeriods(columns []string) ([]model.Period, error) {
	seen := make(map[string]bool)
	var periods []model.Period

	for _, column := range columns {
		label, _, ok := SplitColumn(column)
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		periods = append(periods, model.Period{Label: label, Index: len(periods)})
	}

	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: no Debit/Credit columns found", ErrMalformedHeader)
	}
	return periods, nil
}

// columnPair is the position of one period's debit and credit columns.
type columnPair struct {
	debit  int
	credit int
}

// layoutColumns resolves each period's debit and credit column index and rejects
// duplicated or incomplete periods.
func layoutColumns(columns []string, periods []model.Period) ([]columnPair, error) {
	index := make(map[string]int, len(periods))
	for _, p := range periods {
		index[p.Label] = p.Index
	}

	layout := make([]columnPair, len(periods))
	for i := range layout {
		layout[i] = columnPair{debit: -1, credit: -1}
	}

	for c, column := range columns {
		label, field, ok := SplitColumn(column)
		if !ok {
			continue
		}
		pair := &layout[index[label]]
		target := &pair.debit
		if field == model.FieldCredit {
			target = &pair.credit
		}
		if *target >= 0 {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedHeader, column)
		}
		*target = c
	}

	for i, pair := range layout {
		if pair.debit < 0 {
			return nil, fmt.Errorf("%w: period %q has no %s column", ErrMalformedHeader, periods[i].Label, model.FieldDebit)
		}
		if pair.credit < 0 {
			return nil, fmt.Errorf("%w: period %q has no %s column", ErrMalformedHeader, periods[i].Label, model.FieldCredit)
		}
	}
	return layout, nil
}
