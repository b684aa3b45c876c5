package trialbalance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a report cell to a decimal. Blank cells and the accounting
// zero dash are zero; thousands separators, a currency sign on either side of
// the parentheses and parenthesised negatives are accepted. Exponent notation is not.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.NewReplacer(",", "", "$", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(text))
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
