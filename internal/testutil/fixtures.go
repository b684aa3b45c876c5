// Package testutil holds export fixtures shared by the command and server tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TrialBalanceCSV is a two period export with a title block and a TOTAL row.
// Retained Earnings is the last balance sheet account.
const TrialBalanceCSV = `Mountain Accounting LLC
Trial Balance
,Jan 2024,,Feb 2024,
,Debit,Credit,Debit,Credit
Cash,100.00,,150.00,
Retained Earnings,,500.00,,500.00
Revenue,,"1,000.00",,"1,200.00"
TOTAL,100.00,"1,500.00",150.00,"1,700.00"
`

// TimecardsCSV is a March 2024 timecard export. Blank clients are booked to Admin
// or, when flagged, PTO.
const TimecardsCSV = `Date,First name,Last name,Client,PTO,Duration
2024-03-04,Ada,Lovelace,High Country Community Health,FALSE,6
2024-03-04,Ada,Lovelace,,FALSE,2
2024-03-05,Ada,Lovelace,Summit Dental,FALSE,4
2024-03-05,Grace,Hopper,,TRUE,8
2024-03-06,Grace,Hopper,High Country Community Health,FALSE,3.5
`

// RevenueCSV is a March 2024 profit and loss by customer report with its header
// on the fifth row.
const RevenueCSV = `Mountain Accounting LLC
Profit and Loss by Customer
March 2024
,,,
,High Country Community Health,Summit Dental,TOTAL
Total Services Revenue,"12,000.00","3,500.00","15,500.00"
Net Operating Income,(250.00),"1,000.00",750.00
`

// WriteFixture writes content to name under dir and returns the path.
func WriteFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}
