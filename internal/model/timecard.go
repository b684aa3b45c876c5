package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Non-billable client buckets assigned to entries without a client.
const (
	ClientAdmin = "Admin"
	ClientPTO   = "PTO"
)

// NonBillableClients lists the clients whose hours never count as billable.
var NonBillableClients = []string{ClientAdmin, ClientPTO}

// TimeEntry is one line of an employee timecard export.
type TimeEntry struct {
	Date     time.Time
	FullName string
	Client   string
	Hours    decimal.Decimal
	Month    int
	Year     int
	PTO      bool
	Billable bool
}

// RevenueLine is one (item, client) cell of a profit-and-loss-by-customer report.
type RevenueLine struct {
	Item   string
	Client string
	Value  decimal.Decimal
	Month  int
	Year   int
}

// JoinedEntry pairs a time entry with one revenue line for the same client and month.
type JoinedEntry struct {
	TimeEntry
	Item  string
	Value decimal.Decimal
}
