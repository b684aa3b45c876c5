package model

import "time"

// Run records one reshape invocation kept in the history database.
type Run struct {
	CreatedAt       time.Time
	ID              string
	SourceFile      string
	BoundaryAccount string
	BoundaryIndex   int
	PeriodCount     int
	RowCount        int
	WarningCount    int
}
