package trialbalance

import (
	"log/slog"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Result holds every table produced by one pass of the pipeline.
type Result struct {
	Ledger   *model.LedgerTable
	Activity *model.ActivityTable
	Schedule *model.Schedule
}

// Process runs normalize then reshape. On failure no tables are returned.
func Process(raw *model.RawTable, boundary string, opts Options) (*Result, error) {
	ledger, err := Normalize(raw, opts)
	if err != nil {
		return nil, err
	}

	activity := ComputeActivity(ledger)
	schedule, err := SelectValues(activity, boundary)
	if err != nil {
		return nil, err
	}

	slog.Debug("Reshaped trial balance",
		"periods", len(schedule.Periods),
		"rows", len(schedule.Rows),
		"boundary", schedule.BoundaryAccount,
		"boundary_index", schedule.BoundaryIndex)

	return &Result{Ledger: ledger, Activity: activity, Schedule: schedule}, nil
}
