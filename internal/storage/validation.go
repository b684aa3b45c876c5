// Package storage provides the data persistence layer for reshape run history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidRun    = errors.New("invalid run")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrShapeMismatch = errors.New("schedule row does not match its periods")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks the run metadata and that every schedule row has one value per period.
func validateRun(run *model.Run, schedule *model.Schedule) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if schedule == nil {
		return fmt.Errorf("%w: schedule", ErrNilParameter)
	}
	if run.SourceFile == "" {
		return fmt.Errorf("%w: missing source file", ErrInvalidRun)
	}
	if schedule.BoundaryAccount == "" {
		return fmt.Errorf("%w: missing boundary account", ErrInvalidRun)
	}
	for i, row := range schedule.Rows {
		if len(row.Values) != len(schedule.Periods) {
			return fmt.Errorf("%w: row %d has %d values for %d periods", ErrShapeMismatch, i, len(row.Values), len(schedule.Periods))
		}
	}
	return nil
}
