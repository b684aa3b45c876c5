package trialbalance

import (
	"errors"
	"fmt"
)

// Pipeline errors. Every error returned by this package wraps one of these in a StageError.
var (
	ErrMalformedHeader         = errors.New("malformed header")
	ErrBoundaryAccountNotFound = errors.New("boundary account not found")
	ErrInvalidAmount           = errors.New("invalid amount")
)

// Pipeline stages named in StageError.
const (
	StageNormalize = "normalize"
	StageReshape   = "reshape"
)

// StageError identifies the pipeline stage that failed and, where there is one,
// the offending input value.
type StageError struct {
	Err   error
	Stage string
	Value string
}

func (e *StageError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %v: %q", e.Stage, e.Err, e.Value)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func headerError(format string, args ...any) error {
	return &StageError{
		Stage: StageNormalize,
		Err:   fmt.Errorf("%w: "+format, append([]any{ErrMalformedHeader}, args...)...),
	}
}

// StageOf returns the stage recorded in err, or "" when err did not come from the pipeline.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
