package preprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrAllMissing means a numeric column has no values to compute a mean from.
	ErrAllMissing = errors.New("numeric column has no non-missing values")
	// ErrNonFinite means a numeric column contains +Inf or -Inf.
	ErrNonFinite = errors.New("numeric column contains infinite values")
	// ErrLabelMissing means the label column has missing entries.
	ErrLabelMissing = errors.New("label column has missing values")
	// ErrDegenerateLabel means the label does not split the rows into usable groups.
	ErrDegenerateLabel = errors.New("label needs at least two classes")
)

// StepError records which step failed, and on which column when known.
type StepError struct {
	Step   Step
	Column string
	Err    error
}

func (e *StepError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s step failed on column %q: %v", e.Step, e.Column, e.Err)
	}
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
