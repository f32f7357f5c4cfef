package solver

import (
	"errors"
	"fmt"
)

// ErrNumericalInstability marks a non-finite objective output. NaN
// compares false against everything, so letting one into the
// acceptance logic would corrupt it silently; the solver surfaces it
// instead.
var ErrNumericalInstability = errors.New("non-finite objective value")

// InstabilityError reports the round and point at which the objective
// produced a non-finite value.
type InstabilityError struct {
	Round int
	Point []float64
	Value float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("numerical instability at round %d: objective returned %v at %v", e.Round, e.Value, e.Point)
}

func (e *InstabilityError) Unwrap() error {
	return ErrNumericalInstability
}

// GroupSizeError reports a worker group that cannot drive a simplex of
// the given dimension: the group must satisfy 1 <= workers <= dimension+1.
type GroupSizeError struct {
	Workers   int
	Dimension int
}

func (e *GroupSizeError) Error() string {
	return fmt.Sprintf("group size %d invalid for dimension %d: need 1 <= workers <= dimension+1", e.Workers, e.Dimension)
}
