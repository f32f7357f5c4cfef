package solver

import "math"

// Tolerance decides when the solve loop stops.
type Tolerance interface {
	// Converged reports whether the run should stop given the current
	// best value and simplex diameter. Called once per round.
	Converged(best, diameter float64) bool

	// Name returns the name of the tolerance policy.
	Name() string
}

// DefaultThreshold is the historical absolute cutoff.
const DefaultThreshold = 1e-6

// DefaultTolerance returns the absolute policy with the historical
// 1e-6 threshold.
func DefaultTolerance() Tolerance {
	return &AbsoluteTolerance{Threshold: DefaultThreshold}
}

// NewTolerance creates a tolerance policy from a policy name.
func NewTolerance(policy string, value float64) (Tolerance, error) {
	switch policy {
	case "absolute":
		return &AbsoluteTolerance{Threshold: value}, nil
	case "relative":
		return &RelativeTolerance{Threshold: value}, nil
	case "diameter":
		return &DiameterTolerance{Threshold: value}, nil
	default:
		return nil, &UnknownToleranceError{Policy: policy}
	}
}

// AbsoluteTolerance stops once the best value drops to the threshold.
// It assumes the objective's true minimum is at or near zero.
type AbsoluteTolerance struct {
	Threshold float64
}

func (p *AbsoluteTolerance) Name() string {
	return "absolute"
}

func (p *AbsoluteTolerance) Converged(best, _ float64) bool {
	return best <= p.Threshold
}

// DiameterTolerance stops once every vertex lies within the threshold
// distance of the best vertex.
type DiameterTolerance struct {
	Threshold float64
}

func (p *DiameterTolerance) Name() string {
	return "diameter"
}

func (p *DiameterTolerance) Converged(_, diameter float64) bool {
	return diameter <= p.Threshold
}

// RelativeTolerance stops once a round fails to improve the best value
// by more than Threshold relative to its magnitude. Stateful; use one
// instance per solver.
type RelativeTolerance struct {
	Threshold float64

	prev float64
	seen bool
}

func (p *RelativeTolerance) Name() string {
	return "relative"
}

func (p *RelativeTolerance) Converged(best, _ float64) bool {
	if !p.seen {
		p.seen = true
		p.prev = best
		return false
	}
	improvement := p.prev - best
	limit := p.Threshold * math.Max(1, math.Abs(p.prev))
	p.prev = best
	return improvement >= 0 && improvement <= limit
}

// UnknownToleranceError indicates an unknown tolerance policy name
type UnknownToleranceError struct {
	Policy string
}

func (e *UnknownToleranceError) Error() string {
	return "unknown tolerance policy: " + e.Policy
}
