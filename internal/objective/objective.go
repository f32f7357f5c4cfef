// Package objective defines the black-box objective capability the
// solver minimizes, plus a small registry of benchmark functions.
package objective

// Function evaluates a point in the search space and returns its
// objective value. Lower values are better. Implementations must be
// pure and deterministic: the solver invokes them redundantly on
// several workers and on re-evaluation paths and relies on every call
// for the same point returning the same value.
type Function interface {
	// Evaluate computes the objective value at x. It must not retain
	// or mutate x.
	Evaluate(x []float64) float64

	// Name returns the name of the objective function.
	Name() string
}

// Type represents a builtin objective function
type Type string

const (
	// TypeSphere is the sum of squared coordinates
	TypeSphere Type = "sphere"
	// TypeShiftedSphere is the squared distance to a target point
	TypeShiftedSphere Type = "shifted_sphere"
	// TypeRosenbrock is the classic banana-valley benchmark
	TypeRosenbrock Type = "rosenbrock"
)

// New creates a builtin objective from a type string. The target is
// only consulted by objectives that need one.
func New(name string, target []float64) (Function, error) {
	switch Type(name) {
	case TypeSphere:
		return &Sphere{}, nil
	case TypeShiftedSphere:
		if len(target) == 0 {
			return nil, &InvalidTargetError{Objective: name, Reason: "target point is required"}
		}
		return &ShiftedSphere{Target: target}, nil
	case TypeRosenbrock:
		return &Rosenbrock{}, nil
	default:
		return nil, &UnknownObjectiveError{Objective: name}
	}
}

// Func adapts a plain function to the Function capability, allowing
// stateful or captured-context objectives.
type Func struct {
	FuncName string
	Fn       func(x []float64) float64
}

func (f *Func) Name() string {
	return f.FuncName
}

func (f *Func) Evaluate(x []float64) float64 {
	return f.Fn(x)
}

// Sphere minimizes the sum of squared coordinates; minimum 0 at the origin.
type Sphere struct{}

func (o *Sphere) Name() string {
	return string(TypeSphere)
}

func (o *Sphere) Evaluate(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// ShiftedSphere minimizes the squared distance to Target; minimum 0 at Target.
type ShiftedSphere struct {
	Target []float64
}

func (o *ShiftedSphere) Name() string {
	return string(TypeShiftedSphere)
}

func (o *ShiftedSphere) Evaluate(x []float64) float64 {
	sum := 0.0
	for i, v := range x {
		d := v - o.Target[i]
		sum += d * d
	}
	return sum
}

// Rosenbrock minimizes the Rosenbrock valley; minimum 0 at all ones.
// Requires at least two dimensions.
type Rosenbrock struct{}

func (o *Rosenbrock) Name() string {
	return string(TypeRosenbrock)
}

func (o *Rosenbrock) Evaluate(x []float64) float64 {
	sum := 0.0
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

// UnknownObjectiveError indicates an unknown objective name
type UnknownObjectiveError struct {
	Objective string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown objective: " + e.Objective
}

// InvalidTargetError indicates a missing or unusable target point
type InvalidTargetError struct {
	Objective string
	Reason    string
}

func (e *InvalidTargetError) Error() string {
	return "invalid target for objective " + e.Objective + ": " + e.Reason
}
