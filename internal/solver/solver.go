// Package solver implements a distributed-memory parallel variant of
// the Nelder-Mead simplex method. A fixed group of P workers each
// holds a full replica of the simplex and advances it in lockstep: per
// round every worker transforms the one vertex it is responsible for,
// a group reduction decides between merging the updates and a
// redundant shrink, and the replicas end every round bit-identical.
package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/optgrid/simplex-core/internal/objective"
	"github.com/optgrid/simplex-core/internal/simplex"
	"github.com/optgrid/simplex-core/internal/transport"
	"github.com/optgrid/simplex-core/pkg/logger"
	"github.com/optgrid/simplex-core/pkg/utils"
)

// Coefficients are the four Nelder-Mead transformation scalars,
// constant for the solver's lifetime.
type Coefficients struct {
	Rho   float64 // reflection
	Xi    float64 // expansion
	Gamma float64 // contraction
	Sigma float64 // shrink
}

// DefaultCoefficients returns the standard Nelder-Mead values.
func DefaultCoefficients() Coefficients {
	return Coefficients{Rho: 1, Xi: 2, Gamma: 0.5, Sigma: 0.5}
}

// Solver is one worker's replica of the distributed minimization. It
// is bound to a transport group at construction and must be driven by
// a single goroutine.
type Solver struct {
	store *simplex.Store
	obj   objective.Function
	tr    transport.Transport
	coef  Coefficients
	tol   Tolerance
	log   *slog.Logger

	guess []float64
	step  float64

	round      int
	evals      int
	totalEvals int
	best       float64
}

// Stats are the diagnostic counters of a finished run.
type Stats struct {
	Rounds           int
	Evaluations      int // objective calls made by this worker
	GroupEvaluations int // group-wide total, from the final reduction
	Best             float64
}

// Option configures a Solver.
type Option func(*Solver)

// WithGuess sets the initial point. The default is all ones.
func WithGuess(guess []float64) Option {
	return func(s *Solver) {
		s.guess = guess
	}
}

// WithStep sets the per-coordinate perturbation building the initial
// simplex. The default is 1.
func WithStep(step float64) Option {
	return func(s *Solver) {
		s.step = step
	}
}

// WithCoefficients overrides the transformation scalars.
func WithCoefficients(c Coefficients) Option {
	return func(s *Solver) {
		s.coef = c
	}
}

// WithTolerance overrides the termination policy.
func WithTolerance(t Tolerance) Option {
	return func(s *Solver) {
		s.tol = t
	}
}

// WithLogger overrides the logger used for progress and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		s.log = l
	}
}

// New creates a worker's solver for a d-dimensional problem on an
// established transport group. The group must satisfy
// 1 <= size <= d+1; every worker of the group must construct its
// solver with identical parameters.
func New(obj objective.Function, tr transport.Transport, dim int, opts ...Option) (*Solver, error) {
	if obj == nil {
		return nil, fmt.Errorf("objective function is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("transport is required")
	}

	s := &Solver{
		obj:  obj,
		tr:   tr,
		coef: DefaultCoefficients(),
		step: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tol == nil {
		s.tol = DefaultTolerance()
	}
	if s.log == nil {
		s.log = logger.Default
	}

	size := tr.Size()
	if size < 1 || size > dim+1 {
		return nil, &GroupSizeError{Workers: size, Dimension: dim}
	}
	if rank := tr.Rank(); rank < 0 || rank >= size {
		return nil, fmt.Errorf("rank %d outside group of size %d", rank, size)
	}
	if s.coef.Rho <= 0 || s.coef.Xi <= 0 || s.coef.Gamma <= 0 {
		return nil, fmt.Errorf("coefficients rho, xi, and gamma must be positive, got %+v", s.coef)
	}
	if s.coef.Sigma <= 0 || s.coef.Sigma >= 1 {
		return nil, fmt.Errorf("shrink coefficient sigma must be in (0, 1), got %v", s.coef.Sigma)
	}
	if !utils.AllFinite(s.guess) {
		return nil, fmt.Errorf("initial guess must be finite, got %v", s.guess)
	}

	store, err := simplex.New(dim, s.guess, s.step)
	if err != nil {
		return nil, fmt.Errorf("failed to build simplex: %w", err)
	}
	s.store = store
	return s, nil
}

// progressInterval is how many rounds pass between debug progress logs.
const progressInterval = 100

// Solve runs synchronized rounds until the tolerance policy is
// satisfied or maxRounds is reached (maxRounds <= 0 means unbounded).
// It returns the best vertex as a view into the solver's storage,
// valid for the solver's lifetime. Every group member must call Solve
// with the same maxRounds.
func (s *Solver) Solve(ctx context.Context, maxRounds int) ([]float64, error) {
	s.round = 0

	if err := s.evaluateAll(ctx); err != nil {
		return nil, err
	}
	s.store.Resort()
	s.best = s.store.BestValue()

	for !s.tol.Converged(s.best, s.store.Diameter()) && (maxRounds <= 0 || s.round < maxRounds) {
		updated, err := s.transform()
		if err != nil {
			return nil, err
		}

		globalUpdated, err := s.tr.ReduceSum(ctx, updated)
		if err != nil {
			return nil, fmt.Errorf("update reduction failed at round %d: %w", s.round, err)
		}

		if globalUpdated == 0 {
			// all replicas are identical here, so every worker shrinks
			// the same simplex without communicating
			s.shrink()
			if err := s.evaluateAll(ctx); err != nil {
				return nil, err
			}
		} else if err := s.merge(ctx); err != nil {
			return nil, err
		}

		s.store.Resort()
		s.best = s.store.BestValue()
		s.round++

		if s.tr.Rank() == 0 && s.round%progressInterval == 0 {
			s.log.Debug("round complete", "round", s.round, "best", s.best)
		}
	}

	total, err := s.tr.ReduceSum(ctx, s.evals)
	if err != nil {
		return nil, fmt.Errorf("evaluation-count reduction failed: %w", err)
	}
	s.totalEvals = total
	if s.tr.Rank() == 0 {
		s.log.Info("solve finished",
			"rounds", s.round,
			"best", s.best,
			"total_evaluations", total,
			"tolerance", s.tol.Name())
	}

	return s.store.Best(), nil
}

// Best returns the current best vertex as a view into the solver's
// storage.
func (s *Solver) Best() []float64 {
	return s.store.Best()
}

// BestValue returns the best objective value seen so far.
func (s *Solver) BestValue() float64 {
	return s.best
}

// Stats returns the run's diagnostic counters. GroupEvaluations is
// only meaningful after Solve has returned.
func (s *Solver) Stats() Stats {
	return Stats{
		Rounds:           s.round,
		Evaluations:      s.evals,
		GroupEvaluations: s.totalEvals,
		Best:             s.best,
	}
}

// eval invokes the objective once, counting the call and rejecting
// non-finite outputs.
func (s *Solver) eval(x []float64) (float64, error) {
	y := s.obj.Evaluate(x)
	s.evals++
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, &InstabilityError{
			Round: s.round,
			Point: append([]float64(nil), x...),
			Value: y,
		}
	}
	return y, nil
}
