package solver

import (
	"context"
	"math"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/optgrid/simplex-core/internal/objective"
	"github.com/optgrid/simplex-core/internal/transport/local"
)

// buildGroup returns one solver per member of a fresh in-process group,
// all configured identically.
func buildGroup(t *testing.T, size, dim int, objName string, target []float64, opts ...Option) []*Solver {
	t.Helper()
	g, err := local.NewGroup(size)
	if err != nil {
		t.Fatalf("NewGroup failed: %v", err)
	}
	solvers := make([]*Solver, size)
	for rank := 0; rank < size; rank++ {
		obj, err := objective.New(objName, target)
		if err != nil {
			t.Fatalf("objective.New failed: %v", err)
		}
		m, err := g.Member(rank)
		if err != nil {
			t.Fatalf("Member(%d) failed: %v", rank, err)
		}
		solvers[rank], err = New(obj, m, dim, opts...)
		if err != nil {
			t.Fatalf("New failed for rank %d: %v", rank, err)
		}
	}
	return solvers
}

// solveAll runs Solve concurrently on every member and collects the
// returned best vertices.
func solveAll(t *testing.T, solvers []*Solver, maxRounds int) [][]float64 {
	t.Helper()
	bests := make([][]float64, len(solvers))
	var eg errgroup.Group
	for rank, s := range solvers {
		rank, s := rank, s
		eg.Go(func() error {
			best, err := s.Solve(context.Background(), maxRounds)
			bests[rank] = best
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	return bests
}

// requireIdenticalReplicas compares every member's simplex against
// rank 0's, bit for bit.
func requireIdenticalReplicas(t *testing.T, solvers []*Solver) {
	t.Helper()
	ref := solvers[0].store
	for rank := 1; rank < len(solvers); rank++ {
		st := solvers[rank].store
		refOrder, order := ref.Ranking(), st.Ranking()
		for i := range refOrder {
			if refOrder[i] != order[i] {
				t.Fatalf("rank %d ranking diverged at position %d: %v vs %v", rank, i, order, refOrder)
			}
		}
		for i := 0; i < ref.Size(); i++ {
			if ref.ValueAt(i) != st.ValueAt(i) {
				t.Fatalf("rank %d value diverged at sorted rank %d: %v vs %v",
					rank, i, st.ValueAt(i), ref.ValueAt(i))
			}
			rv, v := ref.VertexAt(i), st.VertexAt(i)
			for j := range rv {
				if rv[j] != v[j] {
					t.Fatalf("rank %d vertex diverged at sorted rank %d coord %d: %v vs %v",
						rank, i, j, v[j], rv[j])
				}
			}
		}
	}
}

func TestSolveSphereFullyParallel(t *testing.T) {
	// three workers drive a 2-dimensional simplex: one worker per
	// non-best vertex plus the passing owner of the best vertex
	solvers := buildGroup(t, 3, 2, "sphere", nil,
		WithGuess([]float64{1, 1}), WithStep(1))

	bests := solveAll(t, solvers, 500)

	requireIdenticalReplicas(t, solvers)
	for rank, s := range solvers {
		stats := s.Stats()
		if stats.Best > 1e-6 {
			t.Errorf("rank %d did not converge: best %v after %d rounds", rank, stats.Best, stats.Rounds)
		}
		for j, x := range bests[rank] {
			if math.Abs(x) > 1e-3 {
				t.Errorf("rank %d best[%d] = %v, want within 1e-3 of 0", rank, j, x)
			}
		}
	}

	// the reduced evaluation total agrees across the group
	want := solvers[0].Stats().GroupEvaluations
	for rank, s := range solvers {
		if got := s.Stats().GroupEvaluations; got != want {
			t.Errorf("rank %d reduced total %d, rank 0 reduced %d", rank, got, want)
		}
	}
}

func TestReplicasIdenticalEveryRound(t *testing.T) {
	// replaying the same run with increasing round caps checks the
	// replicas after each individual round, shrink rounds included
	for rounds := 1; rounds <= 6; rounds++ {
		solvers := buildGroup(t, 2, 3, "rosenbrock", nil,
			WithGuess([]float64{-1.2, 1, 0.5}), WithStep(0.5),
			WithTolerance(&AbsoluteTolerance{Threshold: -1}))

		solveAll(t, solvers, rounds)
		requireIdenticalReplicas(t, solvers)

		for rank, s := range solvers {
			if got := s.Stats().Rounds; got != rounds {
				t.Fatalf("rank %d ran %d rounds, want %d", rank, got, rounds)
			}
		}
	}
}

func TestTransformPassesForBestVertexOwner(t *testing.T) {
	solvers := buildGroup(t, 3, 2, "sphere", nil,
		WithGuess([]float64{1, 1}), WithStep(1))

	var eg errgroup.Group
	for _, s := range solvers {
		s := s
		eg.Go(func() error {
			if err := s.evaluateAll(context.Background()); err != nil {
				return err
			}
			s.store.Resort()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("evaluateAll failed: %v", err)
	}

	// rank 2 is responsible for sorted rank 0, the best vertex
	passer := solvers[2]
	before := passer.Stats().Evaluations
	updated, err := passer.transform()
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("best-vertex owner reported an update")
	}
	if got := passer.Stats().Evaluations; got != before {
		t.Errorf("best-vertex owner evaluated the objective: %d -> %d", before, got)
	}
}

func TestCentroidAtFullParallelismExcludesOwnVertex(t *testing.T) {
	// guess (1,1) with step 1 builds (1,1), (2,1), (1,2) with values
	// 2, 5, 5; the worst-slot tie keeps (2,1) at sorted rank 1
	solvers := buildGroup(t, 3, 2, "sphere", nil,
		WithGuess([]float64{1, 1}), WithStep(1))

	var eg errgroup.Group
	for _, s := range solvers {
		s := s
		eg.Go(func() error {
			if err := s.evaluateAll(context.Background()); err != nil {
				return err
			}
			s.store.Resort()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("evaluateAll failed: %v", err)
	}

	// rank 0 owns sorted rank 2 and averages sorted ranks 0 and 1
	m := solvers[0].centroid()
	if m[0] != 1.5 || m[1] != 1 {
		t.Errorf("rank 0 centroid = %v, want (1.5, 1)", m)
	}
	// rank 1 owns sorted rank 1 and averages sorted ranks 0 and 2
	m = solvers[1].centroid()
	if m[0] != 1 || m[1] != 1.5 {
		t.Errorf("rank 1 centroid = %v, want (1, 1.5)", m)
	}
}

func TestParallelMatchesSerialOnShiftedParabola(t *testing.T) {
	serial := buildGroup(t, 1, 1, "shifted_sphere", []float64{3},
		WithGuess([]float64{5}), WithStep(1))
	parallel := buildGroup(t, 2, 1, "shifted_sphere", []float64{3},
		WithGuess([]float64{5}), WithStep(1))

	solveAll(t, serial, 200)
	bests := solveAll(t, parallel, 200)

	requireIdenticalReplicas(t, parallel)
	for rank, best := range bests {
		if math.Abs(best[0]-3) > 1e-3 {
			t.Errorf("rank %d best = %v, want within 1e-3 of 3", rank, best[0])
		}
	}
	if serial[0].Stats().Best > 1e-6 {
		t.Errorf("serial run did not converge: %v", serial[0].Stats().Best)
	}
}
