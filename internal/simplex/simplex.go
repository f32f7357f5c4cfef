// Package simplex holds the d+1 vertex arena shared by every worker
// replica, together with the value cache and the ranking permutation
// that provides a sorted view without ever moving vertex storage.
package simplex

import (
	"fmt"
	"sort"

	"github.com/optgrid/simplex-core/pkg/utils"
)

// maxDimension bounds the vertex arena so a bad dimension fails the
// constructor instead of exhausting memory on a (d+1)*d allocation.
const maxDimension = 1 << 16

// Store owns the vertex coordinates, their cached objective values,
// and the sort-by-value permutation. Vertices are stored contiguously
// and mutated in place; the arena is never resized after construction.
type Store struct {
	dim   int
	verts []float64 // (dim+1) * dim, vertex i at [i*dim, (i+1)*dim)
	vals  []float64 // indexed by raw vertex slot
	order []int     // order[sortedRank] = raw slot
}

// New builds the initial simplex: vertex 0 equals the guess and vertex
// i (1..dim) equals the guess with coordinate i-1 perturbed by step.
// A nil guess defaults to all ones with a step of 1.
func New(dim int, guess []float64, step float64) (*Store, error) {
	if dim < 1 {
		return nil, fmt.Errorf("simplex dimension must be at least 1, got %d", dim)
	}
	if dim > maxDimension {
		return nil, fmt.Errorf("simplex dimension %d exceeds the supported maximum %d", dim, maxDimension)
	}
	if guess == nil {
		guess = make([]float64, dim)
		utils.Fill(guess, 1)
		if step == 0 {
			step = 1
		}
	}
	if len(guess) != dim {
		return nil, fmt.Errorf("guess has %d coordinates, dimension is %d", len(guess), dim)
	}
	if step <= 0 {
		return nil, fmt.Errorf("perturbation step must be positive, got %v", step)
	}

	s := &Store{
		dim:   dim,
		verts: make([]float64, (dim+1)*dim),
		vals:  make([]float64, dim+1),
		order: make([]int, dim+1),
	}
	for i := 0; i <= dim; i++ {
		v := s.verts[i*dim : (i+1)*dim]
		copy(v, guess)
		if i > 0 {
			v[i-1] += step
		}
		s.order[i] = i
	}
	return s, nil
}

// Dim returns the dimension d.
func (s *Store) Dim() int {
	return s.dim
}

// Size returns the vertex count d+1.
func (s *Store) Size() int {
	return s.dim + 1
}

// Slot returns the raw storage slot holding the vertex at the given
// sorted rank.
func (s *Store) Slot(rank int) int {
	return s.order[rank]
}

// VertexAt returns a mutable view of the vertex at the given sorted
// rank. The view stays valid for the lifetime of the store, but its
// rank assignment only until the next Resort.
func (s *Store) VertexAt(rank int) []float64 {
	slot := s.order[rank]
	return s.verts[slot*s.dim : (slot+1)*s.dim]
}

// ValueAt returns the cached objective value of the vertex at the
// given sorted rank.
func (s *Store) ValueAt(rank int) float64 {
	return s.vals[s.order[rank]]
}

// SetValueAt caches the objective value for the vertex at the given
// sorted rank, stored under its raw slot.
func (s *Store) SetValueAt(rank int, v float64) {
	s.vals[s.order[rank]] = v
}

// Resort recomputes the ranking permutation so values ascend in sorted
// order. The sort is stable: equal values keep their previous relative
// order, which makes the permutation identical across replicas
// resorting identical data from an identical prior permutation.
func (s *Store) Resort() {
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.vals[s.order[i]] < s.vals[s.order[j]]
	})
}

// Best returns the vertex at sorted rank 0.
func (s *Store) Best() []float64 {
	return s.VertexAt(0)
}

// BestValue returns the value at sorted rank 0.
func (s *Store) BestValue() float64 {
	return s.ValueAt(0)
}

// Ranking returns a copy of the current permutation, mapping sorted
// rank to raw slot.
func (s *Store) Ranking() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Diameter returns the largest distance from any vertex to the best
// vertex, serving diameter-based termination policies.
func (s *Store) Diameter() float64 {
	best := s.Best()
	max := 0.0
	for rank := 1; rank <= s.dim; rank++ {
		if d := utils.Dist(s.VertexAt(rank), best); d > max {
			max = d
		}
	}
	return max
}
