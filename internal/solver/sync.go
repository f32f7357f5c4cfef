package solver

import (
	"context"
	"fmt"

	"github.com/optgrid/simplex-core/pkg/utils"
)

// merge restores a consistent simplex after at least one worker
// updated its vertex. Every worker contributes its (possibly
// unchanged) assigned vertex and value to a fixed-size gather, and the
// P contributions are spliced into the P worst sorted slots in
// worker-rank order. Unchanged contributions splice in harmlessly, so
// no tracking of who actually changed is needed.
func (s *Solver) merge(ctx context.Context) error {
	dim := s.store.Dim()
	size := s.tr.Size()
	cp := dim - s.tr.Rank()

	payload := make([]float64, dim+1)
	copy(payload, s.store.VertexAt(cp))
	payload[dim] = s.store.ValueAt(cp)

	all, err := s.tr.AllGather(ctx, payload)
	if err != nil {
		return fmt.Errorf("merge gather failed at round %d: %w", s.round, err)
	}
	if len(all) != size*(dim+1) {
		return fmt.Errorf("merge gather returned %d values, want %d", len(all), size*(dim+1))
	}

	base := s.store.Size() - size
	for i := 0; i < size; i++ {
		part := all[i*(dim+1) : (i+1)*(dim+1)]
		copy(s.store.VertexAt(base+i), part[:dim])
		s.store.SetValueAt(base+i, part[dim])
	}
	return nil
}

// shrink pulls every non-best vertex toward the best one:
// vertex <- sigma*best + (1-sigma)*vertex. It runs identically on
// every replica; the caller re-evaluates the whole simplex afterwards
// since all cached values are stale.
func (s *Solver) shrink() {
	best := s.store.Best()
	for rank := 1; rank <= s.store.Dim(); rank++ {
		v := s.store.VertexAt(rank)
		utils.Axpy(v, s.coef.Sigma, best, 1-s.coef.Sigma, v)
	}
}
