package solver

import (
	"context"
	"fmt"
)

// partition returns the contiguous block [begin, end) of sorted
// positions the given rank evaluates: base block size (total/size),
// with the first total%size ranks taking one extra vertex.
func partition(total, size, rank int) (begin, end int) {
	base := total / size
	rest := total % size
	if rank < rest {
		begin = (base + 1) * rank
		end = begin + base + 1
	} else {
		begin = base*rank + rest
		end = begin + base
	}
	return begin, end
}

// evaluateAll recomputes the objective for every vertex, with the work
// block-partitioned across the group. Values are produced in sorted
// order and routed back to raw slots through the ranking permutation,
// leaving every worker with the full, identical value array.
func (s *Solver) evaluateAll(ctx context.Context) error {
	n := s.store.Size()
	begin, end := partition(n, s.tr.Size(), s.tr.Rank())

	chunk := make([]float64, 0, end-begin)
	for i := begin; i < end; i++ {
		y, err := s.eval(s.store.VertexAt(i))
		if err != nil {
			return err
		}
		chunk = append(chunk, y)
	}

	all, err := s.tr.AllGatherV(ctx, chunk)
	if err != nil {
		return fmt.Errorf("evaluation gather failed at round %d: %w", s.round, err)
	}
	if len(all) != n {
		return fmt.Errorf("evaluation gather returned %d values for %d vertices", len(all), n)
	}
	for i, y := range all {
		s.store.SetValueAt(i, y)
	}
	return nil
}
