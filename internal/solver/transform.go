package solver

import "github.com/optgrid/simplex-core/pkg/utils"

// transform runs one round of the per-worker decision tree against the
// vertex this worker is responsible for (sorted rank d - rank). It
// returns 1 when the stored vertex changed, 0 otherwise. No
// communication happens here: the decision is purely local.
func (s *Solver) transform() (int, error) {
	dim := s.store.Dim()
	cp := dim - s.tr.Rank()
	if cp == 0 {
		// only at full parallelism: the owner of the best vertex has
		// no predecessor to improve against and passes the round
		return 0, nil
	}

	m := s.centroid()
	v := s.store.VertexAt(cp)
	fv := s.store.ValueAt(cp)
	best := s.store.BestValue()
	prev := s.store.ValueAt(cp - 1)

	ar := make([]float64, dim)
	utils.Axpy(ar, 1+s.coef.Rho, m, -s.coef.Rho, v)
	fAR, err := s.eval(ar)
	if err != nil {
		return 0, err
	}

	switch {
	case best <= fAR && fAR <= prev:
		// accept reflection
		return s.accept(cp, ar, fAR), nil

	case fAR < best:
		ae := make([]float64, dim)
		utils.Axpy(ae, 1+s.coef.Rho*s.coef.Xi, m, -s.coef.Rho*s.coef.Xi, v)
		fAE, err := s.eval(ae)
		if err != nil {
			return 0, err
		}
		if fAE < fAR {
			// accept expansion
			return s.accept(cp, ae, fAE), nil
		}
		// eventual accept reflection
		return s.accept(cp, ar, fAR), nil

	case prev <= fAR && fAR < fv:
		ac := make([]float64, dim)
		utils.Axpy(ac, 1+s.coef.Rho*s.coef.Gamma, m, -s.coef.Rho*s.coef.Gamma, v)
		fAC, err := s.eval(ac)
		if err != nil {
			return 0, err
		}
		if fAC <= fAR {
			// accept outside contraction
			return s.accept(cp, ac, fAC), nil
		}
		// partial-shrink fallback: keep the reflection point when it
		// still improves on the assigned vertex
		if fAR < fv {
			return s.accept(cp, ar, fAR), nil
		}
		return 0, nil

	default:
		ac := make([]float64, dim)
		utils.Axpy(ac, 1-s.coef.Gamma, m, s.coef.Gamma, v)
		fAC, err := s.eval(ac)
		if err != nil {
			return 0, err
		}
		if fAC < fv {
			// accept inside contraction
			return s.accept(cp, ac, fAC), nil
		}
		if fAR < fv {
			return s.accept(cp, ar, fAR), nil
		}
		return 0, nil
	}
}

// accept overwrites the assigned vertex with the candidate and caches
// its value, but only when the candidate strictly improves on the
// stored value and the coordinates actually differ. A value-preserving
// candidate is rejected: on a degenerate simplex the reflection lands
// on an equal-valued point every round, and writing it would keep the
// update flag raised and starve the shrink forever. Fallback
// overwrites run through here too, so the merge distributes them like
// any other update and the replicas stay consistent.
func (s *Solver) accept(cp int, cand []float64, f float64) int {
	v := s.store.VertexAt(cp)
	if f >= s.store.ValueAt(cp) || utils.EqualVec(cand, v) {
		return 0
	}
	copy(v, cand)
	s.store.SetValueAt(cp, f)
	return 1
}

// centroid computes the coordinate-wise mean of the best d+1-P sorted
// vertices, the set no worker is assigned to. At full parallelism that
// set is empty, so each worker instead averages the d vertices it does
// not own, which reduces to the classical centroid when a single
// worker remains active.
func (s *Solver) centroid() []float64 {
	dim := s.store.Dim()
	count := s.store.Size() - s.tr.Size()

	m := make([]float64, dim)
	if count >= 1 {
		for rank := 0; rank < count; rank++ {
			v := s.store.VertexAt(rank)
			for j := range m {
				m[j] += v[j]
			}
		}
		for j := range m {
			m[j] /= float64(count)
		}
		return m
	}

	cp := dim - s.tr.Rank()
	for rank := 0; rank <= dim; rank++ {
		if rank == cp {
			continue
		}
		v := s.store.VertexAt(rank)
		for j := range m {
			m[j] += v[j]
		}
	}
	for j := range m {
		m[j] /= float64(dim)
	}
	return m
}
