package mutprox

import "fmt"

// empiricalKernel counts the points that are farther (dissimilarity) or
// closer-or-equal (similarity) to both i and j than d = D[i,j].
//
// On sparse input an unstored entry is missing rather than zero: columns
// where either row is missing are not counted, and the count is divided by
// max(nnz_i, nnz_j) instead of n. Sparse and dense results therefore differ
// for the same values.
type empiricalKernel struct {
	similarity bool
}

func (k *empiricalKernel) check(_ source, mask *Mask) error {
	if !mask.All() {
		return fmt.Errorf("%w: policy %q does not support train/test splits", ErrUnsupportedConfig, PolicyEmpirical)
	}
	return nil
}

func (k *empiricalKernel) estimate(source, *Mask, *estimator) error { return nil }

func (k *empiricalKernel) rescale(src source, i, j int, s *scratch) float64 {
	d := src.at(i, j)
	ri, rj := s.rows(src, i, j)

	count := 0
	denom := len(ri)
	if src.isSparse() {
		denom = max(src.rowNNZ(i), src.rowNNZ(j))
		for c, a := range ri {
			b := rj[c]
			if a == 0 || b == 0 {
				continue
			}
			if k.hit(a, b, d) {
				count++
			}
		}
	} else {
		for c, a := range ri {
			if k.hit(a, rj[c], d) {
				count++
			}
		}
	}

	if denom == 0 {
		return 0
	}
	frac := float64(count) / float64(denom)
	if k.similarity {
		return frac
	}
	return 1 - frac
}

func (k *empiricalKernel) hit(a, b, d float64) bool {
	if k.similarity {
		return a <= d && b <= d
	}
	return a > d && b > d
}
