package mutprox

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// gammaKernel assumes the values of each column follow an independent Gamma
// distribution with shape a[c] and scale b[c]. Undefined parameters are NaN
// and yield NaN output.
type gammaKernel struct {
	similarity bool
	a, b       []float64
}

func (k *gammaKernel) check(source, *Mask) error { return nil }

func (k *gammaKernel) estimate(src source, mask *Mask, est *estimator) error {
	var stats columnStats
	if sp, ok := src.(*sparseSource); ok {
		stats = sparseMoments(sp, mask, true)
	} else {
		stats = est.moments(src, mask)
	}
	k.a, k.b = gammaParams(stats)
	return nil
}

func (k *gammaKernel) rescale(src source, i, j int, _ *scratch) float64 {
	dij, dji := src.at(i, j), src.at(j, i)
	if src.isSparse() && (dij == 0 || dji == 0) {
		return 0
	}
	p1 := gammaCDF(dij, k.a[i], k.b[i])
	p2 := gammaCDF(dji, k.a[j], k.b[j])
	return combine(p1, p2, k.similarity)
}

// gammaCDF is the regularized lower incomplete gamma P(a, x/b). Negative x
// counts as zero.
func gammaCDF(x, a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsNaN(x) {
		return math.NaN()
	}
	if x <= 0 {
		return 0
	}
	if a == 0 {
		return 1
	}
	return distuv.Gamma{Alpha: a, Beta: 1 / b}.CDF(x)
}
