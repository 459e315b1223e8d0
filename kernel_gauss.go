package mutprox

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// gaussianKernel assumes the values of each column follow an independent
// normal distribution N(mean[c], sd[c]).
type gaussianKernel struct {
	similarity bool
	mean, sd   []float64
}

func (k *gaussianKernel) check(source, *Mask) error { return nil }

func (k *gaussianKernel) estimate(src source, mask *Mask, est *estimator) error {
	var stats columnStats
	if sp, ok := src.(*sparseSource); ok {
		stats = sparseMoments(sp, mask, false)
	} else {
		stats = est.moments(src, mask)
	}
	k.mean, k.sd = stats.mean, stats.sd()
	return nil
}

func (k *gaussianKernel) rescale(src source, i, j int, _ *scratch) float64 {
	dij, dji := src.at(i, j), src.at(j, i)
	if src.isSparse() && (dij == 0 || dji == 0) {
		return 0
	}
	p1 := normalCDF(dij, k.mean[i], k.sd[i])
	p2 := normalCDF(dji, k.mean[j], k.sd[j])
	return combine(p1, p2, k.similarity)
}

func normalCDF(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.CDF(x)
}

// maxInflations bounds the covariance inflation retries of the joint model.
const maxInflations = 30

// jointGaussianKernel models rows i and j jointly as a bivariate normal with
// means (mean[i], mean[j]) and the sample covariance of the two rows.
type jointGaussianKernel struct {
	similarity bool
	mean, sd   []float64
	log        Logger
	metrics    *Metrics
}

func (k *jointGaussianKernel) check(src source, _ *Mask) error {
	if src.isSparse() {
		return fmt.Errorf("%w: policy %q does not support sparse matrices", ErrUnsupportedConfig, PolicyJointGaussian)
	}
	return nil
}

func (k *jointGaussianKernel) estimate(src source, mask *Mask, est *estimator) error {
	stats := est.moments(src, mask)
	k.mean, k.sd = stats.mean, stats.sd()
	return nil
}

func (k *jointGaussianKernel) rescale(src source, i, j int, s *scratch) float64 {
	ri, rj := s.rows(src, i, j)
	if !s.haveVarI {
		s.varI = stat.Covariance(ri, ri, nil)
		s.haveVarI = true
	}
	vi := s.varI
	vj := stat.Covariance(rj, rj, nil)
	cij := stat.Covariance(ri, rj, nil)

	dij, dji := src.at(i, j), src.at(j, i)
	p12 := bivariateNormalCDF(dji, dij, k.mean[i], k.mean[j], vi, vj, cij)

	if math.IsNaN(p12) {
		step := 1e5 * epsilon
		added := 0.0
		for p := 0; math.IsNaN(p12) && p < maxInflations; p++ {
			inc := step * math.Pow10(p)
			vi += inc
			vj += inc
			added += inc
			p12 = bivariateNormalCDF(dji, dij, k.mean[i], k.mean[j], vi, vj, cij)
		}
		k.log.Warn("bivariate normal CDF is NaN, inflated covariance",
			"i", i,
			"j", j,
			"inflation", added,
			"finite", !math.IsNaN(p12),
		)
		k.metrics.covarianceInflated()
	}

	if k.similarity {
		return p12
	}
	p1 := normalCDF(dij, k.mean[i], k.sd[i])
	p2 := normalCDF(dij, k.mean[j], k.sd[j])
	// Rounding can push the sum just above 1; NaN passes through.
	return math.Min(1, p1+p2-p12)
}
