package mutprox

import "fmt"

// Policy selects the distribution model used by Mutual Proximity.
type Policy string

const (
	// PolicyEmpirical counts, over all points, how often a third point is
	// farther from both endpoints. Exact but O(n^3).
	PolicyEmpirical Policy = "empiric"
	// PolicyJointGaussian models each pair of rows as a bivariate normal.
	PolicyJointGaussian Policy = "gauss"
	// PolicyGaussian models each column as an independent normal (fastest).
	PolicyGaussian Policy = "gaussi"
	// PolicyGamma models each column as an independent Gamma distribution.
	PolicyGamma Policy = "gammai"
)

// ParsePolicy maps a policy name to a Policy. Long names such as
// "independent-gaussian" are accepted too.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", string(PolicyEmpirical), "empirical":
		return PolicyEmpirical, nil
	case string(PolicyJointGaussian), "joint-gaussian":
		return PolicyJointGaussian, nil
	case string(PolicyGaussian), "independent-gaussian":
		return PolicyGaussian, nil
	case string(PolicyGamma), "independent-gamma":
		return PolicyGamma, nil
	default:
		return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
	}
}

// kernel is one Mutual Proximity policy: parameters are estimated once, then
// rescale is called concurrently for pairs (i, j), i < j.
type kernel interface {
	// check reports whether the policy supports src with the given mask.
	check(src source, mask *Mask) error
	estimate(src source, mask *Mask, est *estimator) error
	rescale(src source, i, j int, s *scratch) float64
}

// scratch holds per-worker buffers.
type scratch struct {
	bufI, bufJ []float64
	rowI       []float64
	cachedI    int
	varI       float64
	haveVarI   bool
}

func newScratch(n int) *scratch {
	return &scratch{
		bufI:    make([]float64, n),
		bufJ:    make([]float64, n),
		cachedI: -1,
	}
}

// rows returns rows i and j of src; row i is cached across calls.
func (s *scratch) rows(src source, i, j int) (ri, rj []float64) {
	if s.cachedI != i {
		s.rowI = src.row(i, s.bufI)
		s.cachedI = i
		s.haveVarI = false
	}
	return s.rowI, src.row(j, s.bufJ)
}

func newKernel(cfg Config) (kernel, error) {
	switch cfg.Policy {
	case PolicyEmpirical:
		return &empiricalKernel{similarity: cfg.Similarity}, nil
	case PolicyJointGaussian:
		return &jointGaussianKernel{similarity: cfg.Similarity, log: cfg.Logger, metrics: cfg.Metrics}, nil
	case PolicyGaussian:
		return &gaussianKernel{similarity: cfg.Similarity}, nil
	case PolicyGamma:
		return &gammaKernel{similarity: cfg.Similarity}, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, cfg.Policy)
	}
}

// combine merges the marginal probabilities of an independent model.
func combine(p1, p2 float64, similarity bool) float64 {
	if similarity {
		return p1 * p2
	}
	return 1 - (1-p1)*(1-p2)
}
