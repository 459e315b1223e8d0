package mutprox

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// epsilon is the float64 machine epsilon, the spacing of 1.0.
const epsilon = 2.220446049250313e-16

const (
	// bvnTail bounds the standardized integration range; the normal density
	// beyond it is below 1e-22.
	bvnTail = 10.0
	// bvnNodes is the Gauss-Legendre order per integration piece.
	bvnNodes = 64
)

// bivariateNormalCDF returns P(X1 <= x1, X2 <= x2) for a bivariate normal
// with means (m1, m2) and covariance [[v1, c], [c, v2]].
//
// The probability is integrated in one dimension over the standardized first
// variable:
//
//	P = ∫_{-inf}^{z1} φ(t) Φ((z2 - ρt) / sqrt(1-ρ²)) dt
//
// The result is NaN when the covariance is not positive definite or any
// input is not finite.
func bivariateNormalCDF(x1, x2, m1, m2, v1, v2, c float64) float64 {
	det := v1*v2 - c*c
	if !(v1 > 0) || !(v2 > 0) || !(det > 0) || math.IsInf(det, 0) {
		return math.NaN()
	}
	s1, s2 := math.Sqrt(v1), math.Sqrt(v2)
	z1 := (x1 - m1) / s1
	z2 := (x2 - m2) / s2
	if math.IsNaN(z1) || math.IsNaN(z2) {
		return math.NaN()
	}
	rho := c / (s1 * s2)
	r := math.Sqrt(1 - rho*rho)
	if !(r > 0) {
		return math.NaN()
	}

	f := func(t float64) float64 {
		return distuv.UnitNormal.Prob(t) * distuv.UnitNormal.CDF((z2-rho*t)/r)
	}

	lo, hi := -bvnTail, math.Min(z1, bvnTail)
	if hi <= lo {
		return 0
	}

	// The inner CDF turns into a step at t = z2/ρ as |ρ| approaches 1;
	// integrating each side separately keeps the quadrature accurate.
	var p float64
	if kink := z2 / rho; rho != 0 && kink > lo && kink < hi {
		p = quad.Fixed(f, lo, kink, bvnNodes, quad.Legendre{}, 0) +
			quad.Fixed(f, kink, hi, bvnNodes, quad.Legendre{}, 0)
	} else {
		p = quad.Fixed(f, lo, hi, bvnNodes, quad.Legendre{}, 0)
	}
	// Quadrature rounding can step just outside [0, 1].
	return math.Max(0, math.Min(1, p))
}
