package mutprox

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// columnStats holds per-column moments over the train rows.
type columnStats struct {
	mean     []float64
	variance []float64
}

// sd returns the per-column standard deviations.
func (s columnStats) sd() []float64 {
	out := make([]float64, len(s.variance))
	for i, v := range s.variance {
		out[i] = math.Sqrt(v)
	}
	return out
}

// estimator reduces per-column moments over the train rows of a source.
type estimator struct {
	strategy   Estimation
	sampleSize int
	rng        *rand.Rand
	log        Logger
}

// rows returns the train rows the reduction reads.
func (e *estimator) rows(mask *Mask) []int {
	if e.strategy == EstimationSampled || (e.strategy == EstimationColumnwise && e.sampleSize > 0) {
		size := e.sampleSize
		if size <= 0 {
			size = DefaultSampleSize
		}
		return mask.Sample(size, e.rng)
	}
	return mask.Rows()
}

// moments computes the per-column mean and sample variance (ddof 1) of a
// dense or mapped source.
func (e *estimator) moments(src source, mask *Mask) columnStats {
	n := src.size()
	rows := e.rows(mask)
	e.log.Info("estimating distribution parameters",
		"strategy", string(e.strategy),
		"rows", len(rows),
		"n", n,
	)

	stats := columnStats{mean: make([]float64, n), variance: make([]float64, n)}
	col := make([]float64, len(rows))

	if e.strategy == EstimationColumnwise {
		for c := 0; c < n; c++ {
			for k, r := range rows {
				col[k] = src.at(r, c)
			}
			stats.mean[c], stats.variance[c] = stat.MeanVariance(col, nil)
		}
		return stats
	}

	if len(rows) == 0 {
		for c := range stats.mean {
			stats.mean[c], stats.variance[c] = math.NaN(), math.NaN()
		}
		return stats
	}
	sub := mat.NewDense(len(rows), n, nil)
	buf := make([]float64, n)
	for k, r := range rows {
		sub.SetRow(k, src.row(r, buf))
	}
	for c := 0; c < n; c++ {
		mat.Col(col, c, sub)
		stats.mean[c], stats.variance[c] = stat.MeanVariance(col, nil)
	}
	return stats
}

// sparseMoments computes per-column moments of a sparse source over the train
// rows, with population variance (ddof 0). With storedOnly the implicit zeros
// are missing values; otherwise they count as zeros.
func sparseMoments(src *sparseSource, mask *Mask, storedOnly bool) columnStats {
	n := src.size()
	stats := columnStats{mean: make([]float64, n), variance: make([]float64, n)}

	if storedOnly {
		cols := make([][]float64, n)
		for _, r := range mask.Rows() {
			src.c.DoRowNonZero(r, func(_, j int, v float64) {
				if v != 0 {
					cols[j] = append(cols[j], v)
				}
			})
		}
		for c, vals := range cols {
			if len(vals) == 0 {
				stats.mean[c], stats.variance[c] = math.NaN(), math.NaN()
				continue
			}
			stats.mean[c], stats.variance[c] = stat.PopMeanVariance(vals, nil)
		}
		return stats
	}

	count := float64(mask.Count())
	sumsq := make([]float64, n)
	for _, r := range mask.Rows() {
		src.c.DoRowNonZero(r, func(_, j int, v float64) {
			stats.mean[j] += v
			sumsq[j] += v * v
		})
	}
	for c := range stats.mean {
		stats.mean[c] /= count
		stats.variance[c] = sumsq[c]/count - stats.mean[c]*stats.mean[c]
	}
	return stats
}

// gammaParams converts moments into Gamma shape A = mean^2/var and scale
// B = var/mean. A < 0 and B <= 0 are undefined and become NaN.
func gammaParams(s columnStats) (a, b []float64) {
	a = make([]float64, len(s.mean))
	b = make([]float64, len(s.mean))
	for i := range s.mean {
		mu, v := s.mean[i], s.variance[i]
		a[i] = mu * mu / v
		b[i] = v / mu
		if !(a[i] >= 0) {
			a[i] = math.NaN()
		}
		if !(b[i] > 0) {
			b[i] = math.NaN()
		}
	}
	return a, b
}
