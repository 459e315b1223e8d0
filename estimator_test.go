package mutprox

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestEstimator(s Estimation, sampleSize int) *estimator {
	return &estimator{strategy: s, sampleSize: sampleSize, rng: rand.New(rand.NewPCG(7, 7)), log: NopLogger()}
}

func TestEstimator_MomentsHandComputed(t *testing.T) {
	d := mat.NewDense(3, 3, []float64{
		0, 1, 4,
		1, 0, 2,
		4, 2, 0,
	})
	stats := newTestEstimator(EstimationMemory, 0).moments(newDenseSource(d), AllRows(3))

	// column 0: {0, 1, 4} mean 5/3, sample variance 13/3
	assert.InDelta(t, 5.0/3, stats.mean[0], floatTol)
	assert.InDelta(t, 13.0/3, stats.variance[0], floatTol)
	// column 2: {4, 2, 0} mean 2, sample variance 4
	assert.InDelta(t, 2.0, stats.mean[2], floatTol)
	assert.InDelta(t, 4.0, stats.variance[2], floatTol)
	assert.InDelta(t, 2.0, stats.sd()[2], floatTol)
}

func TestEstimator_ColumnwiseMatchesMemory(t *testing.T) {
	d := randomSymmetric(25, 3)
	src := newDenseSource(d)
	mask, err := MaskFromTestSet(25, []int{0, 7, 19})
	require.NoError(t, err)

	mem := newTestEstimator(EstimationMemory, 0).moments(src, mask)
	col := newTestEstimator(EstimationColumnwise, 0).moments(src, mask)
	for c := 0; c < 25; c++ {
		assert.InDelta(t, mem.mean[c], col.mean[c], floatTol, "mean[%d]", c)
		assert.InDelta(t, mem.variance[c], col.variance[c], floatTol, "variance[%d]", c)
	}
}

func TestEstimator_SampledUsesSampleSize(t *testing.T) {
	e := newTestEstimator(EstimationSampled, 4)
	assert.Len(t, e.rows(AllRows(30)), 4)

	// A sample at least as large as the train set is the train set.
	d := randomSymmetric(6, 1)
	src := newDenseSource(d)
	mem := newTestEstimator(EstimationMemory, 0).moments(src, AllRows(6))
	smp := newTestEstimator(EstimationSampled, 100).moments(src, AllRows(6))
	assert.Equal(t, mem, smp)
}

func TestEstimator_DiskSourceReadsSelfValue(t *testing.T) {
	d := randomSymmetric(5, 2)
	dirty := mat.DenseCopyOf(d)
	for i := 0; i < 5; i++ {
		dirty.Set(i, i, 99)
	}

	clean := newTestEstimator(EstimationMemory, 0).moments(newDenseSource(d), AllRows(5))
	viaDisk := newTestEstimator(EstimationMemory, 0).moments(&diskSource{denseSource: *newDenseSource(dirty), self: 0}, AllRows(5))
	assert.Equal(t, clean, viaDisk)
}

func sparseFromDense(d *mat.Dense) *sparse.CSR {
	r, c := d.Dims()
	dok := sparse.NewDOK(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := d.At(i, j); v != 0 {
				dok.Set(i, j, v)
			}
		}
	}
	return dok.ToCSR()
}

func TestSparseMoments(t *testing.T) {
	d := mat.NewDense(4, 4, []float64{
		0, 2, 0, 1,
		2, 0, 3, 0,
		0, 3, 0, 0,
		1, 0, 0, 0,
	})
	src := newSparseSource(sparseFromDense(d))

	// Implicit zeros count: column 1 is {2, 0, 3, 0}, mean 5/4,
	// population variance 13/4 - 25/16 = 27/16.
	withZeros := sparseMoments(src, AllRows(4), false)
	assert.InDelta(t, 5.0/4, withZeros.mean[1], floatTol)
	assert.InDelta(t, 27.0/16, withZeros.variance[1], floatTol)

	// Stored values only: column 1 is {2, 3}, mean 5/2, variance 1/4.
	stored := sparseMoments(src, AllRows(4), true)
	assert.InDelta(t, 2.5, stored.mean[1], floatTol)
	assert.InDelta(t, 0.25, stored.variance[1], floatTol)
	// Column 3 has a single stored value.
	assert.InDelta(t, 1.0, stored.mean[3], floatTol)
	assert.InDelta(t, 0.0, stored.variance[3], floatTol)

	// Train rows only.
	mask, err := MaskFromTestSet(4, []int{2})
	require.NoError(t, err)
	trained := sparseMoments(src, mask, true)
	assert.InDelta(t, 2.0, trained.mean[1], floatTol)
}

func TestGammaParams(t *testing.T) {
	a, b := gammaParams(columnStats{
		mean:     []float64{2, -1, 3, 0},
		variance: []float64{4, 2, 0, 1},
	})

	// mean 2, variance 4: A = 1, B = 2
	assert.InDelta(t, 1.0, a[0], floatTol)
	assert.InDelta(t, 2.0, b[0], floatTol)
	// negative mean gives B < 0
	assert.True(t, math.IsNaN(b[1]))
	// zero variance gives A = +Inf, B = 0
	assert.True(t, math.IsNaN(b[2]))
	// zero mean gives B = +Inf but A = 0
	assert.Equal(t, 0.0, a[3])
}

type failingProbe struct{}

func (failingProbe) FreeMemory() (uint64, error) { return 0, errors.New("no meminfo") }

func TestSelectEstimation(t *testing.T) {
	const gib = 1 << 30
	tests := []struct {
		name string
		cfg  Config
		want Estimation
	}{
		{"fits", Config{Estimation: EstimationAuto, MemoryProbe: StaticMemory(4 * gib)}, EstimationMemory},
		{"fits with sample size", Config{Estimation: EstimationAuto, SampleSize: 10, MemoryProbe: StaticMemory(4 * gib)}, EstimationSampled},
		{"tight", Config{Estimation: EstimationAuto, MemoryProbe: StaticMemory(gib * 3 / 4)}, EstimationSampled},
		{"too large", Config{Estimation: EstimationAuto, MemoryProbe: StaticMemory(gib / 4)}, EstimationColumnwise},
		{"enforce disk", Config{Estimation: EstimationAuto, EnforceDisk: true, MemoryProbe: StaticMemory(4 * gib)}, EstimationColumnwise},
		{"explicit", Config{Estimation: EstimationMemory, MemoryProbe: StaticMemory(1)}, EstimationMemory},
		{"probe fails", Config{Estimation: EstimationAuto, MemoryProbe: failingProbe{}}, EstimationMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectEstimation(tt.cfg, gib, NopLogger()))
		})
	}
}

func TestChunkRows(t *testing.T) {
	assert.Equal(t, 3, chunkRows(Config{ChunkRows: 3}, 10, NopLogger()))
	assert.Equal(t, 10, chunkRows(Config{ChunkRows: 50}, 10, NopLogger()))
	// 100 rows of 8 bytes, four blocks per row: 3200 bytes per chunk row.
	assert.Equal(t, 5, chunkRows(Config{MemoryProbe: StaticMemory(16000)}, 100, NopLogger()))
	assert.Equal(t, 1, chunkRows(Config{MemoryProbe: StaticMemory(10)}, 100, NopLogger()))
	assert.Equal(t, 1, chunkRows(Config{MemoryProbe: failingProbe{}}, 100, NopLogger()))
}
