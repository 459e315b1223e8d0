package mutprox

import (
	"context"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func generateBenchData(n, dims int) *mat.Dense {
	rng := rand.New(rand.NewPCG(42, 42))
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	return mat.NewDense(n, dims, data)
}

func generateBenchDistances(b *testing.B, n, dims int) *mat.Dense {
	b.Helper()
	d, err := PairwiseDistances(context.Background(), generateBenchData(n, dims), EuclideanMetric{}, 0)
	if err != nil {
		b.Fatal(err)
	}
	return d
}

// --- Pairwise Distances ---

func benchPairwiseDistances(b *testing.B, n int) {
	b.Helper()
	data := generateBenchData(n, 16)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := PairwiseDistances(context.Background(), data, EuclideanMetric{}, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPairwiseDistances_100(b *testing.B)  { benchPairwiseDistances(b, 100) }
func BenchmarkPairwiseDistances_500(b *testing.B)  { benchPairwiseDistances(b, 500) }
func BenchmarkPairwiseDistances_1000(b *testing.B) { benchPairwiseDistances(b, 1000) }

// --- Rescaling ---

func benchRescale(b *testing.B, p Policy, n, workers int) {
	b.Helper()
	d := generateBenchDistances(b, n, 16)
	cfg := testConfig(p, workers)
	e, err := New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.RescaleDense(context.Background(), d); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRescale_Gaussian_500(b *testing.B)      { benchRescale(b, PolicyGaussian, 500, 0) }
func BenchmarkRescale_Gaussian_1000(b *testing.B)     { benchRescale(b, PolicyGaussian, 1000, 0) }
func BenchmarkRescale_Gaussian_1000_1(b *testing.B)   { benchRescale(b, PolicyGaussian, 1000, 1) }
func BenchmarkRescale_Gamma_1000(b *testing.B)        { benchRescale(b, PolicyGamma, 1000, 0) }
func BenchmarkRescale_Empirical_200(b *testing.B)     { benchRescale(b, PolicyEmpirical, 200, 0) }
func BenchmarkRescale_JointGaussian_200(b *testing.B) { benchRescale(b, PolicyJointGaussian, 200, 0) }

// --- Parameter estimation ---

func benchMoments(b *testing.B, s Estimation, n int) {
	b.Helper()
	src := newDenseSource(generateBenchDistances(b, n, 16))
	est := newTestEstimator(s, 100)
	mask := AllRows(n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		est.moments(src, mask)
	}
}

func BenchmarkMoments_Memory_1000(b *testing.B)     { benchMoments(b, EstimationMemory, 1000) }
func BenchmarkMoments_Sampled_1000(b *testing.B)    { benchMoments(b, EstimationSampled, 1000) }
func BenchmarkMoments_Columnwise_1000(b *testing.B) { benchMoments(b, EstimationColumnwise, 1000) }

// --- Hubness ---

func benchHubness(b *testing.B, n int) {
	b.Helper()
	d := generateBenchDistances(b, n, 16)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Hubness(d, 10, false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHubness_500(b *testing.B)  { benchHubness(b, 500) }
func BenchmarkHubness_1000(b *testing.B) { benchHubness(b, 1000) }
