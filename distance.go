package mutprox

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DistanceMetric computes the dissimilarity of two feature vectors.
type DistanceMetric interface {
	Distance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 2) }

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 1) }

// CosineMetric computes the cosine distance: 1 - cosine_similarity.
// For two zero vectors, the result is NaN (0/0).
type CosineMetric struct{}

func (CosineMetric) Distance(a, b []float64) float64 {
	return 1.0 - floats.Dot(a, b)/math.Sqrt(floats.Dot(a, a)*floats.Dot(b, b))
}

// ChebyshevMetric computes the Chebyshev (L-infinity) distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, math.Inf(1)) }

// MinkowskiMetric computes the Minkowski distance parameterized by P.
// P must be >= 1. Panics if P < 1.
type MinkowskiMetric struct {
	P float64
}

func (m MinkowskiMetric) Distance(a, b []float64) float64 {
	if m.P < 1 {
		panic("MinkowskiMetric: P must be >= 1")
	}
	return floats.Distance(a, b, m.P)
}

// PairwiseDistances computes the symmetric n x n distance matrix of the rows
// of data. Rows are split with PlanBatches over the given number of workers;
// the result does not depend on workers.
func PairwiseDistances(ctx context.Context, data mat.Matrix, metric DistanceMetric, workers int) (*mat.Dense, error) {
	n, _ := data.Dims()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	if metric == nil {
		metric = EuclideanMetric{}
	}
	rows := mat.DenseCopyOf(data)
	out := mat.NewDense(n, n, nil)

	// Batches own disjoint rows i and write (i, j) and (j, i) for j > i, so
	// no two tasks write the same cell.
	batches := PlanBatches(n, workers)
	x := newBatchExecutor(ctx, workers, len(batches))
	for _, b := range batches {
		x.Submit(b, func(ctx context.Context, b Batch) (*PartialResult, error) {
			for i := b.Lo; i < b.Hi; i++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				ri := rows.RawRowView(i)
				for j := i + 1; j < n; j++ {
					d := metric.Distance(ri, rows.RawRowView(j))
					out.Set(i, j, d)
					out.Set(j, i, d)
				}
			}
			return nil, nil
		})
	}
	for range batches {
		x.Next()
	}
	if err := x.Wait(); err != nil {
		return nil, fmt.Errorf("mutprox: pairwise distances: %w", err)
	}
	return out, nil
}
