package mutprox

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KOccurrence counts, for every point, how often it is among the k nearest
// neighbors of the other points. The point itself is never its own
// neighbor. Distance ties are broken by the lower index; NaN sorts last.
func KOccurrence(d mat.Matrix, k int, similarity bool) ([]int, error) {
	n, c := d.Dims()
	if n != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, n, c)
	}
	if k < 1 || (n > 0 && k > n-1) {
		return nil, fmt.Errorf("%w: k must be in [1, %d], got %d", ErrInvalidConfig, max(n-1, 1), k)
	}

	occ := make([]int, n)
	neighbors := make([]int, 0, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		neighbors = neighbors[:0]
		for j := 0; j < n; j++ {
			vals[j] = d.At(i, j)
			if j != i {
				neighbors = append(neighbors, j)
			}
		}
		sort.SliceStable(neighbors, func(a, b int) bool {
			return closer(vals[neighbors[a]], vals[neighbors[b]], similarity)
		})
		for _, j := range neighbors[:k] {
			occ[j]++
		}
	}
	return occ, nil
}

// closer reports whether a ranks before b as a neighbor.
func closer(a, b float64, similarity bool) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	case similarity:
		return a > b
	default:
		return a < b
	}
}

// Hubness returns the skewness of the k-occurrence distribution. Large
// positive values mean a few points (hubs) are the neighbors of many others;
// Mutual Proximity should bring it closer to zero.
func Hubness(d mat.Matrix, k int, similarity bool) (float64, error) {
	occ, err := KOccurrence(d, k, similarity)
	if err != nil {
		return 0, err
	}
	x := make([]float64, len(occ))
	for i, v := range occ {
		x[i] = float64(v)
	}
	return stat.Skew(x, nil), nil
}
