package knn

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotSquare is returned for non-square distance matrices.
	ErrNotSquare = errors.New("knn: distance matrix is not square")

	// ErrLabels is returned when the label vector does not match the matrix.
	ErrLabels = errors.New("knn: labels do not match the distance matrix")

	// ErrK is returned for neighborhood sizes outside [1, n-1].
	ErrK = errors.New("knn: invalid neighborhood size")
)

// Options configures Classify.
type Options struct {
	// Similarity ranks larger values as closer.
	Similarity bool
	// Rand shuffles candidates before sorting so that equal distances are
	// ordered at random. Default: a PCG source seeded with Seed.
	Rand *rand.Rand
	// Seed seeds the default Rand.
	Seed uint64
}

// Option is a functional option for Classify.
type Option func(*Options)

// WithSimilarity treats the matrix as similarities.
func WithSimilarity() Option {
	return func(o *Options) { o.Similarity = true }
}

// WithSeed seeds the tie-breaking shuffle.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithRand sets the source used for the tie-breaking shuffle.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) { o.Rand = r }
}

// KResult is the outcome for one neighborhood size.
type KResult struct {
	K int
	// Accuracy is the fraction of correctly classified points.
	Accuracy float64
	// Correct[i] reports whether point i was classified correctly.
	Correct []bool
	// Confusion[t][p] counts points of class t predicted as class p, indexed
	// like Result.Classes.
	Confusion *mat.Dense
}

// Result holds one KResult per requested k, in request order.
type Result struct {
	// Classes are the sorted unique labels.
	Classes []int
	PerK    []KResult
}

// Classify runs a leave-one-out k-nearest-neighbor experiment on the
// distance matrix d with the given labels, once for every k in ks.
//
// Each point is classified by a majority vote of its k nearest neighbors,
// itself excluded. When several classes share the highest count the class of
// the nearest neighbor wins. Equal distances are ordered at random; NaN
// distances rank last.
func Classify(d mat.Matrix, labels []int, ks []int, opts ...Option) (*Result, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
	}

	n, c := d.Dims()
	if n != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, n, c)
	}
	if len(labels) != n {
		return nil, fmt.Errorf("%w: %d labels for %d points", ErrLabels, len(labels), n)
	}
	for _, k := range ks {
		if k < 1 || k > n-1 {
			return nil, fmt.Errorf("%w: k=%d for %d points", ErrK, k, n)
		}
	}

	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	index := make(map[int]int, len(classes))
	for i, cl := range classes {
		index[cl] = i
	}
	y := make([]int, n)
	for i, l := range labels {
		y[i] = index[l]
	}

	res := &Result{Classes: classes, PerK: make([]KResult, len(ks))}
	for j, k := range ks {
		res.PerK[j] = KResult{
			K:         k,
			Correct:   make([]bool, n),
			Confusion: mat.NewDense(len(classes), len(classes), nil),
		}
	}

	row := make([]float64, n)
	order := make([]int, 0, max(n-1, 0))
	counts := make([]int, len(classes))

	for i := 0; i < n; i++ {
		order = order[:0]
		for j := range row {
			row[j] = d.At(i, j)
			if j != i {
				order = append(order, j)
			}
		}

		o.Rand.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		sort.SliceStable(order, func(a, b int) bool {
			return closer(row[order[a]], row[order[b]], o.Similarity)
		})

		for j, k := range ks {
			clear(counts)
			for _, nb := range order[:k] {
				counts[y[nb]]++
			}
			pred := vote(counts, y[order[0]])

			kr := &res.PerK[j]
			if pred == y[i] {
				kr.Correct[i] = true
			}
			kr.Confusion.Set(y[i], pred, kr.Confusion.At(y[i], pred)+1)
		}
	}

	for j := range res.PerK {
		hits := 0
		for _, ok := range res.PerK[j].Correct {
			if ok {
				hits++
			}
		}
		res.PerK[j].Accuracy = float64(hits) / float64(n)
	}
	return res, nil
}

// closer reports whether a ranks before b as a neighbor. NaN ranks after
// every other value.
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

// vote returns the class with the highest count, or nearest when the
// highest count is shared.
func vote(counts []int, nearest int) int {
	best, tied := 0, false
	for cl := 1; cl < len(counts); cl++ {
		switch {
		case counts[cl] > counts[best]:
			best, tied = cl, false
		case counts[cl] == counts[best]:
			tied = true
		}
	}
	if tied {
		return nearest
	}
	return best
}
