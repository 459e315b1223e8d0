package knn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func twoPairs() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		0, 1, 5, 5,
		1, 0, 5, 5,
		5, 5, 0, 1,
		5, 5, 1, 0,
	})
}

func TestClassify_TwoClusters(t *testing.T) {
	res, err := Classify(twoPairs(), []int{0, 0, 1, 1}, []int{1, 3})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Classes)
	require.Len(t, res.PerK, 2)

	k1 := res.PerK[0]
	assert.Equal(t, 1, k1.K)
	assert.Equal(t, 1.0, k1.Accuracy)
	assert.Equal(t, []bool{true, true, true, true}, k1.Correct)
	assert.Equal(t, mat.NewDense(2, 2, []float64{2, 0, 0, 2}), k1.Confusion)

	// With k=3 the other class outvotes the only same-class neighbor.
	k3 := res.PerK[1]
	assert.Equal(t, 0.0, k3.Accuracy)
	assert.Equal(t, mat.NewDense(2, 2, []float64{0, 2, 2, 0}), k3.Confusion)

	for _, kr := range res.PerK {
		r, c := kr.Confusion.Dims()
		assert.Equal(t, [2]int{2, 2}, [2]int{r, c})
		assert.Equal(t, 4.0, mat.Sum(kr.Confusion))
	}
}

func TestClassify_TieGoesToNearest(t *testing.T) {
	d := mat.NewDense(4, 4, []float64{
		0, 1, 2, 3,
		1, 0, 4, 5,
		2, 4, 0, 6,
		3, 5, 6, 0,
	})
	res, err := Classify(d, []int{0, 1, 2, 0}, []int{2})
	require.NoError(t, err)

	// Every vote is a 1:1 tie, decided by the nearest neighbor:
	// 0 -> 1 (class 1), 1 -> 0 (class 0), 2 -> 0 (class 0), 3 -> 0 (class 0).
	kr := res.PerK[0]
	assert.Equal(t, 0.25, kr.Accuracy)
	assert.Equal(t, []bool{false, false, false, true}, kr.Correct)
	assert.Equal(t, 1.0, kr.Confusion.At(0, 1))
	assert.Equal(t, 1.0, kr.Confusion.At(1, 0))
	assert.Equal(t, 1.0, kr.Confusion.At(2, 0))
	assert.Equal(t, 1.0, kr.Confusion.At(0, 0))
}

func TestClassify_Similarity(t *testing.T) {
	s := mat.NewDense(4, 4, []float64{
		1, 0.9, 0.1, 0.1,
		0.9, 1, 0.1, 0.1,
		0.1, 0.1, 1, 0.9,
		0.1, 0.1, 0.9, 1,
	})
	res, err := Classify(s, []int{7, 7, 3, 3}, []int{1}, WithSimilarity())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, res.Classes)
	assert.Equal(t, 1.0, res.PerK[0].Accuracy)
}

func TestClassify_Deterministic(t *testing.T) {
	// All distances equal: every neighbor order comes from the shuffle.
	n := 12
	d := mat.NewDense(n, n, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = i % 3
		for j := 0; j < n; j++ {
			if i != j {
				d.Set(i, j, 1)
			}
		}
	}

	a, err := Classify(d, labels, []int{1, 4}, WithSeed(42))
	require.NoError(t, err)
	b, err := Classify(d, labels, []int{1, 4}, WithSeed(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Classify(d, labels, []int{1, 4}, WithRand(rand.New(rand.NewPCG(42, 42^0x9e3779b97f4a7c15))))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestClassify_NaNRanksLast(t *testing.T) {
	nan := math.NaN()
	d := mat.NewDense(4, 4, []float64{
		0, nan, 1, 4,
		nan, 0, 3, 1,
		1, 3, 0, 2,
		4, 1, 2, 0,
	})
	labels := []int{0, 1, 0, 1}

	for seed := uint64(0); seed < 50; seed++ {
		res, err := Classify(d, labels, []int{1, 3}, WithSeed(seed))
		require.NoError(t, err)

		// Point 0's nearest neighbor is point 2; the NaN entry never wins.
		assert.True(t, res.PerK[0].Correct[0], "seed %d", seed)
		assert.Equal(t, 1.0, res.PerK[0].Accuracy, "seed %d", seed)

		// k=3 takes every other point; the vote is 1:2 against class 0.
		assert.False(t, res.PerK[1].Correct[0], "seed %d", seed)
	}
}

func TestClassify_NaNRanksLastForSimilarities(t *testing.T) {
	nan := math.NaN()
	s := mat.NewDense(3, 3, []float64{
		1, nan, 0.2,
		nan, 1, 0.9,
		0.2, 0.9, 1,
	})
	for seed := uint64(0); seed < 20; seed++ {
		res, err := Classify(s, []int{5, 6, 6}, []int{1}, WithSimilarity(), WithSeed(seed))
		require.NoError(t, err)
		// Point 0 can only pick point 2.
		assert.Equal(t, 1.0, res.PerK[0].Confusion.At(0, 1), "seed %d", seed)
	}
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(mat.NewDense(2, 3, nil), []int{0, 1}, []int{1})
	assert.ErrorIs(t, err, ErrNotSquare)

	_, err = Classify(twoPairs(), []int{0, 1}, []int{1})
	assert.ErrorIs(t, err, ErrLabels)

	_, err = Classify(twoPairs(), []int{0, 0, 1, 1}, []int{0})
	assert.ErrorIs(t, err, ErrK)

	_, err = Classify(twoPairs(), []int{0, 0, 1, 1}, []int{4})
	assert.ErrorIs(t, err, ErrK)
}

func TestVote(t *testing.T) {
	assert.Equal(t, 2, vote([]int{1, 0, 3}, 0))
	assert.Equal(t, 1, vote([]int{2, 2, 0}, 1))
	assert.Equal(t, 0, vote([]int{0, 0, 0}, 0))
	assert.Equal(t, 0, vote([]int{1}, 0))
}
