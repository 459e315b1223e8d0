package mutprox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// hubMatrix has point 0 as the nearest neighbor of every other point.
func hubMatrix() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		0, 1, 1, 1,
		1, 0, 5, 6,
		1, 5, 0, 7,
		1, 6, 7, 0,
	})
}

func TestKOccurrence(t *testing.T) {
	occ, err := KOccurrence(hubMatrix(), 1, false)
	require.NoError(t, err)
	// Point 0 picks point 1 on the tie; all others pick point 0.
	assert.Equal(t, []int{3, 1, 0, 0}, occ)

	occ, err = KOccurrence(hubMatrix(), 3, false)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 3}, occ)
}

func TestKOccurrence_Similarity(t *testing.T) {
	s := mat.NewDense(4, 4, []float64{
		1, 0.9, 0.9, 0.9,
		0.9, 1, 0.2, 0.1,
		0.9, 0.2, 1, 0.1,
		0.9, 0.1, 0.1, 1,
	})
	occ, err := KOccurrence(s, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 0, 0}, occ)
}

func TestKOccurrence_Errors(t *testing.T) {
	_, err := KOccurrence(mat.NewDense(2, 3, nil), 1, false)
	assert.ErrorIs(t, err, ErrNotSquare)

	_, err = KOccurrence(hubMatrix(), 0, false)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = KOccurrence(hubMatrix(), 4, false)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHubness(t *testing.T) {
	skew, err := Hubness(hubMatrix(), 1, false)
	require.NoError(t, err)
	assert.Greater(t, skew, 0.0)
}

func TestHubness_ReducedByRescaling(t *testing.T) {
	// A hub: point 0 sits close to everyone else in a ring.
	n := 30
	d := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		d.Set(0, i, 2)
		d.Set(i, 0, 2)
		for j := i + 1; j < n; j++ {
			ring := float64(min(j-i, n-1-(j-i)))
			d.Set(i, j, 2+ring)
			d.Set(j, i, 2+ring)
		}
	}

	before, err := Hubness(d, 3, false)
	require.NoError(t, err)
	mp, err := Rescale(context.Background(), d, testConfig(PolicyGaussian, 2))
	require.NoError(t, err)
	after, err := Hubness(mp, 3, false)
	require.NoError(t, err)
	assert.Less(t, after, before)
}
