//go:build unix

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_WritesReachFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.dat")

	m, err := Create(path, 4*8)
	require.NoError(t, err)
	assert.True(t, m.Writable())

	vals := m.Float64s()
	require.Len(t, vals, 4)
	for i := range vals {
		vals[i] = float64(i) + 0.5
	}
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5}, r.Float64s())
	assert.ErrorIs(t, r.Sync(), ErrReadOnly)
}

func TestOpen_RejectsPartialFloat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, 7), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestClose_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.dat")
	m, err := Create(path, 8)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Float64s())
	assert.ErrorIs(t, m.Advise(AccessSequential), ErrClosed)
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	m, err := Create(path, 0)
	require.NoError(t, err)
	assert.Nil(t, m.Float64s())
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
}
