package mutprox

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// source is the read-only view of the input matrix shared by all workers.
type source interface {
	size() int
	at(i, j int) float64
	// row returns row i, either as a view or copied into dst (len n).
	row(i int, dst []float64) []float64
	isSparse() bool
	// rowNNZ is the number of stored entries in row i.
	rowNNZ(i int) int
	// upper calls fn for every stored entry (i, j) with j > i.
	upper(i int, fn func(j int, v float64))
	// byteSize is the in-memory size of the dense matrix.
	byteSize() uint64
}

// denseSource reads an engine-owned working copy whose diagonal has already
// been filled.
type denseSource struct {
	d *mat.Dense
	n int
}

func newDenseSource(d *mat.Dense) *denseSource {
	n, _ := d.Dims()
	return &denseSource{d: d, n: n}
}

func (s *denseSource) size() int                        { return s.n }
func (s *denseSource) at(i, j int) float64              { return s.d.At(i, j) }
func (s *denseSource) row(i int, _ []float64) []float64 { return s.d.RawRowView(i) }
func (s *denseSource) isSparse() bool                   { return false }
func (s *denseSource) rowNNZ(int) int                   { return s.n }
func (s *denseSource) byteSize() uint64                 { return uint64(s.n) * uint64(s.n) * 8 }

func (s *denseSource) upper(i int, fn func(j int, v float64)) {
	row := s.d.RawRowView(i)
	for j := i + 1; j < s.n; j++ {
		fn(j, row[j])
	}
}

// diskSource reads a caller-owned mapped matrix without writing to it; the
// diagonal is reported as selfValue instead of being filled in place.
type diskSource struct {
	denseSource
	self float64
}

func newDiskSource(d *DiskMatrix, self float64) *diskSource {
	return &diskSource{denseSource: denseSource{d: d.Dense(), n: d.N()}, self: self}
}

func (s *diskSource) at(i, j int) float64 {
	if i == j {
		return s.self
	}
	return s.d.At(i, j)
}

func (s *diskSource) row(i int, dst []float64) []float64 {
	copy(dst, s.d.RawRowView(i))
	dst[i] = s.self
	return dst
}

// sparseSource reads a CSR matrix. Entries that are not stored are zero and
// are treated as missing by the kernels.
type sparseSource struct {
	c   *sparse.CSR
	n   int
	nnz []int
}

func newSparseSource(c *sparse.CSR) *sparseSource {
	n, _ := c.Dims()
	nnz := make([]int, n)
	for i := range nnz {
		nnz[i] = c.RowNNZ(i)
	}
	return &sparseSource{c: c, n: n, nnz: nnz}
}

func (s *sparseSource) size() int           { return s.n }
func (s *sparseSource) at(i, j int) float64 { return s.c.At(i, j) }
func (s *sparseSource) isSparse() bool      { return true }
func (s *sparseSource) rowNNZ(i int) int    { return s.nnz[i] }
func (s *sparseSource) byteSize() uint64    { return uint64(s.n) * uint64(s.n) * 8 }

func (s *sparseSource) row(i int, dst []float64) []float64 {
	clear(dst)
	s.c.DoRowNonZero(i, func(_, j int, v float64) {
		dst[j] = v
	})
	return dst
}

func (s *sparseSource) upper(i int, fn func(j int, v float64)) {
	s.c.DoRowNonZero(i, func(_, j int, v float64) {
		if j > i && v != 0 {
			fn(j, v)
		}
	})
}
