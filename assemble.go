package mutprox

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Entry is one rescaled pair of a sparse batch.
type Entry struct {
	I, J int
	V    float64
}

// PartialResult holds the rescaled values of the pairs (i, j), i < j, whose
// row i lies in Batch.
type PartialResult struct {
	Batch Batch

	// Rows[r] holds the values of row Batch.Lo+r for the columns after it.
	// Used for dense batches.
	Rows [][]float64

	// Entries holds the computed pairs of a sparse batch.
	Entries []Entry
}

// each calls fn for every pair in the result.
func (p *PartialResult) each(fn func(i, j int, v float64)) {
	for r, vals := range p.Rows {
		i := p.Batch.Lo + r
		for k, v := range vals {
			fn(i, i+1+k, v)
		}
	}
	for _, e := range p.Entries {
		fn(e.I, e.J, e.V)
	}
}

// assembler merges partial results into one symmetric matrix. merge is
// idempotent and the final matrix does not depend on the merge order.
type assembler interface {
	merge(p *PartialResult) error
	// finish mirrors what is left to mirror and reapplies the diagonal.
	finish() error
}

// denseAssembler writes both halves of every pair into an in-memory matrix.
type denseAssembler struct {
	d    *mat.Dense
	self float64
}

func newDenseAssembler(n int, self float64) *denseAssembler {
	a := &denseAssembler{self: self}
	if n > 0 {
		a.d = mat.NewDense(n, n, nil)
	}
	return a
}

func (a *denseAssembler) merge(p *PartialResult) error {
	p.each(func(i, j int, v float64) {
		a.d.Set(i, j, v)
		a.d.Set(j, i, v)
	})
	return nil
}

func (a *denseAssembler) finish() error {
	if a.d != nil {
		fillDiagonal(a.d, a.self)
	}
	return nil
}

// sparseAssembler collects pairs in a DOK matrix and compresses it to CSR
// once mirroring is complete. Zero values are not stored.
type sparseAssembler struct {
	n    int
	dok  *sparse.DOK
	self float64
	out  *sparse.CSR
}

func newSparseAssembler(n int, self float64) *sparseAssembler {
	return &sparseAssembler{n: n, dok: sparse.NewDOK(n, n), self: self}
}

func (a *sparseAssembler) merge(p *PartialResult) error {
	p.each(func(i, j int, v float64) {
		if v == 0 {
			return
		}
		a.dok.Set(i, j, v)
		a.dok.Set(j, i, v)
	})
	return nil
}

func (a *sparseAssembler) finish() error {
	if a.self != 0 {
		for i := 0; i < a.n; i++ {
			a.dok.Set(i, i, a.self)
		}
	}
	a.out = a.dok.ToCSR()
	return nil
}

// diskAssembler writes the upper triangle into a mapped output matrix and
// mirrors it in row chunks on finish, so that at most two chunks are held in
// memory instead of a full transpose.
type diskAssembler struct {
	out   *DiskMatrix
	self  float64
	chunk int
}

func (a *diskAssembler) merge(p *PartialResult) error {
	d := a.out.Dense()
	p.each(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return nil
}

func (a *diskAssembler) finish() error {
	if a.out.N() == 0 {
		return nil
	}
	mirrorChunked(a.out.Dense(), a.chunk)
	fillDiagonal(a.out.Dense(), a.self)
	return a.out.Flush()
}

// mirrorChunked turns a strictly upper triangular matrix into a symmetric
// one. For each chunk of rows [r0, r1) it reads the block D[r0:r1, r0:n],
// transposes it, adds it to D[r0:n, r0:r1] and writes that back.
func mirrorChunked(d *mat.Dense, chunk int) {
	n, _ := d.Dims()
	chunk = max(chunk, 1)
	for r0 := 0; r0 < n; r0 += chunk {
		r1 := min(r0+chunk, n)
		rows := mat.DenseCopyOf(d.Slice(r0, r1, r0, n))
		cols := mat.DenseCopyOf(d.Slice(r0, n, r0, r1))
		cols.Add(cols, rows.T())
		d.Slice(r0, n, r0, r1).(*mat.Dense).Copy(cols)
	}
}

func fillDiagonal(d *mat.Dense, v float64) {
	n, _ := d.Dims()
	for i := 0; i < n; i++ {
		d.Set(i, i, v)
	}
}
