package mutprox

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/TrevorS/mutprox/internal/mmap"
)

// DiskMatrix is a square float64 matrix backed by a memory-mapped file of
// n*n native-endian values in row-major order (a raw NumPy memmap).
type DiskMatrix struct {
	n     int
	m     *mmap.Mapping
	dense *mat.Dense
}

// CreateDiskMatrix creates a zero-filled, writable n x n matrix file at path.
func CreateDiskMatrix(path string, n int) (*DiskMatrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalidConfig, n)
	}
	m, err := mmap.Create(path, n*n*8)
	if err != nil {
		return nil, wrapMmapErr(path, err)
	}
	return newDiskMatrix(n, m), nil
}

// OpenDiskMatrix maps an existing matrix file read-only. The file size must
// be n*n*8 bytes for some n.
func OpenDiskMatrix(path string) (*DiskMatrix, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, wrapMmapErr(path, err)
	}
	values := m.Size() / 8
	n := int(math.Round(math.Sqrt(float64(values))))
	if n*n != values {
		_ = m.Close()
		return nil, fmt.Errorf("%w: %s holds %d values", ErrNotSquare, path, values)
	}
	return newDiskMatrix(n, m), nil
}

func newDiskMatrix(n int, m *mmap.Mapping) *DiskMatrix {
	d := &DiskMatrix{n: n, m: m}
	if n > 0 {
		d.dense = mat.NewDense(n, n, m.Float64s())
	}
	return d
}

func wrapMmapErr(path string, err error) error {
	if errors.Is(err, mmap.ErrUnsupported) {
		return fmt.Errorf("%w: %s", ErrMmapUnsupported, path)
	}
	return fmt.Errorf("mutprox: map %s: %w", path, err)
}

// N returns the number of rows.
func (d *DiskMatrix) N() int { return d.n }

// Path returns the backing file path.
func (d *DiskMatrix) Path() string { return d.m.Path() }

// Dense returns a view of the mapped values. Writing through it on a
// read-only matrix faults. The view is invalid after Close.
func (d *DiskMatrix) Dense() *mat.Dense { return d.dense }

// Dims implements mat.Matrix.
func (d *DiskMatrix) Dims() (r, c int) { return d.n, d.n }

// At implements mat.Matrix.
func (d *DiskMatrix) At(i, j int) float64 { return d.dense.At(i, j) }

// T implements mat.Matrix.
func (d *DiskMatrix) T() mat.Matrix { return mat.Transpose{Matrix: d} }

// Flush writes pending changes of a writable matrix to disk.
func (d *DiskMatrix) Flush() error {
	if !d.m.Writable() {
		return nil
	}
	return d.m.Sync()
}

// Close unmaps the file. The file itself is left in place.
func (d *DiskMatrix) Close() error {
	d.dense = nil
	return d.m.Close()
}

// advise passes an access hint for the mapping; unsupported hints are
// ignored.
func (d *DiskMatrix) advise(p mmap.AccessPattern) error {
	return d.m.Advise(p)
}
