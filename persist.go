package mutprox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/james-bowman/sparse"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Compression selects how persisted .npy artifacts are compressed.
type Compression string

const (
	// CompressionNone writes plain .npy files.
	CompressionNone Compression = "none"
	// CompressionLZ4 wraps files in an lz4 frame and appends ".lz4".
	CompressionLZ4 Compression = "lz4"
	// CompressionZstd wraps files in a zstd frame and appends ".zst".
	CompressionZstd Compression = "zstd"
)

// Ext returns the file suffix appended to compressed artifacts.
func (c Compression) Ext() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

func compressionFor(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".lz4"):
		return CompressionLZ4
	case strings.HasSuffix(path, ".zst"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// artifactWriter closes the compressor before the file.
type artifactWriter struct {
	io.Writer
	closers []io.Closer
}

func (w *artifactWriter) Close() error {
	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// createArtifact creates path, compressing according to its suffix.
func createArtifact(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch compressionFor(path) {
	case CompressionLZ4:
		zw := lz4.NewWriter(f)
		return &artifactWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &artifactWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
	default:
		return f, nil
	}
}

type artifactReader struct {
	io.Reader
	close func() error
}

func (r *artifactReader) Close() error { return r.close() }

// openArtifact opens path, decompressing according to its suffix.
func openArtifact(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch compressionFor(path) {
	case CompressionLZ4:
		return &artifactReader{Reader: lz4.NewReader(f), close: f.Close}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &artifactReader{Reader: zr, close: func() error {
			zr.Close()
			return f.Close()
		}}, nil
	default:
		return f, nil
	}
}

func writeNPY(path string, val any) (err error) {
	w, err := createArtifact(path)
	if err != nil {
		return fmt.Errorf("mutprox: create %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("mutprox: close %s: %w", path, cerr)
		}
	}()
	if err := npyio.Write(w, val); err != nil {
		return fmt.Errorf("mutprox: write %s: %w", path, err)
	}
	return nil
}

func readNPY(path string, ptr any) error {
	r, err := openArtifact(path)
	if err != nil {
		return fmt.Errorf("mutprox: open %s: %w", path, err)
	}
	defer r.Close()
	if err := npyio.Read(r, ptr); err != nil {
		return fmt.Errorf("mutprox: read %s: %w", path, err)
	}
	return nil
}

// SaveDense writes d as a 2-D float64 .npy file. A .lz4 or .zst suffix
// compresses the file.
func SaveDense(path string, d mat.Matrix) error {
	return writeNPY(path, d)
}

// LoadDense reads a 2-D float64 .npy file written by SaveDense or NumPy.
func LoadDense(path string) (*mat.Dense, error) {
	var d mat.Dense
	if err := readNPY(path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveSparse writes c as an (nnz+1) x 3 .npy array of (i, j, v) triplets.
// The first row holds (rows, cols, nnz).
func SaveSparse(path string, c *sparse.CSR) error {
	r, cols := c.Dims()
	t := mat.NewDense(c.NNZ()+1, 3, nil)
	t.SetRow(0, []float64{float64(r), float64(cols), float64(c.NNZ())})
	k := 1
	c.DoNonZero(func(i, j int, v float64) {
		t.SetRow(k, []float64{float64(i), float64(j), v})
		k++
	})
	return writeNPY(path, t)
}

// LoadSparse reads a triplet file written by SaveSparse.
func LoadSparse(path string) (*sparse.CSR, error) {
	var t mat.Dense
	if err := readNPY(path, &t); err != nil {
		return nil, err
	}
	rows, cols := t.Dims()
	if cols != 3 || rows < 1 {
		return nil, fmt.Errorf("mutprox: %s is not a triplet file (%dx%d)", path, rows, cols)
	}
	dok := sparse.NewDOK(int(t.At(0, 0)), int(t.At(0, 1)))
	for k := 1; k < rows; k++ {
		dok.Set(int(t.At(k, 0)), int(t.At(k, 1)), t.At(k, 2))
	}
	return dok.ToCSR(), nil
}

// LoadIndices reads a 1-D int64 .npy file, such as class labels or test set
// indices.
func LoadIndices(path string) ([]int, error) {
	var raw []int64
	if err := readNPY(path, &raw); err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out, nil
}

// batchFileName names the partial result of b after its first and last row.
func batchFileName(dir string, b Batch, c Compression) string {
	name := strings.Join([]string{strconv.Itoa(b.Lo), strconv.Itoa(b.Last()), "triu"}, "_")
	return filepath.Join(dir, name+".npy"+c.Ext())
}

// resultFileName names a finished matrix after its policy and the time.
func resultFileName(dir string, p Policy, now time.Time, c Compression) string {
	return filepath.Join(dir, "D_mp"+string(p)+"_"+now.Format("2006-01-02-15-04-05")+".npy"+c.Ext())
}

// savePartial writes a dense partial result as a Len x n block holding the
// upper triangular values, or a sparse one as k x 3 triplets.
func savePartial(path string, p *PartialResult, n int) error {
	if p.Entries != nil || p.Rows == nil {
		t := mat.NewDense(max(len(p.Entries), 1), 3, nil)
		if len(p.Entries) == 0 {
			t.SetRow(0, []float64{-1, -1, 0})
		}
		for k, e := range p.Entries {
			t.SetRow(k, []float64{float64(e.I), float64(e.J), e.V})
		}
		return writeNPY(path, t)
	}
	block := mat.NewDense(p.Batch.Len(), n, nil)
	for r, vals := range p.Rows {
		i := p.Batch.Lo + r
		copy(block.RawRowView(r)[i+1:], vals)
	}
	return writeNPY(path, block)
}

// loadPartial reads a partial result written by savePartial.
func loadPartial(path string, b Batch, n int, sparseResult bool) (*PartialResult, error) {
	var t mat.Dense
	if err := readNPY(path, &t); err != nil {
		return nil, err
	}
	rows, cols := t.Dims()
	p := &PartialResult{Batch: b}

	if sparseResult {
		if cols != 3 {
			return nil, fmt.Errorf("mutprox: %s: expected 3 columns, got %d", path, cols)
		}
		p.Entries = make([]Entry, 0, rows)
		for k := 0; k < rows; k++ {
			i := int(t.At(k, 0))
			if i < 0 {
				continue
			}
			p.Entries = append(p.Entries, Entry{I: i, J: int(t.At(k, 1)), V: t.At(k, 2)})
		}
		return p, nil
	}

	if rows != b.Len() || cols != n {
		return nil, fmt.Errorf("mutprox: %s: expected %dx%d block, got %dx%d", path, b.Len(), n, rows, cols)
	}
	p.Rows = make([][]float64, rows)
	for r := range p.Rows {
		i := b.Lo + r
		p.Rows[r] = append([]float64(nil), t.RawRowView(r)[i+1:]...)
	}
	return p, nil
}
