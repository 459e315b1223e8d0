package mutprox

import (
	"fmt"
	"math/rand/v2"

	"github.com/RoaringBitmap/roaring/v2"
)

// Mask selects the train rows used to estimate distribution parameters.
type Mask struct {
	n    int
	rows *roaring.Bitmap
}

// AllRows returns a mask selecting every row of an n-row matrix.
func AllRows(n int) *Mask {
	rows := roaring.New()
	if n > 0 {
		rows.AddRange(0, uint64(n))
	}
	return &Mask{n: n, rows: rows}
}

// MaskFromTestSet returns the complement of the given test rows.
func MaskFromTestSet(n int, test []int) (*Mask, error) {
	m := AllRows(n)
	for _, t := range test {
		if t < 0 || t >= n {
			return nil, fmt.Errorf("%w: test index %d out of range [0, %d)", ErrInvalidMask, t, n)
		}
		m.rows.Remove(uint32(t))
	}
	return m, nil
}

// MaskFromBools builds a mask from a membership vector.
func MaskFromBools(train []bool) *Mask {
	rows := roaring.New()
	for i, ok := range train {
		if ok {
			rows.Add(uint32(i))
		}
	}
	return &Mask{n: len(train), rows: rows}
}

// Len returns the number of rows the mask is defined over.
func (m *Mask) Len() int { return m.n }

// Count returns the number of train rows.
func (m *Mask) Count() int { return int(m.rows.GetCardinality()) }

// Contains reports whether row i is a train row.
func (m *Mask) Contains(i int) bool { return m.rows.Contains(uint32(i)) }

// All reports whether every row is a train row.
func (m *Mask) All() bool { return m.Count() == m.n }

// Rows returns the train rows in increasing order.
func (m *Mask) Rows() []int {
	arr := m.rows.ToArray()
	out := make([]int, len(arr))
	for i, r := range arr {
		out[i] = int(r)
	}
	return out
}

// Sample draws size train rows uniformly without replacement. The result is
// sorted so that reductions read the matrix in row order.
func (m *Mask) Sample(size int, rng *rand.Rand) []int {
	rows := m.Rows()
	if size <= 0 || size >= len(rows) {
		return rows
	}
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	picked := roaring.New()
	for _, r := range rows[:size] {
		picked.Add(uint32(r))
	}
	return (&Mask{n: m.n, rows: picked}).Rows()
}
