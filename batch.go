package mutprox

import (
	"fmt"
	"math"
)

// Batch is a half-open range of rows [Lo, Hi) handled by one task.
type Batch struct {
	Lo int
	Hi int
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return b.Hi - b.Lo }

// Last returns the last row index in the batch.
func (b Batch) Last() int { return b.Hi - 1 }

func (b Batch) String() string {
	return fmt.Sprintf("[%d, %d)", b.Lo, b.Hi)
}

// PlanBatches splits the rows [0, n) into at most jobs contiguous batches of
// increasing size.
//
// Row r only pairs with the columns after it, so its cost is proportional to
// 1 - r/n. Each batch is sized to carry the same share n/(2*jobs) of that
// weight; the boundary b of a batch starting at a solves
//
//	sum_{r=a}^{b-1} (1 - r/n) = n / (2*jobs)
//
// Every batch holds at least one row and leftover rows go to the last batch.
// The batches are disjoint and their union is exactly [0, n).
func PlanBatches(n, jobs int) []Batch {
	if n <= 0 {
		return nil
	}
	if jobs <= 1 {
		return []Batch{{Lo: 0, Hi: n}}
	}

	batches := make([]Batch, 0, jobs)
	nf := float64(n)
	share := nf * nf / float64(jobs)

	a := 0
	for k := 0; k < jobs-1 && a < n; k++ {
		b := n
		lead := 2*nf + 1 - 2*float64(a)
		if disc := lead*lead - 4*share; disc >= 0 {
			b = int(math.Floor((2*nf + 1 - math.Sqrt(disc)) / 2))
		}
		b = max(b, a+1)
		b = min(b, n)
		batches = append(batches, Batch{Lo: a, Hi: b})
		a = b
	}
	if a < n {
		batches = append(batches, Batch{Lo: a, Hi: n})
	}
	return batches
}

// batchWeight is the expected cost of the rows in b for an n-row matrix.
func batchWeight(b Batch, n int) float64 {
	var w float64
	for r := b.Lo; r < b.Hi; r++ {
		w += 1 - float64(r)/float64(n)
	}
	return w
}
