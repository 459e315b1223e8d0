package mutprox

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const floatTol = 1e-10

// testConfig returns a config that logs nowhere and reports plenty of free
// memory, so that estimation runs in memory.
func testConfig(p Policy, workers int) Config {
	cfg := DefaultConfig()
	cfg.Policy = p
	cfg.Workers = workers
	cfg.Logger = NopLogger()
	cfg.MemoryProbe = StaticMemory(1 << 40)
	return cfg
}

// randomSymmetric returns an n x n symmetric matrix of distances in
// (1, 11) with a zero diagonal.
func randomSymmetric(n int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed))
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 1 + 10*rng.Float64()
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return d
}

// requireSameMatrix compares two matrices bit by bit; NaN equals NaN.
func requireSameMatrix(t *testing.T, want, got mat.Matrix) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, [2]int{wr, wc}, [2]int{gr, gc}, "dims")
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			a, b := want.At(i, j), got.At(i, j)
			if math.Float64bits(a) != math.Float64bits(b) && !(math.IsNaN(a) && math.IsNaN(b)) {
				require.Failf(t, "matrices differ", "[%d,%d]: want %v, got %v", i, j, a, b)
			}
		}
	}
}

// requireSymmetric checks the symmetry and diagonal invariants.
func requireSymmetric(t *testing.T, d mat.Matrix, self float64) {
	t.Helper()
	n, _ := d.Dims()
	for i := 0; i < n; i++ {
		require.Equal(t, self, d.At(i, i), "diagonal [%d,%d]", i, i)
		for j := i + 1; j < n; j++ {
			a, b := d.At(i, j), d.At(j, i)
			if math.Float64bits(a) != math.Float64bits(b) && !(math.IsNaN(a) && math.IsNaN(b)) {
				require.Failf(t, "not symmetric", "[%d,%d]=%v, [%d,%d]=%v", i, j, a, j, i, b)
			}
		}
	}
}

// recordingLogger keeps every message for inspection.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s %s %v", level, msg, args))
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if len(e) >= len(level) && e[:len(level)] == level {
			n++
		}
	}
	return n
}
