package mutprox

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Estimation selects how distribution parameters are reduced from the matrix.
type Estimation string

const (
	// EstimationAuto picks a strategy from the matrix size and free memory.
	EstimationAuto Estimation = "auto"
	// EstimationMemory copies the train rows and reduces them in memory.
	EstimationMemory Estimation = "memory"
	// EstimationSampled reduces a uniform sample of SampleSize train rows.
	EstimationSampled Estimation = "sampled"
	// EstimationColumnwise reduces one column at a time without copying rows.
	EstimationColumnwise Estimation = "columnwise"
)

// DefaultSampleSize is the number of rows sampled when EstimationAuto falls
// back to sampling and Config.SampleSize is unset.
const DefaultSampleSize = 1000

// selectEstimation resolves EstimationAuto from the ratio of the matrix size
// to the free memory reported by probe:
//
//	ratio < 1      in memory (sampled if SampleSize > 0)
//	1 <= ratio < 2 sampled
//	ratio >= 2     column-wise
//
// EnforceDisk always selects column-wise reduction.
func selectEstimation(cfg Config, bytes uint64, log Logger) Estimation {
	if cfg.Estimation != EstimationAuto {
		return cfg.Estimation
	}
	if cfg.EnforceDisk {
		return EstimationColumnwise
	}

	free, err := cfg.MemoryProbe.FreeMemory()
	if err != nil || free == 0 {
		log.Warn("free memory unknown, estimating in memory", "error", err)
		return inMemoryOrSampled(cfg)
	}

	ratio := float64(bytes) / float64(free)
	log.Info("selecting estimation strategy",
		"matrix", humanize.IBytes(bytes),
		"free", humanize.IBytes(free),
		"ratio", fmt.Sprintf("%.2f", ratio),
	)
	switch {
	case ratio < 1:
		return inMemoryOrSampled(cfg)
	case ratio < 2:
		return EstimationSampled
	default:
		return EstimationColumnwise
	}
}

func inMemoryOrSampled(cfg Config) Estimation {
	if cfg.SampleSize > 0 {
		return EstimationSampled
	}
	return EstimationMemory
}

// chunkRows is the number of rows mirrored at once on the disk path. Two
// blocks of rows x n values are held in memory; they are allowed a quarter of
// the free memory.
func chunkRows(cfg Config, n int, log Logger) int {
	if cfg.ChunkRows > 0 {
		return min(cfg.ChunkRows, max(n, 1))
	}
	free, err := cfg.MemoryProbe.FreeMemory()
	if err != nil || free == 0 {
		log.Warn("free memory unknown, mirroring row by row", "error", err)
		return 1
	}
	rows := int(free / (uint64(max(n, 1)) * 8 * 4))
	return max(1, min(rows, n))
}
