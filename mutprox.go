package mutprox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/TrevorS/mutprox/internal/mmap"
)

// Config controls Mutual Proximity rescaling.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Policy selects the distribution model. Empty means PolicyEmpirical,
	// which is exact but O(n^3), and logs a recommendation of
	// PolicyGaussian.
	Policy Policy

	// Similarity marks the input as a similarity matrix (larger is closer,
	// diagonal 1). Default: false (dissimilarity, diagonal 0).
	Similarity bool

	// Workers is the number of goroutines and the number of batches the rows
	// are split into. 0 means use runtime.NumCPU(). Must be >= 0.
	Workers int

	// TestSet lists rows excluded from parameter estimation. Their
	// distances are still rescaled. Not supported by PolicyEmpirical.
	TestSet []int

	// TrainMask, when set, selects the rows used for parameter estimation.
	// It must cover all rows of the matrix. Rows in TestSet are removed from
	// it. Not supported by PolicyEmpirical unless it selects every row.
	TrainMask *Mask

	// Estimation selects how distribution parameters are reduced.
	// Default: EstimationAuto.
	Estimation Estimation

	// SampleSize is the number of rows drawn by sampled estimation.
	// 0 means DefaultSampleSize. Must be >= 0.
	SampleSize int

	// EnforceDisk forces column-wise estimation, even when the matrix would
	// fit in memory.
	EnforceDisk bool

	// ChunkRows is the number of rows mirrored at once on the disk path.
	// 0 means derive it from free memory. Must be >= 0.
	ChunkRows int

	// TmpDir holds batch files and default disk outputs.
	// Default: os.TempDir().
	TmpDir string

	// SaveBatches writes every partial result to TmpDir as
	// <lo>_<hi-1>_triu.npy.
	SaveBatches bool

	// ResumeBatches loads partial results found in TmpDir instead of
	// recomputing them.
	ResumeBatches bool

	// PersistDir, when set, receives the finished matrix as
	// D_mp<policy>_<timestamp>.npy.
	PersistDir string

	// Compression applies to batch files and persisted matrices.
	// Default: CompressionNone.
	Compression Compression

	// OutputPath is the file created by RescaleDisk. Default: a timestamped
	// file in TmpDir.
	OutputPath string

	// Seed seeds the row sampler.
	Seed uint64

	// Logger receives progress and warnings. Default: slog.Default().
	Logger Logger

	// MemoryProbe reports free memory for strategy selection.
	// Default: SystemMemory.
	MemoryProbe MemoryProbe

	// Metrics, when set, records batch counts and timings.
	Metrics *Metrics
}

// DefaultConfig returns a Config with reasonable defaults. Policy is left
// empty so that New reports the default choice.
func DefaultConfig() Config {
	return Config{
		Estimation:  EstimationAuto,
		Compression: CompressionNone,
	}
}

// selfValue is the diagonal of the output.
func (c Config) selfValue() float64 {
	if c.Similarity {
		return 1
	}
	return 0
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Policy == "" {
		cfg.Policy = PolicyEmpirical
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Estimation == "" {
		cfg.Estimation = EstimationAuto
	}
	if cfg.Compression == "" {
		cfg.Compression = CompressionNone
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MemoryProbe == nil {
		cfg.MemoryProbe = SystemMemory{}
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	switch cfg.Policy {
	case PolicyEmpirical, PolicyJointGaussian, PolicyGaussian, PolicyGamma:
	default:
		return fmt.Errorf("%w: unknown Policy %q", ErrInvalidConfig, cfg.Policy)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: Workers must be >= 0, got %d", ErrInvalidConfig, cfg.Workers)
	}
	switch cfg.Estimation {
	case EstimationAuto, EstimationMemory, EstimationSampled, EstimationColumnwise:
	default:
		return fmt.Errorf("%w: unknown Estimation %q", ErrInvalidConfig, cfg.Estimation)
	}
	if cfg.SampleSize < 0 {
		return fmt.Errorf("%w: SampleSize must be >= 0, got %d", ErrInvalidConfig, cfg.SampleSize)
	}
	if cfg.ChunkRows < 0 {
		return fmt.Errorf("%w: ChunkRows must be >= 0, got %d", ErrInvalidConfig, cfg.ChunkRows)
	}
	switch cfg.Compression {
	case CompressionNone, CompressionLZ4, CompressionZstd:
	default:
		return fmt.Errorf("%w: unknown Compression %q", ErrInvalidConfig, cfg.Compression)
	}
	return nil
}

// Engine rescales matrices with one validated Config. An Engine holds no
// per-call state and may be used by several goroutines.
type Engine struct {
	cfg Config
	log Logger
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	defaulted := cfg.Policy == ""
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if defaulted {
		cfg.Logger.Info("no policy given, using the empirical policy; consider the independent Gaussian policy for large matrices",
			"policy", string(PolicyEmpirical),
			"recommended", string(PolicyGaussian),
		)
	}
	return &Engine{cfg: cfg, log: cfg.Logger}, nil
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config { return e.cfg }

// Rescale is a convenience wrapper around New and RescaleDense.
func Rescale(ctx context.Context, d mat.Matrix, cfg Config) (*mat.Dense, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return e.RescaleDense(ctx, d)
}

// RescaleDense rescales an in-memory matrix. d is copied and never
// modified.
func (e *Engine) RescaleDense(ctx context.Context, d mat.Matrix) (*mat.Dense, error) {
	r, c := d.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}

	work := mat.DenseCopyOf(d)
	fillDiagonal(work, e.cfg.selfValue())
	src := newDenseSource(work)

	asm := newDenseAssembler(r, e.cfg.selfValue())
	if err := e.run(ctx, src, asm, e.estimation(src)); err != nil {
		return nil, err
	}
	if err := e.persist(func(path string) error { return SaveDense(path, asm.d) }); err != nil {
		return nil, err
	}
	return asm.d, nil
}

// RescaleSparse rescales a sparse matrix. Only pairs stored in both
// directions are rescaled; zero results are not stored.
func (e *Engine) RescaleSparse(ctx context.Context, c *sparse.CSR) (*sparse.CSR, error) {
	r, cols := c.Dims()
	if r != cols {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, cols)
	}
	if r == 0 {
		return sparse.NewCSR(0, 0, []int{0}, nil, nil), nil
	}

	src := newSparseSource(c)
	asm := newSparseAssembler(r, e.cfg.selfValue())
	if err := e.run(ctx, src, asm, e.estimation(src)); err != nil {
		return nil, err
	}
	if err := e.persist(func(path string) error { return SaveSparse(path, asm.out) }); err != nil {
		return nil, err
	}
	return asm.out, nil
}

// RescaleDisk rescales a memory-mapped matrix into a new mapped file at
// Config.OutputPath. The input is only read. The caller closes both
// matrices.
func (e *Engine) RescaleDisk(ctx context.Context, d *DiskMatrix) (*DiskMatrix, error) {
	n := d.N()
	path := e.cfg.OutputPath
	if path == "" {
		name := fmt.Sprintf("D_mp%s_%s.dat", e.cfg.Policy, time.Now().Format("2006-01-02-15-04-05"))
		path = filepath.Join(e.cfg.TmpDir, name)
	}
	if samePath(path, d.Path()) {
		return nil, fmt.Errorf("%w: output %s is the input matrix", ErrInvalidConfig, path)
	}

	src := newDiskSource(d, e.cfg.selfValue())
	strategy := e.estimation(src)
	pattern := mmap.AccessSequential
	if strategy == EstimationColumnwise {
		pattern = mmap.AccessRandom
	}
	if n > 0 {
		if err := d.advise(pattern); err != nil {
			e.log.Warn("madvise failed", "path", d.Path(), "error", err)
		}
	}

	out, err := CreateDiskMatrix(path, n)
	if err != nil {
		return nil, err
	}
	asm := &diskAssembler{out: out, self: e.cfg.selfValue(), chunk: chunkRows(e.cfg, n, e.log)}
	if err := e.run(ctx, src, asm, strategy); err != nil {
		_ = out.Close()
		return nil, err
	}
	if n > 0 {
		if err := e.persist(func(p string) error { return SaveDense(p, out.Dense()) }); err != nil {
			_ = out.Close()
			return nil, err
		}
	}
	return out, nil
}

// samePath reports whether a and b name the same file, either by cleaned
// absolute path or, when both exist, by file identity.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	fa, errA := os.Stat(a)
	fb, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(fa, fb)
}

func (e *Engine) estimation(src source) Estimation {
	return selectEstimation(e.cfg, src.byteSize(), e.log)
}

// run estimates the parameters, rescales every batch and merges the partial
// results into asm in completion order.
func (e *Engine) run(ctx context.Context, src source, asm assembler, strategy Estimation) error {
	n := src.size()
	mask, err := e.trainMask(n)
	if err != nil {
		e.log.Error("invalid train mask", "error", err)
		return err
	}
	k, err := newKernel(e.cfg)
	if err != nil {
		return err
	}
	if err := k.check(src, mask); err != nil {
		e.log.Error("configuration not supported", "policy", string(e.cfg.Policy), "error", err)
		return err
	}

	est := &estimator{
		strategy:   strategy,
		sampleSize: e.cfg.SampleSize,
		rng:        rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed)),
		log:        e.log,
	}
	if err := k.estimate(src, mask, est); err != nil {
		e.log.Error("parameter estimation failed", "policy", string(e.cfg.Policy), "error", err)
		return err
	}

	batches := PlanBatches(n, e.cfg.Workers)
	e.log.Info("rescaling",
		"policy", string(e.cfg.Policy),
		"n", n,
		"similarity", e.cfg.Similarity,
		"sparse", src.isSparse(),
		"batches", len(batches),
		"workers", e.cfg.Workers,
	)

	x := newBatchExecutor(ctx, e.cfg.Workers, len(batches))
	task := e.batchTask(src, k)
	for _, b := range batches {
		x.Submit(b, task)
	}

	var mergeErr error
	for range batches {
		res, err := x.Next().Get()
		if err != nil {
			e.cfg.Metrics.batchFailed()
			continue
		}
		if mergeErr == nil {
			mergeErr = asm.merge(res)
		}
	}
	if err := x.Wait(); err != nil {
		e.log.Error("rescaling aborted", "error", err)
		return err
	}
	if mergeErr != nil {
		e.log.Error("merging partial results failed", "error", mergeErr)
		return mergeErr
	}
	return asm.finish()
}

// trainMask combines Config.TrainMask and Config.TestSet for an n-row
// matrix.
func (e *Engine) trainMask(n int) (*Mask, error) {
	m, err := MaskFromTestSet(n, e.cfg.TestSet)
	if err != nil || e.cfg.TrainMask == nil {
		return m, err
	}
	if got := e.cfg.TrainMask.Len(); got != n {
		return nil, fmt.Errorf("%w: mask covers %d rows, matrix has %d", ErrInvalidMask, got, n)
	}
	m.rows.And(e.cfg.TrainMask.rows)
	return m, nil
}

// batchTask returns the task computing the partial result of one batch.
// Sparse sources yield entries for pairs stored in both directions; dense
// sources yield full upper triangular rows.
func (e *Engine) batchTask(src source, k kernel) batchTask {
	n := src.size()
	return func(ctx context.Context, b Batch) (*PartialResult, error) {
		path := batchFileName(e.cfg.TmpDir, b, e.cfg.Compression)
		if e.cfg.ResumeBatches {
			p, err := loadPartial(path, b, n, src.isSparse())
			switch {
			case err == nil:
				e.log.Info("resumed batch", "batch", b.String(), "path", path)
				return p, nil
			case !errors.Is(err, os.ErrNotExist):
				return nil, err
			}
		}

		start := time.Now()
		s := newScratch(n)
		p := &PartialResult{Batch: b}
		pairs := 0

		if src.isSparse() {
			p.Entries = []Entry{}
			for i := b.Lo; i < b.Hi; i++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				src.upper(i, func(j int, _ float64) {
					if src.at(j, i) == 0 {
						return
					}
					p.Entries = append(p.Entries, Entry{I: i, J: j, V: k.rescale(src, i, j, s)})
				})
			}
			pairs = len(p.Entries)
		} else {
			p.Rows = make([][]float64, b.Len())
			for r := range p.Rows {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				i := b.Lo + r
				vals := make([]float64, n-i-1)
				for j := i + 1; j < n; j++ {
					vals[j-i-1] = k.rescale(src, i, j, s)
				}
				p.Rows[r] = vals
				pairs += len(vals)
			}
		}

		if e.cfg.SaveBatches {
			if err := savePartial(path, p, n); err != nil {
				return nil, err
			}
		}
		elapsed := time.Since(start)
		e.cfg.Metrics.batchDone(e.cfg.Policy, pairs, elapsed)
		e.log.Info("batch done",
			"batch", b.String(),
			"pairs", pairs,
			"weight", batchWeight(b, n),
			"elapsed", elapsed,
		)
		return p, nil
	}
}

// persist writes the finished matrix to PersistDir when it is set.
func (e *Engine) persist(save func(path string) error) error {
	if e.cfg.PersistDir == "" {
		return nil
	}
	path := resultFileName(e.cfg.PersistDir, e.cfg.Policy, time.Now(), e.cfg.Compression)
	if err := save(path); err != nil {
		e.log.Error("persisting result failed", "path", path, "error", err)
		return err
	}
	e.log.Info("persisted result", "path", path)
	return nil
}
