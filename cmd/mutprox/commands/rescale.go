// Package commands implements CLI command handlers for mutprox.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TrevorS/mutprox"
	"github.com/TrevorS/mutprox/internal/config"
)

// ErrMissingPath is returned when a required file flag is empty.
var ErrMissingPath = errors.New("missing required path")

// RescaleCommand holds the flags of the rescale command.
type RescaleCommand struct {
	input       string
	output      string
	testSet     string
	sparse      bool
	disk        bool
	configPath  string
	metricsFile string

	v *viper.Viper
}

// boundFlags maps config keys to the flags that override them.
var boundFlags = map[string]string{
	"policy":       "policy",
	"similarity":   "similarity",
	"workers":      "jobs",
	"estimation":   "estimation",
	"sample_size":  "sample-size",
	"enforce_disk": "enforce-disk",
	"chunk_rows":   "chunk-rows",
	"tmp_dir":      "tmp-dir",
	"save_batches": "save-batches",
	"resume":       "resume",
	"persist_dir":  "persist-dir",
	"compression":  "compression",
	"memory_limit": "memory-limit",
	"seed":         "seed",
	"log.level":    "log-level",
	"log.format":   "log-format",
}

// NewRescaleCommand creates the rescale command.
func NewRescaleCommand() *cobra.Command {
	rc := &RescaleCommand{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "rescale",
		Short: "Rescale a distance matrix with Mutual Proximity",
		Long: `Rescale a square .npy distance or similarity matrix with Mutual Proximity.

Dense matrices are read from .npy files (optionally .lz4 or .zst compressed),
sparse matrices from triplet files written by this tool, and --disk matrices
from raw float64 files that are memory-mapped.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	f := cmd.Flags()
	f.StringVarP(&rc.input, "input", "i", "", "Input matrix path")
	f.StringVarP(&rc.output, "output", "o", "", "Output matrix path")
	f.StringVar(&rc.testSet, "test-set", "", "Optional .npy file of test row indices excluded from estimation")
	f.BoolVar(&rc.sparse, "sparse", false, "Input is a sparse triplet file")
	f.BoolVar(&rc.disk, "disk", false, "Input is a raw float64 file that is memory-mapped")
	f.StringVar(&rc.configPath, "config", "", "Config file (default: .mutprox.yaml in CWD or $HOME)")
	f.StringVar(&rc.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")

	f.String("policy", config.DefaultPolicy, "Policy: empiric, gauss, gaussi, gammai")
	f.Bool("similarity", false, "Input is a similarity matrix")
	f.IntP("jobs", "j", 0, "Number of parallel workers (0 = use CPU count)")
	f.String("estimation", config.DefaultEstimation, "Estimation strategy: auto, memory, sampled, columnwise")
	f.Int("sample-size", 0, "Rows sampled for parameter estimation (0 = default)")
	f.Bool("enforce-disk", false, "Force column-wise estimation")
	f.Int("chunk-rows", 0, "Rows mirrored at once for --disk (0 = from free memory)")
	f.String("tmp-dir", "", "Directory for batch files and temporary outputs")
	f.Bool("save-batches", false, "Write every batch result to --tmp-dir")
	f.Bool("resume", false, "Reuse batch results found in --tmp-dir")
	f.String("persist-dir", "", "Also persist the result as a timestamped .npy in this directory")
	f.String("compression", config.DefaultCompression, "Compression of batch and persisted files: none, lz4, zstd")
	f.String("memory-limit", "", "Assume this much free memory (e.g. '4GB') instead of asking the system")
	f.Uint64("seed", 0, "Seed for row sampling")
	f.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	f.String("log-format", config.DefaultLogFormat, "Log format: text, json")

	for key, flag := range boundFlags {
		if err := rc.v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func (rc *RescaleCommand) run(cmd *cobra.Command, _ []string) error {
	if rc.input == "" || rc.output == "" {
		return fmt.Errorf("%w: --input and --output are required", ErrMissingPath)
	}

	cfg, err := config.LoadWith(rc.v, rc.configPath)
	if err != nil {
		return err
	}
	ecfg, err := cfg.Engine()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	ecfg.Logger = logger

	var reg *prometheus.Registry
	if rc.metricsFile != "" {
		reg = prometheus.NewRegistry()
		ecfg.Metrics = mutprox.NewMetrics(reg)
	}

	if rc.testSet != "" {
		ecfg.TestSet, err = mutprox.LoadIndices(rc.testSet)
		if err != nil {
			return err
		}
	}
	if rc.disk {
		ecfg.OutputPath = rc.output
	}

	engine, err := mutprox.New(ecfg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := rc.rescale(cmd.Context(), engine); err != nil {
		return err
	}
	logger.Info("rescaling finished", "output", rc.output, "elapsed", time.Since(start))

	if reg != nil {
		if err := prometheus.WriteToTextfile(rc.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func (rc *RescaleCommand) rescale(ctx context.Context, engine *mutprox.Engine) error {
	switch {
	case rc.disk:
		in, err := mutprox.OpenDiskMatrix(rc.input)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := engine.RescaleDisk(ctx, in)
		if err != nil {
			return err
		}
		return out.Close()

	case rc.sparse:
		in, err := mutprox.LoadSparse(rc.input)
		if err != nil {
			return err
		}
		out, err := engine.RescaleSparse(ctx, in)
		if err != nil {
			return err
		}
		return mutprox.SaveSparse(rc.output, out)

	default:
		in, err := mutprox.LoadDense(rc.input)
		if err != nil {
			return err
		}
		out, err := engine.RescaleDense(ctx, in)
		if err != nil {
			return err
		}
		return mutprox.SaveDense(rc.output, out)
	}
}

func newLogger(w io.Writer, cfg *config.Config) (mutprox.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "json" {
		return mutprox.NewJSONLogger(w, level), nil
	}
	return mutprox.NewTextLogger(w, level), nil
}
