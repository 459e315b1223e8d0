package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/TrevorS/mutprox"
)

// HubnessCommand holds the flags of the hubness command.
type HubnessCommand struct {
	input      string
	k          int
	similarity bool
	sparse     bool
}

// NewHubnessCommand creates the hubness command.
func NewHubnessCommand() *cobra.Command {
	hc := &HubnessCommand{}

	cmd := &cobra.Command{
		Use:   "hubness",
		Short: "Print the skewness of the k-occurrence distribution",
		Args:  cobra.NoArgs,
		RunE:  hc.run,
	}

	cmd.Flags().StringVarP(&hc.input, "input", "i", "", "Distance matrix path")
	cmd.Flags().IntVarP(&hc.k, "k", "k", 5, "Neighborhood size")
	cmd.Flags().BoolVar(&hc.similarity, "similarity", false, "Input is a similarity matrix")
	cmd.Flags().BoolVar(&hc.sparse, "sparse", false, "Input is a sparse triplet file")

	return cmd
}

func (hc *HubnessCommand) run(cmd *cobra.Command, _ []string) error {
	if hc.input == "" {
		return fmt.Errorf("%w: --input is required", ErrMissingPath)
	}
	d, err := loadMatrix(hc.input, hc.sparse)
	if err != nil {
		return err
	}

	occ, err := mutprox.KOccurrence(d, hc.k, hc.similarity)
	if err != nil {
		return err
	}

	maxOcc, orphans := 0, 0
	x := make([]float64, len(occ))
	for i, o := range occ {
		x[i] = float64(o)
		maxOcc = max(maxOcc, o)
		if o == 0 {
			orphans++
		}
	}
	skew := stat.Skew(x, nil)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"k", "skewness", "max k-occurrence", "anti-hubs"})
	tbl.AppendRow(table.Row{hc.k, fmt.Sprintf("%.4f", skew), maxOcc, orphans})
	tbl.Render()
	return nil
}

// loadMatrix reads a dense .npy matrix or a sparse triplet file.
func loadMatrix(path string, sparse bool) (mat.Matrix, error) {
	if sparse {
		return mutprox.LoadSparse(path)
	}
	return mutprox.LoadDense(path)
}
