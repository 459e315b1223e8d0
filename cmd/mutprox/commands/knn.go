package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/TrevorS/mutprox"
	"github.com/TrevorS/mutprox/knn"
)

// KNNCommand holds the flags of the knn command.
type KNNCommand struct {
	input      string
	labels     string
	ks         []int
	similarity bool
	sparse     bool
	seed       uint64
	confusion  bool
}

// NewKNNCommand creates the knn command.
func NewKNNCommand() *cobra.Command {
	kc := &KNNCommand{}

	cmd := &cobra.Command{
		Use:   "knn",
		Short: "Run a leave-one-out k-nearest-neighbor experiment",
		Args:  cobra.NoArgs,
		RunE:  kc.run,
	}

	cmd.Flags().StringVarP(&kc.input, "input", "i", "", "Distance matrix path")
	cmd.Flags().StringVarP(&kc.labels, "labels", "l", "", "Class labels (.npy, int64)")
	cmd.Flags().IntSliceVarP(&kc.ks, "k", "k", []int{1, 5, 10}, "Neighborhood sizes")
	cmd.Flags().BoolVar(&kc.similarity, "similarity", false, "Input is a similarity matrix")
	cmd.Flags().BoolVar(&kc.sparse, "sparse", false, "Input is a sparse triplet file")
	cmd.Flags().Uint64Var(&kc.seed, "seed", 0, "Seed for breaking distance ties")
	cmd.Flags().BoolVar(&kc.confusion, "confusion", false, "Print the confusion matrix of every k")

	return cmd
}

func (kc *KNNCommand) run(cmd *cobra.Command, _ []string) error {
	if kc.input == "" || kc.labels == "" {
		return fmt.Errorf("%w: --input and --labels are required", ErrMissingPath)
	}

	d, err := loadMatrix(kc.input, kc.sparse)
	if err != nil {
		return err
	}
	labels, err := mutprox.LoadIndices(kc.labels)
	if err != nil {
		return err
	}

	opts := []knn.Option{knn.WithSeed(kc.seed)}
	if kc.similarity {
		opts = append(opts, knn.WithSimilarity())
	}
	res, err := knn.Classify(d, labels, kc.ks, opts...)
	if err != nil {
		return err
	}

	renderKNN(cmd.OutOrStdout(), res, kc.confusion)
	return nil
}

// renderKNN prints the accuracy per k and, optionally, the confusion
// matrices.
func renderKNN(w io.Writer, res *knn.Result, confusion bool) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"k", "accuracy", "correct"})
	for _, kr := range res.PerK {
		hits := 0
		for _, ok := range kr.Correct {
			if ok {
				hits++
			}
		}
		tbl.AppendRow(table.Row{kr.K, fmt.Sprintf("%.4f", kr.Accuracy), fmt.Sprintf("%d/%d", hits, len(kr.Correct))})
	}
	tbl.Render()

	if !confusion {
		return
	}
	for _, kr := range res.PerK {
		cm := table.NewWriter()
		cm.SetOutputMirror(w)
		cm.SetStyle(table.StyleLight)
		cm.SetTitle(fmt.Sprintf("confusion k=%d (rows: true, cols: predicted)", kr.K))

		header := table.Row{""}
		for _, cl := range res.Classes {
			header = append(header, cl)
		}
		cm.AppendHeader(header)
		for t, cl := range res.Classes {
			row := table.Row{cl}
			for p := range res.Classes {
				row = append(row, int(kr.Confusion.At(t, p)))
			}
			cm.AppendRow(row)
		}
		cm.Render()
	}
}
