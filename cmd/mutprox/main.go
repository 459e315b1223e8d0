// Package main provides the entry point for the mutprox CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TrevorS/mutprox/cmd/mutprox/commands"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mutprox",
		Short: "Mutual Proximity rescaling of distance matrices",
		Long: `mutprox rescales distance and similarity matrices with Mutual Proximity
to reduce hubness in nearest-neighbor methods.

Commands:
  rescale   Rescale a .npy matrix
  knn       Run a leave-one-out k-NN experiment
  hubness   Measure the skewness of the k-occurrence distribution`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRescaleCommand())
	rootCmd.AddCommand(commands.NewKNNCommand())
	rootCmd.AddCommand(commands.NewHubnessCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mutprox %s (commit: %s)\n", version, commit)
		},
	}
}
