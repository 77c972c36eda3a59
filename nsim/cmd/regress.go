package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/netspec"
)

var regressCmd = &cobra.Command{
	Use:   "regress [network.yaml]",
	Short: "Check that recordings do not depend on the run block length.",
	Long: "`regress` runs a network once as a reference and then once per " +
		"block length, advancing time in calls of that length. Every run " +
		"must record exactly what the reference recorded and pass the " +
		"checks of the network. Without a file the built-in network is used.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRegress,
}

func init() {
	rootCmd.AddCommand(regressCmd)
	regressCmd.Flags().Float64Slice("blocks", netspec.DefaultBlocks,
		"Block lengths in milliseconds")
	regressCmd.Flags().Int("workers", 0,
		"Goroutines integrating neurons, 0 keeps the network setting")
}

func runRegress(cmd *cobra.Command, args []string) error {
	n := netspec.RegressionNetwork()
	if len(args) == 1 {
		var err error
		n, err = netspec.Load(args[0], ".env")
		if err != nil {
			return err
		}
	}

	fallback, err := n.Level()
	if err != nil {
		return err
	}

	level, err := logLevel(cmd, fallback)
	if err != nil {
		return err
	}

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := []kernel.Option{kernel.WithLogger(logger)}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		opts = append(opts, kernel.WithWorkers(workers))
	}

	blocks, _ := cmd.Flags().GetFloat64Slice("blocks")

	results, err := netspec.CheckInvariance(n, blocks, opts...)
	if err != nil {
		return fmt.Errorf("reference run: %w", err)
	}

	out := cmd.OutOrStdout()
	failed := 0

	for _, r := range results {
		if r.Passed() {
			fmt.Fprintf(out, "block %g ms: ok\n", r.BlockMs)
			continue
		}

		failed++
		fmt.Fprintf(out, "block %g ms: FAIL: %v\n", r.BlockMs, r.Err)
		logger.Error("regression failed",
			zap.Float64("block_ms", r.BlockMs), zap.Error(r.Err))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d block lengths failed", failed, len(results))
	}

	fmt.Fprintf(out, "all %d block lengths passed\n", len(results))

	return nil
}
