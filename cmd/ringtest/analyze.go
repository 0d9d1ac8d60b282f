package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/ringdrop/internal/app"
	"github.com/relabs-tech/ringdrop/internal/config"
)

var (
	labelFlag     string
	blockSizeFlag int
	tolFlag       float64
	rangeTolFlag  float64
)

func init() {
	analyzeCmd.Flags().StringVarP(&labelFlag, "label", "l", "", "Name used in the report and plot files (default: directory name)")
	for _, c := range []*cobra.Command{analyzeCmd, compareCmd} {
		c.Flags().IntVar(&blockSizeFlag, "block-size", 0, "Trials per rotation (overrides BLOCK_SIZE)")
		c.Flags().Float64Var(&tolFlag, "tol", 0, "Inclusion radius around the block center (overrides TOLERANCE)")
		c.Flags().Float64Var(&rangeTolFlag, "range-tol", 0, "Accepted spread of block means (overrides RANGE_TOLERANCE)")
	}
}

// applyAnalysisFlags copies the analysis flags that were set onto cfg.
func applyAnalysisFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("block-size") {
		cfg.BlockSize = blockSizeFlag
	}
	if cmd.Flags().Changed("tol") {
		cfg.Tolerance = tolFlag
	}
	if cmd.Flags().Changed("range-tol") {
		cfg.RangeTolerance = rangeTolFlag
	}
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Analyse the trial files of one test directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		applyAnalysisFlags(cmd, cfg)

		dir := cfg.DataDir
		if len(args) == 1 {
			dir = args[0]
		}

		res, err := app.RunAnalysis(dir, labelFlag, app.AnalysisOptions(cfg), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nDynamic angle: %.3f°\n", res.OverallMean)
		return nil
	},
}
