package main

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/ringdrop/internal/app"
	"github.com/relabs-tech/ringdrop/internal/config"
)

var (
	ringFlag      string
	afterFlag     int
	countFlag     int
	rotationsFlag int
	noAnalyzeFlag bool
)

func init() {
	for _, c := range []*cobra.Command{acquireCmd, seriesCmd} {
		c.Flags().StringVarP(&ringFlag, "ring", "r", "test", "Ring ID used in the file names")
		c.Flags().BoolVar(&noAnalyzeFlag, "no-analyze", false, "Skip the analysis after acquiring")
	}
	acquireCmd.Flags().IntVar(&afterFlag, "after", 0, "Number of the last test already on disk when continuing a set")
	acquireCmd.Flags().IntVarP(&countFlag, "count", "n", 1, "Number of new tests")
	seriesCmd.Flags().IntVar(&rotationsFlag, "rotations", 0, "Number of rotations (overrides ROTATIONS)")
}

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Run a number of drop tests and store one JSON file per test",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		return app.RunAcquire(cmd.Context(), cfg, app.AcquireOptions{
			Dir:     cfg.DataDir,
			RingID:  ringFlag,
			After:   afterFlag,
			Count:   countFlag,
			Analyze: !noAnalyzeFlag,
		}, cmd.OutOrStdout())
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Run ROTATIONS x BLOCK_SIZE tests, pausing between rotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		rotations := cfg.Rotations
		if cmd.Flags().Changed("rotations") {
			rotations = rotationsFlag
		}
		return app.RunSeries(cmd.Context(), cfg, app.AcquireOptions{
			Dir:       cfg.DataDir,
			RingID:    ringFlag,
			Rotations: rotations,
			Analyze:   !noAnalyzeFlag,
		}, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}
