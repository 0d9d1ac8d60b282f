package main

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/ringdrop/internal/app"
	"github.com/relabs-tech/ringdrop/internal/config"
)

var compareCmd = &cobra.Command{
	Use:   "compare dir...",
	Short: "Compare the results of several test directories per ring",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		applyAnalysisFlags(cmd, cfg)

		_, err := app.RunCompare(args, app.AnalysisOptions(cfg), cmd.OutOrStdout())
		return err
	},
}
