package main

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/ringdrop/internal/app"
	"github.com/relabs-tech/ringdrop/internal/config"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Release the magnet without running a test",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunDrop(config.Get())
	},
}
