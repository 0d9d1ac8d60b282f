// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command ringtest drives the ring-drop apparatus and analyses its results.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/ringdrop/internal/config"
)

var (
	configFlag string
	portFlag   string
	baudFlag   int
	dirFlag    string
	noPlotFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "ringtest",
	Short:         "Ring drop rebound acquisition and acceptance analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitGlobal(configFlag, cmd.Flags().Changed("config")); err != nil {
			return err
		}
		applyFlags(cmd, config.Get())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "ring_config.txt", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "Serial port (overrides SERIAL_PORT)")
	rootCmd.PersistentFlags().IntVarP(&baudFlag, "baud", "b", 0, "Baud rate (overrides BAUD_RATE)")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "", "Trial directory (overrides DATA_DIR)")
	rootCmd.PersistentFlags().BoolVar(&noPlotFlag, "no-plot", false, "Do not render plots")

	rootCmd.AddCommand(acquireCmd, seriesCmd, analyzeCmd, compareCmd, portsCmd, dropCmd)
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.SerialPort = portFlag
	}
	if flags.Changed("baud") {
		cfg.BaudRate = baudFlag
	}
	if flags.Changed("dir") {
		cfg.DataDir = dirFlag
	}
	if noPlotFlag {
		cfg.EnablePlot = false
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("fatal: %v", err)
	}
}
