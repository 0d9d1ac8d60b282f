package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ringdrop/internal/config"
)

func TestApplyFlags(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags([]string{"--port", "/dev/ttyACM1", "--no-plot"}))
	t.Cleanup(func() {
		portFlag, noPlotFlag = "", false
	})

	cfg := config.Default()
	applyFlags(rootCmd, cfg)
	assert.Equal(t, "/dev/ttyACM1", cfg.SerialPort)
	assert.Equal(t, 115200, cfg.BaudRate, "unset flags keep the file value")
	assert.Equal(t, "data", cfg.DataDir)
	assert.False(t, cfg.EnablePlot)
}

func TestApplyAnalysisFlags(t *testing.T) {
	require.NoError(t, analyzeCmd.ParseFlags([]string{"--block-size", "5", "--range-tol", "0"}))

	cfg := config.Default()
	applyAnalysisFlags(analyzeCmd, cfg)
	assert.Equal(t, 5, cfg.BlockSize)
	assert.Equal(t, 0.0, cfg.RangeTolerance)
	assert.Equal(t, 0.3, cfg.Tolerance)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"acquire", "series", "analyze", "compare", "ports", "drop"} {
		assert.True(t, names[want], want)
	}
}
