package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ring_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# apparatus on the lab bench
SERIAL_PORT=/dev/ttyACM1
BAUD_RATE = 57600
READ_TIMEOUT_MS=1500
MAX_READ_ATTEMPTS=10
BLOCK_SIZE=10
TOLERANCE=0.25
RANGE_TOLERANCE=0.5
ENABLE_PLOT=false
MQTT_BROKER=tcp://localhost:1883
ENV_SENSOR_I2C_BUS=1
ENV_SENSOR_I2C_ADDR=0x77
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM1", cfg.SerialPort)
	assert.Equal(t, 57600, cfg.BaudRate)
	assert.Equal(t, 1500, cfg.ReadTimeoutMs)
	assert.Equal(t, 10, cfg.MaxReadAttempts)
	assert.Equal(t, 10, cfg.BlockSize)
	assert.Equal(t, 0.25, cfg.Tolerance)
	assert.Equal(t, 0.5, cfg.RangeTolerance)
	assert.False(t, cfg.EnablePlot)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, uint16(0x77), cfg.EnvSensorI2CAddr)

	// untouched keys keep their defaults
	assert.Equal(t, Default().SettleDelayMs, cfg.SettleDelayMs)
	assert.Equal(t, "ringdrop/trial", cfg.TopicTrial)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing equals", "SERIAL_PORT\n"},
		{"unknown key", "FOO=bar\n"},
		{"bad number", "BLOCK_SIZE=fifteen\n"},
		{"timeout out of range", "READ_TIMEOUT_MS=50\n"},
		{"zero attempts", "MAX_READ_ATTEMPTS=0\n"},
		{"non-positive block size", "BLOCK_SIZE=0\n"},
		{"non-positive tolerance", "TOLERANCE=0\n"},
		{"empty topic with broker", "MQTT_BROKER=tcp://x:1883\nTOPIC_TRIAL=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestOpenExplicitPathMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "typo_config.txt")

	cfg, err := open(missing, true)
	assert.Error(t, err)
	assert.Nil(t, cfg)

	cfg, err = open(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = open(writeConfig(t, "BLOCK_SIZE=5\n"), true)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.BlockSize)
}
