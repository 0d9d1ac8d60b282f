package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Serial link to the drop apparatus
	SerialPort      string
	BaudRate        int
	ReadTimeoutMs   int // per-line read timeout
	MaxReadAttempts int // unsuccessful lines tolerated per trial
	SettleDelayMs   int // the ESP32 resets when the port opens

	// Data
	DataDir string

	// Analysis
	BlockSize      int     // trials per rotation
	Tolerance      float64 // degrees around the block center
	RangeTolerance float64 // degrees between block means
	EnablePlot     bool
	PlotDir        string

	// Series acquisition
	Rotations int

	// MQTT (optional, empty broker disables publishing)
	MQTTBroker          string
	MQTTClientIDAcquire string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string

	// Topics
	TopicTrial   string
	TopicSummary string

	// Web Server
	WebServerPort int

	// Status display
	DisplayEnabled bool
	DisplayI2CBus  string

	// Host ambient sensor (BME280), empty bus disables it
	EnvSensorI2CBus  string
	EnvSensorI2CAddr uint16
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used on the apparatus when no file
// overrides it.
func Default() *Config {
	return &Config{
		SerialPort:      "/dev/ttyUSB0",
		BaudRate:        115200,
		ReadTimeoutMs:   1000,
		MaxReadAttempts: 60,
		SettleDelayMs:   2000,

		DataDir: "data",

		BlockSize:      15,
		Tolerance:      0.3,
		RangeTolerance: 0.4,
		EnablePlot:     true,
		PlotDir:        "plots",

		Rotations: 4,

		MQTTClientIDAcquire: "ringdrop-acquire",
		MQTTClientIDConsole: "ringdrop-console",
		MQTTClientIDWeb:     "ringdrop-web",

		TopicTrial:   "ringdrop/trial",
		TopicSummary: "ringdrop/summary",

		WebServerPort: 8080,

		EnvSensorI2CAddr: 0x76,
	}
}

// Load reads the configuration file on top of Default and returns it.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(configPath)
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BAUD_RATE %q: %w", value, err)
		}
		c.BaudRate = rate
	case "READ_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid READ_TIMEOUT_MS %q: %w", value, err)
		}
		// The tty inter-character timer counts tenths of a second up to 25.5 s.
		if ms < 100 || ms > 25500 {
			return fmt.Errorf("READ_TIMEOUT_MS must be 100-25500, got %d", ms)
		}
		c.ReadTimeoutMs = ms
	case "MAX_READ_ATTEMPTS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAX_READ_ATTEMPTS %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("MAX_READ_ATTEMPTS must be >= 1, got %d", n)
		}
		c.MaxReadAttempts = n
	case "SETTLE_DELAY_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SETTLE_DELAY_MS %q: %w", value, err)
		}
		c.SettleDelayMs = ms

	// Data
	case "DATA_DIR":
		c.DataDir = value

	// Analysis
	case "BLOCK_SIZE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BLOCK_SIZE %q: %w", value, err)
		}
		c.BlockSize = n
	case "TOLERANCE":
		tol, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid TOLERANCE %q: %w", value, err)
		}
		c.Tolerance = tol
	case "RANGE_TOLERANCE":
		tol, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RANGE_TOLERANCE %q: %w", value, err)
		}
		c.RangeTolerance = tol
	case "ENABLE_PLOT":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_PLOT %q: %w", value, err)
		}
		c.EnablePlot = b
	case "PLOT_DIR":
		c.PlotDir = value

	// Series
	case "ROTATIONS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ROTATIONS %q: %w", value, err)
		}
		c.Rotations = n

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_ACQUIRE":
		c.MQTTClientIDAcquire = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_TRIAL":
		c.TopicTrial = value
	case "TOPIC_SUMMARY":
		c.TopicSummary = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_ENABLED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
		c.DisplayEnabled = b
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// Host env sensor
	case "ENV_SENSOR_I2C_BUS":
		c.EnvSensorI2CBus = value
	case "ENV_SENSOR_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid ENV_SENSOR_I2C_ADDR %q: %w", value, err)
		}
		c.EnvSensorI2CAddr = uint16(addr)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("BAUD_RATE must be > 0")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("BLOCK_SIZE must be > 0")
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("TOLERANCE must be > 0")
	}
	if c.RangeTolerance < 0 {
		return fmt.Errorf("RANGE_TOLERANCE must be >= 0")
	}
	if c.Rotations <= 0 {
		return fmt.Errorf("ROTATIONS must be > 0")
	}
	if c.MQTTBroker != "" && (c.TopicTrial == "" || c.TopicSummary == "") {
		return fmt.Errorf("TOPIC_TRIAL and TOPIC_SUMMARY are required when MQTT_BROKER is set")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. An explicit
// path must exist; otherwise a missing file means Default.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string, explicit bool) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = open(configPath, explicit)
	})
	return err
}

func open(configPath string, explicit bool) (*Config, error) {
	if explicit {
		return Load(configPath)
	}
	return LoadOrDefault(configPath)
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
