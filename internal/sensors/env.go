package sensors

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/ringdrop/internal/env"
)

// HostEnv reads a BME280 wired to the acquisition host. It stands in for the
// apparatus' own sensor when the records arrive without temp/hum.
type HostEnv struct {
	BusName string // "" selects the first I2C bus
	Addr    uint16 // 0x76 or 0x77

	once    sync.Once
	initErr error
	bus     i2c.BusCloser
	dev     *bmxx80.Dev
}

// NewHostEnv returns a lazily initialised BME280 reader.
func NewHostEnv(busName string, addr uint16) *HostEnv {
	return &HostEnv{BusName: busName, Addr: addr}
}

func (h *HostEnv) init() {
	h.once.Do(func() {
		if _, err := host.Init(); err != nil {
			h.initErr = fmt.Errorf("periph host init: %w", err)
			return
		}

		bus, err := i2creg.Open(h.BusName)
		if err != nil {
			h.initErr = fmt.Errorf("env sensor I2C open: %w", err)
			return
		}

		dev, err := bmxx80.NewI2C(bus, h.Addr, &bmxx80.DefaultOpts)
		if err != nil {
			bus.Close()
			h.initErr = fmt.Errorf("env sensor init: %w", err)
			return
		}

		h.bus = bus
		h.dev = dev
		log.Printf("sensors: BME280 initialized at 0x%02X", h.Addr)
	})
}

// ReadEnv implements acquisition.EnvReader.
func (h *HostEnv) ReadEnv() (env.Sample, error) {
	h.init()
	if h.initErr != nil {
		return env.Sample{}, h.initErr
	}

	var e physic.Env
	if err := h.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("env sensor sense: %w", err)
	}

	return env.Sample{
		Source:      "host",
		Temperature: e.Temperature.Celsius(),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
	}, nil
}

// Close releases the sensor and its bus.
func (h *HostEnv) Close() error {
	if h.dev != nil {
		h.dev.Halt()
	}
	if h.bus != nil {
		return h.bus.Close()
	}
	return nil
}
