package app

import (
	"fmt"
	"image"
	"log"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/ringdrop/internal/acquisition"
	"github.com/relabs-tech/ringdrop/internal/analysis"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// Display shows acquisition progress on an SSD1306 OLED next to the rig.
type Display struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenDisplay initialises the OLED on the given I2C bus ("" for the first).
func OpenDisplay(busName string) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %q", busName)

	d := &Display{bus: bus, dev: dev}
	if err := d.show("Ring drop", "Waiting for", "first test"); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}
	return d, nil
}

// TrialStored implements acquisition.Observer.
func (d *Display) TrialStored(ev acquisition.TrialEvent) {
	if err := d.show(trialLines(ev)...); err != nil {
		log.Printf("display: error updating: %v", err)
	}
}

// ShowResult puts the verdict of an analysis on screen.
func (d *Display) ShowResult(res *analysis.Result) {
	if err := d.show(resultLines(res)...); err != nil {
		log.Printf("display: error updating: %v", err)
	}
}

// Close blanks the display and releases the bus.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.Halt(); err != nil {
		log.Printf("display: halt: %v", err)
	}
	return d.bus.Close()
}

func (d *Display) show(lines ...string) error {
	img := renderLines(lines)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

// renderLines draws up to four lines of 7x13 text.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i >= displayHeight/lineHeight {
			break
		}
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func trialLines(ev acquisition.TrialEvent) []string {
	lines := []string{
		fmt.Sprintf("Test %d/%d", ev.Run, ev.Total),
		"Trough " + orDash(ev.Trough, "%.2f"),
	}
	if !math.IsNaN(ev.Temp) || !math.IsNaN(ev.Hum) {
		lines = append(lines, fmt.Sprintf("T %s RH %s", orDash(ev.Temp, "%.1f"), orDash(ev.Hum, "%.0f")))
	}
	return lines
}

func resultLines(res *analysis.Result) []string {
	verdict := "PASS"
	if !res.RangeOK || !res.Environment.ExclusionOK {
		verdict = "FAIL"
	}
	return []string{
		"Mean " + orDash(res.OverallMean, "%.3f"),
		"Range " + orDash(res.Range, "%.3f"),
		fmt.Sprintf("Excl %d (%.0f%%)", len(res.Excluded), res.Environment.ExcludedPct),
		verdict,
	}
}

func orDash(v float64, format string) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
