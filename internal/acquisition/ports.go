package acquisition

import (
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

// USB-UART bridges found on ESP32 dev boards, by vendor id.
var bridgeVendors = map[string]string{
	"10C4": "Silicon Labs CP210x",
	"1A86": "WCH CH340",
	"0403": "FTDI",
	"303A": "Espressif native USB",
}

// PortInfo describes a serial port that may have the apparatus attached.
type PortInfo struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
	Bridge  string // known ESP32 USB bridge, "" if unknown
}

// ListPorts returns the serial ports whose names look like USB serial
// adapters.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate serial ports")
	}
	return filterCandidatePorts(ports), nil
}

// filterCandidatePorts keeps the ports matching USB serial naming patterns.
func filterCandidatePorts(ports []*enumerator.PortDetails) []PortInfo {
	candidates := []PortInfo{}
	for _, p := range ports {
		if !isCandidatePort(p.Name) {
			continue
		}
		info := PortInfo{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     strings.ToUpper(p.VID),
			PID:     strings.ToUpper(p.PID),
			Serial:  p.SerialNumber,
			Product: p.Product,
		}
		info.Bridge = bridgeVendors[info.VID]
		candidates = append(candidates, info)
	}
	return candidates
}

func isCandidatePort(port string) bool {
	// Linux
	if strings.HasPrefix(port, "/dev/ttyUSB") || strings.HasPrefix(port, "/dev/ttyACM") {
		return true
	}
	// macOS
	for _, prefix := range []string{"/dev/tty.usbmodem", "/dev/tty.usbserial", "/dev/cu.usbmodem", "/dev/cu.usbserial", "/dev/cu.SLAB_USBtoUART", "/dev/cu.wchusbserial"} {
		if strings.HasPrefix(port, prefix) {
			return true
		}
	}
	// Windows
	return strings.HasPrefix(port, "COM")
}
