package acquisition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial/enumerator"
)

func TestFilterCandidatePorts(t *testing.T) {
	tests := []struct {
		name     string
		ports    []*enumerator.PortDetails
		expected []string
	}{
		{
			name: "Linux USB ports",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyS0"}, {Name: "/dev/ttyACM0"}, {Name: "/dev/null"},
			},
			expected: []string{"/dev/ttyUSB0", "/dev/ttyACM0"},
		},
		{
			name: "macOS USB ports",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/cu.SLAB_USBtoUART"}, {Name: "/dev/tty.Bluetooth"}, {Name: "/dev/tty.usbserial-AB"},
			},
			expected: []string{"/dev/cu.SLAB_USBtoUART", "/dev/tty.usbserial-AB"},
		},
		{
			name:     "Windows COM ports",
			ports:    []*enumerator.PortDetails{{Name: "COM3"}, {Name: "LPT1"}, {Name: "COM13"}},
			expected: []string{"COM3", "COM13"},
		},
		{
			name:     "Empty list",
			ports:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, p := range filterCandidatePorts(tt.ports) {
				got = append(got, p.Name)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFilterCandidatePortsBridge(t *testing.T) {
	got := filterCandidatePorts([]*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60", Product: "CP2102"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "abcd", PID: "0001"},
	})
	if assert.Len(t, got, 2) {
		assert.Equal(t, "Silicon Labs CP210x", got[0].Bridge)
		assert.Equal(t, "EA60", got[0].PID)
		assert.Empty(t, got[1].Bridge)
	}
}
