//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio"
)

// Relay boards pull the coil in on a low level.
const (
	on   = rpio.Low
	rest = rpio.High
)

// RpioWriter drives relays through the memory-mapped BCM2835 GPIO block.
// Use it on older kernels without the character device.
type RpioWriter struct {
	pins []rpio.Pin
}

// NewRpioWriter maps the GPIO registers and configures every pin as an
// output held at rest.
func NewRpioWriter(pins []int) (*RpioWriter, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	w := &RpioWriter{}
	for _, n := range pins {
		pin := rpio.Pin(n)
		pin.Output()
		pin.Write(rest)
		w.pins = append(w.pins, pin)
	}
	return w, nil
}

// Write sets the line level for one relay.
func (w *RpioWriter) Write(channel int, d Drive) error {
	if err := checkChannel(channel, len(w.pins)); err != nil {
		return err
	}
	if d == Active {
		w.pins[channel-1].Write(on)
	} else {
		w.pins[channel-1].Write(rest)
	}
	return nil
}

// Close releases all relays and unmaps the registers.
func (w *RpioWriter) Close() error {
	for _, pin := range w.pins {
		pin.Write(rest)
	}
	w.pins = nil
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}
