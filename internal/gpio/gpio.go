// Package gpio drives the relay board outputs with hardware abstraction.
// The relay board is active-low: an active channel pulls its line low and
// energises the relay, an inactive channel holds the line high at rest.
// The real implementations use the Linux GPIO character device or the
// BCM2835 register block. The fake implementation allows testing without
// hardware.
package gpio

import "fmt"

// Drive is the logical state of one relay channel.
type Drive uint8

const (
	Inactive Drive = iota // line high, relay at rest
	Active                // line low, relay energised
)

func (d Drive) String() string {
	switch d {
	case Inactive:
		return "INACTIVE"
	case Active:
		return "ACTIVE"
	}
	return fmt.Sprintf("Drive(%d)", uint8(d))
}

// Writer drives relay output channels, numbered 1..NumChannels.
type Writer interface {
	// Write sets one channel. Writing the current state again is allowed
	// and produces an identical line level.
	Write(channel int, d Drive) error

	// Close releases every relay and frees GPIO resources.
	Close() error
}

// NumChannels is the number of relay channels on the board.
const NumChannels = 6

// DefaultPins are the BCM pin numbers wired to relay channels 1-6.
var DefaultPins = []int{17, 27, 22, 23, 24, 25}

func checkChannel(channel, n int) error {
	if channel < 1 || channel > n {
		return fmt.Errorf("gpio: channel %d out of range 1..%d", channel, n)
	}
	return nil
}
