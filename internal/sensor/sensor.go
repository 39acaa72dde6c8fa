// Package sensor reads ambient temperature and humidity with hardware
// abstraction. The real implementation reads a Linux IIO device; the fake
// implementation allows testing without hardware.
package sensor

import "errors"

// ErrNotReady is returned when the device is not available or was closed.
var ErrNotReady = errors.New("sensor: not started")

// Sensor reads temperature and humidity. Each quantity is read separately
// and may fail on its own.
type Sensor interface {
	Begin() error

	// ReadTemperature returns tenths of a degree Celsius.
	ReadTemperature() (int16, error)

	// ReadHumidity returns tenths of a percent relative humidity.
	ReadHumidity() (int16, error)

	Close() error
}
