package sensor

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Channel files exposed by the kernel dht11 driver, which also serves the
// DHT22/AM2302. Values are in milli-units.
const (
	tempFile     = "in_temp_input"
	humidityFile = "in_humidityrelative_input"
)

// DefaultIIODevice is the sysfs directory of the first IIO device.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// IIOSensor reads a humidity/temperature sensor through sysfs.
type IIOSensor struct {
	dir     string
	started bool
	closed  bool
}

// NewIIOSensor creates a sensor for the given IIO device directory.
func NewIIOSensor(dir string) *IIOSensor {
	return &IIOSensor{dir: dir}
}

// Begin checks that both channel files are present.
func (s *IIOSensor) Begin() error {
	for _, name := range []string{tempFile, humidityFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("sensor channel %s: %w", name, err)
		}
	}
	s.started = true
	return nil
}

// ReadTemperature returns tenths of a degree Celsius.
func (s *IIOSensor) ReadTemperature() (int16, error) {
	return s.read(tempFile)
}

// ReadHumidity returns tenths of a percent relative humidity.
func (s *IIOSensor) ReadHumidity() (int16, error) {
	return s.read(humidityFile)
}

// Close stops further reads. Sysfs files are opened per read.
func (s *IIOSensor) Close() error {
	s.started = false
	s.closed = true
	return nil
}

// read retries Begin until the device appears, so a sensor that was missing
// at startup is picked up on a later poll.
func (s *IIOSensor) read(name string) (int16, error) {
	if s.closed {
		return 0, ErrNotReady
	}
	if !s.started {
		if err := s.Begin(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNotReady, err)
		}
	}
	// The driver performs the bus transaction on read, so a read can fail
	// with EIO or ETIMEDOUT when the sensor misses its timing window.
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	return parseMilli(strings.TrimSpace(string(data)))
}

// parseMilli converts a milli-unit reading to tenths, rounding half away
// from zero.
func parseMilli(s string) (int16, error) {
	milli, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse reading %q: %w", s, err)
	}
	tenths := math.Round(float64(milli) / 100)
	if tenths < math.MinInt16 || tenths > math.MaxInt16 {
		return 0, fmt.Errorf("reading %q out of range", s)
	}
	return int16(tenths), nil
}
