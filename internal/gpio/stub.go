//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevWriter is not available on non-Linux platforms.
type CdevWriter struct{}

// NewCdevWriter returns an error on non-Linux platforms.
func NewCdevWriter(chipName string, pins []int) (*CdevWriter, error) {
	return nil, errUnsupported
}

// Write is not implemented on non-Linux platforms.
func (w *CdevWriter) Write(channel int, d Drive) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (w *CdevWriter) Close() error { return nil }

// RpioWriter is not available on non-Linux platforms.
type RpioWriter struct{}

// NewRpioWriter returns an error on non-Linux platforms.
func NewRpioWriter(pins []int) (*RpioWriter, error) {
	return nil, errUnsupported
}

// Write is not implemented on non-Linux platforms.
func (w *RpioWriter) Write(channel int, d Drive) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (w *RpioWriter) Close() error { return nil }
