package sensor

import "errors"

// Sample is one scripted reading. A non-nil error fails that quantity only.
type Sample struct {
	Temperature int16
	Humidity    int16
	TempErr     error
	HumErr      error
}

// FakeSensor is a test double that returns scripted readings.
// Each ReadHumidity call advances to the next sample, so a poll reads
// temperature then humidity from the same sample. When samples are
// exhausted the last one repeats.
type FakeSensor struct {
	Samples []Sample

	index int

	// BeginError, if set, is returned by Begin.
	BeginError error

	Started bool
	Closed  bool
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples []Sample) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Begin marks the sensor started.
func (f *FakeSensor) Begin() error {
	if f.BeginError != nil {
		return f.BeginError
	}
	f.Started = true
	return nil
}

// ReadTemperature returns the current sample's temperature.
func (f *FakeSensor) ReadTemperature() (int16, error) {
	s, err := f.current()
	if err != nil {
		return 0, err
	}
	return s.Temperature, s.TempErr
}

// ReadHumidity returns the current sample's humidity and advances.
func (f *FakeSensor) ReadHumidity() (int16, error) {
	s, err := f.current()
	if err != nil {
		return 0, err
	}
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Humidity, s.HumErr
}

func (f *FakeSensor) current() (Sample, error) {
	if !f.Started {
		return Sample{}, ErrNotReady
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}
	return f.Samples[f.index], nil
}

// Close marks the sensor closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	f.Started = false
	return nil
}
