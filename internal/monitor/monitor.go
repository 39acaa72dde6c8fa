// Package monitor decides when to sample the environment sensor and which
// readings are worth reporting.
// Time is always injected; the package never sleeps.
package monitor

import (
	"log"
	"time"

	"github.com/sweeney/vent-controller/internal/sensor"
)

// Quantity names a measured value.
type Quantity string

const (
	Temperature Quantity = "temperature"
	Humidity    Quantity = "humidity"
)

// Input is one poll of the sensor. A quantity whose read failed is marked
// invalid and is ignored by Process.
type Input struct {
	Temperature int16 // tenths of °C
	Humidity    int16 // tenths of %RH
	TempValid   bool
	HumValid    bool
	Time        time.Time
}

// Thresholds are the minimum changes, in tenths, that trigger a report.
type Thresholds struct {
	Temperature uint16
	Humidity    uint16
}

// Report is a reading that should be pushed to the host.
type Report struct {
	Timestamp time.Time
	Quantity  Quantity
	Value     int16
}

// ReportCounts tracks reports emitted since startup.
type ReportCounts struct {
	Temperature int
	Humidity    int
}

type channel struct {
	observed int16
	reported int16
}

// Monitor holds the last observed and last reported value of each quantity.
// Both start at zero on every boot.
type Monitor struct {
	temp     channel
	hum      channel
	lastPoll time.Time
	polled   bool
	counts   ReportCounts
}

// New creates a Monitor.
func New() *Monitor {
	return &Monitor{}
}

// Due reports whether a poll should happen at now. The first call is always
// due; afterwards a poll is due once interval has elapsed since the last one.
// A true result records now as the poll time.
func (m *Monitor) Due(now time.Time, interval time.Duration) bool {
	if m.polled && now.Sub(m.lastPoll) < interval {
		return false
	}
	m.polled = true
	m.lastPoll = now
	return true
}

// Process records a poll and returns the reports it triggers. Each quantity
// is compared on its own: it reports when it moved at least its threshold
// away from the value last reported.
func (m *Monitor) Process(in Input, th Thresholds) []Report {
	var reports []Report

	if in.TempValid {
		if m.temp.update(in.Temperature, th.Temperature) {
			reports = append(reports, Report{Timestamp: in.Time, Quantity: Temperature, Value: in.Temperature})
			m.counts.Temperature++
		}
	}
	if in.HumValid {
		if m.hum.update(in.Humidity, th.Humidity) {
			reports = append(reports, Report{Timestamp: in.Time, Quantity: Humidity, Value: in.Humidity})
			m.counts.Humidity++
		}
	}
	return reports
}

func (c *channel) update(v int16, threshold uint16) bool {
	c.observed = v
	diff := int32(v) - int32(c.reported)
	if diff < 0 {
		diff = -diff
	}
	if diff < int32(threshold) {
		return false
	}
	c.reported = v
	return true
}

// Temperature returns the last observed temperature.
func (m *Monitor) Temperature() int16 {
	return m.temp.observed
}

// Humidity returns the last observed humidity.
func (m *Monitor) Humidity() int16 {
	return m.hum.observed
}

// Counts returns the number of reports emitted since startup.
func (m *Monitor) Counts() ReportCounts {
	return m.counts
}

// Read polls both quantities from s. A failed read is logged and leaves that
// quantity invalid.
func Read(s sensor.Sensor, now time.Time) Input {
	in := Input{Time: now}

	t, err := s.ReadTemperature()
	if err != nil {
		log.Printf("sensor: temperature read failed: %v", err)
	} else {
		in.Temperature, in.TempValid = t, true
	}

	h, err := s.ReadHumidity()
	if err != nil {
		log.Printf("sensor: humidity read failed: %v", err)
	} else {
		in.Humidity, in.HumValid = h, true
	}
	return in
}
