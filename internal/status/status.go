// Package status provides a thread-safe status tracker for the vent
// controller. It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/vent-controller/internal/monitor"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	GPIOBackend string
	NVMPath     string
	SensorDir   string
}

// Param is one tunable parameter as shown to the host.
type Param struct {
	Number int
	Name   string
	Value  uint16
}

// Device is the controller state copied out of the run loop.
type Device struct {
	Speed       uint8
	Level       string
	Relays      []bool // channel 1 first; true means energized
	Temperature int16  // tenths of °C
	Humidity    int16  // tenths of %RH
	Params      []Param
	ParamState  string
	Recovered   bool // stored block was corrupt at boot, defaults restored
	Pending     bool // parameter write waiting for idle
	Reports     monitor.ReportCounts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; Device slices are copied on read.
type Snapshot struct {
	Device        Device
	Booted        bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the device state. Called from the run loop.
func (t *Tracker) Update(d Device) {
	d.Relays = append([]bool(nil), d.Relays...)
	d.Params = append([]Param(nil), d.Params...)
	t.mu.Lock()
	t.snap.Device = d
	t.snap.Booted = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a copy of the daemon state with Now set to the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Device.Relays = append([]bool(nil), s.Device.Relays...)
	s.Device.Params = append([]Param(nil), s.Device.Params...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
