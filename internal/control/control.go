// Package control is the boundary between the host channel and the fan.
// A Controller is owned by a single goroutine; commands from other
// goroutines reach it as Command values through the run loop.
package control

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/vent-controller/internal/fan"
	"github.com/sweeney/vent-controller/internal/monitor"
	"github.com/sweeney/vent-controller/internal/params"
	"github.com/sweeney/vent-controller/internal/sensor"
	"github.com/sweeney/vent-controller/internal/setpoint"
)

// Channel names a value exposed to the host.
type Channel string

const (
	ChannelFan         Channel = "fan"
	ChannelTemperature Channel = "temperature"
	ChannelHumidity    Channel = "humidity"
)

const paramPrefix = "param/"

// ParamChannel returns the channel for the parameter with the given host number.
func ParamChannel(number int) Channel {
	return Channel(paramPrefix + strconv.Itoa(number))
}

// ParamNumber returns the parameter number of a parameter channel.
func (ch Channel) ParamNumber() (int, bool) {
	s, ok := strings.CutPrefix(string(ch), paramPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Channels lists every channel in publication order.
func Channels() []Channel {
	chs := []Channel{ChannelFan, ChannelTemperature, ChannelHumidity}
	for i := params.Index(0); i < params.Count; i++ {
		chs = append(chs, ParamChannel(i.Number()))
	}
	return chs
}

func channelFor(q monitor.Quantity) Channel {
	if q == monitor.Humidity {
		return ChannelHumidity
	}
	return ChannelTemperature
}

// CommandKind identifies what a Command does.
type CommandKind int

const (
	SetSpeed CommandKind = iota
	SetParameter
)

// Command is a request from the host channel or the console.
type Command struct {
	Kind   CommandKind
	Speed  fan.Percent // SetSpeed
	Number int         // SetParameter: host parameter number
	Value  uint16      // SetParameter
}

func (c Command) String() string {
	switch c.Kind {
	case SetSpeed:
		return fmt.Sprintf("set speed %d", c.Speed)
	case SetParameter:
		return fmt.Sprintf("set param %d=%d", c.Number, c.Value)
	}
	return fmt.Sprintf("Command(%d)", int(c.Kind))
}

// Controller ties the speed mapping, relays, persistence, parameters and
// environment monitor together.
type Controller struct {
	driver   *fan.Driver
	setpoint *setpoint.Store
	params   *params.Store
	sensor   sensor.Sensor
	monitor  *monitor.Monitor

	speed fan.Percent
	level fan.Level
}

// New creates a Controller. Call Boot before handling commands.
func New(d *fan.Driver, sp *setpoint.Store, ps *params.Store, s sensor.Sensor) *Controller {
	return &Controller{
		driver:   d,
		setpoint: sp,
		params:   ps,
		sensor:   s,
		monitor:  monitor.New(),
	}
}

// Boot replays the stored setpoint so the relays return to their state
// before the outage.
func (c *Controller) Boot() error {
	p, err := c.setpoint.Load()
	if err != nil {
		return err
	}
	log.Printf("boot: restoring speed %d%%", p)
	c.SetSpeed(p)
	return nil
}

// Speed returns the current setpoint.
func (c *Controller) Speed() fan.Percent {
	return c.speed
}

// Level returns the level currently applied to the relays.
func (c *Controller) Level() fan.Level {
	return c.level
}

// SetSpeed drives the relays for p and persists it. A storage failure is
// logged; the relays keep the new speed.
func (c *Controller) SetSpeed(p fan.Percent) {
	level := fan.Discretize(p)
	c.driver.Apply(level)
	c.speed = p
	c.level = level
	if err := c.setpoint.Save(p); err != nil {
		log.Printf("control: %v", err)
	}
}

// Temperature returns the latest temperature in tenths of °C.
func (c *Controller) Temperature() int16 {
	return c.monitor.Temperature()
}

// Humidity returns the latest humidity in tenths of %RH.
func (c *Controller) Humidity() int16 {
	return c.monitor.Humidity()
}

// OnParameterChanged applies a parameter change. It reports false when the
// number does not belong to this device.
func (c *Controller) OnParameterChanged(number int, value uint16) bool {
	return c.params.Set(number, value)
}

// Params returns the current parameters.
func (c *Controller) Params() params.Values {
	return c.params.Values()
}

// ParamState returns the validity of the stored parameter block.
func (c *Controller) ParamState() params.State {
	return c.params.State()
}

// ParamsRecovered reports whether the stored block was corrupt at boot and
// was replaced by the defaults.
func (c *Controller) ParamsRecovered() bool {
	return c.params.Recovered()
}

// ParamsPending reports whether a parameter change is waiting for Idle.
func (c *Controller) ParamsPending() bool {
	return c.params.Pending()
}

// ReportCounts returns the sensor reports emitted since startup.
func (c *Controller) ReportCounts() monitor.ReportCounts {
	return c.monitor.Counts()
}

// PollInterval returns the configured sensor poll interval.
func (c *Controller) PollInterval() time.Duration {
	return time.Duration(c.params.Get(params.ReadInterval)) * time.Second
}

// Handle executes a command and returns the channels whose state changed.
func (c *Controller) Handle(cmd Command) []Channel {
	switch cmd.Kind {
	case SetSpeed:
		c.SetSpeed(cmd.Speed)
		return []Channel{ChannelFan}
	case SetParameter:
		if !c.OnParameterChanged(cmd.Number, cmd.Value) {
			log.Printf("control: dropping unknown parameter %d", cmd.Number)
			return nil
		}
		return []Channel{ParamChannel(cmd.Number)}
	}
	log.Printf("control: ignoring %v", cmd)
	return nil
}

// Tick polls the sensor when the poll interval has elapsed and returns the
// channels whose change passed the hysteresis threshold.
func (c *Controller) Tick(now time.Time) []Channel {
	if !c.monitor.Due(now, c.PollInterval()) {
		return nil
	}
	th := monitor.Thresholds{
		Temperature: c.params.Get(params.TempHysteresis),
		Humidity:    c.params.Get(params.HumHysteresis),
	}
	var chs []Channel
	for _, r := range c.monitor.Process(monitor.Read(c.sensor, now), th) {
		chs = append(chs, channelFor(r.Quantity))
	}
	return chs
}

// Idle performs work deferred out of command handling: writing changed
// parameters to storage.
func (c *Controller) Idle() error {
	return c.params.Flush()
}

// Value returns the state payload for a channel.
func (c *Controller) Value(ch Channel) (string, bool) {
	switch ch {
	case ChannelFan:
		// An erased setpoint replays as 255; the host range stops at MaxPercent.
		return strconv.Itoa(int(min(c.speed, fan.MaxPercent))), true
	case ChannelTemperature:
		return FormatTenths(c.Temperature()), true
	case ChannelHumidity:
		return FormatTenths(c.Humidity()), true
	}
	if n, ok := ch.ParamNumber(); ok {
		i := params.Index(n - params.Base)
		if i >= 0 && i < params.Count {
			return strconv.Itoa(int(c.params.Get(i))), true
		}
	}
	return "", false
}

// FormatTenths renders a tenths value with one decimal place.
func FormatTenths(v int16) string {
	return strconv.FormatFloat(float64(v)/10, 'f', 1, 64)
}
