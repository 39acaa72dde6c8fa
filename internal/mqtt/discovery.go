package mqtt

import (
	"encoding/json"
	"strconv"

	"github.com/sweeney/vent-controller/internal/control"
	"github.com/sweeney/vent-controller/internal/fan"
	"github.com/sweeney/vent-controller/internal/params"
)

// Device describes the controller to Home Assistant.
type Device struct {
	Name         string
	Manufacturer string
	Model        string
	SWVersion    string
}

type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

type haFan struct {
	Name                   string   `json:"name"`
	UniqueID               string   `json:"unique_id"`
	AvailabilityTopic      string   `json:"availability_topic"`
	CommandTopic           string   `json:"command_topic"`
	StateTopic             string   `json:"state_topic"`
	StateValueTemplate     string   `json:"state_value_template"`
	PercentageCommandTopic string   `json:"percentage_command_topic"`
	PercentageStateTopic   string   `json:"percentage_state_topic"`
	SpeedRangeMin          int      `json:"speed_range_min"`
	SpeedRangeMax          int      `json:"speed_range_max"`
	Device                 haDevice `json:"device"`
}

type haSensor struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	AvailabilityTopic string   `json:"availability_topic"`
	StateTopic        string   `json:"state_topic"`
	DeviceClass       string   `json:"device_class"`
	StateClass        string   `json:"state_class"`
	UnitOfMeasure     string   `json:"unit_of_measurement"`
	DisplayPrecision  int      `json:"suggested_display_precision"`
	Device            haDevice `json:"device"`
}

type haNumber struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	AvailabilityTopic string   `json:"availability_topic"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic"`
	Min               int      `json:"min"`
	Max               int      `json:"max"`
	Step              int      `json:"step"`
	Mode              string   `json:"mode"`
	EntityCategory    string   `json:"entity_category"`
	Device            haDevice `json:"device"`
}

var paramUnits = [params.Count]string{"0.1 °C", "0.1 %", "s"}

// Discovery builds the retained config messages that make Home Assistant
// create the fan, the two sensors and one number per parameter.
func Discovery(t Topics, dev Device) ([]Message, error) {
	device := haDevice{
		Identifiers:  []string{t.DeviceID},
		Name:         dev.Name,
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		SWVersion:    dev.SWVersion,
	}
	avail := t.Availability()

	type entry struct {
		topic  string
		config any
	}
	entries := []entry{
		{t.config("fan", "fan"), haFan{
			Name:                   "Fan",
			UniqueID:               t.DeviceID + "_fan",
			AvailabilityTopic:      avail,
			CommandTopic:           t.FanCommand(),
			StateTopic:             t.State(control.ChannelFan),
			StateValueTemplate:     "{{ 'ON' if value | int > 0 else 'OFF' }}",
			PercentageCommandTopic: t.FanPercentageCommand(),
			PercentageStateTopic:   t.State(control.ChannelFan),
			SpeedRangeMin:          1,
			SpeedRangeMax:          int(fan.MaxPercent),
			Device:                 device,
		}},
		{t.config("sensor", "temperature"), haSensor{
			Name:              "Temperature",
			UniqueID:          t.DeviceID + "_temperature",
			AvailabilityTopic: avail,
			StateTopic:        t.State(control.ChannelTemperature),
			DeviceClass:       "temperature",
			StateClass:        "measurement",
			UnitOfMeasure:     "°C",
			DisplayPrecision:  1,
			Device:            device,
		}},
		{t.config("sensor", "humidity"), haSensor{
			Name:              "Humidity",
			UniqueID:          t.DeviceID + "_humidity",
			AvailabilityTopic: avail,
			StateTopic:        t.State(control.ChannelHumidity),
			DeviceClass:       "humidity",
			StateClass:        "measurement",
			UnitOfMeasure:     "%",
			DisplayPrecision:  1,
			Device:            device,
		}},
	}

	for i := params.Index(0); i < params.Count; i++ {
		n := i.Number()
		lo := 0
		if i == params.ReadInterval {
			lo = params.MinReadInterval
		}
		entries = append(entries, entry{t.config("number", "param_"+strconv.Itoa(n)), haNumber{
			Name:              i.String() + " (" + paramUnits[i] + ")",
			UniqueID:          t.DeviceID + "_param_" + strconv.Itoa(n),
			AvailabilityTopic: avail,
			StateTopic:        t.State(control.ParamChannel(n)),
			CommandTopic:      t.ParamCommand(n),
			Min:               lo,
			Max:               65535,
			Step:              1,
			Mode:              "box",
			EntityCategory:    "config",
			Device:            device,
		}})
	}

	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(e.config)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{Topic: e.topic, Payload: payload, QoS: 1, Retained: true})
	}
	return msgs, nil
}
