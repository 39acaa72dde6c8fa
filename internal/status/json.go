package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string      `json:"event,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Ready          bool        `json:"ready"`
	Fan            FanJSON     `json:"fan"`
	Environment    EnvJSON     `json:"environment"`
	Params         []ParamJSON `json:"params"`
	ParamState     string      `json:"param_state"`
	ParamPending   bool        `json:"param_pending"`
	ParamRecovered bool        `json:"param_recovered"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	StartTime      string      `json:"start_time"`
	Timestamp      string      `json:"timestamp"`
	MQTT           MQTTStatus  `json:"mqtt"`
	Config         ConfigJSON  `json:"config"`
}

// FanJSON is the speed and relay state.
type FanJSON struct {
	Percent uint8  `json:"percent"`
	Level   string `json:"level"`
	Relays  []bool `json:"relays"`
}

// EnvJSON carries the readings as decimal numbers.
type EnvJSON struct {
	Temperature  float64          `json:"temperature_c"`
	Humidity     float64          `json:"humidity_pct"`
	ReportCounts ReportCountsJSON `json:"report_counts"`
}

// ReportCountsJSON counts reports emitted since startup.
type ReportCountsJSON struct {
	Temperature int `json:"temperature"`
	Humidity    int `json:"humidity"`
}

// ParamJSON is one parameter.
type ParamJSON struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Value  uint16 `json:"value"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
	GPIOBackend string `json:"gpio_backend"`
	NVMPath     string `json:"nvm_path"`
	SensorDir   string `json:"sensor_dir"`
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Device
	level := d.Level
	if level == "" {
		level = "UNKNOWN"
	}
	relays := d.Relays
	if relays == nil {
		relays = []bool{}
	}
	ps := make([]ParamJSON, 0, len(d.Params))
	for _, p := range d.Params {
		ps = append(ps, ParamJSON{Number: p.Number, Name: p.Name, Value: p.Value})
	}

	return StatusInner{
		Ready: snap.Booted,
		Fan:   FanJSON{Percent: d.Speed, Level: level, Relays: relays},
		Environment: EnvJSON{
			Temperature: float64(d.Temperature) / 10,
			Humidity:    float64(d.Humidity) / 10,
			ReportCounts: ReportCountsJSON{
				Temperature: d.Reports.Temperature,
				Humidity:    d.Reports.Humidity,
			},
		},
		Params:         ps,
		ParamState:     d.ParamState,
		ParamPending:   d.Pending,
		ParamRecovered: d.Recovered,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			GPIOBackend: snap.Config.GPIOBackend,
			NVMPath:     snap.Config.NVMPath,
			SensorDir:   snap.Config.SensorDir,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
