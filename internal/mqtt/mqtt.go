// Package mqtt is the host channel: Home Assistant discovery, state reports
// and command subscriptions over MQTT.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/vent-controller/internal/control"
	"github.com/sweeney/vent-controller/internal/fan"
)

// Availability payloads.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Fan on/off payloads used by the Home Assistant fan entity.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// HostChannel publishes controller state to the host.
type HostChannel interface {
	// Report publishes the state of a channel. While disconnected the
	// report is buffered and sent after reconnect.
	Report(ch control.Channel, value string) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close announces offline and disconnects.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Topics derives every topic from a prefix such as "vent/bathroom".
type Topics struct {
	Prefix    string
	Discovery string // Home Assistant discovery prefix, usually "homeassistant"
	DeviceID  string
}

// State is where a channel's value is published.
func (t Topics) State(ch control.Channel) string {
	return t.Prefix + "/" + string(ch) + "/state"
}

// FanCommand receives ON/OFF from the fan entity.
func (t Topics) FanCommand() string {
	return t.Prefix + "/fan/set"
}

// FanPercentageCommand receives the requested speed.
func (t Topics) FanPercentageCommand() string {
	return t.Prefix + "/fan/percentage/set"
}

// ParamCommand receives a new value for a parameter.
func (t Topics) ParamCommand(number int) string {
	return t.Prefix + "/param/" + strconv.Itoa(number) + "/set"
}

// ParamCommandFilter matches every parameter command topic.
func (t Topics) ParamCommandFilter() string {
	return t.Prefix + "/param/+/set"
}

// Availability carries online/offline.
func (t Topics) Availability() string {
	return t.Prefix + "/availability"
}

// System carries lifecycle events.
func (t Topics) System() string {
	return t.Prefix + "/system"
}

func (t Topics) config(component, object string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", t.Discovery, component, t.DeviceID, object)
}

// ParseCommand turns a message on one of the command topics into a Command.
func (t Topics) ParseCommand(topic string, payload []byte) (control.Command, error) {
	body := strings.TrimSpace(string(payload))

	switch topic {
	case t.FanPercentageCommand():
		p, err := strconv.ParseUint(body, 10, 8)
		if err != nil {
			return control.Command{}, fmt.Errorf("bad percentage %q: %w", body, err)
		}
		return control.Command{Kind: control.SetSpeed, Speed: fan.Percent(p)}, nil
	case t.FanCommand():
		switch strings.ToUpper(body) {
		case PayloadOff:
			return control.Command{Kind: control.SetSpeed, Speed: 0}, nil
		case PayloadOn:
			return control.Command{Kind: control.SetSpeed, Speed: fan.MaxPercent}, nil
		}
		return control.Command{}, fmt.Errorf("bad fan payload %q", body)
	}

	rest, ok := strings.CutPrefix(topic, t.Prefix+"/param/")
	if !ok {
		return control.Command{}, fmt.Errorf("unexpected topic %s", topic)
	}
	num, ok := strings.CutSuffix(rest, "/set")
	if !ok {
		return control.Command{}, fmt.Errorf("unexpected topic %s", topic)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return control.Command{}, fmt.Errorf("bad parameter number %q: %w", num, err)
	}
	v, err := strconv.ParseUint(body, 10, 16)
	if err != nil {
		return control.Command{}, fmt.Errorf("bad parameter value %q: %w", body, err)
	}
	return control.Command{Kind: control.SetParameter, Number: n, Value: uint16(v)}, nil
}

// Message is a serialized MQTT publish.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// StateMessage builds the retained state publish for a channel.
func (t Topics) StateMessage(ch control.Channel, value string) Message {
	return Message{Topic: t.State(ch), Payload: []byte(value), QoS: 1, Retained: true}
}

// SystemEvent represents a system lifecycle event (STARTUP, SHUTDOWN).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// SystemPayload is the message body for events without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
