package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/vent-controller/internal/control"
	"github.com/sweeney/vent-controller/internal/fan"
)

var topics = Topics{Prefix: "vent/bathroom", Discovery: "homeassistant", DeviceID: "vent_bathroom"}

func TestTopics(t *testing.T) {
	assert.Equal(t, "vent/bathroom/fan/state", topics.State(control.ChannelFan))
	assert.Equal(t, "vent/bathroom/param/65/state", topics.State(control.ParamChannel(65)))
	assert.Equal(t, "vent/bathroom/fan/percentage/set", topics.FanPercentageCommand())
	assert.Equal(t, "vent/bathroom/param/64/set", topics.ParamCommand(64))
	assert.Equal(t, "vent/bathroom/param/+/set", topics.ParamCommandFilter())
	assert.Equal(t, "vent/bathroom/availability", topics.Availability())
	assert.Equal(t, "vent/bathroom/system", topics.System())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    control.Command
	}{
		{"percentage", "vent/bathroom/fan/percentage/set", "42", control.Command{Kind: control.SetSpeed, Speed: 42}},
		{"percentage whitespace", "vent/bathroom/fan/percentage/set", " 7\n", control.Command{Kind: control.SetSpeed, Speed: 7}},
		{"percentage above range", "vent/bathroom/fan/percentage/set", "200", control.Command{Kind: control.SetSpeed, Speed: 200}},
		{"off", "vent/bathroom/fan/set", "OFF", control.Command{Kind: control.SetSpeed, Speed: 0}},
		{"on", "vent/bathroom/fan/set", "on", control.Command{Kind: control.SetSpeed, Speed: fan.MaxPercent}},
		{"param", "vent/bathroom/param/66/set", "120", control.Command{Kind: control.SetParameter, Number: 66, Value: 120}},
		{"unknown param number", "vent/bathroom/param/9/set", "1", control.Command{Kind: control.SetParameter, Number: 9, Value: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topics.ParseCommand(tt.topic, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"percentage not a number", "vent/bathroom/fan/percentage/set", "fast"},
		{"percentage overflow", "vent/bathroom/fan/percentage/set", "256"},
		{"negative percentage", "vent/bathroom/fan/percentage/set", "-1"},
		{"fan payload", "vent/bathroom/fan/set", "TOGGLE"},
		{"param value overflow", "vent/bathroom/param/64/set", "70000"},
		{"param number", "vent/bathroom/param/x/set", "1"},
		{"param suffix", "vent/bathroom/param/64/state", "1"},
		{"foreign topic", "other/fan/set", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := topics.ParseCommand(tt.topic, []byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestStateMessage(t *testing.T) {
	m := topics.StateMessage(control.ChannelTemperature, "21.5")
	assert.Equal(t, Message{Topic: "vent/bathroom/temperature/state", Payload: []byte("21.5"), QoS: 1, Retained: true}, m)
}

func TestDiscovery(t *testing.T) {
	msgs, err := Discovery(topics, Device{Name: "Bathroom vent", Manufacturer: "sweeney", Model: "vent-controller"})
	require.NoError(t, err)
	require.Len(t, msgs, 6)

	byTopic := map[string]map[string]any{}
	for _, m := range msgs {
		assert.True(t, m.Retained, m.Topic)
		var cfg map[string]any
		require.NoError(t, json.Unmarshal(m.Payload, &cfg), m.Topic)
		byTopic[m.Topic] = cfg
		assert.Equal(t, "vent/bathroom/availability", cfg["availability_topic"], m.Topic)
	}

	f := byTopic["homeassistant/fan/vent_bathroom/fan/config"]
	require.NotNil(t, f)
	assert.Equal(t, "vent/bathroom/fan/percentage/set", f["percentage_command_topic"])
	assert.Equal(t, "vent/bathroom/fan/state", f["percentage_state_topic"])
	assert.Equal(t, float64(1), f["speed_range_min"])
	assert.Equal(t, float64(99), f["speed_range_max"])
	dev := f["device"].(map[string]any)
	assert.Equal(t, []any{"vent_bathroom"}, dev["identifiers"])
	assert.Equal(t, "Bathroom vent", dev["name"])

	temp := byTopic["homeassistant/sensor/vent_bathroom/temperature/config"]
	require.NotNil(t, temp)
	assert.Equal(t, "temperature", temp["device_class"])
	assert.Equal(t, float64(1), temp["suggested_display_precision"])

	hum := byTopic["homeassistant/sensor/vent_bathroom/humidity/config"]
	require.NotNil(t, hum)
	assert.Equal(t, "%", hum["unit_of_measurement"])

	interval := byTopic["homeassistant/number/vent_bathroom/param_66/config"]
	require.NotNil(t, interval)
	assert.Equal(t, "vent/bathroom/param/66/set", interval["command_topic"])
	assert.Equal(t, "vent/bathroom/param/66/state", interval["state_topic"])
	assert.Equal(t, float64(30), interval["min"])
	assert.NotNil(t, byTopic["homeassistant/number/vent_bathroom/param_64/config"])
	assert.NotNil(t, byTopic["homeassistant/number/vent_bathroom/param_65/config"])
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"system":{"timestamp":"2026-02-03T10:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`, string(payload))
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Unix(0, 0), Event: "STARTUP"})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "reason")
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"system":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, payload)
}

func TestFakeChannelBuffersWhileDisconnected(t *testing.T) {
	f := NewFakeChannel()
	require.NoError(t, f.Report(control.ChannelFan, "10"))

	f.Connected = false
	require.NoError(t, f.Report(control.ChannelFan, "20"))
	require.NoError(t, f.Report(control.ChannelHumidity, "55.0"))
	assert.Len(t, f.Reports, 1)
	assert.False(t, f.IsConnected())

	f.Reconnect()
	assert.Equal(t, []Report{
		{control.ChannelFan, "10"},
		{control.ChannelFan, "20"},
		{control.ChannelHumidity, "55.0"},
	}, f.Reports)

	v, ok := f.Last(control.ChannelFan)
	require.True(t, ok)
	assert.Equal(t, "20", v)
	_, ok = f.Last(control.ChannelTemperature)
	assert.False(t, ok)
}

func TestFakeChannelErrors(t *testing.T) {
	f := NewFakeChannel()
	f.ReportError = errors.New("boom")
	f.PublishSystemError = errors.New("down")

	assert.EqualError(t, f.Report(control.ChannelFan, "1"), "boom")
	assert.EqualError(t, f.PublishSystem(SystemEvent{Event: "STARTUP"}), "down")
	assert.Empty(t, f.Reports)
	assert.Empty(t, f.SystemEvents)
}

func TestFakeChannelSystemAndClose(t *testing.T) {
	f := NewFakeChannel()
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: time.Unix(0, 0), Event: "STARTUP"}))
	require.Len(t, f.SystemPayloads, 1)
	assert.Contains(t, string(f.SystemPayloads[0]), `"event":"STARTUP"`)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)

	f.Reset()
	assert.Empty(t, f.SystemEvents)
}
