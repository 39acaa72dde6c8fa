package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mqtt:
  broker: tcp://192.168.1.200:1883
  topic_prefix: vent/bathroom
  device_id: vent_bathroom
gpio:
  backend: rpio
  pins: [5, 6, 13, 19, 26, 21]
nvm:
  path: /tmp/vent.bin
tick: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)
	assert.Equal(t, "vent/bathroom", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "vent_bathroom", cfg.MQTT.DeviceID)
	assert.Equal(t, BackendRpio, cfg.GPIO.Backend)
	assert.Equal(t, []int{5, 6, 13, 19, 26, 21}, cfg.GPIO.Pins)
	assert.Equal(t, "/tmp/vent.bin", cfg.NVM.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick)

	// Untouched fields keep their defaults.
	assert.Equal(t, "homeassistant", cfg.MQTT.DiscoveryPrefix)
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseBadYAML(t *testing.T) {
	_, err := Parse([]byte("mqtt: [unterminated"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"no prefix", func(c *Config) { c.MQTT.TopicPrefix = "" }, "mqtt.topic_prefix"},
		{"no device id", func(c *Config) { c.MQTT.DeviceID = "" }, "mqtt.device_id"},
		{"zero buffer", func(c *Config) { c.MQTT.BufferSize = 0 }, "mqtt.buffer_size"},
		{"bad backend", func(c *Config) { c.GPIO.Backend = "sysfs" }, "gpio.backend"},
		{"too few pins", func(c *Config) { c.GPIO.Pins = []int{1, 2, 3} }, "gpio.pins needs 6"},
		{"duplicate pin", func(c *Config) { c.GPIO.Pins = []int{1, 2, 3, 4, 5, 5} }, "listed twice"},
		{"negative pin", func(c *Config) { c.GPIO.Pins = []int{-1, 2, 3, 4, 5, 6} }, "negative pin"},
		{"no nvm", func(c *Config) { c.NVM.Path = "" }, "nvm.path"},
		{"no sensor", func(c *Config) { c.Sensor.Dir = "" }, "sensor.dir"},
		{"zero tick", func(c *Config) { c.Tick = 0 }, "tick must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = ""
	cfg.Tick = -time.Second
	err := cfg.Validate()
	assert.ErrorContains(t, err, "mqtt.broker")
	assert.ErrorContains(t, err, "tick")
}

func TestDefaultPinsNotShared(t *testing.T) {
	a := Default()
	a.GPIO.Pins[0] = 99
	assert.NotEqual(t, 99, Default().GPIO.Pins[0])
}
