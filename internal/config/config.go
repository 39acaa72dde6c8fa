// Package config loads the controller's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/vent-controller/internal/gpio"
	"github.com/sweeney/vent-controller/internal/sensor"
)

// GPIO backends.
const (
	BackendCdev = "cdev"
	BackendRpio = "rpio"
)

// Config is the complete daemon configuration.
type Config struct {
	MQTT   MQTT   `yaml:"mqtt"`
	GPIO   GPIO   `yaml:"gpio"`
	NVM    NVM    `yaml:"nvm"`
	Sensor Sensor `yaml:"sensor"`
	HTTP   HTTP   `yaml:"http"`

	// Tick is how often the run loop checks whether a sensor poll is due.
	Tick time.Duration `yaml:"tick"`
}

// MQTT configures the host channel. Credentials come from the environment.
type MQTT struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	TopicPrefix     string `yaml:"topic_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	DeviceID        string `yaml:"device_id"`
	DeviceName      string `yaml:"device_name"`
	BufferSize      int    `yaml:"buffer_size"`
}

// GPIO selects the relay backend and the line offsets of relays 1..6.
type GPIO struct {
	Backend string `yaml:"backend"`
	Chip    string `yaml:"chip"`
	Pins    []int  `yaml:"pins"`
}

// NVM locates the persistent image file.
type NVM struct {
	Path string `yaml:"path"`
}

// Sensor locates the IIO device of the humidity sensor.
type Sensor struct {
	Dir string `yaml:"dir"`
}

// HTTP configures the status page. An empty address disables it.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used for any field the file leaves out.
func Default() Config {
	return Config{
		MQTT: MQTT{
			Broker:          "tcp://localhost:1883",
			ClientID:        "vent-controller",
			TopicPrefix:     "vent",
			DiscoveryPrefix: "homeassistant",
			DeviceID:        "vent_controller",
			DeviceName:      "Vent",
			BufferSize:      64,
		},
		GPIO: GPIO{
			Backend: BackendCdev,
			Chip:    "gpiochip0",
			Pins:    append([]int(nil), gpio.DefaultPins...),
		},
		NVM:    NVM{Path: "/var/lib/vent-controller/nvm.bin"},
		Sensor: Sensor{Dir: sensor.DefaultIIODevice},
		HTTP:   HTTP{Addr: ":8080"},
		Tick:   time.Second,
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix is required"))
	}
	if c.MQTT.DeviceID == "" {
		errs = append(errs, errors.New("mqtt.device_id is required"))
	}
	if c.MQTT.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("mqtt.buffer_size must be positive, got %d", c.MQTT.BufferSize))
	}
	switch c.GPIO.Backend {
	case BackendCdev, BackendRpio:
	default:
		errs = append(errs, fmt.Errorf("gpio.backend must be %q or %q, got %q", BackendCdev, BackendRpio, c.GPIO.Backend))
	}
	if len(c.GPIO.Pins) != gpio.NumChannels {
		errs = append(errs, fmt.Errorf("gpio.pins needs %d entries, got %d", gpio.NumChannels, len(c.GPIO.Pins)))
	}
	seen := map[int]bool{}
	for _, p := range c.GPIO.Pins {
		if p < 0 {
			errs = append(errs, fmt.Errorf("gpio.pins: negative pin %d", p))
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("gpio.pins: pin %d listed twice", p))
		}
		seen[p] = true
	}
	if c.NVM.Path == "" {
		errs = append(errs, errors.New("nvm.path is required"))
	}
	if c.Sensor.Dir == "" {
		errs = append(errs, errors.New("sensor.dir is required"))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %v", c.Tick))
	}
	return errors.Join(errs...)
}
