package mqtt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/vent-controller/internal/control"
)

// Options configures a RealChannel.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     Topics
	Device     Device
	BufferSize int // reports kept while disconnected
}

// RealChannel talks to an actual MQTT broker.
type RealChannel struct {
	client paho.Client
	topics Topics

	mu     sync.Mutex
	buffer *ringBuffer
	online bool
}

// NewRealChannel connects to the broker. Parsed commands are delivered on
// cmds until ctx is done. If the broker is unreachable the channel still
// returns; it keeps retrying in the background and buffers reports.
func NewRealChannel(ctx context.Context, opts Options, cmds chan<- control.Command) (*RealChannel, error) {
	discovery, err := Discovery(opts.Topics, opts.Device)
	if err != nil {
		return nil, fmt.Errorf("build discovery: %w", err)
	}

	c := &RealChannel{
		topics: opts.Topics,
		buffer: newRingBuffer(opts.BufferSize),
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetOrderMatters(false).
		SetWill(opts.Topics.Availability(), PayloadOffline, 1, true)

	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.mu.Lock()
		c.online = false
		c.mu.Unlock()
		log.Printf("mqtt: connection lost: %v", err)
	})

	po.SetOnConnectHandler(func(client paho.Client) {
		log.Printf("mqtt: connected to %s", opts.Broker)

		onMessage := func(_ paho.Client, msg paho.Message) {
			cmd, err := c.topics.ParseCommand(msg.Topic(), msg.Payload())
			if err != nil {
				log.Printf("mqtt: %v", err)
				return
			}
			select {
			case cmds <- cmd:
			case <-ctx.Done():
			}
		}
		filters := map[string]byte{
			c.topics.FanCommand():           1,
			c.topics.FanPercentageCommand(): 1,
			c.topics.ParamCommandFilter():   1,
		}
		if t := client.SubscribeMultiple(filters, onMessage); t.WaitTimeout(5*time.Second) && t.Error() != nil {
			log.Printf("mqtt: subscribe failed: %v", t.Error())
		}

		for _, m := range discovery {
			c.send(client, m)
		}
		c.send(client, Message{Topic: c.topics.Availability(), Payload: []byte(PayloadOnline), QoS: 1, Retained: true})

		c.replay(client)
	})

	c.client = paho.NewClient(po)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", opts.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

// replay publishes buffered reports in order and only then marks the channel
// online. Reports made while replaying are buffered behind the older ones, so
// the newest value for a topic is always published last.
func (c *RealChannel) replay(client publisher) {
	replayed := 0
	for {
		c.mu.Lock()
		pending := c.buffer.drain()
		if len(pending) == 0 {
			c.online = true
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()

		for _, m := range pending {
			c.send(client, m)
		}
		replayed += len(pending)
	}
	if replayed > 0 {
		log.Printf("mqtt: replayed %d buffered reports", replayed)
	}
}

// publisher is the part of paho.Client used for outgoing messages.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

func (c *RealChannel) send(client publisher, m Message) {
	if err := publish(client, m); err != nil {
		log.Printf("mqtt: %s: %v", m.Topic, err)
	}
}

func publish(client publisher, m Message) error {
	token := client.Publish(m.Topic, m.QoS, m.Retained, m.Payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Report publishes a retained state, or buffers it while disconnected.
func (c *RealChannel) Report(ch control.Channel, value string) error {
	m := c.topics.StateMessage(ch, value)

	c.mu.Lock()
	if !c.online {
		c.buffer.push(m)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := publish(c.client, m); err != nil {
		c.mu.Lock()
		c.buffer.push(m)
		c.mu.Unlock()
		return err
	}
	return nil
}

// PublishSystem sends a system lifecycle event.
func (c *RealChannel) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return publish(c.client, Message{Topic: c.topics.System(), Payload: payload, QoS: 1, Retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (c *RealChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Close publishes offline and disconnects from the broker.
func (c *RealChannel) Close() error {
	if c.IsConnected() {
		c.send(c.client, Message{Topic: c.topics.Availability(), Payload: []byte(PayloadOffline), QoS: 1, Retained: true})
	}
	c.client.Disconnect(1000)
	return nil
}
