package mqtt

import (
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/vent-controller/internal/control"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// recordingClient records publishes and runs onPublish after each one, which
// lets a test interleave a report from another goroutine.
type recordingClient struct {
	published []Message
	onPublish func(n int)
}

func (r *recordingClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	r.published = append(r.published, Message{Topic: topic, Payload: payload.([]byte), QoS: qos, Retained: retained})
	if r.onPublish != nil {
		r.onPublish(len(r.published))
	}
	return doneToken{}
}

func newOfflineChannel() *RealChannel {
	return &RealChannel{
		topics: Topics{Prefix: "vent/bathroom", Discovery: "homeassistant", DeviceID: "vent_bathroom"},
		buffer: newRingBuffer(8),
	}
}

func TestReplayPublishesNewestReportLast(t *testing.T) {
	c := newOfflineChannel()
	require.NoError(t, c.Report(control.ChannelFan, "50"))
	require.False(t, c.IsConnected())

	client := &recordingClient{}
	client.onPublish = func(n int) {
		if n == 1 {
			// A report made while the buffer is replaying must not overtake it.
			require.NoError(t, c.Report(control.ChannelFan, "70"))
		}
	}
	c.replay(client)

	require.Len(t, client.published, 2)
	assert.Equal(t, "50", string(client.published[0].Payload))
	assert.Equal(t, "70", string(client.published[1].Payload))
	assert.Equal(t, c.topics.State(control.ChannelFan), client.published[1].Topic)
	assert.True(t, client.published[1].Retained)
	assert.True(t, c.IsConnected())
	assert.Equal(t, 0, c.buffer.len())
}

func TestReplayEmptyBufferGoesOnline(t *testing.T) {
	c := newOfflineChannel()
	client := &recordingClient{}

	c.replay(client)

	assert.Empty(t, client.published)
	assert.True(t, c.IsConnected())
}
