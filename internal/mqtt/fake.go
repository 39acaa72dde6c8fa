package mqtt

import "github.com/sweeney/vent-controller/internal/control"

// Report is one recorded state publish.
type Report struct {
	Channel control.Channel
	Value   string
}

// FakeChannel records reports and system events for test assertions.
// Like RealChannel it buffers reports while disconnected; Reconnect
// replays them.
type FakeChannel struct {
	// Reports contains every report delivered while connected.
	Reports []Report

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// ReportError, if set, is returned by Report.
	ReportError error

	// PublishSystemError, if set, is returned by PublishSystem.
	PublishSystemError error

	// Connected controls delivery and IsConnected.
	Connected bool

	Closed bool

	buffer []Report
}

// NewFakeChannel creates a connected FakeChannel.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{Connected: true}
}

// Report records a report, or buffers it while disconnected.
func (f *FakeChannel) Report(ch control.Channel, value string) error {
	if f.ReportError != nil {
		return f.ReportError
	}
	r := Report{Channel: ch, Value: value}
	if !f.Connected {
		f.buffer = append(f.buffer, r)
		return nil
	}
	f.Reports = append(f.Reports, r)
	return nil
}

// Reconnect marks the fake connected and delivers buffered reports.
func (f *FakeChannel) Reconnect() {
	f.Connected = true
	f.Reports = append(f.Reports, f.buffer...)
	f.buffer = nil
}

// Last returns the last delivered value for a channel.
func (f *FakeChannel) Last(ch control.Channel) (string, bool) {
	for i := len(f.Reports) - 1; i >= 0; i-- {
		if f.Reports[i].Channel == ch {
			return f.Reports[i].Value, true
		}
	}
	return "", false
}

// PublishSystem records the system event.
func (f *FakeChannel) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the channel closed.
func (f *FakeChannel) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports the Connected field.
func (f *FakeChannel) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded reports and events.
func (f *FakeChannel) Reset() {
	f.Reports = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.buffer = nil
}
