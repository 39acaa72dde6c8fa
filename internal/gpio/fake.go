package gpio

// FakeWriter is a test double that records relay writes.
type FakeWriter struct {
	// States holds the last drive written to each channel, indexed 1..NumChannels.
	// Index 0 is unused.
	States [NumChannels + 1]Drive

	// Writes contains every write in call order.
	Writes []WriteCall

	// WriteError, if set, is returned by Write and nothing is recorded.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// WriteCall is a single recorded Write.
type WriteCall struct {
	Channel int
	Drive   Drive
}

// NewFakeWriter creates a FakeWriter with every channel inactive.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Write records the drive for a channel.
func (f *FakeWriter) Write(channel int, d Drive) error {
	if err := checkChannel(channel, NumChannels); err != nil {
		return err
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.States[channel] = d
	f.Writes = append(f.Writes, WriteCall{Channel: channel, Drive: d})
	return nil
}

// Close marks the writer as closed and releases every channel.
func (f *FakeWriter) Close() error {
	f.States = [NumChannels + 1]Drive{}
	f.Closed = true
	return nil
}

// Reset clears recorded writes without changing channel states.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.WriteError = nil
	f.Closed = false
}
