//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevWriter drives relays through the Linux GPIO character device.
type CdevWriter struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewCdevWriter requests every pin as an active-low output, initially
// inactive. Channel n maps to pins[n-1].
func NewCdevWriter(chipName string, pins []int) (*CdevWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &CdevWriter{chip: chip}
	for i, pin := range pins {
		// Logical 0 on an active-low line is a high level, so every relay
		// starts released.
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0), gpiocdev.AsActiveLow)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("request relay %d pin %d: %w", i+1, pin, err)
		}
		w.lines = append(w.lines, line)
	}
	return w, nil
}

// Write sets the logical value of one relay line.
func (w *CdevWriter) Write(channel int, d Drive) error {
	if err := checkChannel(channel, len(w.lines)); err != nil {
		return err
	}
	v := 0
	if d == Active {
		v = 1
	}
	if err := w.lines[channel-1].SetValue(v); err != nil {
		return fmt.Errorf("write relay %d: %w", channel, err)
	}
	return nil
}

// Close releases all relays before freeing the lines so the fan is not left
// energised by a stopped daemon. The next boot replays the stored setpoint.
func (w *CdevWriter) Close() error {
	var errs []error
	for i, line := range w.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release relay %d: %w", i+1, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay %d: %w", i+1, err))
		}
	}
	w.lines = nil
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		w.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
