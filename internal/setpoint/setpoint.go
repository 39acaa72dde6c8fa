// Package setpoint persists the last commanded fan percentage so the fan
// returns to it after a power cycle.
package setpoint

import (
	"fmt"

	"github.com/sweeney/vent-controller/internal/fan"
	"github.com/sweeney/vent-controller/internal/nvm"
)

// Store reads and writes the setpoint byte.
type Store struct {
	nvm nvm.Storage
}

// New creates a Store on the given storage.
func New(s nvm.Storage) *Store {
	return &Store{nvm: s}
}

// Load returns the stored setpoint. Every byte value is valid, including an
// erased 0xFF, which the fan mapping resolves to full speed.
func (s *Store) Load() (fan.Percent, error) {
	b, err := s.nvm.ReadByteAt(nvm.AddrSetpoint)
	if err != nil {
		return 0, fmt.Errorf("load setpoint: %w", err)
	}
	return fan.Percent(b), nil
}

// Save stores p. Storage skips the write when the byte is unchanged.
func (s *Store) Save(p fan.Percent) error {
	if err := s.nvm.WriteByteIfChanged(nvm.AddrSetpoint, byte(p)); err != nil {
		return fmt.Errorf("save setpoint: %w", err)
	}
	return nil
}
