// Package params holds the remotely tunable runtime parameters and keeps
// them in a checksum-guarded block of non-volatile storage.
package params

import (
	"fmt"
	"log"

	"github.com/sweeney/vent-controller/internal/nvm"
)

// Index identifies a parameter within the block.
type Index int

const (
	TempHysteresis Index = iota // tenths of °C
	HumHysteresis               // tenths of %RH
	ReadInterval                // seconds between sensor polls
)

// Count is the number of parameters in the block.
const Count = 3

// Base is the parameter number of the first tunable. The host addresses
// parameter i as Base+i; other numbers belong to other device settings.
const Base = 64

// MinReadInterval is the smallest accepted poll interval in seconds.
const MinReadInterval = 30

// Block layout: Count big-endian values starting at nvm.AddrParams,
// followed by one checksum byte.
const (
	blockSize    = 2 * Count
	addrChecksum = nvm.AddrParams + blockSize
)

var indexNames = [Count]string{"temp_hysteresis", "hum_hysteresis", "read_interval"}

func (i Index) String() string {
	if i >= 0 && i < Count {
		return indexNames[i]
	}
	return fmt.Sprintf("Index(%d)", int(i))
}

// Number returns the host-facing parameter number for i.
func (i Index) Number() int {
	return Base + int(i)
}

// Values is the parameter set in declared order.
type Values [Count]uint16

// Defaults are the compiled-in values used when the stored block is corrupt.
var Defaults = Values{
	TempHysteresis: 5,
	HumHysteresis:  10,
	ReadInterval:   30,
}

// Checksum is the 8-bit wrapping sum of the high and low byte of every value.
func Checksum(v Values) byte {
	var sum byte
	for _, x := range v {
		sum += byte(x >> 8)
		sum += byte(x)
	}
	return sum
}

// State reports whether the stored block matches its checksum.
type State int

const (
	Corrupt State = iota
	Valid
)

func (s State) String() string {
	if s == Valid {
		return "VALID"
	}
	return "CORRUPT"
}

// Store owns the in-memory parameters. Changes take effect immediately and
// are written to storage later by Flush, outside the caller's handler.
type Store struct {
	nvm       nvm.Storage
	values    Values
	state     State
	pending   bool
	recovered bool
}

// Open validates the stored block. On a checksum match the stored values are
// loaded. Otherwise the defaults are loaded and written back with a fresh
// checksum. A failed write-back is logged and retried by the next Flush.
func Open(s nvm.Storage) (*Store, error) {
	st := &Store{nvm: s}

	stored, sum, err := st.readBlock()
	if err != nil {
		return nil, err
	}

	if Checksum(stored) == sum {
		st.values = stored
		st.state = Valid
		return st, nil
	}

	log.Printf("params: checksum mismatch (stored=0x%02x computed=0x%02x), restoring defaults", sum, Checksum(stored))
	st.values = Defaults
	st.state = Corrupt
	st.pending = true
	st.recovered = true
	if err := st.Flush(); err != nil {
		log.Printf("params: %v", err)
	}
	return st, nil
}

func (s *Store) readBlock() (Values, byte, error) {
	var v Values
	for i := range v {
		hi, err := s.nvm.ReadByteAt(nvm.AddrParams + 2*i)
		if err != nil {
			return v, 0, fmt.Errorf("read parameter %d: %w", i, err)
		}
		lo, err := s.nvm.ReadByteAt(nvm.AddrParams + 2*i + 1)
		if err != nil {
			return v, 0, fmt.Errorf("read parameter %d: %w", i, err)
		}
		v[i] = uint16(hi)<<8 | uint16(lo)
	}
	sum, err := s.nvm.ReadByteAt(addrChecksum)
	if err != nil {
		return v, 0, fmt.Errorf("read parameter checksum: %w", err)
	}
	return v, sum, nil
}

// Get returns the current value of one parameter.
func (s *Store) Get(i Index) uint16 {
	return s.values[i]
}

// Values returns a copy of the current parameters.
func (s *Store) Values() Values {
	return s.values
}

// State reports the validity of the stored block.
func (s *Store) State() State {
	return s.state
}

// Recovered reports whether Open found a corrupt block and restored defaults.
func (s *Store) Recovered() bool {
	return s.recovered
}

// Pending reports whether a change is waiting for Flush.
func (s *Store) Pending() bool {
	return s.pending
}

// Set changes the parameter with the given host number. Numbers outside
// Base..Base+Count-1 are dropped and Set returns false. ReadInterval is
// clamped to MinReadInterval. The write to storage is deferred to Flush.
func (s *Store) Set(number int, value uint16) bool {
	i := Index(number - Base)
	if i < 0 || i >= Count {
		return false
	}
	if i == ReadInterval && value < MinReadInterval {
		value = MinReadInterval
	}
	s.values[i] = value
	s.pending = true
	return true
}

// Flush writes the block and its checksum if a change is pending. On error
// the change stays pending so the next call retries.
func (s *Store) Flush() error {
	if !s.pending {
		return nil
	}
	for i, v := range s.values {
		if err := s.nvm.WriteByteIfChanged(nvm.AddrParams+2*i, byte(v>>8)); err != nil {
			return fmt.Errorf("write parameter %s: %w", Index(i), err)
		}
		if err := s.nvm.WriteByteIfChanged(nvm.AddrParams+2*i+1, byte(v)); err != nil {
			return fmt.Errorf("write parameter %s: %w", Index(i), err)
		}
	}
	if err := s.nvm.WriteByteIfChanged(addrChecksum, Checksum(s.values)); err != nil {
		return fmt.Errorf("write parameter checksum: %w", err)
	}
	s.pending = false
	s.state = Valid
	return nil
}
