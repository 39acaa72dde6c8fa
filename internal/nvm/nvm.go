// Package nvm provides byte-addressed non-volatile storage, modelled on an
// EEPROM: a fixed-size image, erased to 0xFF, written one byte at a time.
package nvm

import "errors"

// Size is the size of the storage image in bytes.
const Size = 1024

// Erased is the value of a never-written byte.
const Erased byte = 0xFF

// Fixed addresses inside the image.
const (
	AddrSetpoint       = 0x000 // last commanded fan percentage
	AddrLegacyChecksum = 0x001 // reserved; older images kept a checksum here
	AddrParams         = 0x100 // parameter block, big-endian uint16 values
)

// ErrOutOfRange is returned for an address outside the image.
var ErrOutOfRange = errors.New("nvm: address out of range")

// Storage reads and writes single bytes.
type Storage interface {
	ReadByteAt(addr int) (byte, error)

	// WriteByteIfChanged writes b at addr unless the stored byte already
	// equals b, sparing a write cycle.
	WriteByteIfChanged(addr int, b byte) error
}

func checkAddr(addr int) error {
	if addr < 0 || addr >= Size {
		return ErrOutOfRange
	}
	return nil
}
