package nvm

// MemStore is an in-memory image for tests and dry runs.
type MemStore struct {
	Image [Size]byte

	// Writes counts bytes actually changed.
	Writes int

	// WriteError, if set, is returned by WriteByteIfChanged and nothing is written.
	WriteError error
}

// NewMemStore returns an erased image.
func NewMemStore() *MemStore {
	m := &MemStore{}
	for i := range m.Image {
		m.Image[i] = Erased
	}
	return m
}

// ReadByteAt returns the byte at addr.
func (m *MemStore) ReadByteAt(addr int) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return m.Image[addr], nil
}

// WriteByteIfChanged stores b at addr when it differs.
func (m *MemStore) WriteByteIfChanged(addr int, b byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if m.WriteError != nil {
		return m.WriteError
	}
	if m.Image[addr] != b {
		m.Image[addr] = b
		m.Writes++
	}
	return nil
}

// CopyOf reads every byte of s into a new MemStore, so callers can inspect
// or recover an image without writing to the original.
func CopyOf(s Storage) (*MemStore, error) {
	m := &MemStore{}
	for addr := range m.Image {
		b, err := s.ReadByteAt(addr)
		if err != nil {
			return nil, err
		}
		m.Image[addr] = b
	}
	return m, nil
}
