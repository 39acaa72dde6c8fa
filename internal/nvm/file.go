package nvm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileStore keeps the image in a file. The whole image is cached in memory;
// each changed byte is written through and synced before returning.
type FileStore struct {
	f     *os.File
	image [Size]byte

	// Writes counts bytes actually written to the file.
	Writes int
}

// OpenFile opens the image at path, creating an erased image if the file
// does not exist. A short file is padded with erased bytes.
func OpenFile(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = createErased(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open nvm image: %w", err)
	}

	s := &FileStore{f: f}
	copy(s.image[:], bytes.Repeat([]byte{Erased}, Size))
	n, err := f.ReadAt(s.image[:], 0)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("read nvm image: %w", err)
	}
	if n < Size {
		if _, err := f.WriteAt(s.image[n:], int64(n)); err != nil {
			f.Close()
			return nil, fmt.Errorf("pad nvm image: %w", err)
		}
	}
	return s, nil
}

func createErased(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(bytes.Repeat([]byte{Erased}, Size)); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ReadByteAt returns the cached byte at addr.
func (s *FileStore) ReadByteAt(addr int) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return s.image[addr], nil
}

// WriteByteIfChanged writes and syncs b at addr when it differs from the
// stored byte.
func (s *FileStore) WriteByteIfChanged(addr int, b byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if s.image[addr] == b {
		return nil
	}
	if _, err := s.f.WriteAt([]byte{b}, int64(addr)); err != nil {
		return fmt.Errorf("write nvm byte 0x%03x: %w", addr, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync nvm image: %w", err)
	}
	s.image[addr] = b
	s.Writes++
	return nil
}

// Close closes the image file.
func (s *FileStore) Close() error {
	return s.f.Close()
}
