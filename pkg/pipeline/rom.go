package pipeline

import (
	"fmt"
	"os"

	"github.com/dwforge/romfmt/pkg/format"
)

// ROMReader gives read access to a ROM image
type ROMReader interface {
	ReadRange(offset, size uint32) ([]byte, error)
	Len() int
}

// ROMWriter overwrites bytes of a ROM image in place
type ROMWriter interface {
	WriteRange(offset uint32, data []byte) error
}

// ROMReadWriter is what Reinsert needs
type ROMReadWriter interface {
	ROMReader
	ROMWriter
}

// ROM is an in-memory ROM image. The length never changes.
type ROM struct {
	data []byte
}

// NewROM copies data into a new image
func NewROM(data []byte) *ROM {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &ROM{data: owned}
}

// LoadROM reads an image from disk
func LoadROM(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}
	return &ROM{data: data}, nil
}

func (r *ROM) Len() int {
	return len(r.data)
}

// ReadRange returns a copy of [offset, offset+size)
func (r *ROM) ReadRange(offset, size uint32) ([]byte, error) {
	if err := format.CheckBounds(uint64(offset), uint64(size), uint64(len(r.data))); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, r.data[offset:])
	return out, nil
}

// WriteRange overwrites len(data) bytes at offset
func (r *ROM) WriteRange(offset uint32, data []byte) error {
	if err := format.CheckBounds(uint64(offset), uint64(len(data)), uint64(len(r.data))); err != nil {
		return err
	}
	copy(r.data[offset:], data)
	return nil
}

// Bytes returns a copy of the whole image
func (r *ROM) Bytes() []byte {
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// Checksum is the CRC-32 of the whole image
func (r *ROM) Checksum() uint32 {
	return format.Compute(r.data)
}
