package format

import (
	"fmt"
	"sync"
	"time"
)

// Container is a header plus its data section. Containers are treated as
// immutable once built; packaging produces a new one.
type Container struct {
	Header Header
	Data   []byte
}

// MeasureFunc computes the expected data size of a variable-length section
// from its directory alone
type MeasureFunc func(data []byte) (int, error)

var (
	measureMu sync.RWMutex
	measures  = make(map[AssetType]MeasureFunc)
)

// RegisterMeasure installs the size rule for a variable-length asset type
func RegisterMeasure(t AssetType, fn MeasureFunc) {
	measureMu.Lock()
	defer measureMu.Unlock()
	measures[t] = fn
}

func getMeasure(t AssetType) MeasureFunc {
	measureMu.RLock()
	defer measureMu.RUnlock()
	return measures[t]
}

// NewContainer wraps data in a freshly computed header
func NewContainer(assetType AssetType, data []byte, sourceOffset uint32, now time.Time) *Container {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &Container{
		Header: *NewHeader(assetType, owned, sourceOffset, now),
		Data:   owned,
	}
}

// Bytes serializes the header followed by the data section
func (c *Container) Bytes() []byte {
	buf := make([]byte, 0, HeaderSize+len(c.Data))
	buf = append(buf, c.Header.Pack()...)
	return append(buf, c.Data...)
}

// Verify reports whether the data section matches the header checksum
func (c *Container) Verify() bool {
	return Verify(c.Data, c.Header.Checksum)
}

// VerifyChecksum returns an IntegrityError on mismatch
func (c *Container) VerifyChecksum() error {
	return VerifyError(c.Data, c.Header.Checksum)
}

// ParseContainer decodes the header and enforces the size invariant. The
// checksum is not verified here.
func ParseContainer(data []byte) (*Container, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Flags != 0 {
		return nil, Formatf(ErrBadFlags, "flags 0x%02x", h.Flags)
	}

	end := uint64(HeaderSize) + uint64(h.DataSize)
	if uint64(len(data)) < end {
		return nil, Formatf(ErrTruncatedData, "header declares %d data bytes, file holds %d", h.DataSize, len(data)-HeaderSize)
	}
	if uint64(len(data)) > end {
		return nil, Formatf(ErrSizeMismatch, "header declares %d data bytes, file holds %d", h.DataSize, len(data)-HeaderSize)
	}

	c := &Container{Header: *h, Data: make([]byte, h.DataSize)}
	copy(c.Data, data[HeaderSize:end])

	if err := CheckSize(h.AssetType, c.Data); err != nil {
		return nil, err
	}
	return c, nil
}

// CheckSize enforces the per-type expected size on a data section
func CheckSize(t AssetType, data []byte) error {
	if size, ok := t.FixedSize(); ok {
		if len(data) != size {
			return Formatf(ErrSizeMismatch, "%s section is %d bytes, expected %d", t, len(data), size)
		}
		return nil
	}

	if t == AssetGraphics {
		if len(data) == 0 || len(data)%TileSize != 0 {
			return Formatf(ErrSizeMismatch, "graphics section is %d bytes, not a non-zero multiple of %d", len(data), TileSize)
		}
		return nil
	}

	measure := getMeasure(t)
	if measure == nil {
		return fmt.Errorf("no size rule registered for %s", t)
	}
	expected, err := measure(data)
	if err != nil {
		return err
	}
	if expected != len(data) {
		return Formatf(ErrSizeMismatch, "%s section is %d bytes, directory describes %d", t, len(data), expected)
	}
	return nil
}
