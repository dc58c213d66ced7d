// Package records maps container data sections to typed, editable values and
// back, one codec per asset type.
//
// Editable values hold plain ints rather than fixed-width fields so an edit
// that overflows a byte survives until the validator can report it. Encoding
// narrows them again and assumes validation already passed.
package records

import (
	"encoding/binary"
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// Asset is the typed, editable view of one data section
type Asset interface {
	AssetType() format.AssetType
}

// Codec converts between a data section and its Asset
type Codec interface {
	// Type returns the asset type this codec handles
	Type() format.AssetType

	// New returns an empty value suitable for unmarshalling a document into
	New() Asset

	// Decode parses a complete data section
	Decode(data []byte) (Asset, error)

	// Encode reproduces the exact byte layout, padding included
	Encode(a Asset) ([]byte, error)
}

// Registry maps asset types to their default codecs
var Registry = make(map[format.AssetType]Codec)

// Register registers a codec implementation
func Register(c Codec) {
	Registry[c.Type()] = c
}

// Get retrieves the default codec for an asset type
func Get(t format.AssetType) (Codec, error) {
	c, ok := Registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %s", format.ErrUnknownType, t)
	}
	return c, nil
}

func init() {
	Register(MonsterCodec{})
	Register(SpellCodec{})
	Register(ItemCodec{})
	Register(MapCodec{})
	Register(NewTextCodec(nil))
	Register(GraphicsCodec{})

	format.RegisterMeasure(format.AssetMap, MeasureMap)
	format.RegisterMeasure(format.AssetText, MeasureText)
}

func wrongAsset(c Codec, a Asset) error {
	return fmt.Errorf("%s codec cannot encode %T", c.Type(), a)
}

// readPrefix parses the count/reserved prefix shared by map and text sections
func readPrefix(data []byte) (count, reserved int, err error) {
	if len(data) < format.SectionPrefixSize {
		return 0, 0, format.Formatf(format.ErrTruncatedData, "section prefix needs %d bytes, got %d", format.SectionPrefixSize, len(data))
	}
	return int(binary.LittleEndian.Uint16(data[0:2])), int(binary.LittleEndian.Uint16(data[2:4])), nil
}

func putPrefix(buf []byte, count, reserved int) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(count))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(reserved))
}

// span checks that [offset, offset+size) lies inside a buffer of length n
// and past the directory
func span(what string, offset, size uint64, dirEnd, n int) error {
	if offset < uint64(dirEnd) {
		return format.Formatf(format.ErrOffsetOutOfBounds, "%s starts at %d inside directory ending at %d", what, offset, dirEnd)
	}
	if offset > uint64(n) || size > uint64(n)-offset {
		return format.Formatf(format.ErrOffsetOutOfBounds, "%s spans [%d, %d) beyond section length %d", what, offset, offset+size, n)
	}
	return nil
}

// ExpectedSize returns the section size the asset type implies for data.
// Map and text sizes come from the directory alone, so data may extend past
// the section (as a raw ROM range does).
func ExpectedSize(t format.AssetType, data []byte) (int, error) {
	if size, ok := t.FixedSize(); ok {
		return size, nil
	}
	switch t {
	case format.AssetGraphics:
		if len(data) == 0 || len(data)%format.TileSize != 0 {
			return 0, format.Formatf(format.ErrSizeMismatch, "graphics range of %d bytes is not a non-zero multiple of %d", len(data), format.TileSize)
		}
		return len(data), nil
	case format.AssetMap:
		return MeasureMap(data)
	case format.AssetText:
		return MeasureText(data)
	}
	return 0, fmt.Errorf("%w: %s", format.ErrUnknownType, t)
}
