package records

import (
	"encoding/binary"
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/go-restruct/restruct"
)

// Wire layouts for the fixed-size tables. Field order is the byte order.

type monsterWire struct {
	Attack   uint8
	Defense  uint8
	HP       uint8
	Spell    uint8
	Agility  uint8
	MDefense uint8
	XP       uint16
	Gold     uint16
	Reserved [6]byte
}

type spellWire struct {
	MPCost    uint8
	Power     uint8
	Effect    uint8
	Range     uint8
	Animation uint8
	Reserved  [3]byte
}

type itemWire struct {
	Buy     uint16
	Sell    uint16
	Attack  int8
	Defense int8
	Type    uint8
	Flags   uint8
}

// unpackTable splits a tabular section into records and unpacks each into the
// wire value returned by next
func unpackTable(t format.AssetType, data []byte, recSize, count int, next func(i int) interface{}) error {
	if len(data) != recSize*count {
		return format.Formatf(format.ErrTruncatedData, "%s table needs %d bytes, got %d", t, recSize*count, len(data))
	}
	for i := 0; i < count; i++ {
		rec := data[i*recSize : (i+1)*recSize]
		if err := restruct.Unpack(rec, binary.LittleEndian, next(i)); err != nil {
			return fmt.Errorf("unpacking %s[%d]: %w", t, i, err)
		}
	}
	return nil
}

// packTable packs count wire values back to back
func packTable(t format.AssetType, recSize, count int, wire func(i int) interface{}) ([]byte, error) {
	buf := make([]byte, 0, recSize*count)
	for i := 0; i < count; i++ {
		rec, err := restruct.Pack(binary.LittleEndian, wire(i))
		if err != nil {
			return nil, fmt.Errorf("packing %s[%d]: %w", t, i, err)
		}
		if len(rec) != recSize {
			return nil, fmt.Errorf("packing %s[%d]: got %d bytes, expected %d", t, i, len(rec), recSize)
		}
		buf = append(buf, rec...)
	}
	return buf, nil
}

func byteSlice(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

// fillBytes narrows ints into dst; missing entries stay zero
func fillBytes(dst []byte, src []int) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] = byte(src[i])
	}
}
