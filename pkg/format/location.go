package format

import "fmt"

// Location is a byte range in the ROM that holds one asset section
type Location struct {
	Offset uint32 `yaml:"offset" json:"offset"`
	Size   uint32 `yaml:"size" json:"size"`
}

// End returns the first offset past the range
func (l Location) End() uint64 {
	return uint64(l.Offset) + uint64(l.Size)
}

// Overlaps reports whether two non-empty ranges share a byte
func (l Location) Overlaps(o Location) bool {
	if l.Size == 0 || o.Size == 0 {
		return false
	}
	return uint64(l.Offset) < o.End() && uint64(o.Offset) < l.End()
}

// Within checks the range against a buffer of length n
func (l Location) Within(n int) error {
	return CheckBounds(uint64(l.Offset), uint64(l.Size), uint64(n))
}

func (l Location) String() string {
	return fmt.Sprintf("0x%06x+%d", l.Offset, l.Size)
}
