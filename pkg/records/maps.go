package records

import (
	"encoding/binary"
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// NPC is one 4-byte NPC placement
type NPC struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Sprite int `json:"sprite"`
	Dialog int `json:"dialog"`
}

// Map is one map: a tile grid stored row by row plus its NPC list
type Map struct {
	ID      int     `json:"id"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Palette int     `json:"palette"`
	Rows    [][]int `json:"rows"` // Height rows of Width tile ids
	NPCs    []NPC   `json:"npcs"`
}

// PayloadSize is the encoded size of the map's grid and NPC list
func (m *Map) PayloadSize() int {
	return m.Width*m.Height + 1 + format.NPCSize*len(m.NPCs)
}

// MapSet holds every map in directory order
type MapSet struct {
	Reserved int   `json:"reserved"` // prefix padding, must be zero
	Maps     []Map `json:"maps"`
}

func (*MapSet) AssetType() format.AssetType { return format.AssetMap }

// mapEntry is one 16-byte directory entry
type mapEntry struct {
	ID         uint8
	Width      uint8
	Height     uint8
	Palette    uint8
	DataOffset uint32
	DataSize   uint32
	CRC        uint32
}

func readMapEntry(b []byte) mapEntry {
	return mapEntry{
		ID:         b[0],
		Width:      b[1],
		Height:     b[2],
		Palette:    b[3],
		DataOffset: binary.LittleEndian.Uint32(b[4:8]),
		DataSize:   binary.LittleEndian.Uint32(b[8:12]),
		CRC:        binary.LittleEndian.Uint32(b[12:16]),
	}
}

func (e mapEntry) put(b []byte) {
	b[0] = e.ID
	b[1] = e.Width
	b[2] = e.Height
	b[3] = e.Palette
	binary.LittleEndian.PutUint32(b[4:8], e.DataOffset)
	binary.LittleEndian.PutUint32(b[8:12], e.DataSize)
	binary.LittleEndian.PutUint32(b[12:16], e.CRC)
}

// readMapDirectory is phase one of decoding: the fixed directory only
func readMapDirectory(data []byte) ([]mapEntry, int, error) {
	count, reserved, err := readPrefix(data)
	if err != nil {
		return nil, 0, err
	}
	dirEnd := format.SectionPrefixSize + count*format.MapEntrySize
	if dirEnd > len(data) {
		return nil, 0, format.Formatf(format.ErrTruncatedData, "map directory of %d entries needs %d bytes, got %d", count, dirEnd, len(data))
	}

	entries := make([]mapEntry, count)
	for i := range entries {
		off := format.SectionPrefixSize + i*format.MapEntrySize
		entries[i] = readMapEntry(data[off : off+format.MapEntrySize])
		if err := span(fmt.Sprintf("map[%d]", i), uint64(entries[i].DataOffset), uint64(entries[i].DataSize), dirEnd, len(data)); err != nil {
			return nil, 0, err
		}
	}
	return entries, reserved, nil
}

// MeasureMap returns the section size implied by the map directory
func MeasureMap(data []byte) (int, error) {
	entries, _, err := readMapDirectory(data)
	if err != nil {
		return 0, err
	}
	size := format.SectionPrefixSize + len(entries)*format.MapEntrySize
	for _, e := range entries {
		if end := int(e.DataOffset) + int(e.DataSize); end > size {
			size = end
		}
	}
	return size, nil
}

// MapCodec handles the map section
type MapCodec struct{}

func (MapCodec) Type() format.AssetType { return format.AssetMap }

func (MapCodec) New() Asset { return &MapSet{} }

func (MapCodec) Decode(data []byte) (Asset, error) {
	entries, reserved, err := readMapDirectory(data)
	if err != nil {
		return nil, err
	}

	set := &MapSet{Reserved: reserved, Maps: make([]Map, len(entries))}
	for i, e := range entries {
		payload := data[e.DataOffset : e.DataOffset+e.DataSize]
		if actual := format.Compute(payload); actual != e.CRC {
			return nil, fmt.Errorf("map[%d]: %w", i, &format.IntegrityError{Expected: e.CRC, Actual: actual})
		}
		m, err := decodeMapPayload(e, payload)
		if err != nil {
			return nil, fmt.Errorf("map[%d]: %w", i, err)
		}
		set.Maps[i] = m
	}
	return set, nil
}

func decodeMapPayload(e mapEntry, payload []byte) (Map, error) {
	w, h := int(e.Width), int(e.Height)
	grid := w * h
	if len(payload) < grid+1 {
		return Map{}, format.Formatf(format.ErrTruncatedData, "payload of %d bytes cannot hold %dx%d grid and NPC count", len(payload), w, h)
	}
	npcCount := int(payload[grid])
	if want := grid + 1 + npcCount*format.NPCSize; len(payload) != want {
		return Map{}, format.Formatf(format.ErrSizeMismatch, "payload is %d bytes, grid and %d NPCs need %d", len(payload), npcCount, want)
	}

	m := Map{
		ID:      int(e.ID),
		Width:   w,
		Height:  h,
		Palette: int(e.Palette),
		Rows:    make([][]int, h),
		NPCs:    make([]NPC, npcCount),
	}
	for y := 0; y < h; y++ {
		m.Rows[y] = byteSlice(payload[y*w : (y+1)*w])
	}
	for i := range m.NPCs {
		p := payload[grid+1+i*format.NPCSize:]
		m.NPCs[i] = NPC{X: int(p[0]), Y: int(p[1]), Sprite: int(p[2]), Dialog: int(p[3])}
	}
	return m, nil
}

func (c MapCodec) Encode(a Asset) ([]byte, error) {
	set, ok := a.(*MapSet)
	if !ok {
		return nil, wrongAsset(c, a)
	}

	dirEnd := format.SectionPrefixSize + len(set.Maps)*format.MapEntrySize
	size := dirEnd
	for i := range set.Maps {
		if set.Maps[i].Width < 0 || set.Maps[i].Height < 0 {
			return nil, fmt.Errorf("map[%d] has negative dimensions %dx%d", i, set.Maps[i].Width, set.Maps[i].Height)
		}
		size += set.Maps[i].PayloadSize()
	}

	buf := make([]byte, size)
	putPrefix(buf, len(set.Maps), set.Reserved)

	offset := dirEnd
	for i := range set.Maps {
		m := &set.Maps[i]
		payload := buf[offset : offset+m.PayloadSize()]
		for y := 0; y < m.Height; y++ {
			var row []int
			if y < len(m.Rows) {
				row = m.Rows[y]
			}
			fillBytes(payload[y*m.Width:(y+1)*m.Width], row)
		}
		grid := m.Width * m.Height
		payload[grid] = byte(len(m.NPCs))
		for j, n := range m.NPCs {
			p := payload[grid+1+j*format.NPCSize:]
			p[0], p[1], p[2], p[3] = byte(n.X), byte(n.Y), byte(n.Sprite), byte(n.Dialog)
		}

		entry := mapEntry{
			ID:         uint8(m.ID),
			Width:      uint8(m.Width),
			Height:     uint8(m.Height),
			Palette:    uint8(m.Palette),
			DataOffset: uint32(offset),
			DataSize:   uint32(len(payload)),
			CRC:        format.Compute(payload),
		}
		dirOff := format.SectionPrefixSize + i*format.MapEntrySize
		entry.put(buf[dirOff : dirOff+format.MapEntrySize])

		offset += len(payload)
	}
	return buf, nil
}
