package records

import (
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// Item types
const (
	ItemWeapon = 0
	ItemArmor  = 1
	ItemShield = 2
	ItemTool   = 3
	ItemKey    = 4
	ItemMax    = ItemKey
)

// Item flag bits; the upper nibble is reserved
const (
	FlagEquippable = 1 << 0
	FlagCursed     = 1 << 1
	FlagImportant  = 1 << 2
	FlagQuest      = 1 << 3
	flagReserved   = 0xF0
)

// Item is one 8-byte item record
type Item struct {
	Buy           int  `json:"buy"`
	Sell          int  `json:"sell"`
	Attack        int  `json:"attack"`  // signed
	Defense       int  `json:"defense"` // signed
	Type          int  `json:"type"`
	Equippable    bool `json:"equippable"`
	Cursed        bool `json:"cursed"`
	Important     bool `json:"important"`
	Quest         bool `json:"quest"`
	ReservedFlags int  `json:"reserved_flags"` // bits 4-7 as a 0-15 value, must be zero
}

// Flags packs the boolean flags and the reserved nibble into the wire byte
func (it Item) Flags() uint8 {
	var f uint8
	if it.Equippable {
		f |= FlagEquippable
	}
	if it.Cursed {
		f |= FlagCursed
	}
	if it.Important {
		f |= FlagImportant
	}
	if it.Quest {
		f |= FlagQuest
	}
	return f | uint8(it.ReservedFlags<<4)&flagReserved
}

// ItemTable holds all item records in ROM order
type ItemTable struct {
	Items []Item `json:"items"`
}

func (*ItemTable) AssetType() format.AssetType { return format.AssetItem }

// ItemCodec handles the item table
type ItemCodec struct{}

func (ItemCodec) Type() format.AssetType { return format.AssetItem }

func (ItemCodec) New() Asset { return &ItemTable{} }

func (ItemCodec) Decode(data []byte) (Asset, error) {
	wires := make([]itemWire, format.ItemCount)
	err := unpackTable(format.AssetItem, data, format.ItemRecordSize, format.ItemCount, func(i int) interface{} {
		return &wires[i]
	})
	if err != nil {
		return nil, err
	}

	table := &ItemTable{Items: make([]Item, len(wires))}
	for i, w := range wires {
		table.Items[i] = Item{
			Buy:           int(w.Buy),
			Sell:          int(w.Sell),
			Attack:        int(w.Attack),
			Defense:       int(w.Defense),
			Type:          int(w.Type),
			Equippable:    w.Flags&FlagEquippable != 0,
			Cursed:        w.Flags&FlagCursed != 0,
			Important:     w.Flags&FlagImportant != 0,
			Quest:         w.Flags&FlagQuest != 0,
			ReservedFlags: int(w.Flags&flagReserved) >> 4,
		}
	}
	return table, nil
}

func (c ItemCodec) Encode(a Asset) ([]byte, error) {
	table, ok := a.(*ItemTable)
	if !ok {
		return nil, wrongAsset(c, a)
	}
	if len(table.Items) != format.ItemCount {
		return nil, fmt.Errorf("item table has %d records, expected %d", len(table.Items), format.ItemCount)
	}

	return packTable(format.AssetItem, format.ItemRecordSize, format.ItemCount, func(i int) interface{} {
		it := table.Items[i]
		return &itemWire{
			Buy:     uint16(it.Buy),
			Sell:    uint16(it.Sell),
			Attack:  int8(it.Attack),
			Defense: int8(it.Defense),
			Type:    uint8(it.Type),
			Flags:   it.Flags(),
		}
	})
}
