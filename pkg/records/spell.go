package records

import (
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// Spell effect kinds
const (
	EffectDamage = 0
	EffectHeal   = 1
	EffectSleep  = 2
	EffectSeal   = 3
	EffectWarp   = 4
	EffectMax    = EffectWarp
)

// Spell range kinds
const (
	RangeSingle = 0
	RangeGroup  = 1
	RangeAll    = 2
	RangeSelf   = 3
	RangeMax    = RangeSelf
)

// Spell is one 8-byte spell record
type Spell struct {
	MPCost    int   `json:"mp_cost"`
	Power     int   `json:"power"`
	Effect    int   `json:"effect"`
	Range     int   `json:"range"`
	Animation int   `json:"animation"`
	Reserved  []int `json:"reserved"` // 3 bytes, must be zero
}

// SpellTable holds all spell records; a record's index is its spell id
type SpellTable struct {
	Spells []Spell `json:"spells"`
}

func (*SpellTable) AssetType() format.AssetType { return format.AssetSpell }

// SpellCodec handles the spell table
type SpellCodec struct{}

func (SpellCodec) Type() format.AssetType { return format.AssetSpell }

func (SpellCodec) New() Asset { return &SpellTable{} }

func (SpellCodec) Decode(data []byte) (Asset, error) {
	wires := make([]spellWire, format.SpellCount)
	err := unpackTable(format.AssetSpell, data, format.SpellRecordSize, format.SpellCount, func(i int) interface{} {
		return &wires[i]
	})
	if err != nil {
		return nil, err
	}

	table := &SpellTable{Spells: make([]Spell, len(wires))}
	for i, w := range wires {
		table.Spells[i] = Spell{
			MPCost:    int(w.MPCost),
			Power:     int(w.Power),
			Effect:    int(w.Effect),
			Range:     int(w.Range),
			Animation: int(w.Animation),
			Reserved:  byteSlice(w.Reserved[:]),
		}
	}
	return table, nil
}

func (c SpellCodec) Encode(a Asset) ([]byte, error) {
	table, ok := a.(*SpellTable)
	if !ok {
		return nil, wrongAsset(c, a)
	}
	if len(table.Spells) != format.SpellCount {
		return nil, fmt.Errorf("spell table has %d records, expected %d", len(table.Spells), format.SpellCount)
	}

	return packTable(format.AssetSpell, format.SpellRecordSize, format.SpellCount, func(i int) interface{} {
		s := table.Spells[i]
		w := &spellWire{
			MPCost:    uint8(s.MPCost),
			Power:     uint8(s.Power),
			Effect:    uint8(s.Effect),
			Range:     uint8(s.Range),
			Animation: uint8(s.Animation),
		}
		fillBytes(w.Reserved[:], s.Reserved)
		return w
	})
}
