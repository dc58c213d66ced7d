package records

import (
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// Monster is one 16-byte monster record
type Monster struct {
	Attack   int   `json:"attack"`
	Defense  int   `json:"defense"`
	HP       int   `json:"hp"`
	Spell    int   `json:"spell"` // 0 = none, else a spell id
	Agility  int   `json:"agility"`
	MDefense int   `json:"m_defense"`
	XP       int   `json:"xp"`
	Gold     int   `json:"gold"`
	Reserved []int `json:"reserved"` // 6 bytes, must be zero
}

// MonsterTable holds all monster records in ROM order
type MonsterTable struct {
	Monsters []Monster `json:"monsters"`
}

func (*MonsterTable) AssetType() format.AssetType { return format.AssetMonster }

// MonsterCodec handles the monster table
type MonsterCodec struct{}

func (MonsterCodec) Type() format.AssetType { return format.AssetMonster }

func (MonsterCodec) New() Asset { return &MonsterTable{} }

func (MonsterCodec) Decode(data []byte) (Asset, error) {
	wires := make([]monsterWire, format.MonsterCount)
	err := unpackTable(format.AssetMonster, data, format.MonsterRecordSize, format.MonsterCount, func(i int) interface{} {
		return &wires[i]
	})
	if err != nil {
		return nil, err
	}

	table := &MonsterTable{Monsters: make([]Monster, len(wires))}
	for i, w := range wires {
		table.Monsters[i] = Monster{
			Attack:   int(w.Attack),
			Defense:  int(w.Defense),
			HP:       int(w.HP),
			Spell:    int(w.Spell),
			Agility:  int(w.Agility),
			MDefense: int(w.MDefense),
			XP:       int(w.XP),
			Gold:     int(w.Gold),
			Reserved: byteSlice(w.Reserved[:]),
		}
	}
	return table, nil
}

func (c MonsterCodec) Encode(a Asset) ([]byte, error) {
	table, ok := a.(*MonsterTable)
	if !ok {
		return nil, wrongAsset(c, a)
	}
	if len(table.Monsters) != format.MonsterCount {
		return nil, fmt.Errorf("monster table has %d records, expected %d", len(table.Monsters), format.MonsterCount)
	}

	return packTable(format.AssetMonster, format.MonsterRecordSize, format.MonsterCount, func(i int) interface{} {
		m := table.Monsters[i]
		w := &monsterWire{
			Attack:   uint8(m.Attack),
			Defense:  uint8(m.Defense),
			HP:       uint8(m.HP),
			Spell:    uint8(m.Spell),
			Agility:  uint8(m.Agility),
			MDefense: uint8(m.MDefense),
			XP:       uint16(m.XP),
			Gold:     uint16(m.Gold),
		}
		fillBytes(w.Reserved[:], m.Reserved)
		return w
	})
}
