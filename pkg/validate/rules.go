package validate

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"golang.org/x/text/unicode/norm"
)

// Format pass: record counts the fixed layouts depend on

func formatAsset(r *report, a records.Asset) {
	switch v := a.(type) {
	case *records.MonsterTable:
		if len(v.Monsters) != format.MonsterCount {
			r.add("", "monsters.count", len(v.Monsters), fmt.Sprintf("==%d", format.MonsterCount))
		}
	case *records.SpellTable:
		if len(v.Spells) != format.SpellCount {
			r.add("", "spells.count", len(v.Spells), fmt.Sprintf("==%d", format.SpellCount))
		}
	case *records.ItemTable:
		if len(v.Items) != format.ItemCount {
			r.add("", "items.count", len(v.Items), fmt.Sprintf("==%d", format.ItemCount))
		}
	case *records.MapSet:
		r.between("", "maps.count", len(v.Maps), 0, 0xFFFF)
	case *records.TextTable:
		r.between("", "strings.count", len(v.Strings), 0, 0xFFFF)
	case *records.Tileset:
		r.atLeast("", "tiles.count", len(v.Tiles), 1)
	}
}

// Range pass

func rangeMonsters(r *report, t *records.MonsterTable) {
	for i, m := range t.Monsters {
		id := rec("monster", i)
		r.byteRange(id, "attack", m.Attack)
		r.byteRange(id, "defense", m.Defense)
		if m.HP < 1 {
			r.atLeast(id, "hp", m.HP, 1)
		} else {
			r.byteRange(id, "hp", m.HP)
		}
		r.byteRange(id, "spell", m.Spell)
		r.byteRange(id, "agility", m.Agility)
		r.byteRange(id, "m_defense", m.MDefense)
		r.between(id, "xp", m.XP, 0, 0xFFFF)
		r.between(id, "gold", m.Gold, 0, 0xFFFF)
		r.reserved(id, m.Reserved, 6)
	}
}

func rangeSpells(r *report, t *records.SpellTable) {
	for i, s := range t.Spells {
		id := rec("spell", i)
		r.byteRange(id, "mp_cost", s.MPCost)
		r.byteRange(id, "power", s.Power)
		r.between(id, "effect", s.Effect, 0, records.EffectMax)
		r.between(id, "range", s.Range, 0, records.RangeMax)
		r.byteRange(id, "animation", s.Animation)
		r.reserved(id, s.Reserved, 3)
	}
}

func rangeItems(r *report, t *records.ItemTable) {
	for i, it := range t.Items {
		id := rec("item", i)
		r.between(id, "buy", it.Buy, 0, 0xFFFF)
		r.between(id, "sell", it.Sell, 0, 0xFFFF)
		r.between(id, "attack", it.Attack, -128, 127)
		r.between(id, "defense", it.Defense, -128, 127)
		r.between(id, "type", it.Type, 0, records.ItemMax)
		r.zero(id, "reserved_flags", it.ReservedFlags)
	}
}

func rangeMaps(r *report, s *records.MapSet) {
	r.zero("", "reserved", s.Reserved)
	ids := mapset.NewThreadUnsafeSet[int]()

	for i, m := range s.Maps {
		id := rec("map", i)
		r.byteRange(id, "id", m.ID)
		if ids.Contains(m.ID) {
			r.add(id, "id", m.ID, "unique")
		}
		ids.Add(m.ID)

		r.between(id, "width", m.Width, 1, 0xFF)
		r.between(id, "height", m.Height, 1, 0xFF)
		r.byteRange(id, "palette", m.Palette)

		if len(m.Rows) != m.Height {
			r.add(id, "rows", len(m.Rows), fmt.Sprintf("len==%d", m.Height))
		}
		for y, row := range m.Rows {
			if len(row) != m.Width {
				r.add(id, fmt.Sprintf("rows[%d]", y), len(row), fmt.Sprintf("len==%d", m.Width))
			}
			for x, tile := range row {
				r.byteRange(id, fmt.Sprintf("rows[%d][%d]", y, x), tile)
			}
		}

		r.between(id, "npcs.count", len(m.NPCs), 0, 0xFF)
		for j, n := range m.NPCs {
			field := fmt.Sprintf("npcs[%d]", j)
			r.between(id, field+".x", n.X, 0, m.Width-1)
			r.between(id, field+".y", n.Y, 0, m.Height-1)
			r.byteRange(id, field+".sprite", n.Sprite)
			r.byteRange(id, field+".dialog", n.Dialog)
		}
	}
}

func rangeText(r *report, t *records.TextTable, codec *records.TextCodec) {
	r.zero("", "reserved", t.Reserved)
	ids := mapset.NewThreadUnsafeSet[int]()

	for i, s := range t.Strings {
		id := rec("string", i)
		r.between(id, "id", s.ID, 0, 0xFFFF)
		if ids.Contains(s.ID) {
			r.add(id, "id", s.ID, "unique")
		}
		ids.Add(s.ID)

		if !norm.NFKC.IsNormalString(s.Text) {
			r.add(id, "text", 0, "NFKC")
			continue
		}
		encoded, err := codec.EncodeString(s.Text)
		var ce *records.CharError
		switch {
		case errors.As(err, &ce):
			r.add(id, fmt.Sprintf("text@%d", ce.Pos), int(ce.Rune), "encodable character")
		case err != nil:
			r.add(id, "text", 0, err.Error())
		case len(encoded) > 0xFFFF:
			r.add(id, "text.length", len(encoded), "<=65535")
		}
	}
}

func rangeTiles(r *report, ts *records.Tileset) {
	for i, tile := range ts.Tiles {
		id := rec("tile", i)
		for p, v := range tile {
			r.between(id, fmt.Sprintf("pixel[%d]", p), v, 0, records.MaxColor)
		}
	}
}

// Cross-reference pass

func referenceMonsters(r *report, t *records.MonsterTable, refs References) {
	for i, m := range t.Monsters {
		if m.Spell != 0 {
			r.below(rec("monster", i), "spell", m.Spell, refs.SpellCount)
		}
	}
}

func referenceMaps(r *report, s *records.MapSet, refs References) {
	if refs.TileCount <= 0 {
		return
	}
	for i, m := range s.Maps {
		for y, row := range m.Rows {
			for x, tile := range row {
				r.below(rec("map", i), fmt.Sprintf("rows[%d][%d]", y, x), tile, refs.TileCount)
			}
		}
	}
}
