package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMonsters() *records.MonsterTable {
	t := &records.MonsterTable{Monsters: make([]records.Monster, format.MonsterCount)}
	for i := range t.Monsters {
		t.Monsters[i] = records.Monster{Attack: 5, Defense: 2, HP: 3, XP: 1, Gold: 2, Reserved: make([]int, 6)}
	}
	return t
}

func validSpells() *records.SpellTable {
	t := &records.SpellTable{Spells: make([]records.Spell, format.SpellCount)}
	for i := range t.Spells {
		t.Spells[i].Reserved = make([]int, 3)
	}
	return t
}

func validMaps() *records.MapSet {
	return &records.MapSet{Maps: []records.Map{{
		ID: 1, Width: 2, Height: 2, Palette: 0,
		Rows: [][]int{{0, 1}, {2, 3}},
		NPCs: []records.NPC{{X: 1, Y: 1, Sprite: 4, Dialog: 9}},
	}}}
}

func violation(t *testing.T, err error, field string) format.Violation {
	t.Helper()
	var ve *format.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	v, ok := ve.Find(field)
	require.True(t, ok, "no violation on %q in %v", field, ve.Violations)
	return v
}

func TestValidAssetsPass(t *testing.T) {
	v := New(DefaultReferences())
	items := &records.ItemTable{Items: make([]records.Item, format.ItemCount)}
	spells := validSpells()
	text := &records.TextTable{Strings: []records.TextEntry{{ID: 0, Text: "Hello {name}!"}, {ID: 1, Text: "ok\nok"}}}
	tiles := &records.Tileset{Tiles: []records.Tile{{0, 1, 2, 3}}}

	for _, a := range []records.Asset{validMonsters(), spells, items, validMaps(), text, tiles} {
		assert.NoError(t, v.Validate(a), "%s", a.AssetType())
	}
}

func TestZeroHPRejected(t *testing.T) {
	m := validMonsters()
	m.Monsters[0].HP = 0

	err := New(DefaultReferences()).Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrValidation))
	assert.False(t, errors.Is(err, format.ErrDanglingReference))

	got := violation(t, err, "hp")
	assert.Equal(t, format.PassRange, got.Pass)
	assert.Equal(t, "monster[0]", got.Record)
	assert.Equal(t, int64(0), got.Value)
	assert.Equal(t, ">=1", got.Constraint)
	assert.Contains(t, got.String(), "monster[0].hp = 0")
}

func TestDanglingSpellReference(t *testing.T) {
	m := validMonsters()
	m.Monsters[4].Spell = 15

	err := New(DefaultReferences()).Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrDanglingReference))

	got := violation(t, err, "spell")
	assert.Equal(t, format.PassReference, got.Pass)
	assert.Equal(t, "monster[4]", got.Record)
	assert.Equal(t, int64(15), got.Value)
	assert.Equal(t, "<10", got.Constraint)
}

func TestSpellZeroMeansNone(t *testing.T) {
	m := validMonsters()
	m.Monsters[0].Spell = 0
	assert.NoError(t, New(References{SpellCount: 0}).Validate(m))
}

func TestAllPassesReported(t *testing.T) {
	m := validMonsters()
	m.Monsters = m.Monsters[:38]
	m.Monsters[1].HP = 0
	m.Monsters[2].Spell = 200
	m.Monsters[3].Reserved[5] = 1

	err := New(DefaultReferences()).Validate(m)
	var ve *format.ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Len(t, ve.ByPass(format.PassFormat), 1)
	assert.Len(t, ve.ByPass(format.PassRange), 2)
	assert.Len(t, ve.ByPass(format.PassReference), 1)

	// passes keep their order
	assert.Equal(t, format.PassFormat, ve.Violations[0].Pass)
	assert.Equal(t, format.PassReference, ve.Violations[len(ve.Violations)-1].Pass)
}

func TestRangeRules(t *testing.T) {
	tests := []struct {
		name  string
		asset func() records.Asset
		field string
	}{
		{"spell effect", func() records.Asset {
			s := &records.SpellTable{Spells: make([]records.Spell, format.SpellCount)}
			s.Spells[2].Effect = records.EffectMax + 1
			return s
		}, "effect"},
		{"spell range", func() records.Asset {
			s := &records.SpellTable{Spells: make([]records.Spell, format.SpellCount)}
			s.Spells[0].Range = -1
			return s
		}, "range"},
		{"item attack overflow", func() records.Asset {
			it := &records.ItemTable{Items: make([]records.Item, format.ItemCount)}
			it.Items[0].Attack = 128
			return it
		}, "attack"},
		{"item reserved flags", func() records.Asset {
			it := &records.ItemTable{Items: make([]records.Item, format.ItemCount)}
			it.Items[0].ReservedFlags = 3
			return it
		}, "reserved_flags"},
		{"monster gold", func() records.Asset {
			m := validMonsters()
			m.Monsters[7].Gold = 0x10000
			return m
		}, "gold"},
		{"map width", func() records.Asset {
			m := validMaps()
			m.Maps[0].Width = 0
			return m
		}, "width"},
		{"map npc outside grid", func() records.Asset {
			m := validMaps()
			m.Maps[0].NPCs[0].X = 2
			return m
		}, "npcs[0].x"},
		{"map duplicate id", func() records.Asset {
			m := validMaps()
			m.Maps = append(m.Maps, m.Maps[0])
			return m
		}, "id"},
		{"map short row", func() records.Asset {
			m := validMaps()
			m.Maps[0].Rows[1] = []int{0}
			return m
		}, "rows[1]"},
		{"text reserved", func() records.Asset {
			return &records.TextTable{Reserved: 1}
		}, "reserved"},
		{"tile colour", func() records.Asset {
			return &records.Tileset{Tiles: []records.Tile{{4}}}
		}, "pixel[0]"},
	}

	v := New(DefaultReferences())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := violation(t, v.Validate(tt.asset()), tt.field)
			assert.Equal(t, format.PassRange, got.Pass)
		})
	}
}

func TestUnencodableText(t *testing.T) {
	text := &records.TextTable{Strings: []records.TextEntry{{ID: 3, Text: "ab€"}}}
	err := New(DefaultReferences()).Validate(text)

	got := violation(t, err, "text@2")
	assert.Equal(t, "string[0]", got.Record)
	assert.Equal(t, int64('€'), got.Value)
}

func TestUnfoldedText(t *testing.T) {
	text := &records.TextTable{Strings: []records.TextEntry{{ID: 0, Text: "Ｈｅｌｌｏ ﬁne"}}}
	v := New(DefaultReferences())

	got := violation(t, v.Validate(text), "text")
	assert.Equal(t, format.PassRange, got.Pass)
	assert.Equal(t, "NFKC", got.Constraint)

	text.Fold()
	assert.NoError(t, v.Validate(text))
}

func TestReservedLength(t *testing.T) {
	v := New(DefaultReferences())

	m := validMonsters()
	m.Monsters[2].Reserved = nil
	got := violation(t, v.Validate(m), "reserved")
	assert.Equal(t, "monster[2]", got.Record)
	assert.Equal(t, "len==6", got.Constraint)

	s := validSpells()
	s.Spells[9].Reserved = []int{0}
	got = violation(t, v.Validate(s), "reserved")
	assert.Equal(t, "spell[9]", got.Record)
	assert.Equal(t, "len==3", got.Constraint)

	assert.NoError(t, v.Validate(validSpells()))
}

func TestFormatRules(t *testing.T) {
	v := New(DefaultReferences())

	got := violation(t, v.Validate(&records.SpellTable{Spells: make([]records.Spell, 3)}), "spells.count")
	assert.Equal(t, format.PassFormat, got.Pass)
	assert.Equal(t, int64(3), got.Value)

	got = violation(t, v.Validate(&records.Tileset{}), "tiles.count")
	assert.Equal(t, format.PassFormat, got.Pass)

	got = violation(t, v.Validate(nil), "asset")
	assert.Equal(t, format.PassFormat, got.Pass)
}

func TestMapTileReferences(t *testing.T) {
	m := validMaps()

	assert.NoError(t, New(References{SpellCount: format.SpellCount}).Validate(m), "tile check skipped without a tile count")
	assert.NoError(t, New(References{SpellCount: format.SpellCount, TileCount: 4}).Validate(m))

	err := New(References{SpellCount: format.SpellCount, TileCount: 3}).Validate(m)
	assert.True(t, errors.Is(err, format.ErrDanglingReference))
	got := violation(t, err, "rows[1][1]")
	assert.Equal(t, int64(3), got.Value)
	assert.Equal(t, "<3", got.Constraint)
}

func TestValidateContainer(t *testing.T) {
	codec, err := records.Get(format.AssetMonster)
	require.NoError(t, err)
	data, err := codec.Encode(validMonsters())
	require.NoError(t, err)

	raw := format.EncodeHeader(format.AssetMonster, data, 0x1000, time.Unix(1700000000, 0))
	raw = append(raw, data...)

	v := New(DefaultReferences())
	c, asset, err := v.ValidateContainer(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, format.AssetMonster, c.Header.AssetType)
	assert.Len(t, asset.(*records.MonsterTable).Monsters, format.MonsterCount)

	tampered := append([]byte(nil), raw...)
	tampered[format.HeaderSize] ^= 0x01
	_, _, err = v.ValidateContainer(tampered, nil)
	var ie *format.IntegrityError
	assert.ErrorAs(t, err, &ie)

	_, _, err = v.ValidateContainer(raw[:10], nil)
	assert.ErrorIs(t, err, format.ErrTruncatedData)

	spellCodec, _ := records.Get(format.AssetSpell)
	_, _, err = v.ValidateContainer(raw, spellCodec)
	assert.Error(t, err)
}

func TestViolationsHelper(t *testing.T) {
	m := validMonsters()
	m.Monsters[0].HP = 0
	assert.Len(t, Violations(New(DefaultReferences()).Validate(m)), 1)
	assert.Nil(t, Violations(errors.New("other")))
}
