package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dwforge/romfmt/pkg/config"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func defaultTable(t *testing.T) map[format.AssetType]format.Location {
	t.Helper()
	table, err := config.DefaultConfig().OffsetTable()
	require.NoError(t, err)
	return table
}

func fixtureAssets() []records.Asset {
	monsters := &records.MonsterTable{Monsters: make([]records.Monster, format.MonsterCount)}
	for i := range monsters.Monsters {
		monsters.Monsters[i] = records.Monster{
			Attack: 5 + i, Defense: 2 + i, HP: 3 + i, Spell: i % format.SpellCount,
			Agility: i, MDefense: i / 2, XP: 1 + i*3, Gold: 2 + i*5, Reserved: make([]int, 6),
		}
	}

	spells := &records.SpellTable{Spells: make([]records.Spell, format.SpellCount)}
	for i := range spells.Spells {
		spells.Spells[i] = records.Spell{MPCost: i + 2, Power: 10 * i, Effect: i % 5, Range: i % 4, Animation: i, Reserved: make([]int, 3)}
	}

	items := &records.ItemTable{Items: make([]records.Item, format.ItemCount)}
	for i := range items.Items {
		items.Items[i] = records.Item{Buy: 10 * i, Sell: 5 * i, Attack: i - 16, Defense: 16 - i, Type: i % 5, Equippable: i%2 == 0, Quest: i == 31}
	}

	maps := &records.MapSet{Maps: []records.Map{
		{ID: 0, Width: 3, Height: 2, Palette: 1, Rows: [][]int{{0, 1, 2}, {3, 4, 5}}, NPCs: []records.NPC{{X: 1, Y: 0, Sprite: 7, Dialog: 2}}},
		{ID: 9, Width: 1, Height: 1, Rows: [][]int{{6}}},
	}}

	text := &records.TextTable{Strings: []records.TextEntry{
		{ID: 0, Text: "Welcome to {name}'s town!"},
		{ID: 1, Text: "Thou hast found\nthe key.{wait}"},
	}}

	tiles := &records.Tileset{Tiles: make([]records.Tile, 0x2000/format.TileSize)}
	for i := range tiles.Tiles {
		for p := range tiles.Tiles[i] {
			tiles.Tiles[i][p] = (i + p) % 4
		}
	}

	return []records.Asset{monsters, spells, items, maps, text, tiles}
}

// fixtureROM lays the fixture assets out per the default offset table in a
// 64 KiB image filled with 0xEE elsewhere
func fixtureROM(t *testing.T) *ROM {
	t.Helper()
	image := make([]byte, 0x10000)
	for i := range image {
		image[i] = 0xEE
	}
	rom := NewROM(image)

	table := defaultTable(t)
	for _, a := range fixtureAssets() {
		codec, err := records.Get(a.AssetType())
		require.NoError(t, err)
		data, err := codec.Encode(a)
		require.NoError(t, err)
		require.NoError(t, rom.WriteRange(table[a.AssetType()].Offset, data))
	}
	return rom
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	return New(defaultTable(t), append([]Option{WithClock(fixedClock(epoch))}, opts...)...)
}

func stageOf(t *testing.T, err error) Stage {
	t.Helper()
	var se *StageError
	require.True(t, errors.As(err, &se), "expected StageError, got %v", err)
	return se.Stage
}

func TestExtractIsIdempotent(t *testing.T) {
	rom := fixtureROM(t)

	for _, typ := range format.AllAssetTypes {
		t.Run(typ.String(), func(t *testing.T) {
			first, err := newPipeline(t).Extract(rom, typ)
			require.NoError(t, err)
			second, err := newPipeline(t, WithClock(fixedClock(epoch.Add(time.Hour)))).Extract(rom, typ)
			require.NoError(t, err)

			assert.Equal(t, first.Data, second.Data)
			assert.Equal(t, first.Header.Checksum, second.Header.Checksum)
			assert.NotEqual(t, first.Header.CreatedAt, second.Header.CreatedAt)

			second.Header.CreatedAt = first.Header.CreatedAt
			assert.Equal(t, first.Bytes(), second.Bytes())
		})
	}
}

func TestExtractTrimsVariableSections(t *testing.T) {
	rom := fixtureROM(t)
	p := newPipeline(t)

	c, err := p.Extract(rom, format.AssetMap)
	require.NoError(t, err)
	loc, _ := p.Location(format.AssetMap)
	assert.Less(t, len(c.Data), int(loc.Size))
	assert.NoError(t, format.CheckSize(format.AssetMap, c.Data))
	assert.Equal(t, loc.Offset, c.Header.SourceOffset)
}

func TestMonsterRoundTripLeavesROMUnchanged(t *testing.T) {
	rom := fixtureROM(t)
	before := rom.Bytes()
	p := newPipeline(t)

	c, err := p.Extract(rom, format.AssetMonster)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 2, 3, 0, 0, 0, 1, 0, 2, 0}, c.Data[:10])

	ea, err := p.Transform(c)
	require.NoError(t, err)
	assert.Equal(t, c.Header.Checksum, ea.Checksum)

	repacked, err := p.Package(ea)
	require.NoError(t, err)
	assert.Equal(t, c.Data, repacked.Data)

	n, err := p.Reinsert(repacked, rom)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, rom.Bytes())
}

func TestEditAndReinsert(t *testing.T) {
	rom := fixtureROM(t)
	before := rom.Bytes()
	p := newPipeline(t)

	c, err := p.Extract(rom, format.AssetMonster)
	require.NoError(t, err)
	ea, err := p.Transform(c)
	require.NoError(t, err)

	ea.Asset.(*records.MonsterTable).Monsters[2].HP = 200
	packed, err := p.Package(ea)
	require.NoError(t, err)

	n, err := p.Reinsert(packed, rom)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after := rom.Bytes()
	assert.Equal(t, byte(200), after[0x1000+2*format.MonsterRecordSize+2])
	after[0x1000+2*format.MonsterRecordSize+2] = before[0x1000+2*format.MonsterRecordSize+2]
	assert.Equal(t, before, after, "no byte outside the edited field changed")
}

func TestEveryTypeRoundTrips(t *testing.T) {
	rom := fixtureROM(t)
	p := newPipeline(t)
	want := fixtureAssets()

	for i, typ := range format.AllAssetTypes {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := p.Extract(rom, typ)
			require.NoError(t, err)
			ea, err := p.Transform(c)
			require.NoError(t, err)

			if diff := cmp.Diff(want[i], ea.Asset, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("decoded asset mismatch (-want +got):\n%s", diff)
			}

			packed, err := p.Package(ea)
			require.NoError(t, err)
			assert.Equal(t, c.Data, packed.Data)
		})
	}
}

func TestTamperDetected(t *testing.T) {
	rom := fixtureROM(t)
	p := newPipeline(t)

	c, err := p.Extract(rom, format.AssetSpell)
	require.NoError(t, err)
	c.Data[5] ^= 0x10

	_, err = p.Transform(c)
	require.Error(t, err)
	assert.Equal(t, StageTransform, stageOf(t, err))
	var ie *format.IntegrityError
	assert.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, format.ErrChecksumMismatch)

	before := rom.Bytes()
	_, err = p.Reinsert(c, rom)
	assert.Equal(t, StageReinsert, stageOf(t, err))
	assert.ErrorAs(t, err, &ie)
	assert.Equal(t, before, rom.Bytes())
}

func TestTransformRejectsFormat(t *testing.T) {
	p := newPipeline(t)

	_, err := p.TransformBytes([]byte("XXXX"))
	assert.ErrorIs(t, err, format.ErrTruncatedData)

	raw := format.NewContainer(format.AssetItem, make([]byte, 256), 0x1400, epoch).Bytes()
	raw[0] = 'X'
	_, err = p.TransformBytes(raw)
	assert.ErrorIs(t, err, format.ErrBadMagic)
	assert.Equal(t, StageTransform, stageOf(t, err))
}

func TestPackageRejectsInvalid(t *testing.T) {
	p := newPipeline(t)
	monsters := fixtureAssets()[0].(*records.MonsterTable)
	monsters.Monsters[0].HP = 0
	monsters.Monsters[1].Spell = 15

	_, err := p.Package(&EditableAsset{Asset: monsters})
	require.Error(t, err)
	assert.Equal(t, StagePackage, stageOf(t, err))
	assert.ErrorIs(t, err, format.ErrValidation)
	assert.ErrorIs(t, err, format.ErrDanglingReference)

	var ve *format.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 2)
}

func TestPackageRejectsOversizedSection(t *testing.T) {
	table := defaultTable(t)
	table[format.AssetText] = format.Location{Offset: 0x4000, Size: 16}
	p := New(table)

	text := &records.TextTable{Strings: []records.TextEntry{{ID: 0, Text: "far too long for sixteen bytes"}}}
	_, err := p.Package(&EditableAsset{Asset: text})
	require.Error(t, err)

	var ve *format.ValidationError
	require.ErrorAs(t, err, &ve)
	v, ok := ve.Find("data_size")
	require.True(t, ok)
	assert.Equal(t, format.PassFormat, v.Pass)
	assert.Equal(t, "<=16", v.Constraint)
}

func TestPackageRejectsMislabelledAsset(t *testing.T) {
	_, err := newPipeline(t).Package(&EditableAsset{Type: format.AssetItem, Asset: &records.Tileset{Tiles: make([]records.Tile, 1)}})
	assert.Error(t, err)
}

func TestReinsertBounds(t *testing.T) {
	small := NewROM(make([]byte, 0x1100))
	before := small.Bytes()
	p := newPipeline(t)

	monsters := fixtureAssets()[0]
	c, err := p.Package(&EditableAsset{Asset: monsters})
	require.NoError(t, err)

	_, err = p.Reinsert(c, small)
	require.Error(t, err)
	var be *format.BoundsError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, uint64(0x1000), be.Offset)
	assert.Equal(t, uint64(624), be.Size)
	assert.Equal(t, uint64(0x1100), be.Length)
	assert.ErrorIs(t, err, format.ErrOutOfBounds)
	assert.Equal(t, before, small.Bytes())
}

func TestReinsertRejectsForeignOffset(t *testing.T) {
	rom := fixtureROM(t)
	p := newPipeline(t)
	c := format.NewContainer(format.AssetSpell, make([]byte, 80), 0x1000, epoch)

	_, err := p.Reinsert(c, rom)
	assert.ErrorIs(t, err, format.ErrOffsetOutOfBounds)
}

func TestExtractErrors(t *testing.T) {
	p := New(map[format.AssetType]format.Location{
		format.AssetItem: {Offset: 0xFFF0, Size: 256},
	})
	rom := fixtureROM(t)

	_, err := p.Extract(rom, format.AssetItem)
	assert.ErrorIs(t, err, format.ErrOutOfBounds)
	assert.Equal(t, StageExtract, stageOf(t, err))

	_, err = p.Extract(rom, format.AssetMonster)
	assert.ErrorIs(t, err, ErrNoLocation)

	sized := newPipeline(t, WithROMSize(0x20000))
	_, err = sized.Extract(rom, format.AssetMonster)
	assert.Error(t, err)
}

func TestExtractAll(t *testing.T) {
	rom := fixtureROM(t)
	p := newPipeline(t)

	all, err := p.ExtractAll(context.Background(), rom, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(format.AllAssetTypes))
	for typ, x := range all {
		assert.Equal(t, typ, x.Asset.Type)
		assert.Equal(t, x.Container.Header.Checksum, x.Asset.Checksum)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ExtractAll(ctx, rom, []format.AssetType{format.AssetMonster})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractAllReportsFailure(t *testing.T) {
	rom := fixtureROM(t)
	require.NoError(t, rom.WriteRange(0x2000, []byte{0xFF, 0xFF}))

	_, err := newPipeline(t).ExtractAll(context.Background(), rom, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, format.ErrTruncatedData)
}

func TestPackageAll(t *testing.T) {
	p := newPipeline(t)
	var assets []*EditableAsset
	for _, a := range fixtureAssets() {
		assets = append(assets, &EditableAsset{Asset: a})
	}

	containers, err := p.PackageAll(assets)
	require.NoError(t, err)
	assert.Len(t, containers, len(assets))

	assets[1].Asset.(*records.SpellTable).Spells[0].Effect = 9
	_, err = p.PackageAll(assets)
	assert.ErrorIs(t, err, format.ErrValidation)
}

func TestEditedSkipsUnchanged(t *testing.T) {
	rom := fixtureROM(t)
	p := newPipeline(t)

	var assets []*EditableAsset
	for _, a := range fixtureAssets() {
		assets = append(assets, &EditableAsset{Asset: a})
	}
	for _, ea := range assets {
		assert.True(t, p.Unchanged(rom, ea), "%s", ea.Asset.AssetType())
	}

	edited, err := p.Edited(rom, assets)
	require.NoError(t, err)
	assert.Empty(t, edited)

	assets[0].Asset.(*records.MonsterTable).Monsters[2].Gold = 999
	assert.False(t, p.Unchanged(rom, assets[0]))
	edited, err = p.Edited(rom, assets)
	require.NoError(t, err)
	require.Len(t, edited, 1)
	assert.Equal(t, format.AssetMonster, edited[0].Header.AssetType)

	assets[1].Asset.(*records.SpellTable).Spells[0].Effect = 9
	_, err = p.Edited(rom, assets)
	assert.ErrorIs(t, err, format.ErrValidation)
}

func TestROM(t *testing.T) {
	rom := NewROM([]byte{1, 2, 3, 4})
	got, err := rom.ReadRange(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, got)

	got[0] = 9
	again, _ := rom.ReadRange(1, 2)
	assert.Equal(t, []byte{2, 3}, again, "reads return copies")

	assert.NoError(t, rom.WriteRange(3, []byte{7}))
	assert.ErrorIs(t, rom.WriteRange(3, []byte{7, 8}), format.ErrOutOfBounds)
	_, err = rom.ReadRange(5, 0)
	assert.ErrorIs(t, err, format.ErrOutOfBounds)
	assert.Equal(t, []byte{1, 2, 3, 7}, rom.Bytes())
}
