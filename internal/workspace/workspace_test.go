package workspace

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/pipeline"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tileset(n int) *records.Tileset {
	ts := &records.Tileset{Tiles: make([]records.Tile, n)}
	for i := range ts.Tiles {
		for p := range ts.Tiles[i] {
			ts.Tiles[i][p] = (i*7 + p) % 4
		}
	}
	return ts
}

func TestSaveLoadDocuments(t *testing.T) {
	ws := New(t.TempDir(), Options{})

	assets := []records.Asset{
		&records.SpellTable{Spells: []records.Spell{{MPCost: 4, Power: 12, Effect: 1, Reserved: []int{0, 0, 0}}}},
		&records.ItemTable{Items: []records.Item{{Buy: 100, Attack: -3, Cursed: true}}},
		&records.MapSet{Maps: []records.Map{{ID: 2, Width: 2, Height: 1, Rows: [][]int{{1, 2}}, NPCs: []records.NPC{{X: 1}}}}},
		&records.TextTable{Strings: []records.TextEntry{{ID: 4, Text: "Hi {name}\nbye{wait}"}}},
	}

	for _, a := range assets {
		t.Run(a.AssetType().String(), func(t *testing.T) {
			ea := &pipeline.EditableAsset{Type: a.AssetType(), SourceOffset: 0x1234, Checksum: 0xCAFEBABE, Asset: a}
			paths, err := ws.Save(ea)
			require.NoError(t, err)
			assert.Equal(t, []string{ws.DocumentPath(a.AssetType())}, paths)

			got, err := ws.Load(a.AssetType())
			require.NoError(t, err)
			if diff := cmp.Diff(ea, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}

	assert.Equal(t, []format.AssetType{format.AssetSpell, format.AssetItem, format.AssetMap, format.AssetText}, ws.Types())
}

func TestLoadFoldsText(t *testing.T) {
	ws := New(t.TempDir(), Options{})
	text := &records.TextTable{Strings: []records.TextEntry{{ID: 0, Text: "Ｈｅｌｌｏ ﬁne"}}}
	_, err := ws.Save(&pipeline.EditableAsset{Asset: text})
	require.NoError(t, err)

	got, err := ws.Load(format.AssetText)
	require.NoError(t, err)
	assert.Equal(t, "Hello fine", got.Asset.(*records.TextTable).Strings[0].Text)
}

func TestDocumentIsReadable(t *testing.T) {
	ws := New(t.TempDir(), Options{})
	monsters := &records.MonsterTable{Monsters: []records.Monster{{HP: 9, Reserved: make([]int, 6)}}}
	_, err := ws.Save(&pipeline.EditableAsset{Asset: monsters, Checksum: 1})
	require.NoError(t, err)

	data, err := os.ReadFile(ws.DocumentPath(format.AssetMonster))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type": "monster"`)
	assert.Contains(t, string(data), `"checksum": "crc32:00000001"`)
	assert.Contains(t, string(data), `"hp": 9`)
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir, Options{})

	_, err := ws.Load(format.AssetSpell)
	assert.ErrorIs(t, err, ErrNoDocument)

	write := func(body string) {
		require.NoError(t, os.WriteFile(ws.DocumentPath(format.AssetSpell), []byte(body), 0o644))
	}

	write(`{"type": "item", "asset": {}}`)
	_, err = ws.Load(format.AssetSpell)
	assert.ErrorContains(t, err, "item document")

	write(`{"type": "spell", "asset": {"spells": [{"mp_cost": 1, "colour": 2}]}}`)
	_, err = ws.Load(format.AssetSpell)
	assert.ErrorContains(t, err, "colour")

	write(`{"type": "spell", "checksum": "md5:00", "asset": {"spells": []}}`)
	_, err = ws.Load(format.AssetSpell)
	assert.Error(t, err)
}

func TestTileSheets(t *testing.T) {
	for _, kind := range []string{"png", "bmp"} {
		t.Run(kind, func(t *testing.T) {
			ws := New(t.TempDir(), Options{SheetFormat: kind, SheetColumns: 4, PreviewScale: 3})
			ts := tileset(10)

			paths, err := ws.Save(&pipeline.EditableAsset{Asset: ts, SourceOffset: 0x8000})
			require.NoError(t, err)
			assert.Len(t, paths, 3)
			assert.FileExists(t, filepath.Join(ws.Dir, "graphics."+kind))

			got, err := ws.Load(format.AssetGraphics)
			require.NoError(t, err)
			assert.Equal(t, ts, got.Asset)
			assert.Equal(t, uint32(0x8000), got.SourceOffset)

			f, err := os.Open(ws.PreviewPath())
			require.NoError(t, err)
			defer f.Close()
			cfg, err := png.DecodeConfig(f)
			require.NoError(t, err)
			assert.Equal(t, 4*records.TileWidth*3, cfg.Width)
			assert.Equal(t, 3*records.TileHeight*3, cfg.Height)
		})
	}
}

func TestSheetMustStayInWorkspace(t *testing.T) {
	ws := New(t.TempDir(), Options{})
	require.NoError(t, os.WriteFile(ws.DocumentPath(format.AssetGraphics),
		[]byte(`{"type": "graphics", "sheet": "../x.png", "tile_count": 1}`), 0o644))

	_, err := ws.Load(format.AssetGraphics)
	assert.ErrorContains(t, err, "inside the workspace")
}

func TestMarkers(t *testing.T) {
	ws := New(t.TempDir(), Options{})
	assert.False(t, ws.IsValid("default", 42))

	_, err := ws.Save(&pipeline.EditableAsset{Asset: &records.SpellTable{}})
	require.NoError(t, err)
	require.NoError(t, ws.MarkComplete("default", 42, map[format.AssetType]uint32{format.AssetSpell: 7}))

	assert.True(t, ws.IsValid("default", 42))
	assert.False(t, ws.IsValid("default", 43), "different ROM")
	assert.False(t, ws.IsValid("other", 42), "different profile")

	m, err := ws.ReadMarker()
	require.NoError(t, err)
	assert.Equal(t, "crc32:00000007", m.Assets[format.AssetSpell])

	require.NoError(t, os.Remove(ws.DocumentPath(format.AssetSpell)))
	assert.False(t, ws.IsValid("default", 42), "missing document")

	require.NoError(t, ws.MarkIncomplete("interrupted"))
	_, err = ws.ReadMarker()
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(ws.Dir, incompleteMarker))
}
