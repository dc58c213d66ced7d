package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/operations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "romfmt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	table, err := cfg.OffsetTable()
	require.NoError(t, err)
	assert.Len(t, table, len(format.AllAssetTypes))
	assert.Equal(t, format.Location{Offset: 0x1000, Size: 624}, table[format.AssetMonster])

	chain, err := cfg.BackupChain()
	require.NoError(t, err)
	assert.Equal(t, []uint8{operations.OP_BZIP2}, chain)

	mode, err := cfg.BackupMode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), mode)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
rom:
  name: test-cart
  size: 0x8000
  assets:
    monsters: {offset: 0x0100, size: 624}
    text: {offset: 0x1000, size: 0x800}
  dictionary: [the, you]
backup:
  operations: gzip
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-cart", cfg.ROM.Name)
	assert.Equal(t, 0x8000, cfg.ROM.Size)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "png", cfg.Workspace.SheetFormat, "unset keys keep defaults")

	table, err := cfg.OffsetTable()
	require.NoError(t, err)
	assert.Len(t, table, 2, "file table replaces the default one")
	assert.Equal(t, uint32(0x100), table[format.AssetMonster].Offset)

	codec, err := cfg.TextCodec()
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "you"}, codec.Dictionary())
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown asset", "rom:\n  assets:\n    sprites: {offset: 0, size: 16}\n", "sprites"},
		{"wrong fixed size", "rom:\n  assets:\n    spell: {offset: 0, size: 81}\n", "spell"},
		{"graphics size", "rom:\n  assets:\n    tiles: {offset: 0, size: 20}\n", "multiple of 16"},
		{"past rom end", "rom:\n  size: 0x100\n  assets:\n    item: {offset: 0x80, size: 256}\n", "exceeds"},
		{"overlap", "rom:\n  assets:\n    item: {offset: 0, size: 256}\n    spell: {offset: 0x80, size: 80}\n", "overlaps"},
		{"bad chain", "backup:\n  operations: zstd\n", "backup.operations"},
		{"bad mode", "backup:\n  file_mode: rwx\n", "backup.file_mode"},
		{"bad sheet", "workspace:\n  sheet_format: gif\n", "sheet_format"},
		{"bad dictionary", "rom:\n  dictionary: [\"\"]\n", "rom.dictionary"},
		{"bad yaml", "rom: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.ROM.Name = "saved"
	require.NoError(t, Save(cfg, path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
