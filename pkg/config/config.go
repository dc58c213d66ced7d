// Package config loads the ROM profile and tool settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/operations"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/dwforge/romfmt/pkg/utils/permissions"
	"gopkg.in/yaml.v3"

	// registers gzip and bzip2 for backup chains
	_ "github.com/dwforge/romfmt/pkg/operations/compress"
)

// DefaultFileName is looked up in the working directory when no path is given
const DefaultFileName = "romfmt.yaml"

// Config represents the romfmt configuration
type Config struct {
	ROM       ROMProfile `yaml:"rom"`
	Backup    Backup     `yaml:"backup"`
	Workspace Workspace  `yaml:"workspace"`
	Logging   Logging    `yaml:"logging"`
}

// ROMProfile describes one ROM image layout
type ROMProfile struct {
	Name string `yaml:"name"`
	// Size is the expected image length; 0 accepts any length
	Size int `yaml:"size"`
	// Assets maps asset type names to their ROM ranges
	Assets map[string]format.Location `yaml:"assets"`
	// Dictionary overrides the text word table; empty uses the built-in one
	Dictionary []string `yaml:"dictionary,omitempty"`
}

// Backup controls the copy taken before every reinsert
type Backup struct {
	Dir        string `yaml:"dir"` // empty means next to the ROM
	Operations string `yaml:"operations"`
	FileMode   string `yaml:"file_mode"`
}

// Workspace controls the editable files written by unpack
type Workspace struct {
	FileMode     string `yaml:"file_mode"`
	SheetFormat  string `yaml:"sheet_format"`  // png or bmp
	SheetColumns int    `yaml:"sheet_columns"` // tiles per row
	PreviewScale int    `yaml:"preview_scale"` // 0 disables the preview
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		ROM: ROMProfile{
			Name: "default",
			Size: 0x10000,
			Assets: map[string]format.Location{
				"monster":  {Offset: 0x1000, Size: format.MonsterCount * format.MonsterRecordSize},
				"spell":    {Offset: 0x1300, Size: format.SpellCount * format.SpellRecordSize},
				"item":     {Offset: 0x1400, Size: format.ItemCount * format.ItemRecordSize},
				"map":      {Offset: 0x2000, Size: 0x2000},
				"text":     {Offset: 0x4000, Size: 0x3000},
				"graphics": {Offset: 0x8000, Size: 0x2000},
			},
		},
		Backup: Backup{
			Operations: "bzip2",
			FileMode:   permissions.FormatOctal(permissions.BackupFilePerms),
		},
		Workspace: Workspace{
			FileMode:     permissions.FormatOctal(permissions.DefaultFilePerms),
			SheetFormat:  "png",
			SheetColumns: 16,
		},
	}
}

// LoadConfig reads path over the defaults. Keys absent from the file keep
// their default values; an assets table in the file replaces the default one.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.ROM.Assets = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filepath.Base(path), err)
	}
	if cfg.ROM.Assets == nil {
		cfg.ROM.Assets = DefaultConfig().ROM.Assets
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Load resolves the config to use: an explicit path must exist, otherwise
// DefaultFileName is read if present, otherwise defaults apply
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return LoadConfig(DefaultFileName)
	}
	return DefaultConfig(), nil
}

// Save writes the configuration as YAML
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, permissions.DefaultFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the offset table, modes and operation chain
func (c *Config) Validate() error {
	var problems []string

	if _, err := c.OffsetTable(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.BackupChain(); err != nil {
		problems = append(problems, "backup.operations: "+err.Error())
	}
	if _, err := c.BackupMode(); err != nil {
		problems = append(problems, "backup.file_mode: "+err.Error())
	}
	if _, err := c.WorkspaceMode(); err != nil {
		problems = append(problems, "workspace.file_mode: "+err.Error())
	}
	switch strings.ToLower(c.Workspace.SheetFormat) {
	case "png", "bmp":
	default:
		problems = append(problems, fmt.Sprintf("workspace.sheet_format: %q is not png or bmp", c.Workspace.SheetFormat))
	}
	if c.Workspace.SheetColumns < 0 || c.Workspace.PreviewScale < 0 {
		problems = append(problems, "workspace: sheet_columns and preview_scale must not be negative")
	}
	if len(c.ROM.Dictionary) > 0 {
		if _, err := records.NewTextCodecChecked(c.ROM.Dictionary); err != nil {
			problems = append(problems, "rom.dictionary: "+err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// OffsetTable converts the assets map to typed locations and checks each
// range: known type, legal size for the type, inside the ROM when its size
// is known, and no overlap with another range
func (c *Config) OffsetTable() (map[format.AssetType]format.Location, error) {
	table := make(map[format.AssetType]format.Location, len(c.ROM.Assets))

	names := make([]string, 0, len(c.ROM.Assets))
	for name := range c.ROM.Assets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		loc := c.ROM.Assets[name]
		t, err := format.ParseAssetType(name)
		if err != nil {
			return nil, fmt.Errorf("rom.assets.%s: %w", name, err)
		}
		if _, dup := table[t]; dup {
			return nil, fmt.Errorf("rom.assets.%s: %s listed twice", name, t)
		}

		if size, ok := t.FixedSize(); ok && int(loc.Size) != size {
			return nil, fmt.Errorf("rom.assets.%s: size %d, %s sections are %d bytes", name, loc.Size, t, size)
		}
		if t == format.AssetGraphics && (loc.Size == 0 || loc.Size%format.TileSize != 0) {
			return nil, fmt.Errorf("rom.assets.%s: size %d is not a non-zero multiple of %d", name, loc.Size, format.TileSize)
		}
		if loc.Size == 0 {
			return nil, fmt.Errorf("rom.assets.%s: size is zero", name)
		}
		if c.ROM.Size > 0 {
			if err := loc.Within(c.ROM.Size); err != nil {
				return nil, fmt.Errorf("rom.assets.%s: %w", name, err)
			}
		}

		for other, ol := range table {
			if loc.Overlaps(ol) {
				return nil, fmt.Errorf("rom.assets.%s: %s overlaps %s at %s", name, loc, other, ol)
			}
		}
		table[t] = loc
	}
	return table, nil
}

// TextCodec builds the text codec for the profile's dictionary
func (c *Config) TextCodec() (*records.TextCodec, error) {
	if len(c.ROM.Dictionary) == 0 {
		return records.NewTextCodec(nil), nil
	}
	return records.NewTextCodecChecked(c.ROM.Dictionary)
}

// BackupChain parses the backup operation chain
func (c *Config) BackupChain() ([]uint8, error) {
	return operations.ParseChain(c.Backup.Operations)
}

func (c *Config) BackupMode() (os.FileMode, error) {
	return permissions.ParseOctalString(c.Backup.FileMode, permissions.BackupFilePerms)
}

func (c *Config) WorkspaceMode() (os.FileMode, error) {
	return permissions.ParseOctalString(c.Workspace.FileMode, permissions.DefaultFilePerms)
}
