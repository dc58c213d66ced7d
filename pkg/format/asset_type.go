package format

import (
	"fmt"
	"strings"
)

// AssetType selects the record codec for a container's data section
type AssetType uint8

const (
	AssetMonster  AssetType = 1
	AssetSpell    AssetType = 2
	AssetItem     AssetType = 3
	AssetMap      AssetType = 4
	AssetText     AssetType = 5
	AssetGraphics AssetType = 6
)

// AllAssetTypes lists every supported type in tag order
var AllAssetTypes = []AssetType{
	AssetMonster,
	AssetSpell,
	AssetItem,
	AssetMap,
	AssetText,
	AssetGraphics,
}

func (t AssetType) String() string {
	switch t {
	case AssetMonster:
		return "monster"
	case AssetSpell:
		return "spell"
	case AssetItem:
		return "item"
	case AssetMap:
		return "map"
	case AssetText:
		return "text"
	case AssetGraphics:
		return "graphics"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the six known tags
func (t AssetType) Valid() bool {
	return t >= AssetMonster && t <= AssetGraphics
}

// Tabular reports whether the type has a fixed record count and size
func (t AssetType) Tabular() bool {
	return t == AssetMonster || t == AssetSpell || t == AssetItem
}

// FixedSize returns the data section size for tabular types
func (t AssetType) FixedSize() (int, bool) {
	switch t {
	case AssetMonster:
		return MonsterRecordSize * MonsterCount, true
	case AssetSpell:
		return SpellRecordSize * SpellCount, true
	case AssetItem:
		return ItemRecordSize * ItemCount, true
	default:
		return 0, false
	}
}

// ParseAssetType parses a type name such as "monster"
func ParseAssetType(name string) (AssetType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "monster", "monsters":
		return AssetMonster, nil
	case "spell", "spells":
		return AssetSpell, nil
	case "item", "items":
		return AssetItem, nil
	case "map", "maps":
		return AssetMap, nil
	case "text":
		return AssetText, nil
	case "graphics", "tiles":
		return AssetGraphics, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}

// MarshalText renders the type by name in YAML and JSON documents
func (t AssetType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name
func (t *AssetType) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
