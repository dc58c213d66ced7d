package format

// Core format constants that never change

var (
	// Magic is the literal at offset 0 of every container
	Magic = []byte{'R', 'F', 'M', 'T'}
)

const (
	// Format version - the major must match exactly, any minor is accepted
	VersionMajor = 1
	VersionMinor = 0

	// Fixed record layouts
	HeaderSize   = 32
	ReservedSize = 8

	// Tabular record layouts
	MonsterRecordSize = 16
	MonsterCount      = 39
	SpellRecordSize   = 8
	SpellCount        = 10
	ItemRecordSize    = 8
	ItemCount         = 32
	TileSize          = 16 // Two 8-byte bitplanes per 8x8 tile

	// Variable section layouts
	SectionPrefixSize = 4  // count u16 + reserved u16
	MapEntrySize      = 16 // Map directory entry
	TextEntrySize     = 8  // String table entry
	NPCSize           = 4
)

// Header field offsets
const (
	offMagic        = 0x00
	offMajor        = 0x04
	offMinor        = 0x05
	offAssetType    = 0x06
	offFlags        = 0x07
	offDataSize     = 0x08
	offSourceOffset = 0x0C
	offChecksum     = 0x10
	offCreatedAt    = 0x14
	offReserved     = 0x18
)
