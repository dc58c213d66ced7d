package format

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Header is the fixed 32-byte container header
type Header struct {
	Magic        [4]byte
	VersionMajor uint8
	VersionMinor uint8
	AssetType    AssetType
	Flags        uint8
	DataSize     uint32 // Exact length of the data section
	SourceOffset uint32 // ROM offset the data was read from
	Checksum     uint32 // CRC-32 of the data section
	CreatedAt    uint32 // Unix seconds, advisory only
	Reserved     [ReservedSize]byte
}

// NewHeader fills a header for data read from sourceOffset
func NewHeader(assetType AssetType, data []byte, sourceOffset uint32, now time.Time) *Header {
	h := &Header{
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		AssetType:    assetType,
		DataSize:     uint32(len(data)),
		SourceOffset: sourceOffset,
		Checksum:     Compute(data),
		CreatedAt:    uint32(now.Unix()),
	}
	copy(h.Magic[:], Magic)
	return h
}

// EncodeHeader computes data_size and checksum from data and serialises the
// header. Inputs are validated upstream, so there is no error path.
func EncodeHeader(assetType AssetType, data []byte, sourceOffset uint32, now time.Time) []byte {
	return NewHeader(assetType, data, sourceOffset, now).Pack()
}

// Pack serializes the header to exactly HeaderSize bytes
func (h *Header) Pack() []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[offMagic:offMagic+4], h.Magic[:])
	buf[offMajor] = h.VersionMajor
	buf[offMinor] = h.VersionMinor
	buf[offAssetType] = uint8(h.AssetType)
	buf[offFlags] = h.Flags
	binary.LittleEndian.PutUint32(buf[offDataSize:], h.DataSize)
	binary.LittleEndian.PutUint32(buf[offSourceOffset:], h.SourceOffset)
	binary.LittleEndian.PutUint32(buf[offChecksum:], h.Checksum)
	binary.LittleEndian.PutUint32(buf[offCreatedAt:], h.CreatedAt)
	copy(buf[offReserved:HeaderSize], h.Reserved[:])

	return buf
}

// Unpack deserializes the header without checking any field
func (h *Header) Unpack(data []byte) error {
	if len(data) < HeaderSize {
		return Formatf(ErrTruncatedData, "header needs %d bytes, got %d", HeaderSize, len(data))
	}

	copy(h.Magic[:], data[offMagic:offMagic+4])
	h.VersionMajor = data[offMajor]
	h.VersionMinor = data[offMinor]
	h.AssetType = AssetType(data[offAssetType])
	h.Flags = data[offFlags]
	h.DataSize = binary.LittleEndian.Uint32(data[offDataSize:])
	h.SourceOffset = binary.LittleEndian.Uint32(data[offSourceOffset:])
	h.Checksum = binary.LittleEndian.Uint32(data[offChecksum:])
	h.CreatedAt = binary.LittleEndian.Uint32(data[offCreatedAt:])
	copy(h.Reserved[:], data[offReserved:HeaderSize])

	return nil
}

// DecodeHeader parses and checks magic, major version and asset type, in
// that order. The magic is checked before any other field is looked at.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, Formatf(ErrTruncatedData, "header needs %d bytes, got %d", HeaderSize, len(data))
	}
	if !bytes.Equal(data[offMagic:offMagic+4], Magic) {
		return nil, Formatf(ErrBadMagic, "got %q, expected %q", data[offMagic:offMagic+4], Magic)
	}

	h := &Header{}
	if err := h.Unpack(data); err != nil {
		return nil, err
	}

	if h.VersionMajor != VersionMajor {
		return nil, Formatf(ErrUnsupportedVersion, "got %d.%d, expected %d.x", h.VersionMajor, h.VersionMinor, VersionMajor)
	}
	if !h.AssetType.Valid() {
		return nil, Formatf(ErrUnknownType, "tag %d", uint8(h.AssetType))
	}

	return h, nil
}

// Created returns the advisory creation time
func (h *Header) Created() time.Time {
	return time.Unix(int64(h.CreatedAt), 0).UTC()
}
