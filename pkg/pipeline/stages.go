package pipeline

import (
	"bytes"
	"fmt"

	"github.com/docker/go-units"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
)

// Extract reads the section for t from rom and wraps it in a container.
// Map and text sections are trimmed to the size their directory describes.
// The checksum is computed here and first verified by Transform.
func (p *Pipeline) Extract(rom ROMReader, t format.AssetType) (*format.Container, error) {
	if err := p.CheckROM(rom); err != nil {
		return nil, abort(StageExtract, t, err)
	}
	loc, err := p.Location(t)
	if err != nil {
		return nil, abort(StageExtract, t, err)
	}

	data, err := rom.ReadRange(loc.Offset, loc.Size)
	if err != nil {
		return nil, abort(StageExtract, t, err)
	}

	size, err := records.ExpectedSize(t, data)
	if err != nil {
		return nil, abort(StageExtract, t, err)
	}
	if size > len(data) {
		return nil, abort(StageExtract, t, format.Formatf(format.ErrOffsetOutOfBounds,
			"%s directory describes %d bytes, location %s holds %d", t, size, loc, len(data)))
	}
	data = data[:size]

	c := format.NewContainer(t, data, loc.Offset, p.now())
	p.logger.Debug("📤 Extracted section",
		"type", t,
		"offset", fmt.Sprintf("0x%06x", loc.Offset),
		"size", units.HumanSize(float64(len(data))),
		"checksum", format.FormatChecksum(c.Header.Checksum))
	return c, nil
}

// Transform verifies a container and decodes it into an editable asset.
// A checksum mismatch aborts before any decoding.
func (p *Pipeline) Transform(c *format.Container) (*EditableAsset, error) {
	if c == nil {
		return nil, abort(StageTransform, 0, fmt.Errorf("no container"))
	}
	return p.TransformBytes(c.Bytes())
}

// TransformBytes is Transform for a serialized container
func (p *Pipeline) TransformBytes(raw []byte) (*EditableAsset, error) {
	c, err := format.ParseContainer(raw)
	if err != nil {
		return nil, abort(StageTransform, 0, err)
	}
	t := c.Header.AssetType

	if err := c.VerifyChecksum(); err != nil {
		p.logger.Warn("❌ Container checksum mismatch", "type", t, "error", err)
		return nil, abort(StageTransform, t, err)
	}

	codec, err := p.Codec(t)
	if err != nil {
		return nil, abort(StageTransform, t, err)
	}
	asset, err := codec.Decode(c.Data)
	if err != nil {
		return nil, abort(StageTransform, t, err)
	}

	p.logger.Debug("🔓 Decoded container", "type", t, "checksum", format.FormatChecksum(c.Header.Checksum))
	return &EditableAsset{
		Type:         t,
		SourceOffset: c.Header.SourceOffset,
		Checksum:     c.Header.Checksum,
		Asset:        asset,
	}, nil
}

// Package validates an edited asset, encodes it and builds a new container
// targeting the asset type's configured location. Validation failures abort
// with every violation found.
func (p *Pipeline) Package(ea *EditableAsset) (*format.Container, error) {
	if ea == nil || ea.Asset == nil {
		return nil, abort(StagePackage, 0, fmt.Errorf("no asset"))
	}
	t := ea.Asset.AssetType()
	if ea.Type != 0 && ea.Type != t {
		return nil, abort(StagePackage, t, fmt.Errorf("asset is %s but labelled %s", t, ea.Type))
	}

	if err := p.Validator().Validate(ea.Asset); err != nil {
		return nil, abort(StagePackage, t, err)
	}

	loc, err := p.Location(t)
	if err != nil {
		return nil, abort(StagePackage, t, err)
	}
	codec, err := p.Codec(t)
	if err != nil {
		return nil, abort(StagePackage, t, err)
	}
	data, err := codec.Encode(ea.Asset)
	if err != nil {
		return nil, abort(StagePackage, t, err)
	}
	if err := fitLocation(t, loc, len(data)); err != nil {
		return nil, abort(StagePackage, t, err)
	}

	c := format.NewContainer(t, data, loc.Offset, p.now())
	p.logger.Debug("📦 Packaged asset",
		"type", t,
		"size", units.HumanSize(float64(len(data))),
		"checksum", format.FormatChecksum(c.Header.Checksum))
	return c, nil
}

// fitLocation reports an encoded section that cannot occupy loc. Fixed and
// graphics sections must fill it exactly; map and text may be shorter.
func fitLocation(t format.AssetType, loc format.Location, size int) error {
	exact := t != format.AssetMap && t != format.AssetText
	if size > int(loc.Size) || (exact && size != int(loc.Size)) {
		constraint := fmt.Sprintf("<=%d", loc.Size)
		if exact {
			constraint = fmt.Sprintf("==%d", loc.Size)
		}
		return &format.ValidationError{Violations: []format.Violation{{
			Pass:       format.PassFormat,
			Field:      "data_size",
			Value:      int64(size),
			Constraint: constraint,
		}}}
	}
	return nil
}

// Reinsert re-verifies a container and copies its data into rom at the
// container's source offset. It returns how many bytes changed. Nothing is
// written unless every check passes.
func (p *Pipeline) Reinsert(c *format.Container, rom ROMReadWriter) (int, error) {
	if c == nil {
		return 0, abort(StageReinsert, 0, fmt.Errorf("no container"))
	}
	t := c.Header.AssetType

	if err := p.CheckROM(rom); err != nil {
		return 0, abort(StageReinsert, t, err)
	}
	if int(c.Header.DataSize) != len(c.Data) {
		return 0, abort(StageReinsert, t, format.Formatf(format.ErrSizeMismatch,
			"header declares %d data bytes, container holds %d", c.Header.DataSize, len(c.Data)))
	}
	if err := format.CheckSize(t, c.Data); err != nil {
		return 0, abort(StageReinsert, t, err)
	}
	if err := c.VerifyChecksum(); err != nil {
		return 0, abort(StageReinsert, t, err)
	}

	offset := c.Header.SourceOffset
	if err := format.CheckBounds(uint64(offset), uint64(len(c.Data)), uint64(rom.Len())); err != nil {
		return 0, abort(StageReinsert, t, err)
	}
	if loc, ok := p.table[t]; ok {
		target := format.Location{Offset: offset, Size: uint32(len(c.Data))}
		if offset != loc.Offset || target.End() > loc.End() {
			return 0, abort(StageReinsert, t, format.Formatf(format.ErrOffsetOutOfBounds,
				"container targets %s, %s lives at %s", target, t, loc))
		}
	}

	old, err := rom.ReadRange(offset, uint32(len(c.Data)))
	if err != nil {
		return 0, abort(StageReinsert, t, err)
	}
	changed := diffCount(old, c.Data)
	if changed == 0 {
		p.logger.Debug("✅ Section unchanged", "type", t)
		return 0, nil
	}

	if err := rom.WriteRange(offset, c.Data); err != nil {
		return 0, abort(StageReinsert, t, err)
	}
	p.logger.Info("📥 Reinserted section", "type", t, "offset", fmt.Sprintf("0x%06x", offset), "changed", changed)
	return changed, nil
}

func diffCount(a, b []byte) int {
	if bytes.Equal(a, b) {
		return 0
	}
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
