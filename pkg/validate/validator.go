// Package validate checks editable assets and raw containers before they are
// accepted. Three passes run in order (format, range, cross-reference) and
// every violation from all of them is returned in one ValidationError.
package validate

import (
	"errors"
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/hashicorp/go-hclog"
)

// References describes the other asset types that records point into
type References struct {
	SpellCount int // spell ids 1..SpellCount-1 may be referenced; 0 means none
	TileCount  int // tile ids must be below this; 0 skips the check
}

// DefaultReferences matches the fixed spell table with an unknown tile count
func DefaultReferences() References {
	return References{SpellCount: format.SpellCount}
}

// Validator runs the three passes
type Validator struct {
	refs   References
	text   *records.TextCodec
	logger hclog.Logger
}

// Option configures a Validator
type Option func(*Validator)

// WithTextCodec checks strings against a specific dictionary
func WithTextCodec(c *records.TextCodec) Option {
	return func(v *Validator) { v.text = c }
}

// WithLogger sets the logger
func WithLogger(l hclog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New creates a validator for the given cross-reference context
func New(refs References, opts ...Option) *Validator {
	v := &Validator{
		refs:   refs,
		text:   records.NewTextCodec(nil),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// References returns the cross-reference context in use
func (v *Validator) References() References {
	return v.refs
}

// Validate runs all three passes over an editable asset
func (v *Validator) Validate(a records.Asset) error {
	if a == nil {
		return &format.ValidationError{Violations: []format.Violation{{
			Pass: format.PassFormat, Field: "asset", Constraint: "present",
		}}}
	}

	var all []format.Violation
	for _, pass := range []format.Pass{format.PassFormat, format.PassRange, format.PassReference} {
		r := &report{pass: pass}
		v.run(r, a)
		v.logger.Trace("validation pass", "type", a.AssetType(), "pass", pass, "violations", len(r.violations))
		all = append(all, r.violations...)
	}

	if len(all) == 0 {
		v.logger.Debug("✅ Asset valid", "type", a.AssetType())
		return nil
	}
	v.logger.Debug("❌ Asset invalid", "type", a.AssetType(), "violations", len(all))
	return &format.ValidationError{Violations: all}
}

func (v *Validator) run(r *report, a records.Asset) {
	switch r.pass {
	case format.PassFormat:
		if !a.AssetType().Valid() {
			r.add("", "asset_type", int(a.AssetType()), "1..6")
			return
		}
		formatAsset(r, a)

	case format.PassRange:
		switch t := a.(type) {
		case *records.MonsterTable:
			rangeMonsters(r, t)
		case *records.SpellTable:
			rangeSpells(r, t)
		case *records.ItemTable:
			rangeItems(r, t)
		case *records.MapSet:
			rangeMaps(r, t)
		case *records.TextTable:
			rangeText(r, t, v.text)
		case *records.Tileset:
			rangeTiles(r, t)
		}

	case format.PassReference:
		switch t := a.(type) {
		case *records.MonsterTable:
			referenceMonsters(r, t, v.refs)
		case *records.MapSet:
			referenceMaps(r, t, v.refs)
		}
	}
}

// ValidateContainer checks raw container bytes: format (header and size
// invariant), checksum, decode, then range and cross-reference. Format,
// integrity and decode failures are returned as-is since later passes have
// nothing to work on.
func (v *Validator) ValidateContainer(raw []byte, codec records.Codec) (*format.Container, records.Asset, error) {
	c, err := format.ParseContainer(raw)
	if err != nil {
		return nil, nil, err
	}
	if err := c.VerifyChecksum(); err != nil {
		return c, nil, err
	}
	if codec == nil {
		if codec, err = records.Get(c.Header.AssetType); err != nil {
			return c, nil, err
		}
	}
	if codec.Type() != c.Header.AssetType {
		return c, nil, fmt.Errorf("%s codec given for %s container", codec.Type(), c.Header.AssetType)
	}

	asset, err := codec.Decode(c.Data)
	if err != nil {
		return c, nil, err
	}
	return c, asset, v.Validate(asset)
}

// Violations extracts the violation list from err, if it carries one
func Violations(err error) []format.Violation {
	var ve *format.ValidationError
	if errors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}
