// Package pipeline moves asset sections between a ROM image and containers:
// Extract reads a section into a container, Transform decodes a verified
// container into an editable asset, Package validates and encodes an asset
// into a fresh container, and Reinsert writes a container back.
//
// Every stage either returns its artifact or a *StageError; none leaves
// partial state behind.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/dwforge/romfmt/pkg/config"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/dwforge/romfmt/pkg/validate"
	"github.com/hashicorp/go-hclog"
	"github.com/moby/locker"
)

// EditableAsset is a decoded section together with where it came from
type EditableAsset struct {
	Type         format.AssetType
	SourceOffset uint32
	// Checksum of the container the asset was decoded from
	Checksum uint32
	Asset    records.Asset
}

// Pipeline runs the four stages against one offset table
type Pipeline struct {
	table   map[format.AssetType]format.Location
	romSize int
	codecs  map[format.AssetType]records.Codec
	refs    validate.References
	backup  BackupOptions
	logger  hclog.Logger
	now     func() time.Time
	locks   *locker.Locker
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l hclog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the time source for created_at
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithCodec replaces the default codec for the codec's type
func WithCodec(c records.Codec) Option {
	return func(p *Pipeline) { p.codecs[c.Type()] = c }
}

// WithReferences sets the cross-reference context for Package
func WithReferences(refs validate.References) Option {
	return func(p *Pipeline) { p.refs = refs }
}

// WithROMSize makes extract and reinsert reject images of any other length
func WithROMSize(n int) Option {
	return func(p *Pipeline) { p.romSize = n }
}

// WithBackup sets where and how ReinsertFile backs up the ROM
func WithBackup(b BackupOptions) Option {
	return func(p *Pipeline) { p.backup = b }
}

// New creates a pipeline for an offset table
func New(table map[format.AssetType]format.Location, opts ...Option) *Pipeline {
	p := &Pipeline{
		table:  make(map[format.AssetType]format.Location, len(table)),
		codecs: make(map[format.AssetType]records.Codec, len(records.Registry)),
		refs:   validate.DefaultReferences(),
		backup: DefaultBackupOptions(),
		logger: hclog.NewNullLogger(),
		now:    time.Now,
		locks:  locker.New(),
	}
	for t, loc := range table {
		p.table[t] = loc
	}
	for t, c := range records.Registry {
		p.codecs[t] = c
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromConfig builds a pipeline from a loaded configuration
func FromConfig(cfg *config.Config, logger hclog.Logger, opts ...Option) (*Pipeline, error) {
	table, err := cfg.OffsetTable()
	if err != nil {
		return nil, err
	}
	text, err := cfg.TextCodec()
	if err != nil {
		return nil, err
	}
	chain, err := cfg.BackupChain()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.BackupMode()
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithLogger(logger),
		WithCodec(text),
		WithROMSize(cfg.ROM.Size),
		WithBackup(BackupOptions{Dir: cfg.Backup.Dir, Chain: chain, Mode: mode}),
	}
	return New(table, append(base, opts...)...), nil
}

// Location returns the configured ROM range for t
func (p *Pipeline) Location(t format.AssetType) (format.Location, error) {
	loc, ok := p.table[t]
	if !ok {
		return format.Location{}, fmt.Errorf("%w for %s", ErrNoLocation, t)
	}
	return loc, nil
}

// Types lists the configured asset types in type order
func (p *Pipeline) Types() []format.AssetType {
	types := make([]format.AssetType, 0, len(p.table))
	for t := range p.table {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Codec returns the codec used for t
func (p *Pipeline) Codec(t format.AssetType) (records.Codec, error) {
	c, ok := p.codecs[t]
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %s", format.ErrUnknownType, t)
	}
	return c, nil
}

// Validator returns a validator configured like the one Package uses
func (p *Pipeline) Validator() *validate.Validator {
	opts := []validate.Option{validate.WithLogger(p.logger.Named("validate"))}
	if tc, ok := p.codecs[format.AssetText].(*records.TextCodec); ok {
		opts = append(opts, validate.WithTextCodec(tc))
	}
	return validate.New(p.refs, opts...)
}

// CheckROM rejects an image whose length differs from the profile's
func (p *Pipeline) CheckROM(rom ROMReader) error {
	if p.romSize > 0 && rom.Len() != p.romSize {
		return fmt.Errorf("ROM is %d bytes, profile expects %d", rom.Len(), p.romSize)
	}
	return nil
}
