package pipeline

import (
	"context"
	"sync"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/sync/errgroup"
)

// Extracted pairs an extracted container with its decoded asset
type Extracted struct {
	Container *format.Container
	Asset     *EditableAsset
}

// ExtractAll runs Extract and Transform for each type concurrently. The
// workers share only the read-only ROM. The first failure cancels the rest
// and is returned; an empty types list means every configured type.
func (p *Pipeline) ExtractAll(ctx context.Context, rom ROMReader, types []format.AssetType) (map[format.AssetType]*Extracted, error) {
	if len(types) == 0 {
		types = p.Types()
	}

	var mu sync.Mutex
	out := make(map[format.AssetType]*Extracted, len(types))

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range types {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := p.Extract(rom, t)
			if err != nil {
				return err
			}
			ea, err := p.Transform(c)
			if err != nil {
				return err
			}

			mu.Lock()
			out[t] = &Extracted{Container: c, Asset: ea}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.logger.Info("✅ Extracted assets", "count", len(out))
	return out, nil
}

// PackageAll packages each asset, stopping at the first failure
func (p *Pipeline) PackageAll(assets []*EditableAsset) ([]*format.Container, error) {
	out := make([]*format.Container, 0, len(assets))
	for _, ea := range assets {
		c, err := p.Package(ea)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Unchanged reports whether ea decodes to what the ROM already holds for its
// type, compared decoded since one asset can have several encodings. A
// section that no longer extracts or verifies counts as changed.
func (p *Pipeline) Unchanged(rom ROMReader, ea *EditableAsset) bool {
	if ea == nil || ea.Asset == nil {
		return false
	}
	c, err := p.Extract(rom, ea.Asset.AssetType())
	if err != nil {
		return false
	}
	current, err := p.Transform(c)
	if err != nil {
		return false
	}
	return cmp.Equal(current.Asset, ea.Asset, cmpopts.EquateEmpty())
}

// Edited packages every asset, so the whole set is validated together, and
// returns containers only for the assets that differ from the ROM
func (p *Pipeline) Edited(rom ROMReader, assets []*EditableAsset) ([]*format.Container, error) {
	packed, err := p.PackageAll(assets)
	if err != nil {
		return nil, err
	}
	out := make([]*format.Container, 0, len(packed))
	for i, ea := range assets {
		if p.Unchanged(rom, ea) {
			p.logger.Debug("Asset unchanged, keeping ROM section", "type", ea.Asset.AssetType())
			continue
		}
		out = append(out, packed[i])
	}
	return out, nil
}
