package pkg

import (
	"context"
	"fmt"

	"github.com/dwforge/romfmt/internal/workspace"
	"github.com/dwforge/romfmt/pkg/config"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/pipeline"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/dwforge/romfmt/pkg/validate"
	"github.com/hashicorp/go-hclog"
)

// OpenWorkspace opens dir with the configured file settings
func OpenWorkspace(cfg *config.Config, dir string, logger hclog.Logger) (*workspace.Workspace, error) {
	mode, err := cfg.WorkspaceMode()
	if err != nil {
		return nil, err
	}
	return workspace.New(dir, workspace.Options{
		FileMode:     mode,
		SheetFormat:  cfg.Workspace.SheetFormat,
		SheetColumns: cfg.Workspace.SheetColumns,
		PreviewScale: cfg.Workspace.PreviewScale,
		Logger:       logger.Named("workspace"),
	}), nil
}

// UnpackResult summarises an Unpack call
type UnpackResult struct {
	Files       []string
	ROMChecksum uint32
	// Skipped is set when the workspace already held this ROM's unpack
	Skipped bool
}

// Unpack extracts every configured asset of the ROM into the workspace.
// An up-to-date workspace is left alone unless force is set.
func Unpack(ctx context.Context, cfg *config.Config, romPath, dir string, force bool, logger hclog.Logger) (*UnpackResult, error) {
	p, err := pipeline.FromConfig(cfg, logger.Named("pipeline"))
	if err != nil {
		return nil, err
	}
	rom, err := pipeline.LoadROM(romPath)
	if err != nil {
		return nil, err
	}
	ws, err := OpenWorkspace(cfg, dir, logger)
	if err != nil {
		return nil, err
	}

	result := &UnpackResult{ROMChecksum: rom.Checksum()}
	if !force && ws.IsValid(cfg.ROM.Name, result.ROMChecksum) {
		logger.Info("✅ Workspace already up to date", "dir", dir)
		result.Skipped = true
		return result, nil
	}

	extracted, err := p.ExtractAll(ctx, rom, nil)
	if err != nil {
		ws.MarkIncomplete(err.Error())
		return nil, err
	}

	sums := make(map[format.AssetType]uint32, len(extracted))
	for _, t := range p.Types() {
		x := extracted[t]
		files, err := ws.Save(x.Asset)
		if err != nil {
			ws.MarkIncomplete(err.Error())
			return nil, err
		}
		result.Files = append(result.Files, files...)
		sums[t] = x.Asset.Checksum
	}

	if err := ws.MarkComplete(cfg.ROM.Name, result.ROMChecksum, sums); err != nil {
		return nil, err
	}
	logger.Info("✅ Unpacked ROM", "dir", dir, "assets", len(extracted))
	return result, nil
}

// Repack packages every document in the workspace and reinserts the edited
// ones into the ROM as one write. Documents that decode equal to the ROM's
// current section leave that section untouched. Map tile references are
// checked against the workspace's tileset when it has one.
func Repack(ctx context.Context, cfg *config.Config, romPath, dir string, logger hclog.Logger) (*pipeline.ReinsertResult, error) {
	ws, err := OpenWorkspace(cfg, dir, logger)
	if err != nil {
		return nil, err
	}

	var assets []*pipeline.EditableAsset
	refs := validate.DefaultReferences()
	for _, t := range ws.Types() {
		ea, err := ws.Load(t)
		if err != nil {
			return nil, err
		}
		if ts, ok := ea.Asset.(*records.Tileset); ok {
			refs.TileCount = len(ts.Tiles)
		}
		assets = append(assets, ea)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: %s has no documents", workspace.ErrNoDocument, dir)
	}

	p, err := pipeline.FromConfig(cfg, logger.Named("pipeline"), pipeline.WithReferences(refs))
	if err != nil {
		return nil, err
	}
	rom, err := pipeline.LoadROM(romPath)
	if err != nil {
		return nil, err
	}
	containers, err := p.Edited(rom, assets)
	if err != nil {
		return nil, err
	}
	return p.ReinsertFile(ctx, romPath, containers)
}
