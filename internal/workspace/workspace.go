// Package workspace stores editable assets on disk: one JSON document per
// asset type, plus a tile sheet image for graphics.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/pipeline"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/dwforge/romfmt/pkg/utils/permissions"
	"github.com/hashicorp/go-hclog"
	"github.com/moby/sys/atomicwriter"
)

// ErrNoDocument is returned when a workspace has no document for a type
var ErrNoDocument = errors.New("❌ no document in workspace")

// Options controls how files are written
type Options struct {
	FileMode     os.FileMode
	SheetFormat  string // png or bmp
	SheetColumns int
	PreviewScale int // 0 disables the upscaled preview
	Logger       hclog.Logger
}

// Workspace is a directory of editable documents
type Workspace struct {
	Dir  string
	opts Options
}

// Document is the on-disk form of one editable asset
type Document struct {
	Type         format.AssetType `json:"type"`
	SourceOffset uint32           `json:"source_offset"`
	Checksum     string           `json:"checksum"`

	// Graphics keep their pixels in a separate sheet image
	Sheet     string `json:"sheet,omitempty"`
	TileCount int    `json:"tile_count,omitempty"`
	Columns   int    `json:"columns,omitempty"`

	Asset json.RawMessage `json:"asset,omitempty"`
}

// New opens (without creating) a workspace rooted at dir
func New(dir string, opts Options) *Workspace {
	if opts.FileMode == 0 {
		opts.FileMode = permissions.DefaultFilePerms
	}
	opts.SheetFormat = strings.ToLower(opts.SheetFormat)
	if opts.SheetFormat == "" {
		opts.SheetFormat = "png"
	}
	if opts.SheetColumns <= 0 {
		opts.SheetColumns = 16
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &Workspace{Dir: dir, opts: opts}
}

// DocumentPath returns where the document for t lives
func (w *Workspace) DocumentPath(t format.AssetType) string {
	return filepath.Join(w.Dir, t.String()+".json")
}

func (w *Workspace) ensureDir() error {
	if err := os.MkdirAll(w.Dir, permissions.DirFor(w.opts.FileMode)); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (w *Workspace) write(path string, data []byte) error {
	return atomicwriter.WriteFile(path, data, w.opts.FileMode)
}

// Save writes ea as a document, returning the paths written
func (w *Workspace) Save(ea *pipeline.EditableAsset) ([]string, error) {
	if ea == nil || ea.Asset == nil {
		return nil, fmt.Errorf("no asset to save")
	}
	if err := w.ensureDir(); err != nil {
		return nil, err
	}

	t := ea.Asset.AssetType()
	doc := Document{
		Type:         t,
		SourceOffset: ea.SourceOffset,
		Checksum:     format.FormatChecksum(ea.Checksum),
	}

	var written []string
	if ts, ok := ea.Asset.(*records.Tileset); ok {
		paths, err := w.saveSheet(ts, &doc)
		if err != nil {
			return nil, err
		}
		written = append(written, paths...)
	} else {
		body, err := json.Marshal(ea.Asset)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", t, err)
		}
		doc.Asset = body
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	path := w.DocumentPath(t)
	if err := w.write(path, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}

	w.opts.Logger.Debug("📝 Saved document", "type", t, "path", path)
	return append([]string{path}, written...), nil
}

// Load reads the document for t back into an editable asset
func (w *Workspace) Load(t format.AssetType) (*pipeline.EditableAsset, error) {
	path := w.DocumentPath(t)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDocument, filepath.Base(path))
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if doc.Type != t {
		return nil, fmt.Errorf("%s holds a %s document", filepath.Base(path), doc.Type)
	}

	ea := &pipeline.EditableAsset{Type: t, SourceOffset: doc.SourceOffset}
	if doc.Checksum != "" {
		if ea.Checksum, err = format.ParseChecksum(doc.Checksum); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}

	if t == format.AssetGraphics {
		ea.Asset, err = w.loadSheet(&doc)
		if err != nil {
			return nil, err
		}
		return ea, nil
	}

	codec, err := records.Get(t)
	if err != nil {
		return nil, err
	}
	asset := codec.New()
	dec := json.NewDecoder(bytes.NewReader(doc.Asset))
	dec.DisallowUnknownFields()
	if err := dec.Decode(asset); err != nil {
		return nil, fmt.Errorf("parsing %s asset: %w", filepath.Base(path), err)
	}
	if text, ok := asset.(*records.TextTable); ok {
		text.Fold()
	}
	ea.Asset = asset
	return ea, nil
}

// Types lists the asset types that have a document, in type order
func (w *Workspace) Types() []format.AssetType {
	var types []format.AssetType
	for _, t := range format.AllAssetTypes {
		if _, err := os.Stat(w.DocumentPath(t)); err == nil {
			types = append(types, t)
		}
	}
	return types
}
