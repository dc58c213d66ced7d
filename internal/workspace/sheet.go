package workspace

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
)

func (w *Workspace) sheetName() string {
	return format.AssetGraphics.String() + "." + w.opts.SheetFormat
}

// PreviewPath is the upscaled copy of the tile sheet, for viewing only
func (w *Workspace) PreviewPath() string {
	return filepath.Join(w.Dir, format.AssetGraphics.String()+".preview.png")
}

func (w *Workspace) saveSheet(ts *records.Tileset, doc *Document) ([]string, error) {
	img := ts.Image(w.opts.SheetColumns)

	data, err := encodeImage(img, w.opts.SheetFormat)
	if err != nil {
		return nil, err
	}
	name := w.sheetName()
	path := filepath.Join(w.Dir, name)
	if err := w.write(path, data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}

	doc.Sheet = name
	doc.TileCount = len(ts.Tiles)
	doc.Columns = w.opts.SheetColumns
	written := []string{path}

	if w.opts.PreviewScale > 1 {
		b := img.Bounds()
		scaled := resize.Resize(uint(b.Dx()*w.opts.PreviewScale), uint(b.Dy()*w.opts.PreviewScale), img, resize.NearestNeighbor)
		preview, err := encodeImage(scaled, "png")
		if err != nil {
			return nil, err
		}
		if err := w.write(w.PreviewPath(), preview); err != nil {
			return nil, fmt.Errorf("writing preview: %w", err)
		}
		written = append(written, w.PreviewPath())
	}

	w.opts.Logger.Debug("🖼️ Saved tile sheet", "path", path, "tiles", len(ts.Tiles), "columns", w.opts.SheetColumns)
	return written, nil
}

func (w *Workspace) loadSheet(doc *Document) (*records.Tileset, error) {
	if doc.Sheet == "" || doc.TileCount <= 0 {
		return nil, fmt.Errorf("graphics document names no sheet")
	}
	if filepath.Base(doc.Sheet) != doc.Sheet {
		return nil, fmt.Errorf("sheet %q must be a file inside the workspace", doc.Sheet)
	}

	f, err := os.Open(filepath.Join(w.Dir, doc.Sheet))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := decodeImage(f, strings.TrimPrefix(filepath.Ext(doc.Sheet), "."))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", doc.Sheet, err)
	}
	return records.TilesetFromImage(img, doc.TileCount, doc.Columns)
}

func encodeImage(img image.Image, kind string) ([]byte, error) {
	var buf bytes.Buffer
	switch kind {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "bmp":
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported sheet format %q", kind)
	}
	return buf.Bytes(), nil
}

func decodeImage(f *os.File, kind string) (image.Image, error) {
	switch strings.ToLower(kind) {
	case "png":
		return png.Decode(f)
	case "bmp":
		return bmp.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported sheet format %q", kind)
	}
}
