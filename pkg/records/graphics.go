package records

import (
	"fmt"
	"image"
	"image/color"

	"github.com/dwforge/romfmt/pkg/format"
)

const (
	TileWidth     = 8
	TileHeight    = 8
	PixelsPerTile = TileWidth * TileHeight
	MaxColor      = 3 // pixels are 2-bit colour indexes

	planeSize = format.TileSize / 2
)

// Palette is the four-shade palette used for tile sheets, index = pixel value
var Palette = color.Palette{
	color.Gray{Y: 0x00},
	color.Gray{Y: 0x55},
	color.Gray{Y: 0xAA},
	color.Gray{Y: 0xFF},
}

// Tile is an 8x8 tile of colour indexes, row-major
type Tile [PixelsPerTile]int

// Tileset holds every tile of the graphics section in ROM order
type Tileset struct {
	Tiles []Tile `json:"tiles,omitempty"`
}

func (*Tileset) AssetType() format.AssetType { return format.AssetGraphics }

// GraphicsCodec handles 2bpp planar tile data: for each tile the low
// bitplane's 8 bytes come first, then the high bitplane's
type GraphicsCodec struct{}

func (GraphicsCodec) Type() format.AssetType { return format.AssetGraphics }

func (GraphicsCodec) New() Asset { return &Tileset{} }

// Decode unpacks bitplanes; truncation is the only failure
func (GraphicsCodec) Decode(data []byte) (Asset, error) {
	if len(data) == 0 || len(data)%format.TileSize != 0 {
		return nil, format.Formatf(format.ErrTruncatedData, "graphics section of %d bytes is not a non-zero multiple of %d", len(data), format.TileSize)
	}

	ts := &Tileset{Tiles: make([]Tile, len(data)/format.TileSize)}
	for t := range ts.Tiles {
		DecodeTile(data[t*format.TileSize:(t+1)*format.TileSize], &ts.Tiles[t])
	}
	return ts, nil
}

func (c GraphicsCodec) Encode(a Asset) ([]byte, error) {
	ts, ok := a.(*Tileset)
	if !ok {
		return nil, wrongAsset(c, a)
	}
	if len(ts.Tiles) == 0 {
		return nil, fmt.Errorf("tileset is empty")
	}

	buf := make([]byte, len(ts.Tiles)*format.TileSize)
	for t := range ts.Tiles {
		EncodeTile(&ts.Tiles[t], buf[t*format.TileSize:(t+1)*format.TileSize])
	}
	return buf, nil
}

// DecodeTile unpacks one 16-byte tile; pixel = high bit << 1 | low bit
func DecodeTile(src []byte, dst *Tile) {
	low, high := src[:planeSize], src[planeSize:format.TileSize]
	for y := 0; y < TileHeight; y++ {
		for x := 0; x < TileWidth; x++ {
			shift := uint(7 - x)
			lo := int(low[y]>>shift) & 1
			hi := int(high[y]>>shift) & 1
			dst[y*TileWidth+x] = hi<<1 | lo
		}
	}
}

// EncodeTile packs one tile into 16 bytes of dst
func EncodeTile(src *Tile, dst []byte) {
	low, high := dst[:planeSize], dst[planeSize:format.TileSize]
	for y := 0; y < TileHeight; y++ {
		var lo, hi byte
		for x := 0; x < TileWidth; x++ {
			p := src[y*TileWidth+x]
			shift := uint(7 - x)
			lo |= byte(p&1) << shift
			hi |= byte(p>>1&1) << shift
		}
		low[y], high[y] = lo, hi
	}
}

// Image lays the tiles out as a sheet, columns tiles wide
func (ts *Tileset) Image(columns int) *image.Paletted {
	if columns <= 0 {
		columns = 16
	}
	rows := (len(ts.Tiles) + columns - 1) / columns
	if len(ts.Tiles) < columns {
		columns = len(ts.Tiles)
	}

	img := image.NewPaletted(image.Rect(0, 0, columns*TileWidth, rows*TileHeight), Palette)
	for t, tile := range ts.Tiles {
		ox, oy := (t%columns)*TileWidth, (t/columns)*TileHeight
		for i, p := range tile {
			img.SetColorIndex(ox+i%TileWidth, oy+i/TileWidth, uint8(p&MaxColor))
		}
	}
	return img
}

// TilesetFromImage reads count tiles back from a sheet. Each pixel maps to
// the nearest palette shade, so sheets re-saved as RGB still import.
func TilesetFromImage(img image.Image, count, columns int) (*Tileset, error) {
	if columns <= 0 {
		columns = 16
	}
	if count < columns {
		columns = count
	}
	b := img.Bounds()
	rows := (count + columns - 1) / columns
	if b.Dx() < columns*TileWidth || b.Dy() < rows*TileHeight {
		return nil, fmt.Errorf("sheet is %dx%d, %d tiles at %d per row need %dx%d", b.Dx(), b.Dy(), count, columns, columns*TileWidth, rows*TileHeight)
	}

	ts := &Tileset{Tiles: make([]Tile, count)}
	for t := range ts.Tiles {
		ox, oy := b.Min.X+(t%columns)*TileWidth, b.Min.Y+(t/columns)*TileHeight
		for i := range ts.Tiles[t] {
			ts.Tiles[t][i] = Palette.Index(img.At(ox+i%TileWidth, oy+i/TileWidth))
		}
	}
	return ts, nil
}
