// Package pattern turns raster images into cell buffers.
//
// A pixel is alive when its red channel is 255; the other channels are
// ignored. The bottom image row becomes grid row 0.
package pattern

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"

	"gpu-life/internal/core"
)

// Decode converts img into a cell buffer of the same size.
func Decode(img image.Image) *core.CellBuffer {
	b := img.Bounds()
	cells := core.NewCellBuffer(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Max.Y-1-y)).(color.NRGBA)
			if c.R == 255 {
				cells.Set(x, y, true)
			}
		}
	}
	return cells
}

// Read decodes an encoded image (PNG, GIF, JPEG or BMP) from r.
func Read(r io.Reader) (*core.CellBuffer, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("pattern: decode: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("pattern: empty %s image", format)
	}
	return Decode(img), nil
}

// Load reads and decodes the image file at path.
func Load(path string) (*core.CellBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	defer f.Close()
	cells, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cells, nil
}

// Offset returns where p is placed to center it on a gw*gh grid.
func Offset(p core.Size, gw, gh int) (x, y int) {
	return gw/2 - p.W/2, gh/2 - p.H/2
}

// Center returns a gw*gh buffer with p placed in the middle. Cells that fall
// outside the grid are clipped.
func Center(p *core.CellBuffer, gw, gh int) *core.CellBuffer {
	out := core.NewCellBuffer(gw, gh)
	ox, oy := Offset(p.Size(), gw, gh)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			if core.IsAlive(p.Pix[p.Index(x, y):]) {
				out.Set(ox+x, oy+y, true)
			}
		}
	}
	return out
}
