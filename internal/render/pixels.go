package render

import (
	"image"
	"image/color"

	"gpu-life/internal/core"
)

// RGBToRGBA expands packed RGB cells into opaque RGBA pixels in dst. dst must
// hold len(rgb)/3*4 bytes.
func RGBToRGBA(dst, rgb []byte) {
	for i, j := 0, 0; i+core.Channels <= len(rgb); i, j = i+core.Channels, j+4 {
		dst[j+0] = rgb[i+0]
		dst[j+1] = rgb[i+1]
		dst[j+2] = rgb[i+2]
		dst[j+3] = 0xff
	}
}

// RGBAToRGB drops the alpha channel. dst must hold len(rgba)/4*3 bytes.
func RGBAToRGB(dst, rgba []byte) {
	for i, j := 0, 0; i+4 <= len(rgba); i, j = i+4, j+core.Channels {
		dst[j+0] = rgba[i+0]
		dst[j+1] = rgba[i+1]
		dst[j+2] = rgba[i+2]
	}
}

// FlipRows reverses the row order of a w*h RGB buffer into a new slice. Grid
// row 0 is the bottom of the picture, image row 0 is the top.
func FlipRows(rgb []byte, w, h int) []byte {
	out := make([]byte, len(rgb))
	stride := w * core.Channels
	for y := 0; y < h; y++ {
		copy(out[(h-1-y)*stride:(h-y)*stride], rgb[y*stride:(y+1)*stride])
	}
	return out
}

// CellsImage converts an RGB cell buffer into an image, top row first, with
// live cells drawn in on and dead cells in off.
func CellsImage(cells *core.CellBuffer, on, off color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cells.W, cells.H))
	onRGBA := color.RGBAModel.Convert(on).(color.RGBA)
	offRGBA := color.RGBAModel.Convert(off).(color.RGBA)
	for y := 0; y < cells.H; y++ {
		for x := 0; x < cells.W; x++ {
			c := offRGBA
			if core.IsAlive(cells.Pix[cells.Index(x, y):]) {
				c = onRGBA
			}
			img.SetRGBA(x, cells.H-1-y, c)
		}
	}
	return img
}
