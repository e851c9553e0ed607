package render

import (
	"image/color"
	"slices"
	"testing"

	"gpu-life/internal/core"
)

func TestRGBRoundTrip(t *testing.T) {
	rgb := []byte{255, 255, 255, 0, 0, 0, 10, 20, 30}
	rgba := make([]byte, 12)
	RGBToRGBA(rgba, rgb)
	if want := []byte{255, 255, 255, 255, 0, 0, 0, 255, 10, 20, 30, 255}; !slices.Equal(rgba, want) {
		t.Fatalf("RGBToRGBA = %v, want %v", rgba, want)
	}
	back := make([]byte, 9)
	RGBAToRGB(back, rgba)
	if !slices.Equal(back, rgb) {
		t.Fatalf("RGBAToRGB = %v, want %v", back, rgb)
	}
}

func TestFlipRows(t *testing.T) {
	rgb := []byte{
		1, 1, 1, 2, 2, 2,
		3, 3, 3, 4, 4, 4,
	}
	got := FlipRows(rgb, 2, 2)
	want := []byte{
		3, 3, 3, 4, 4, 4,
		1, 1, 1, 2, 2, 2,
	}
	if !slices.Equal(got, want) {
		t.Fatalf("FlipRows = %v, want %v", got, want)
	}
}

func TestCellsImageIsBottomUp(t *testing.T) {
	cells := core.NewCellBuffer(3, 2)
	cells.Set(0, 0, true)
	img := CellsImage(cells, color.White, color.Black)
	if got := img.RGBAAt(0, 1); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("grid row 0 should land on the bottom image row, got %v", got)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Fatalf("expected dead pixel on top row, got %v", got)
	}
}
