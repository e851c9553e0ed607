// Package gpu defines the small graphics contract the engine is written
// against. A Device owns textures and programs and must only be used from the
// goroutine that created it.
package gpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"gpu-life/internal/camera"
	"gpu-life/internal/core"
)

var (
	// ErrCompile reports a program that failed to compile or link.
	ErrCompile = errors.New("gpu: program compile failed")
	// ErrIncompleteTarget reports a render target that cannot be drawn into.
	ErrIncompleteTarget = errors.New("gpu: incomplete render target")
	// ErrBadRegion reports a sub-region write outside the texture or with a
	// mismatched buffer.
	ErrBadRegion = errors.New("gpu: bad texture region")
	// ErrDisposed reports use of a released resource.
	ErrDisposed = errors.New("gpu: resource disposed")
)

// ProgramKind names the two programs the engine needs.
type ProgramKind int

const (
	// Simulator computes one generation into a texture.
	Simulator ProgramKind = iota
	// Renderer draws the grid to the display surface.
	Renderer
)

func (k ProgramKind) String() string {
	switch k {
	case Simulator:
		return "simulator"
	case Renderer:
		return "renderer"
	default:
		return fmt.Sprintf("program(%d)", int(k))
	}
}

// ProgramSource is the text of one program.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// Texture is a 2D RGB cell texture. Coordinates address cells; row 0 is the
// first row of the host-side buffer.
type Texture interface {
	Size() core.Size
	// WriteRegion replaces the w*h rectangle at (x, y) with rgb, which must
	// hold w*h*3 bytes. The rectangle must lie inside the texture.
	WriteRegion(x, y, w, h int, rgb []byte) error
	// ReadPixels copies the full texture into rgb (w*h*3 bytes).
	ReadPixels(rgb []byte) error
	Dispose()
}

// Program is a compiled shader program.
type Program interface {
	Kind() ProgramKind
	Dispose()
}

// Surface is the display target handed over by the host for one frame.
type Surface interface {
	Bounds() image.Rectangle
}

// SimUniforms are the parameters of one simulation pass.
type SimUniforms struct {
	// Rules holds the 18-entry transition table as 0/1 floats.
	Rules [2 * core.NeighborStates]float32
	// Scale is the grid size in cells; the program samples neighbors at
	// offsets of 1/Scale in texture space.
	Scale mgl32.Vec2
}

// Device creates and drives GPU resources.
type Device interface {
	NewTexture(w, h int, rgb []byte) (Texture, error)
	CompileProgram(kind ProgramKind, src ProgramSource) (Program, error)

	// Viewport returns the active viewport rectangle in target pixels.
	Viewport() image.Rectangle
	SetViewport(r image.Rectangle)

	// Simulate renders one pass of p sampling src into dst. The viewport
	// must already cover dst.
	Simulate(p Program, src, dst Texture, u SimUniforms) error
	// Clear fills the viewport of dst with c.
	Clear(dst Surface, c color.Color) error
	// DrawGrid draws tex as the model-space quad [-1,1]^2 transformed by vp
	// into the viewport of dst.
	DrawGrid(p Program, dst Surface, tex Texture, vp mgl32.Mat4) error
}

// QuadCorners are the model-space corners of the grid quad in the order
// bottom-left, bottom-right, top-right, top-left, with their texture
// coordinates (0..1, v growing with grid rows).
var QuadCorners = [4]struct{ Pos, UV mgl32.Vec2 }{
	{mgl32.Vec2{-1, -1}, mgl32.Vec2{0, 0}},
	{mgl32.Vec2{1, -1}, mgl32.Vec2{1, 0}},
	{mgl32.Vec2{1, 1}, mgl32.Vec2{1, 1}},
	{mgl32.Vec2{-1, 1}, mgl32.Vec2{0, 1}},
}

// QuadIndices triangulates QuadCorners.
var QuadIndices = [6]uint16{0, 1, 3, 3, 1, 2}

// ProjectQuad returns the screen-space corners of the grid quad inside
// viewport.
func ProjectQuad(vp mgl32.Mat4, viewport image.Rectangle) [4]mgl32.Vec2 {
	var out [4]mgl32.Vec2
	origin := mgl32.Vec2{float32(viewport.Min.X), float32(viewport.Min.Y)}
	for i, c := range QuadCorners {
		out[i] = camera.Project(vp, c.Pos, viewport.Dx(), viewport.Dy()).Add(origin)
	}
	return out
}

// Region is an in-bounds rectangle of a wrapped write together with the
// offset of its first cell inside the source pattern.
type Region struct {
	X, Y, W, H int
	SrcX, SrcY int
}

// WrapRegions splits a w*h rectangle placed at (x, y) on a gw*gh torus into
// at most four in-bounds rectangles, the way a REPEAT-wrapped texture sees
// it. Rectangles larger than the grid are truncated to the grid size.
func WrapRegions(x, y, w, h, gw, gh int) []Region {
	if w > gw {
		w = gw
	}
	if h > gh {
		h = gh
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	x = (x%gw + gw) % gw
	y = (y%gh + gh) % gh

	type span struct{ at, n, src int }
	split := func(at, n, size int) []span {
		if at+n <= size {
			return []span{{at, n, 0}}
		}
		first := size - at
		return []span{{at, first, 0}, {0, n - first, first}}
	}

	var out []Region
	for _, sy := range split(y, h, gh) {
		for _, sx := range split(x, w, gw) {
			out = append(out, Region{X: sx.at, Y: sy.at, W: sx.n, H: sy.n, SrcX: sx.src, SrcY: sy.src})
		}
	}
	return out
}

// WriteWrapped stamps a pw*ph RGB pattern at (x, y) with toroidal wraparound.
// Offsets may be negative or past the far edge.
func WriteWrapped(tex Texture, x, y, pw, ph int, rgb []byte) error {
	if len(rgb) != pw*ph*core.Channels {
		return fmt.Errorf("%w: pattern %dx%d with %d bytes", ErrBadRegion, pw, ph, len(rgb))
	}
	size := tex.Size()
	for _, r := range WrapRegions(x, y, pw, ph, size.W, size.H) {
		sub := rgb
		if r.W != pw || r.H != ph {
			sub = CropRGB(rgb, pw, r.SrcX, r.SrcY, r.W, r.H)
		}
		if err := tex.WriteRegion(r.X, r.Y, r.W, r.H, sub); err != nil {
			return err
		}
	}
	return nil
}

// CropRGB copies the w*h rectangle at (x, y) out of a stride-wide RGB buffer.
func CropRGB(rgb []byte, stride, x, y, w, h int) []byte {
	out := make([]byte, 0, w*h*core.Channels)
	for row := 0; row < h; row++ {
		start := ((y+row)*stride + x) * core.Channels
		out = append(out, rgb[start:start+w*core.Channels]...)
	}
	return out
}

// CheckRegion validates a WriteRegion call against a texture of size s.
func CheckRegion(s core.Size, x, y, w, h int, rgb []byte) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > s.W || y+h > s.H {
		return fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d", ErrBadRegion, w, h, x, y, s.W, s.H)
	}
	if len(rgb) != w*h*core.Channels {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrBadRegion, len(rgb), w, h)
	}
	return nil
}
