// Package soft is a software implementation of gpu.Device. It keeps textures
// in host memory and runs the simulator and renderer programs as CPU kernels
// with the same contract as the shader versions: toroidal 3x3 neighbor sums
// looked up in the rule table, nearest sampling for display.
//
// It backs the headless runner and the engine tests, where no graphics
// context exists.
package soft

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"gpu-life/internal/core"
	"gpu-life/internal/gpu"
)

// Device is a CPU-backed gpu.Device. The zero value is not usable; call New.
type Device struct {
	viewport image.Rectangle

	// Passes counts successful Simulate calls.
	Passes int
}

var _ gpu.Device = (*Device)(nil)

// New returns a device whose viewport covers a w*h display.
func New(w, h int) *Device {
	return &Device{viewport: image.Rect(0, 0, w, h)}
}

// Viewport returns the active viewport.
func (d *Device) Viewport() image.Rectangle { return d.viewport }

// SetViewport replaces the active viewport.
func (d *Device) SetViewport(r image.Rectangle) { d.viewport = r }

// Texture is a host-memory cell texture.
type Texture struct {
	cells    *core.CellBuffer
	disposed bool
}

// NewTexture allocates a w*h texture. rgb may be nil for an all-dead texture.
func (d *Device) NewTexture(w, h int, rgb []byte) (gpu.Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: texture size %dx%d", gpu.ErrBadRegion, w, h)
	}
	t := &Texture{cells: core.NewCellBuffer(w, h)}
	if rgb != nil {
		if len(rgb) != len(t.cells.Pix) {
			return nil, fmt.Errorf("%w: %d bytes for %dx%d texture", gpu.ErrBadRegion, len(rgb), w, h)
		}
		copy(t.cells.Pix, rgb)
	}
	return t, nil
}

// Size returns the texture dimensions.
func (t *Texture) Size() core.Size { return t.cells.Size() }

// WriteRegion replaces a rectangle of cells.
func (t *Texture) WriteRegion(x, y, w, h int, rgb []byte) error {
	if t.disposed {
		return gpu.ErrDisposed
	}
	if err := gpu.CheckRegion(t.Size(), x, y, w, h, rgb); err != nil {
		return err
	}
	stride := w * core.Channels
	for row := 0; row < h; row++ {
		copy(t.cells.Pix[t.cells.Index(x, y+row):], rgb[row*stride:(row+1)*stride])
	}
	return nil
}

// ReadPixels copies the whole texture into rgb.
func (t *Texture) ReadPixels(rgb []byte) error {
	if t.disposed {
		return gpu.ErrDisposed
	}
	if len(rgb) != len(t.cells.Pix) {
		return fmt.Errorf("%w: %d bytes for %dx%d readback", gpu.ErrBadRegion, len(rgb), t.cells.W, t.cells.H)
	}
	copy(rgb, t.cells.Pix)
	return nil
}

// Dispose releases the texture.
func (t *Texture) Dispose() { t.disposed = true }

// Cells exposes the backing buffer for inspection in tests.
func (t *Texture) Cells() *core.CellBuffer { return t.cells }

// Program is a validated program bound to a CPU kernel.
type Program struct {
	kind     gpu.ProgramKind
	disposed bool
}

// Kind reports which kernel the program runs.
func (p *Program) Kind() gpu.ProgramKind { return p.kind }

// Dispose releases the program.
func (p *Program) Dispose() { p.disposed = true }

// CompileProgram checks that the fragment source declares an entry point.
// The vertex stage is fixed and its source is ignored.
func (d *Device) CompileProgram(kind gpu.ProgramKind, src gpu.ProgramSource) (gpu.Program, error) {
	if strings.TrimSpace(src.Fragment) == "" {
		return nil, fmt.Errorf("%w: %s: empty fragment source", gpu.ErrCompile, kind)
	}
	if !strings.Contains(src.Fragment, "func Fragment(") {
		return nil, fmt.Errorf("%w: %s: no Fragment entry point", gpu.ErrCompile, kind)
	}
	if kind != gpu.Simulator && kind != gpu.Renderer {
		return nil, fmt.Errorf("%w: unknown program %s", gpu.ErrCompile, kind)
	}
	return &Program{kind: kind}, nil
}

func (d *Device) program(p gpu.Program, kind gpu.ProgramKind) error {
	sp, ok := p.(*Program)
	if !ok || sp == nil {
		return fmt.Errorf("soft: foreign program %T", p)
	}
	if sp.disposed {
		return gpu.ErrDisposed
	}
	if sp.kind != kind {
		return fmt.Errorf("soft: %s program used as %s", sp.kind, kind)
	}
	return nil
}

func texture(t gpu.Texture) (*Texture, error) {
	st, ok := t.(*Texture)
	if !ok || st == nil {
		return nil, fmt.Errorf("soft: foreign texture %T", t)
	}
	if st.disposed {
		return nil, gpu.ErrDisposed
	}
	return st, nil
}

// Simulate computes one generation of src into dst.
func (d *Device) Simulate(p gpu.Program, src, dst gpu.Texture, u gpu.SimUniforms) error {
	if err := d.program(p, gpu.Simulator); err != nil {
		return err
	}
	in, err := texture(src)
	if err != nil {
		return err
	}
	out, err := texture(dst)
	if err != nil {
		return err
	}
	size := out.Size()
	if in == out || in.Size() != size {
		return fmt.Errorf("%w: source %v, target %v", gpu.ErrIncompleteTarget, in.Size(), size)
	}
	if d.viewport != image.Rect(0, 0, size.W, size.H) {
		return fmt.Errorf("%w: viewport %v does not cover %v target", gpu.ErrIncompleteTarget, d.viewport, size)
	}
	if int(u.Scale.X()) != size.W || int(u.Scale.Y()) != size.H {
		return fmt.Errorf("%w: scale %v for %v target", gpu.ErrIncompleteTarget, u.Scale, size)
	}

	cur := in.cells
	for y := 0; y < size.H; y++ {
		for x := 0; x < size.W; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if cur.Alive(x+dx, y+dy) {
						n++
					}
				}
			}
			group := 0
			if cur.Alive(x, y) {
				group = 1
			}
			alive := u.Rules[group*core.NeighborStates+n] >= 0.5
			core.SetCell(out.cells.Pix[out.cells.Index(x, y):], alive)
		}
	}
	d.Passes++
	return nil
}

func surface(s gpu.Surface) (draw.Image, error) {
	img, ok := s.(draw.Image)
	if !ok {
		return nil, fmt.Errorf("%w: surface %T is not drawable", gpu.ErrIncompleteTarget, s)
	}
	return img, nil
}

// Clear fills the viewport of dst.
func (d *Device) Clear(dst gpu.Surface, c color.Color) error {
	img, err := surface(dst)
	if err != nil {
		return err
	}
	r := d.viewport.Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

// DrawGrid rasterizes the grid quad by mapping every viewport pixel center
// back into model space and sampling the nearest cell.
func (d *Device) DrawGrid(p gpu.Program, dst gpu.Surface, tex gpu.Texture, vp mgl32.Mat4) error {
	if err := d.program(p, gpu.Renderer); err != nil {
		return err
	}
	t, err := texture(tex)
	if err != nil {
		return err
	}
	img, err := surface(dst)
	if err != nil {
		return err
	}
	vw, vh := d.viewport.Dx(), d.viewport.Dy()
	if vw <= 0 || vh <= 0 {
		return nil
	}
	inv := vp.Inv()
	size := t.Size()
	on := color.RGBA{R: core.Alive, G: core.Alive, B: core.Alive, A: 0xff}
	off := color.RGBA{A: 0xff}

	r := d.viewport.Intersect(img.Bounds())
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			ndc := mgl32.Vec4{
				2*(float32(px-d.viewport.Min.X)+0.5)/float32(vw) - 1,
				1 - 2*(float32(py-d.viewport.Min.Y)+0.5)/float32(vh),
				0,
				1,
			}
			m := inv.Mul4x1(ndc)
			mx, my := m.X()/m.W(), m.Y()/m.W()
			if mx < -1 || mx >= 1 || my < -1 || my >= 1 {
				continue
			}
			cx := clampCell(int(math.Floor(float64((mx+1)/2*float32(size.W)))), size.W)
			cy := clampCell(int(math.Floor(float64((my+1)/2*float32(size.H)))), size.H)
			c := off
			if core.IsAlive(t.cells.Pix[t.cells.Index(cx, cy):]) {
				c = on
			}
			img.Set(px, py, c)
		}
	}
	return nil
}

func clampCell(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
