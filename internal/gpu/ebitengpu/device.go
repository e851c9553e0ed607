//go:build ebiten

// Package ebitengpu implements gpu.Device on top of ebiten images and Kage
// shaders. Textures are unmanaged ebiten images; the simulator runs as a
// rect shader pass and the renderer as a textured quad whose corners are
// projected on the CPU.
//
// Like every ebiten image operation, the device must be driven from the game
// loop (Update, Draw or Layout).
package ebitengpu

import (
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"

	"gpu-life/internal/core"
	"gpu-life/internal/gpu"
	"gpu-life/internal/render"
)

// Device is a gpu.Device backed by ebiten.
type Device struct {
	viewport image.Rectangle
	// scratch holds RGBA staging bytes for uploads and readbacks.
	scratch []byte
}

var _ gpu.Device = (*Device)(nil)

// New returns a device whose viewport covers a w*h screen.
func New(w, h int) *Device {
	return &Device{viewport: image.Rect(0, 0, w, h)}
}

func (d *Device) Viewport() image.Rectangle     { return d.viewport }
func (d *Device) SetViewport(r image.Rectangle) { d.viewport = r }

func (d *Device) staging(n int) []byte {
	if cap(d.scratch) < n {
		d.scratch = make([]byte, n)
	}
	return d.scratch[:n]
}

// Texture wraps an unmanaged ebiten image.
type Texture struct {
	dev  *Device
	img  *ebiten.Image
	size core.Size
}

// NewTexture allocates an unmanaged w*h image, optionally filled from rgb.
func (d *Device) NewTexture(w, h int, rgb []byte) (gpu.Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: texture size %dx%d", gpu.ErrBadRegion, w, h)
	}
	img := ebiten.NewImageWithOptions(image.Rect(0, 0, w, h), &ebiten.NewImageOptions{Unmanaged: true})
	t := &Texture{dev: d, img: img, size: core.Size{W: w, H: h}}
	if rgb != nil {
		if err := t.WriteRegion(0, 0, w, h, rgb); err != nil {
			img.Dispose()
			return nil, err
		}
	}
	return t, nil
}

func (t *Texture) Size() core.Size { return t.size }

// WriteRegion uploads rgb into the w*h rectangle at (x, y).
func (t *Texture) WriteRegion(x, y, w, h int, rgb []byte) error {
	if t.img == nil {
		return gpu.ErrDisposed
	}
	if err := gpu.CheckRegion(t.size, x, y, w, h, rgb); err != nil {
		return err
	}
	if w == 0 || h == 0 {
		return nil
	}
	rgba := t.dev.staging(w * h * 4)
	render.RGBToRGBA(rgba, rgb)
	sub := t.img.SubImage(image.Rect(x, y, x+w, y+h)).(*ebiten.Image)
	sub.WritePixels(rgba)
	return nil
}

// ReadPixels reads the whole texture back into rgb. This stalls until the
// GPU has finished every pending draw into the image.
func (t *Texture) ReadPixels(rgb []byte) error {
	if t.img == nil {
		return gpu.ErrDisposed
	}
	if len(rgb) != t.size.Cells()*core.Channels {
		return fmt.Errorf("%w: %d bytes for %dx%d readback", gpu.ErrBadRegion, len(rgb), t.size.W, t.size.H)
	}
	rgba := t.dev.staging(t.size.Cells() * 4)
	t.img.ReadPixels(rgba)
	render.RGBAToRGB(rgb, rgba)
	return nil
}

func (t *Texture) Dispose() {
	if t.img != nil {
		t.img.Dispose()
		t.img = nil
	}
}

// Program is a compiled Kage shader.
type Program struct {
	kind   gpu.ProgramKind
	shader *ebiten.Shader
}

func (p *Program) Kind() gpu.ProgramKind { return p.kind }

func (p *Program) Dispose() {
	if p.shader != nil {
		p.shader.Dispose()
		p.shader = nil
	}
}

// CompileProgram compiles the Kage fragment source. Kage has a fixed vertex
// stage, so the vertex source is unused.
func (d *Device) CompileProgram(kind gpu.ProgramKind, src gpu.ProgramSource) (gpu.Program, error) {
	if src.Fragment == "" {
		return nil, fmt.Errorf("%w: %s: empty fragment source", gpu.ErrCompile, kind)
	}
	s, err := ebiten.NewShader([]byte(src.Fragment))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gpu.ErrCompile, kind, err)
	}
	return &Program{kind: kind, shader: s}, nil
}

func program(p gpu.Program, kind gpu.ProgramKind) (*ebiten.Shader, error) {
	ep, ok := p.(*Program)
	if !ok || ep == nil {
		return nil, fmt.Errorf("ebitengpu: foreign program %T", p)
	}
	if ep.shader == nil {
		return nil, gpu.ErrDisposed
	}
	if ep.kind != kind {
		return nil, fmt.Errorf("ebitengpu: %s program used as %s", ep.kind, kind)
	}
	return ep.shader, nil
}

func texture(t gpu.Texture) (*Texture, error) {
	et, ok := t.(*Texture)
	if !ok || et == nil {
		return nil, fmt.Errorf("ebitengpu: foreign texture %T", t)
	}
	if et.img == nil {
		return nil, gpu.ErrDisposed
	}
	return et, nil
}

func surface(s gpu.Surface) (*ebiten.Image, error) {
	img, ok := s.(*ebiten.Image)
	if !ok || img == nil {
		return nil, fmt.Errorf("%w: surface %T is not an ebiten image", gpu.ErrIncompleteTarget, s)
	}
	return img, nil
}

// Simulate runs the simulator over every cell of dst, sampling src.
func (d *Device) Simulate(p gpu.Program, src, dst gpu.Texture, u gpu.SimUniforms) error {
	shader, err := program(p, gpu.Simulator)
	if err != nil {
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
	size := out.size
	if in == out || in.size != size {
		return fmt.Errorf("%w: source %v, target %v", gpu.ErrIncompleteTarget, in.size, size)
	}
	if d.viewport != image.Rect(0, 0, size.W, size.H) {
		return fmt.Errorf("%w: viewport %v does not cover %v target", gpu.ErrIncompleteTarget, d.viewport, size)
	}

	op := &ebiten.DrawRectShaderOptions{Blend: ebiten.BlendCopy}
	op.Images[0] = in.img
	op.Uniforms = map[string]any{
		"Scale": []float32{u.Scale.X(), u.Scale.Y()},
		"Rules": u.Rules[:],
	}
	out.img.DrawRectShader(size.W, size.H, shader, op)
	return nil
}

// Clear fills the viewport of dst with c.
func (d *Device) Clear(dst gpu.Surface, c color.Color) error {
	img, err := surface(dst)
	if err != nil {
		return err
	}
	r := d.viewport.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	img.SubImage(r).(*ebiten.Image).Fill(c)
	return nil
}

// DrawGrid draws tex as the quad [-1,1]^2 under vp, clipped to the viewport.
func (d *Device) DrawGrid(p gpu.Program, dst gpu.Surface, tex gpu.Texture, vp mgl32.Mat4) error {
	shader, err := program(p, gpu.Renderer)
	if err != nil {
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
	r := d.viewport.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}

	corners := gpu.ProjectQuad(vp, d.viewport)
	vertices := make([]ebiten.Vertex, len(corners))
	for i, c := range corners {
		uv := gpu.QuadCorners[i].UV
		vertices[i] = ebiten.Vertex{
			DstX:   c.X(),
			DstY:   c.Y(),
			SrcX:   uv.X() * float32(t.size.W),
			SrcY:   uv.Y() * float32(t.size.H),
			ColorR: 1,
			ColorG: 1,
			ColorB: 1,
			ColorA: 1,
		}
	}
	op := &ebiten.DrawTrianglesShaderOptions{}
	op.Images[0] = t.img
	img.SubImage(r).(*ebiten.Image).DrawTrianglesShader(vertices, gpu.QuadIndices[:], shader, op)
	return nil
}
