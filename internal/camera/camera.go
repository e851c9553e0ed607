// Package camera holds the view and projection matrices that place the grid
// on screen and maps screen points back into model space.
//
// Model space spans [-1, 1] in both axes for the whole grid. The projection is
// orthographic and keeps the aspect ratio of the viewport; the view matrix
// accumulates pan and zoom. All methods are safe for concurrent use: input
// goroutines may pan and zoom while the render thread reads ViewProjection.
package camera

import (
	"errors"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultHalfExtent is the half height of the visible model space at zoom 1.
const DefaultHalfExtent = 1.0

// Bounds on the accumulated zoom. Outside them float32 matrices lose the
// precision needed for an invertible view-projection.
const (
	MinZoom = 1e-6
	MaxZoom = 1e6
)

// ErrDegenerateScale rejects zoom factors that would make the transform
// non-invertible.
var ErrDegenerateScale = errors.New("camera: scale factor must be finite and positive and keep zoom in range")

// Camera owns the view, projection and combined view-projection matrices.
type Camera struct {
	mu sync.RWMutex

	halfExtent float32
	width      int
	height     int

	view mgl32.Mat4
	proj mgl32.Mat4
	vp   mgl32.Mat4
	inv  mgl32.Mat4
	zoom float32
}

// New returns a camera with identity matrices. halfExtent <= 0 selects
// DefaultHalfExtent.
func New(halfExtent float32) *Camera {
	if halfExtent <= 0 || isBad(halfExtent) {
		halfExtent = DefaultHalfExtent
	}
	c := &Camera{
		halfExtent: halfExtent,
		view:       mgl32.Ident4(),
		proj:       mgl32.Ident4(),
		zoom:       1,
	}
	c.update()
	return c
}

// Resize recomputes the projection for a viewport of w by h pixels. It must be
// called before ScreenToModel returns meaningful points. Non-positive sizes
// are ignored.
func (c *Camera) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = w, h
	ratio := float32(w) / float32(h)
	e := c.halfExtent
	c.proj = mgl32.Ortho(-e*ratio, e*ratio, -e, e, -1, 1)
	c.update()
}

// Viewport returns the size passed to the last Resize.
func (c *Camera) Viewport() (w, h int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// Pan translates the view by delta, expressed in model units.
func (c *Camera) Pan(delta mgl32.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = c.view.Mul4(mgl32.Translate3D(delta.X(), delta.Y(), 0))
	c.update()
}

// Scale zooms by factor in x and y, keeping focus (a model-space point) fixed
// on screen. A factor that would push the accumulated zoom outside
// [MinZoom, MaxZoom] is rejected and leaves the camera unchanged.
func (c *Camera) Scale(factor float32, focus mgl32.Vec2) error {
	if factor <= 0 || isBad(factor) || isBad(focus.X()) || isBad(focus.Y()) {
		return ErrDegenerateScale
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	zoom := c.zoom * factor
	if zoom < MinZoom || zoom > MaxZoom || isBad(zoom) {
		return ErrDegenerateScale
	}
	view := c.view.
		Mul4(mgl32.Translate3D(focus.X(), focus.Y(), 0)).
		Mul4(mgl32.Scale3D(factor, factor, 1)).
		Mul4(mgl32.Translate3D(-focus.X(), -focus.Y(), 0))
	if det := c.proj.Mul4(view).Det(); det == 0 || isBad(det) {
		return ErrDegenerateScale
	}
	c.view = view
	c.zoom = zoom
	c.update()
	return nil
}

// ResetView drops all accumulated pan and zoom.
func (c *Camera) ResetView() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = mgl32.Ident4()
	c.zoom = 1
	c.update()
}

// Zoom returns the accumulated scale factor.
func (c *Camera) Zoom() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zoom
}

// View returns a copy of the view matrix.
func (c *Camera) View() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Projection returns a copy of the projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proj
}

// ViewProjection returns a consistent copy of projection * view.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vp
}

// ScreenToModel maps a point in viewport pixels (y down) to model space.
func (c *Camera) ScreenToModel(p mgl32.Vec2, vw, vh int) mgl32.Vec2 {
	c.mu.RLock()
	inv := c.inv
	c.mu.RUnlock()
	ndc := mgl32.Vec4{
		2*p.X()/float32(vw) - 1,
		1 - 2*p.Y()/float32(vh),
		0,
		1,
	}
	m := inv.Mul4x1(ndc)
	return mgl32.Vec2{m.X() / m.W(), m.Y() / m.W()}
}

// ModelToScreen projects a model-space point to viewport pixels (y down).
func (c *Camera) ModelToScreen(p mgl32.Vec2, vw, vh int) mgl32.Vec2 {
	return Project(c.ViewProjection(), p, vw, vh)
}

// Project applies vp to a model-space point and converts the result to
// viewport pixels with y growing downward.
func Project(vp mgl32.Mat4, p mgl32.Vec2, vw, vh int) mgl32.Vec2 {
	clip := vp.Mul4x1(mgl32.Vec4{p.X(), p.Y(), 0, 1})
	nx, ny := clip.X()/clip.W(), clip.Y()/clip.W()
	return mgl32.Vec2{
		(nx + 1) * 0.5 * float32(vw),
		(1 - ny) * 0.5 * float32(vh),
	}
}

// update must be called with the write lock held.
func (c *Camera) update() {
	c.vp = c.proj.Mul4(c.view)
	c.inv = c.vp.Inv()
}

func isBad(f float32) bool {
	return math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)
}
