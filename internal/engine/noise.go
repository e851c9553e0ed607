package engine

import (
	"fmt"

	"gpu-life/internal/gpu"
)

// InjectNoise stamps the noise pattern count times at random offsets of the
// front buffer. Offsets may be negative or run past the far edge; the stamp
// wraps around the grid the way a REPEAT texture does. Render thread only.
func (e *Engine) InjectNoise(count int) error {
	if !e.ready() {
		return ErrNotInitialized
	}
	if count <= 0 || e.noise == nil {
		return nil
	}
	size := e.grid.size
	front := e.grid.Front()
	for i := 0; i < count; i++ {
		x := e.rng.Offset(size.W, e.noise.W)
		y := e.rng.Offset(size.H, e.noise.H)
		if err := gpu.WriteWrapped(front, x, y, e.noise.W, e.noise.H, e.noise.Pix); err != nil {
			return fmt.Errorf("engine: noise stamp at (%d,%d): %w", x, y, err)
		}
	}
	e.redraw.Store(true)
	return nil
}
