package engine

import (
	"fmt"

	"gpu-life/internal/core"
	"gpu-life/internal/state"
)

// Capture reads back the front buffer. It blocks the render thread for the
// full transfer.
func (e *Engine) Capture() (state.Snapshot, error) {
	if !e.ready() {
		return state.Snapshot{}, ErrNotInitialized
	}
	size := e.grid.size
	pix := make([]byte, size.Cells()*core.Channels)
	if err := e.grid.Front().ReadPixels(pix); err != nil {
		return state.Snapshot{}, fmt.Errorf("engine: capture: %w", err)
	}
	return state.Snapshot{Width: size.W, Height: size.H, Pixels: pix}, nil
}

// Restore makes s the state Reset returns to. The live grid is untouched. If
// the snapshot size differs from the grid, call Rebuild before Reset. Render
// thread only; other goroutines use RequestRestore.
func (e *Engine) Restore(s state.Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("engine: restore: %w", err)
	}
	c := s.Clone()
	e.initial = c.Cells()
	return nil
}

// InitialSize returns the dimensions of the stored initial state.
func (e *Engine) InitialSize() core.Size {
	if e.initial == nil {
		return core.Size{}
	}
	return e.initial.Size()
}

// Reset copies the initial state into the front buffer. The initial state
// must match the live grid; a mismatch is a programming error and panics.
func (e *Engine) Reset() error {
	if !e.ready() {
		return ErrNotInitialized
	}
	if e.initial.Size() != e.grid.size {
		panic(fmt.Sprintf("engine: reset with %dx%d initial state on %dx%d grid; call Rebuild first",
			e.initial.W, e.initial.H, e.grid.size.W, e.grid.size.H))
	}
	size := e.grid.size
	if err := e.grid.Front().WriteRegion(0, 0, size.W, size.H, e.initial.Pix); err != nil {
		return fmt.Errorf("engine: reset: %w", err)
	}
	e.generation.Store(0)
	e.redraw.Store(true)
	return nil
}

// Rebuild recreates both grid textures at the size of the initial state and
// loads it into the front buffer.
func (e *Engine) Rebuild() error {
	if !e.ready() {
		return ErrNotInitialized
	}
	if e.noise != nil && (e.noise.W > e.initial.W || e.noise.H > e.initial.H) {
		return fmt.Errorf("%w: noise %dx%d larger than grid %dx%d", ErrPattern, e.noise.W, e.noise.H, e.initial.W, e.initial.H)
	}
	g, err := newGrid(e.dev, e.initial.Size(), e.initial.Pix)
	if err != nil {
		return err
	}
	e.grid.dispose()
	e.grid = g
	e.generation.Store(0)
	e.redraw.Store(true)
	Logger().Info("grid rebuilt", "grid", fmt.Sprintf("%dx%d", g.size.W, g.size.H))
	return nil
}

// RequestCapture queues a capture and hands the result to done on the
// render thread.
func (e *Engine) RequestCapture(done func(state.Snapshot, error)) {
	e.Post(func(e *Engine) {
		s, err := e.Capture()
		done(s, err)
	})
}

// RequestRestore queues Restore followed by Rebuild when the size changed
// and Reset, so the grid shows s afterwards. done may be nil.
func (e *Engine) RequestRestore(s state.Snapshot, done func(error)) {
	e.Post(func(e *Engine) {
		err := e.restoreAndReset(s)
		if err != nil {
			Logger().Error("restore failed", "err", err)
		}
		if done != nil {
			done(err)
		}
	})
}

// restoreAndReset commits s only if the grid can take it; on failure the
// previous initial state stays in place so a later Reset cannot mismatch.
func (e *Engine) restoreAndReset(s state.Snapshot) error {
	if !e.ready() {
		return ErrNotInitialized
	}
	prev := e.initial
	if err := e.Restore(s); err != nil {
		return err
	}
	if e.initial.Size() == e.grid.size {
		return e.Reset()
	}
	if err := e.Rebuild(); err != nil {
		e.initial = prev
		return err
	}
	return nil
}
