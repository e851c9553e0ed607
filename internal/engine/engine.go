// Package engine runs a cellular automaton on a gpu.Device.
//
// An Engine is confined to the render thread: Initialize, Step, InjectNoise,
// Reset, Capture, Render and Frame must be called from the goroutine that
// owns the device. Other goroutines use the Request* methods, which post
// tasks to the engine queue, and the camera methods Pan and Scale, which are
// lock-protected. Frame drains the queue and then draws.
package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"gpu-life/internal/camera"
	"gpu-life/internal/core"
	"gpu-life/internal/gpu"
	"gpu-life/internal/pattern"
	"gpu-life/internal/shader"
)

var (
	// ErrNotInitialized is returned by operations that need GPU resources
	// before Initialize succeeded.
	ErrNotInitialized = errors.New("engine: not initialized")
	// ErrPattern reports an unusable initial or noise pattern.
	ErrPattern = errors.New("engine: invalid pattern")
)

// Config holds engine tunables.
type Config struct {
	// MaxTextureSize is the largest texture edge the device supports.
	MaxTextureSize int
	// WorldScale divides MaxTextureSize to give the grid edge.
	WorldScale int
	// HalfExtent is the half height of the visible model space at zoom 1.
	HalfExtent float32
	// SeedCount is the number of noise stamps per RequestNoise.
	SeedCount int
	// NoiseSeed seeds the stamp placement RNG.
	NoiseSeed int64
	// DeadRule and LiveRule are the initial birth and survival masks.
	DeadRule int
	LiveRule int
	// Background is the clear color behind the grid.
	Background color.RGBA
}

// DefaultConfig returns the standard configuration: a 2048x2048 Conway grid.
func DefaultConfig() Config {
	return Config{
		MaxTextureSize: 4096,
		WorldScale:     2,
		HalfExtent:     camera.DefaultHalfExtent,
		SeedCount:      1,
		NoiseSeed:      1,
		DeadRule:       core.ConwayDead,
		LiveRule:       core.ConwayLive,
		Background:     color.RGBA{R: 25, G: 25, B: 25, A: 255},
	}
}

// GridSize returns the grid dimensions implied by the configuration.
func (c Config) GridSize() core.Size {
	scale := c.WorldScale
	if scale <= 0 {
		scale = 1
	}
	edge := c.MaxTextureSize / scale
	return core.Size{W: edge, H: edge}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxTextureSize <= 0 {
		return fmt.Errorf("engine: max texture size %d must be positive", c.MaxTextureSize)
	}
	if c.WorldScale <= 0 || c.WorldScale > c.MaxTextureSize {
		return fmt.Errorf("engine: world scale %d out of range", c.WorldScale)
	}
	if c.HalfExtent <= 0 {
		return fmt.Errorf("engine: half extent %v must be positive", c.HalfExtent)
	}
	if c.SeedCount < 0 {
		return fmt.Errorf("engine: seed count %d must not be negative", c.SeedCount)
	}
	return nil
}

// Engine owns the grid textures, both programs and the camera.
type Engine struct {
	cfg   Config
	dev   gpu.Device
	cam   *camera.Camera
	queue *Queue
	rng   *core.RNG

	rules      atomic.Pointer[core.RuleTable]
	generation atomic.Uint64
	redraw     atomic.Bool

	simulator gpu.Program
	renderer  gpu.Program
	grid      *grid
	initial   *core.CellBuffer
	noise     *core.CellBuffer
}

// New creates an engine bound to dev. No GPU resources are created until
// Initialize.
func New(dev gpu.Device, cfg Config) *Engine {
	e := &Engine{
		cfg:   cfg,
		dev:   dev,
		cam:   camera.New(cfg.HalfExtent),
		queue: NewQueue(),
		rng:   core.NewRNG(cfg.NoiseSeed),
	}
	e.SetRules(cfg.DeadRule, cfg.LiveRule)
	return e
}

// Initialize builds the initial state from the pattern, stores the noise
// stamp, compiles both programs and allocates the grid. On error the engine
// stays uninitialized and holds no GPU resources.
func (e *Engine) Initialize(initial, noise *core.CellBuffer, src shader.Sources) error {
	size := e.cfg.GridSize()
	if size.Empty() {
		return fmt.Errorf("engine: grid size %dx%d", size.W, size.H)
	}
	if initial == nil {
		return fmt.Errorf("%w: no initial pattern", ErrPattern)
	}
	if noise == nil {
		return fmt.Errorf("%w: no noise pattern", ErrPattern)
	}
	if noise.W > size.W || noise.H > size.H {
		return fmt.Errorf("%w: noise %dx%d larger than grid %dx%d", ErrPattern, noise.W, noise.H, size.W, size.H)
	}

	simulator, err := e.dev.CompileProgram(gpu.Simulator, src.Simulator)
	if err != nil {
		return fmt.Errorf("engine: simulator program: %w", err)
	}
	renderer, err := e.dev.CompileProgram(gpu.Renderer, src.Renderer)
	if err != nil {
		simulator.Dispose()
		return fmt.Errorf("engine: renderer program: %w", err)
	}

	start := pattern.Center(initial, size.W, size.H)
	g, err := newGrid(e.dev, size, start.Pix)
	if err != nil {
		simulator.Dispose()
		renderer.Dispose()
		return err
	}

	e.Dispose()
	e.simulator, e.renderer, e.grid = simulator, renderer, g
	e.initial = start
	e.noise = noise
	e.generation.Store(0)
	e.redraw.Store(true)
	Logger().Info("engine initialized", "grid", fmt.Sprintf("%dx%d", size.W, size.H), "rules", e.Rules().String())
	return nil
}

// Dispose releases every GPU resource. The engine must be initialized again
// before further use.
func (e *Engine) Dispose() {
	if e.grid != nil {
		e.grid.dispose()
		e.grid = nil
	}
	if e.simulator != nil {
		e.simulator.Dispose()
		e.simulator = nil
	}
	if e.renderer != nil {
		e.renderer.Dispose()
		e.renderer = nil
	}
}

func (e *Engine) ready() bool {
	return e.grid != nil && e.simulator != nil && e.renderer != nil
}

// Size returns the live grid dimensions, or the configured ones before
// Initialize.
func (e *Engine) Size() core.Size {
	if e.grid != nil {
		return e.grid.size
	}
	return e.cfg.GridSize()
}

// Generation returns the number of generations computed since the last
// Initialize, Reset or Rebuild.
func (e *Engine) Generation() uint64 { return e.generation.Load() }

// Camera exposes the camera for read-only use by the host.
func (e *Engine) Camera() *camera.Camera { return e.cam }

// SetRules replaces the transition table. Only the low nine bits of each
// mask are used. Safe for concurrent use; the next Step picks it up.
func (e *Engine) SetRules(dead, live int) {
	t := core.NewRuleTable(dead, live)
	e.rules.Store(&t)
}

// Rules returns the active transition table.
func (e *Engine) Rules() core.RuleTable { return *e.rules.Load() }

// OnViewportResize records a new display size. Render thread only.
func (e *Engine) OnViewportResize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	e.dev.SetViewport(image.Rect(0, 0, w, h))
	e.cam.Resize(w, h)
	e.redraw.Store(true)
}

// ScreenToModel maps a point in viewport pixels to model space using the
// last viewport size.
func (e *Engine) ScreenToModel(p mgl32.Vec2) mgl32.Vec2 {
	w, h := e.cam.Viewport()
	return e.cam.ScreenToModel(p, w, h)
}

// Pan moves the view by a model-space delta. Safe for concurrent use.
func (e *Engine) Pan(delta mgl32.Vec2) {
	e.cam.Pan(delta)
	e.redraw.Store(true)
}

// Scale zooms around a model-space focus point. Safe for concurrent use.
func (e *Engine) Scale(factor float32, focus mgl32.Vec2) error {
	if err := e.cam.Scale(factor, focus); err != nil {
		return err
	}
	e.redraw.Store(true)
	return nil
}

// ResetView drops accumulated pan and zoom. Safe for concurrent use.
func (e *Engine) ResetView() {
	e.cam.ResetView()
	e.redraw.Store(true)
}

// Step advances the grid by one generation. If the device cannot bind the
// target the generation is dropped: the error is logged, the buffers keep
// their roles and Step returns nil.
func (e *Engine) Step() error {
	if !e.ready() {
		return ErrNotInitialized
	}
	size := e.grid.size

	saved := e.dev.Viewport()
	defer e.dev.SetViewport(saved)
	e.dev.SetViewport(image.Rect(0, 0, size.W, size.H))

	u := gpu.SimUniforms{
		Rules: e.Rules().Uniform(),
		Scale: mgl32.Vec2{float32(size.W), float32(size.H)},
	}
	if err := e.dev.Simulate(e.simulator, e.grid.Front(), e.grid.Back(), u); err != nil {
		if errors.Is(err, gpu.ErrIncompleteTarget) {
			Logger().Warn("generation dropped", "generation", e.Generation(), "err", err)
			return nil
		}
		return fmt.Errorf("engine: simulate: %w", err)
	}
	e.grid.swap()
	e.generation.Add(1)
	e.redraw.Store(true)
	return nil
}

// Render draws the current generation into dst through the camera. Device
// errors are logged, never returned.
func (e *Engine) Render(dst gpu.Surface) {
	if !e.ready() {
		Logger().Debug("render skipped", "err", ErrNotInitialized)
		return
	}
	if err := e.dev.Clear(dst, e.cfg.Background); err != nil {
		Logger().Warn("clear failed", "err", err)
	}
	if err := e.dev.DrawGrid(e.renderer, dst, e.grid.Front(), e.cam.ViewProjection()); err != nil {
		Logger().Warn("draw failed", "err", err)
	}
}

// Frame runs all queued tasks and then renders. Render thread only.
func (e *Engine) Frame(dst gpu.Surface) {
	e.queue.Drain()
	e.redraw.Store(false)
	e.Render(dst)
}

// NeedsRedraw reports whether anything visible changed since the last Frame.
func (e *Engine) NeedsRedraw() bool { return e.redraw.Load() || e.queue.Len() > 0 }

// Queue returns the render-thread task queue.
func (e *Engine) Queue() *Queue { return e.queue }

// Post queues fn to run on the render thread with the engine.
func (e *Engine) Post(fn func(*Engine)) {
	e.queue.Post(func() { fn(e) })
	e.redraw.Store(true)
}

// RequestStep queues one generation.
func (e *Engine) RequestStep() {
	e.Post(func(e *Engine) {
		if err := e.Step(); err != nil {
			Logger().Error("step failed", "err", err)
		}
	})
}

// RequestNoise queues SeedCount noise stamps.
func (e *Engine) RequestNoise() {
	e.Post(func(e *Engine) {
		if err := e.InjectNoise(e.cfg.SeedCount); err != nil {
			Logger().Error("noise failed", "err", err)
		}
	})
}

// RequestReset queues a reset to the initial state.
func (e *Engine) RequestReset() {
	e.Post(func(e *Engine) {
		if err := e.Reset(); err != nil {
			Logger().Error("reset failed", "err", err)
		}
	})
}
