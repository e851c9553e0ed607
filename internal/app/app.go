//go:build ebiten

package app

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gpu-life/internal/core"
	"gpu-life/internal/engine"
	"gpu-life/internal/state"
	"gpu-life/internal/ui"
)

// zoomStep is the scale factor applied per wheel notch.
const zoomStep = 1.1

// Game adapts the engine to the ebiten.Game interface.
type Game struct {
	cfg    *Config
	eng    *engine.Engine
	assets Assets
	timer  *core.FixedStep
	hud    *ui.HUD

	initialized bool
	dragging    bool
	lastX       int
	lastY       int
	width       int
	height      int
}

// New constructs a Game. The engine is initialized on the first Update, once
// the graphics context exists.
func New(cfg *Config, eng *engine.Engine, assets Assets) *Game {
	return &Game{
		cfg:    cfg,
		eng:    eng,
		assets: assets,
		timer:  core.NewFixedStep(cfg.Period),
		hud:    ui.NewHUD(eng, "Game of Life", cfg.HUDWidth),
	}
}

// Update handles input and schedules generations.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if !g.initialized {
		if err := g.eng.Initialize(g.assets.Initial, g.assets.Noise, g.assets.Shaders); err != nil {
			return err
		}
		g.initialized = true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		running := g.timer.Toggle()
		engine.Logger().Info("simulation toggled", "running", running)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.eng.RequestStep()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.eng.RequestReset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		g.eng.RequestNoise()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.eng.ResetView()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.save()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		g.load()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		g.timer.SetPeriod(g.timer.Period() / 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		g.timer.SetPeriod(g.timer.Period() * 2)
	}

	consumed := g.hud.Update(g.width)
	g.handlePointer(consumed)

	if g.timer.ShouldStep() {
		g.eng.RequestStep()
	}
	return nil
}

// handlePointer turns drags into pans and wheel motion into zoom about the
// cursor.
func (g *Game) handlePointer(consumed bool) {
	x, y := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.dragging = !consumed && !g.hud.Contains(x, y)
	case !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		g.dragging = false
	case g.dragging && (x != g.lastX || y != g.lastY):
		// Both points go through the current transform, so the model point
		// under the cursor stays under it.
		from := g.eng.ScreenToModel(mgl32.Vec2{float32(g.lastX), float32(g.lastY)})
		to := g.eng.ScreenToModel(mgl32.Vec2{float32(x), float32(y)})
		g.eng.Pan(to.Sub(from))
	}
	g.lastX, g.lastY = x, y

	if _, dy := ebiten.Wheel(); dy != 0 && !g.hud.Contains(x, y) {
		factor := float32(math.Pow(zoomStep, dy))
		focus := g.eng.ScreenToModel(mgl32.Vec2{float32(x), float32(y)})
		if err := g.eng.Scale(factor, focus); err != nil {
			engine.Logger().Warn("zoom rejected", "factor", factor, "err", err)
		}
	}
}

// save captures on the render thread and writes the file off it.
func (g *Game) save() {
	path := g.cfg.Snapshot
	g.eng.RequestCapture(func(s state.Snapshot, err error) {
		if err != nil {
			engine.Logger().Error("capture failed", "err", err)
			return
		}
		go func() {
			if err := state.Save(path, s); err != nil {
				engine.Logger().Error("save failed", "path", path, "err", err)
				return
			}
			engine.Logger().Info("snapshot saved", "path", path, "size", s.Size())
		}()
	})
}

// load reads the file off the render thread and queues the restore.
func (g *Game) load() {
	path := g.cfg.Snapshot
	go func() {
		s, err := state.Load(path)
		if err != nil {
			engine.Logger().Error("load failed", "path", path, "err", err)
			return
		}
		g.eng.RequestRestore(s, func(err error) {
			if err == nil {
				engine.Logger().Info("snapshot restored", "path", path, "size", s.Size())
			}
		})
	}()
}

// Draw runs queued engine work and renders the grid and HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	g.eng.Frame(screen)
	g.hud.Draw(screen)
}

// Layout uses the full window and forwards size changes to the engine.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.eng.OnViewportResize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
