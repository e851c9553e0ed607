package engine

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"gpu-life/internal/core"
	"gpu-life/internal/gpu"
	"gpu-life/internal/gpu/soft"
	"gpu-life/internal/shader"
	"gpu-life/internal/state"
)

func testConfig(edge int) Config {
	cfg := DefaultConfig()
	cfg.MaxTextureSize = edge
	cfg.WorldScale = 1
	return cfg
}

func newTestEngine(t *testing.T, edge int, initial *core.CellBuffer) (*Engine, *soft.Device) {
	t.Helper()
	dev := soft.New(64, 48)
	e := New(dev, testConfig(edge))
	if initial == nil {
		initial = core.NewCellBuffer(edge, edge)
	}
	noise := core.NewCellBuffer(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			noise.Set(x, y, true)
		}
	}
	if err := e.Initialize(initial, noise, shader.Default()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e, dev
}

func frontCells(t *testing.T, e *Engine) *core.CellBuffer {
	t.Helper()
	snap, err := e.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	return snap.Cells()
}

func TestBlinkerOscillates(t *testing.T) {
	start := core.NewCellBuffer(8, 8)
	start.Set(3, 3, true)
	start.Set(3, 4, true)
	start.Set(3, 5, true)
	e, _ := newTestEngine(t, 8, start)

	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	cells := frontCells(t, e)
	expects := map[[2]int]bool{{2, 4}: true, {3, 4}: true, {4, 4}: true}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got, want := cells.Alive(x, y), expects[[2]int{x, y}]; got != want {
				t.Fatalf("cell (%d,%d) alive=%v, expected %v", x, y, got, want)
			}
		}
	}

	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(frontCells(t, e).Pix, start.Pix) {
		t.Fatal("blinker did not return to its starting phase after two steps")
	}
	if e.Generation() != 2 {
		t.Fatalf("generation = %d, want 2", e.Generation())
	}
}

func TestStepSwapParity(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	front, back := e.grid.Front(), e.grid.Back()
	for n := 1; n <= 5; n++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
		want := front
		if n%2 == 1 {
			want = back
		}
		if e.grid.Front() != want {
			t.Fatalf("after %d steps the front texture has the wrong identity", n)
		}
	}
}

func TestStepRestoresViewport(t *testing.T) {
	e, dev := newTestEngine(t, 8, nil)
	e.OnViewportResize(320, 200)
	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	if got := dev.Viewport(); got != image.Rect(0, 0, 320, 200) {
		t.Fatalf("viewport after step = %v, want screen viewport", got)
	}
}

// brokenTarget fails every simulation pass as an incomplete framebuffer.
type brokenTarget struct{ *soft.Device }

func (b brokenTarget) Simulate(gpu.Program, gpu.Texture, gpu.Texture, gpu.SimUniforms) error {
	return fmt.Errorf("%w: forced", gpu.ErrIncompleteTarget)
}

func TestStepDropsFrameOnIncompleteTarget(t *testing.T) {
	dev := brokenTarget{soft.New(10, 10)}
	e := New(dev, testConfig(4))
	if err := e.Initialize(core.NewCellBuffer(4, 4), core.NewCellBuffer(1, 1), shader.Default()); err != nil {
		t.Fatal(err)
	}
	front := e.grid.Front()
	if err := e.Step(); err != nil {
		t.Fatalf("dropped frame should not be an error, got %v", err)
	}
	if e.grid.Front() != front {
		t.Fatal("buffers swapped after a failed pass")
	}
	if e.Generation() != 0 {
		t.Fatal("failed pass counted as a generation")
	}
	if got := dev.Viewport(); got != image.Rect(0, 0, 10, 10) {
		t.Fatalf("viewport not restored after failed pass: %v", got)
	}
	if _, err := e.Capture(); err != nil {
		t.Fatalf("front texture unusable after dropped frame: %v", err)
	}
}

func TestInitializeFailsOnBrokenProgram(t *testing.T) {
	e := New(soft.New(4, 4), testConfig(4))
	src := shader.Default()
	src.Renderer.Fragment = "package main\n"
	err := e.Initialize(core.NewCellBuffer(1, 1), core.NewCellBuffer(1, 1), src)
	if !errors.Is(err, gpu.ErrCompile) {
		t.Fatalf("Initialize err = %v, want ErrCompile", err)
	}
	if err := e.Step(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Step after failed init err = %v, want ErrNotInitialized", err)
	}
	if _, err := e.Capture(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Capture after failed init err = %v", err)
	}
}

func TestInitializeRejectsBadPatterns(t *testing.T) {
	e := New(soft.New(4, 4), testConfig(4))
	if err := e.Initialize(nil, core.NewCellBuffer(1, 1), shader.Default()); !errors.Is(err, ErrPattern) {
		t.Fatalf("nil initial err = %v", err)
	}
	if err := e.Initialize(core.NewCellBuffer(1, 1), core.NewCellBuffer(5, 1), shader.Default()); !errors.Is(err, ErrPattern) {
		t.Fatalf("oversized noise err = %v", err)
	}
}

func TestInitializeCentersPattern(t *testing.T) {
	p := core.NewCellBuffer(3, 1)
	p.Set(0, 0, true)
	e, _ := newTestEngine(t, 8, p)
	cells := frontCells(t, e)
	// offset = (8/2 - 3/2, 8/2 - 1/2) = (3, 4)
	if !cells.Alive(3, 4) || cells.Population() != 1 {
		t.Fatal("initial pattern not centered")
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	start := core.NewCellBuffer(16, 16)
	for _, c := range [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}} {
		start.Set(c[0]+6, c[1]+6, true)
	}
	e, _ := newTestEngine(t, 16, start)

	for i := 0; i < 7; i++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
		if err := e.InjectNoise(3); err != nil {
			t.Fatal(err)
		}
	}
	if slices.Equal(frontCells(t, e).Pix, start.Pix) {
		t.Fatal("grid unexpectedly unchanged before reset")
	}
	if err := e.Reset(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(frontCells(t, e).Pix, start.Pix) {
		t.Fatal("reset did not restore the initial bytes")
	}
	if e.Generation() != 0 {
		t.Fatal("reset did not clear the generation counter")
	}
}

func TestCaptureRestoreResetRoundTrip(t *testing.T) {
	start := core.NewCellBuffer(12, 12)
	start.Set(5, 5, true)
	start.Set(6, 5, true)
	start.Set(7, 5, true)
	start.Set(7, 6, true)
	e, _ := newTestEngine(t, 12, start)
	for i := 0; i < 3; i++ {
		_ = e.Step()
	}
	_ = e.InjectNoise(2)

	captured, err := e.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Restore(captured); err != nil {
		t.Fatal(err)
	}
	_ = e.Step()
	if err := e.Reset(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(frontCells(t, e).Pix, captured.Pixels) {
		t.Fatal("capture/restore/reset did not reproduce the captured bytes")
	}

	// Restore keeps its own copy.
	captured.Pixels[0] = 1
	if e.initial.Pix[0] == 1 {
		t.Fatal("Restore aliased the snapshot buffer")
	}
}

func TestRestoreDoesNotTouchLiveGrid(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	full := core.NewCellBuffer(8, 8)
	full.Set(1, 1, true)
	if err := e.Restore(state.Snapshot{Width: 8, Height: 8, Pixels: full.Pix}); err != nil {
		t.Fatal(err)
	}
	if frontCells(t, e).Population() != 0 {
		t.Fatal("Restore modified the front buffer")
	}
	if err := e.Restore(state.Snapshot{Width: 8, Height: 8, Pixels: make([]byte, 3)}); !errors.Is(err, state.ErrFormat) {
		t.Fatalf("invalid snapshot err = %v", err)
	}
}

func TestResetPanicsOnSizeMismatch(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	if err := e.Restore(state.Snapshot{Width: 4, Height: 4, Pixels: make([]byte, 4*4*3)}); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for mismatched reset")
		}
	}()
	_ = e.Reset()
}

func TestRebuildAdoptsSnapshotSize(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	small := core.NewCellBuffer(4, 6)
	small.Set(2, 3, true)
	if err := e.Restore(state.Snapshot{Width: 4, Height: 6, Pixels: small.Pix}); err != nil {
		t.Fatal(err)
	}
	if e.InitialSize() != (core.Size{W: 4, H: 6}) {
		t.Fatalf("initial size = %v", e.InitialSize())
	}
	if err := e.Rebuild(); err != nil {
		t.Fatal(err)
	}
	if e.Size() != (core.Size{W: 4, H: 6}) {
		t.Fatalf("grid size after rebuild = %v", e.Size())
	}
	if !slices.Equal(frontCells(t, e).Pix, small.Pix) {
		t.Fatal("rebuilt grid does not hold the restored state")
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("reset after rebuild: %v", err)
	}
}

func TestInjectNoiseStampsPattern(t *testing.T) {
	e, _ := newTestEngine(t, 16, nil)
	if err := e.InjectNoise(0); err != nil {
		t.Fatal(err)
	}
	if frontCells(t, e).Population() != 0 {
		t.Fatal("zero count must not stamp")
	}
	if err := e.InjectNoise(1); err != nil {
		t.Fatal(err)
	}
	if pop := frontCells(t, e).Population(); pop != 4 {
		t.Fatalf("one 2x2 stamp gave population %d, want 4", pop)
	}
	// Many stamps exercise negative offsets; none may fail.
	if err := e.InjectNoise(200); err != nil {
		t.Fatal(err)
	}
}

func TestInjectNoiseIsDeterministicPerSeed(t *testing.T) {
	a, _ := newTestEngine(t, 16, nil)
	b, _ := newTestEngine(t, 16, nil)
	_ = a.InjectNoise(5)
	_ = b.InjectNoise(5)
	if !slices.Equal(frontCells(t, a).Pix, frontCells(t, b).Pix) {
		t.Fatal("same seed produced different stamps")
	}
}

func TestSetRulesChangesStep(t *testing.T) {
	start := core.NewCellBuffer(8, 8)
	start.Set(4, 4, true)
	e, _ := newTestEngine(t, 8, start)

	// B1/S: every dead cell touching a live one is born, the live one dies.
	e.SetRules(1<<1, 0)
	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	cells := frontCells(t, e)
	if cells.Population() != 8 || cells.Alive(4, 4) {
		t.Fatalf("B1/S step gave population %d", cells.Population())
	}
	if e.Rules().String() != "B1/S" {
		t.Fatalf("rules = %s", e.Rules())
	}
}

func TestRequestsRunOnFrame(t *testing.T) {
	start := core.NewCellBuffer(8, 8)
	start.Set(3, 3, true)
	start.Set(3, 4, true)
	start.Set(3, 5, true)
	e, _ := newTestEngine(t, 8, start)
	e.OnViewportResize(64, 48)

	e.RequestStep()
	e.RequestStep()
	e.RequestStep()
	var captured state.Snapshot
	e.RequestCapture(func(s state.Snapshot, err error) {
		if err != nil {
			t.Errorf("capture: %v", err)
		}
		captured = s
	})
	e.RequestReset()
	if e.Generation() != 0 {
		t.Fatal("requests must not run before Frame")
	}
	if !e.NeedsRedraw() {
		t.Fatal("pending requests should ask for a redraw")
	}

	e.Frame(image.NewRGBA(image.Rect(0, 0, 64, 48)))
	if e.Queue().Len() != 0 {
		t.Fatal("Frame left tasks in the queue")
	}
	if captured.Cells().Population() != 3 || !captured.Cells().Alive(2, 4) {
		t.Fatal("capture did not run after the three queued steps")
	}
	if !slices.Equal(frontCells(t, e).Pix, start.Pix) || e.Generation() != 0 {
		t.Fatal("queued reset did not run last")
	}
	if e.NeedsRedraw() {
		t.Fatal("redraw flag not cleared by Frame")
	}
}

func TestRequestRestoreRebuildsWhenSizeDiffers(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	other := core.NewCellBuffer(6, 6)
	other.Set(0, 0, true)
	var got error = errors.New("not called")
	e.RequestRestore(state.Snapshot{Width: 6, Height: 6, Pixels: other.Pix}, func(err error) { got = err })
	e.Queue().Drain()
	if got != nil {
		t.Fatalf("restore: %v", got)
	}
	if e.Size() != (core.Size{W: 6, H: 6}) || !frontCells(t, e).Alive(0, 0) {
		t.Fatal("restored state not live")
	}
}

func TestFailedRequestRestoreKeepsInitialState(t *testing.T) {
	start := core.NewCellBuffer(8, 8)
	start.Set(2, 2, true)
	e, _ := newTestEngine(t, 8, start)

	// The 2x2 noise stamp cannot fit a 1x1 grid, so the rebuild fails.
	tiny := state.Snapshot{Width: 1, Height: 1, Pixels: make([]byte, core.Channels)}
	var got error
	e.RequestRestore(tiny, func(err error) { got = err })
	e.Queue().Drain()
	if !errors.Is(got, ErrPattern) {
		t.Fatalf("restore err = %v, want ErrPattern", got)
	}
	if e.InitialSize() != e.Size() {
		t.Fatalf("initial %v left mismatched with grid %v", e.InitialSize(), e.Size())
	}

	_ = e.Step()
	e.RequestReset()
	e.Queue().Drain()
	if !slices.Equal(frontCells(t, e).Pix, start.Pix) {
		t.Fatal("reset after failed restore did not return to the previous initial state")
	}
}

func TestResetViewRequestsRedraw(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	e.OnViewportResize(40, 40)
	if err := e.Scale(2, mgl32.Vec2{}); err != nil {
		t.Fatal(err)
	}
	e.Frame(image.NewRGBA(image.Rect(0, 0, 40, 40)))
	if e.NeedsRedraw() {
		t.Fatal("redraw flag not cleared by Frame")
	}
	e.ResetView()
	if !e.NeedsRedraw() {
		t.Fatal("ResetView did not request a redraw")
	}
	if e.Camera().Zoom() != 1 {
		t.Fatalf("zoom after ResetView = %v", e.Camera().Zoom())
	}
}

func TestRenderDrawsThroughCamera(t *testing.T) {
	start := core.NewCellBuffer(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			start.Set(x, y, true) // left half alive
		}
	}
	e, _ := newTestEngine(t, 8, start)
	e.OnViewportResize(40, 40)
	dst := image.NewRGBA(image.Rect(0, 0, 40, 40))

	e.Render(dst)
	if dst.RGBAAt(5, 20).R != 255 || dst.RGBAAt(35, 20).R != 0 {
		t.Fatal("unexpected identity render")
	}

	// One model unit right: the live left half now covers the right side.
	e.Pan(mgl32.Vec2{1, 0})
	e.Render(dst)
	if got := dst.RGBAAt(5, 20); got != e.cfg.Background {
		t.Fatalf("left edge after pan = %v, want background", got)
	}
	if dst.RGBAAt(25, 20).R != 255 {
		t.Fatal("left half of the grid should now cover the right side")
	}
}

func TestParametersAndControls(t *testing.T) {
	e, _ := newTestEngine(t, 8, nil)
	if !e.SetIntParameter(ParamDeadRule, 1<<3|1<<6) {
		t.Fatal("dead rule should be settable")
	}
	if e.SetIntParameter("bogus", 1) {
		t.Fatal("unknown key accepted")
	}
	snap := e.Parameters()
	if p, ok := snap.Lookup(ParamRule); !ok || p.Value != "B36/S23" {
		t.Fatalf("rule parameter = %+v", p)
	}
	if p, ok := snap.Lookup(ParamGrid); !ok || p.Value != "8x8" {
		t.Fatalf("grid parameter = %+v", p)
	}
	if len(e.ParameterControls()) != 2 {
		t.Fatal("expected two rule controls")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if s := DefaultConfig().GridSize(); s != (core.Size{W: 2048, H: 2048}) {
		t.Fatalf("default grid = %v", s)
	}
	bad := DefaultConfig()
	bad.WorldScale = 0
	if bad.Validate() == nil {
		t.Fatal("zero world scale accepted")
	}
}
