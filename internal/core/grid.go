package core

// Channels is the number of bytes stored per cell: red, green, blue.
const Channels = 3

// Alive and Dead are the channel values encoding a cell state.
const (
	Alive = 255
	Dead  = 0
)

// CellBuffer stores a 2D grid of RGB cells in row-major order. Row 0 is the
// first row uploaded to the texture.
type CellBuffer struct {
	W, H int
	Pix  []uint8
}

// NewCellBuffer allocates a zeroed (all dead) buffer with the given dimensions.
func NewCellBuffer(w, h int) *CellBuffer {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &CellBuffer{W: w, H: h, Pix: make([]uint8, w*h*Channels)}
}

// WrapCellBuffer adopts pix as the backing store. It panics if the length
// does not match the dimensions.
func WrapCellBuffer(w, h int, pix []uint8) *CellBuffer {
	if len(pix) != w*h*Channels {
		panic("core: pixel buffer does not match dimensions")
	}
	return &CellBuffer{W: w, H: h, Pix: pix}
}

// Size returns the buffer dimensions.
func (g *CellBuffer) Size() Size { return Size{W: g.W, H: g.H} }

// Index returns the offset of the first channel of cell (x, y).
func (g *CellBuffer) Index(x, y int) int { return (y*g.W + x) * Channels }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g *CellBuffer) Wrap(x, y int) (int, int) {
	x = (x%g.W + g.W) % g.W
	y = (y%g.H + g.H) % g.H
	return x, y
}

// Contains reports whether (x, y) lies inside the buffer.
func (g *CellBuffer) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

// Alive reports whether cell (x, y) is alive, wrapping out-of-range coordinates.
func (g *CellBuffer) Alive(x, y int) bool {
	x, y = g.Wrap(x, y)
	return IsAlive(g.Pix[g.Index(x, y):])
}

// Set writes the encoded state of cell (x, y). Out-of-range cells are ignored.
func (g *CellBuffer) Set(x, y int, alive bool) {
	if !g.Contains(x, y) {
		return
	}
	SetCell(g.Pix[g.Index(x, y):], alive)
}

// Clear marks every cell dead.
func (g *CellBuffer) Clear() {
	for i := range g.Pix {
		g.Pix[i] = Dead
	}
}

// Population counts live cells.
func (g *CellBuffer) Population() int {
	n := 0
	for i := 0; i < len(g.Pix); i += Channels {
		if IsAlive(g.Pix[i:]) {
			n++
		}
	}
	return n
}

// IsAlive decodes the cell whose channels start at px[0].
func IsAlive(px []uint8) bool {
	return px[0] == Alive && px[1] == Alive && px[2] == Alive
}

// SetCell encodes a cell state into px[0:3].
func SetCell(px []uint8, alive bool) {
	v := uint8(Dead)
	if alive {
		v = Alive
	}
	px[0], px[1], px[2] = v, v, v
}
