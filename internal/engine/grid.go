package engine

import (
	"fmt"

	"gpu-life/internal/core"
	"gpu-life/internal/gpu"
)

// slot names one of the two grid textures.
type slot int

const (
	slotA slot = iota
	slotB
)

func (s slot) other() slot { return 1 - s }

// grid is the double-buffered cell state. The front slot holds the current
// generation; the other slot is the write target of the next pass. Swapping
// flips the role flag and never copies texture contents.
type grid struct {
	size     core.Size
	textures [2]gpu.Texture
	front    slot
}

// newGrid allocates both textures. The front texture starts from initial,
// or all dead when initial is nil.
func newGrid(dev gpu.Device, size core.Size, initial []byte) (*grid, error) {
	if size.Empty() {
		return nil, fmt.Errorf("engine: grid size %dx%d", size.W, size.H)
	}
	front, err := dev.NewTexture(size.W, size.H, initial)
	if err != nil {
		return nil, fmt.Errorf("engine: front texture: %w", err)
	}
	back, err := dev.NewTexture(size.W, size.H, nil)
	if err != nil {
		front.Dispose()
		return nil, fmt.Errorf("engine: back texture: %w", err)
	}
	return &grid{size: size, textures: [2]gpu.Texture{slotA: front, slotB: back}, front: slotA}, nil
}

func (g *grid) Front() gpu.Texture { return g.textures[g.front] }
func (g *grid) Back() gpu.Texture  { return g.textures[g.front.other()] }

func (g *grid) swap() { g.front = g.front.other() }

func (g *grid) dispose() {
	for _, t := range g.textures {
		if t != nil {
			t.Dispose()
		}
	}
}
