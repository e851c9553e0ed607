package app

import (
	"os"

	"gpu-life/internal/core"
	"gpu-life/internal/pattern"
	"gpu-life/internal/shader"
)

// Assets are the inputs of engine.Initialize.
type Assets struct {
	Initial *core.CellBuffer
	Noise   *core.CellBuffer
	Shaders shader.Sources
}

// NoiseSize is the edge of the generated noise stamp.
const NoiseSize = 16

// LoadAssets reads the pattern, noise and shader files named in c, falling
// back to the built-in ones for empty paths.
func LoadAssets(c *Config) (Assets, error) {
	var a Assets
	var err error
	if c.Pattern != "" {
		if a.Initial, err = pattern.Load(c.Pattern); err != nil {
			return Assets{}, err
		}
	} else {
		a.Initial = RPentomino()
	}
	if c.Noise != "" {
		if a.Noise, err = pattern.Load(c.Noise); err != nil {
			return Assets{}, err
		}
	} else {
		a.Noise = RandomStamp(NoiseSize, NoiseSize, core.NewRNG(c.Seed))
	}
	if c.Shaders != "" {
		if a.Shaders, err = shader.LoadFS(os.DirFS(c.Shaders)); err != nil {
			return Assets{}, err
		}
	} else {
		a.Shaders = shader.Default()
	}
	return a, nil
}

// RPentomino returns the five-cell methuselah that runs for 1103 generations.
func RPentomino() *core.CellBuffer {
	p := core.NewCellBuffer(3, 3)
	// Rows are bottom-up.
	p.Set(1, 0, true)
	p.Set(0, 1, true)
	p.Set(1, 1, true)
	p.Set(1, 2, true)
	p.Set(2, 2, true)
	return p
}

// RandomStamp fills a w*h buffer with live cells at half density.
func RandomStamp(w, h int, rng *core.RNG) *core.CellBuffer {
	p := core.NewCellBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, rng.Float64() < 0.5)
		}
	}
	return p
}
