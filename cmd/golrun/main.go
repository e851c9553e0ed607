// Command golrun runs the automaton headless on the software device. A
// producer goroutine queues generations and noise the way input handlers do,
// while a render goroutine owns the engine and drains the queue. The final
// state is written as a snapshot, a rendered frame and a one-pixel-per-cell
// image.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"gpu-life/internal/app"
	"gpu-life/internal/engine"
	"gpu-life/internal/gpu/soft"
	"gpu-life/internal/render"
	"gpu-life/internal/state"
)

type runConfig struct {
	Generations int
	NoiseEvery  int
	Load        bool
	Save        bool
	Frame       string
	Cells       string
}

func (rc *runConfig) bind(fs *flag.FlagSet) {
	fs.IntVar(&rc.Generations, "generations", rc.Generations, "generations to run")
	fs.IntVar(&rc.NoiseEvery, "noise-every", rc.NoiseEvery, "inject noise every n generations (0 disables)")
	fs.BoolVar(&rc.Load, "load", rc.Load, "start from the snapshot file instead of the pattern")
	fs.BoolVar(&rc.Save, "save", rc.Save, "write the final state to the snapshot file")
	fs.StringVar(&rc.Frame, "frame", rc.Frame, "PNG of the final rendered view (empty to skip)")
	fs.StringVar(&rc.Cells, "cells", rc.Cells, "PNG with one pixel per cell (empty to skip)")
}

func main() {
	cfg := app.NewConfig()
	cfg.TextureSize = 512
	cfg.Width, cfg.Height = 640, 480
	cfg.Bind(flag.CommandLine)
	rc := runConfig{Generations: 200, Save: true, Frame: "life.png"}
	rc.bind(flag.CommandLine)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg, rc, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *app.Config, rc runConfig, logOut io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if rc.Generations < 0 || rc.NoiseEvery < 0 {
		return fmt.Errorf("generations %d and noise-every %d must not be negative", rc.Generations, rc.NoiseEvery)
	}
	logger := cfg.Logger(logOut)
	engine.SetLogger(logger)
	defer engine.SetLogger(nil)

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	assets, err := app.LoadAssets(cfg)
	if err != nil {
		return err
	}

	dev := soft.New(cfg.Width, cfg.Height)
	eng := engine.New(dev, ecfg)
	if err := eng.Initialize(assets.Initial, assets.Noise, assets.Shaders); err != nil {
		return err
	}
	defer eng.Dispose()
	eng.OnViewportResize(cfg.Width, cfg.Height)

	if rc.Load {
		s, err := state.Load(cfg.Snapshot)
		if err != nil {
			return err
		}
		eng.RequestRestore(s, nil)
	}

	var (
		final      state.Snapshot
		captureErr error
	)
	frame := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	produced := make(chan struct{})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(produced)
		for i := 1; i <= rc.Generations; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			eng.RequestStep()
			if rc.NoiseEvery > 0 && i%rc.NoiseEvery == 0 {
				eng.RequestNoise()
			}
		}
		eng.RequestCapture(func(s state.Snapshot, err error) {
			final, captureErr = s, err
		})
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-eng.Queue().Ready():
				if eng.NeedsRedraw() {
					eng.Frame(frame)
				}
			case <-produced:
				eng.Frame(frame)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if captureErr != nil {
		return captureErr
	}

	logger.Info("run complete",
		"generations", eng.Generation(),
		"passes", dev.Passes,
		"population", final.Cells().Population(),
		"rule", eng.Rules().String())

	if rc.Save {
		if err := state.Save(cfg.Snapshot, final); err != nil {
			return err
		}
	}
	if rc.Frame != "" {
		if err := writePNG(rc.Frame, frame); err != nil {
			return err
		}
	}
	if rc.Cells != "" {
		if err := writePNG(rc.Cells, render.CellsImage(final.Cells(), color.White, color.Black)); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
