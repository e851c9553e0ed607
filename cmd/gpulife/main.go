//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"gpu-life/internal/app"
	"gpu-life/internal/engine"
	"gpu-life/internal/gpu/ebitengpu"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	engine.SetLogger(cfg.Logger(os.Stderr))

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		log.Fatal(err)
	}
	assets, err := app.LoadAssets(cfg)
	if err != nil {
		log.Fatal(err)
	}

	dev := ebitengpu.New(cfg.Width, cfg.Height)
	eng := engine.New(dev, ecfg)
	game := app.New(cfg, eng, assets)

	ebiten.SetWindowTitle("gpu-life " + cfg.Rule)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err = ebiten.RunGame(game)
	eng.Dispose()
	if err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
