package app

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gpu-life/internal/core"
	"gpu-life/internal/engine"
)

// Config represents the command-line parameters shared by the GUI and the
// headless runner.
type Config struct {
	Rule        string
	Period      time.Duration
	TextureSize int
	WorldScale  int
	Pattern     string
	Noise       string
	Shaders     string
	Snapshot    string
	Seed        int64
	SeedCount   int
	Width       int
	Height      int
	HUDWidth    int
	LogLevel    string
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	d := engine.DefaultConfig()
	return &Config{
		Rule:        core.FormatRule(d.DeadRule, d.LiveRule),
		Period:      core.DefaultPeriod,
		TextureSize: d.MaxTextureSize,
		WorldScale:  d.WorldScale,
		Snapshot:    "life.gols",
		Seed:        42,
		SeedCount:   d.SeedCount,
		Width:       1024,
		Height:      768,
		HUDWidth:    220,
		LogLevel:    "info",
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Rule, "rule", c.Rule, "birth/survival rule in B/S notation")
	fs.DurationVar(&c.Period, "period", c.Period, "time between generations while running")
	fs.IntVar(&c.TextureSize, "texture-size", c.TextureSize, "largest texture edge supported by the GPU")
	fs.IntVar(&c.WorldScale, "world-scale", c.WorldScale, "texture size divisor giving the grid edge")
	fs.StringVar(&c.Pattern, "pattern", c.Pattern, "initial pattern image (empty for the built-in R-pentomino)")
	fs.StringVar(&c.Noise, "noise", c.Noise, "noise stamp image (empty for a random 16x16 stamp)")
	fs.StringVar(&c.Shaders, "shaders", c.Shaders, "directory with simulator.kage and renderer.kage (empty for embedded)")
	fs.StringVar(&c.Snapshot, "snapshot", c.Snapshot, "snapshot file used by save and load")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for noise placement")
	fs.IntVar(&c.SeedCount, "seed-count", c.SeedCount, "noise stamps per request")
	fs.IntVar(&c.Width, "width", c.Width, "window width")
	fs.IntVar(&c.Height, "height", c.Height, "window height")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "HUD panel width (0 hides it)")
	fs.StringVar(&c.LogLevel, "log", c.LogLevel, "log level: debug, info, warn or error")
}

// EngineConfig converts the flags into an engine configuration.
func (c *Config) EngineConfig() (engine.Config, error) {
	dead, live, err := core.ParseRule(c.Rule)
	if err != nil {
		return engine.Config{}, err
	}
	ec := engine.DefaultConfig()
	ec.MaxTextureSize = c.TextureSize
	ec.WorldScale = c.WorldScale
	ec.NoiseSeed = c.Seed
	ec.SeedCount = c.SeedCount
	ec.DeadRule, ec.LiveRule = dead, live
	if err := ec.Validate(); err != nil {
		return engine.Config{}, err
	}
	return ec, nil
}

// Validate reports flag combinations the hosts cannot run with.
func (c *Config) Validate() error {
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if c.Period < core.MinPeriod || c.Period > core.MaxPeriod {
		return fmt.Errorf("period %v outside [%v, %v]", c.Period, core.MinPeriod, core.MaxPeriod)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.HUDWidth < 0 {
		return fmt.Errorf("hud width %d must not be negative", c.HUDWidth)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level. An
// invalid level falls back to info.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, err := c.level()
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
