package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gpu-life/internal/app"
	"gpu-life/internal/state"
)

func testConfig(t *testing.T) (*app.Config, runConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := app.NewConfig()
	cfg.TextureSize = 32
	cfg.WorldScale = 1
	cfg.Width, cfg.Height = 40, 30
	cfg.Snapshot = filepath.Join(dir, "life.gols")
	rc := runConfig{
		Generations: 12,
		NoiseEvery:  5,
		Save:        true,
		Frame:       filepath.Join(dir, "frame.png"),
		Cells:       filepath.Join(dir, "cells.png"),
	}
	return cfg, rc
}

func TestRunWritesOutputs(t *testing.T) {
	cfg, rc := testConfig(t)
	var logs bytes.Buffer
	if err := run(context.Background(), cfg, rc, &logs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "generations=12") {
		t.Fatalf("summary missing: %q", logs.String())
	}

	s, err := state.Load(cfg.Snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 32 || s.Height != 32 {
		t.Fatalf("snapshot size %dx%d", s.Width, s.Height)
	}

	for path, w := range map[string]int{rc.Frame: 40, rc.Cells: 32} {
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if img.Bounds().Dx() != w {
			t.Fatalf("%s width = %d, want %d", path, img.Bounds().Dx(), w)
		}
	}
}

func TestRunResumesFromSnapshot(t *testing.T) {
	cfg, rc := testConfig(t)
	rc.NoiseEvery = 0
	if err := run(context.Background(), cfg, rc, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	first, err := state.Load(cfg.Snapshot)
	if err != nil {
		t.Fatal(err)
	}

	// Zero generations from the saved state must reproduce it.
	rc.Load = true
	rc.Generations = 0
	if err := run(context.Background(), cfg, rc, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	second, err := state.Load(cfg.Snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Pixels, second.Pixels) {
		t.Fatal("resumed run changed the state")
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	cfg, rc := testConfig(t)
	rc.Generations = -1
	if run(context.Background(), cfg, rc, &bytes.Buffer{}) == nil {
		t.Fatal("negative generations accepted")
	}

	cfg, rc = testConfig(t)
	rc.Load = true
	if run(context.Background(), cfg, rc, &bytes.Buffer{}) == nil {
		t.Fatal("missing snapshot accepted")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg, rc := testConfig(t)
	rc.Generations = 1 << 20
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run(ctx, cfg, rc, &bytes.Buffer{}); err == nil {
		t.Fatal("cancelled run reported success")
	}
}
