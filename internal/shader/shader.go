// Package shader loads the program sources used by the engine.
package shader

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"gpu-life/internal/gpu"
)

//go:embed assets/*.kage
var assets embed.FS

// File names looked up by LoadFS. Vertex files are optional.
const (
	SimulatorFragment = "simulator.kage"
	SimulatorVertex   = "simulator.vert"
	RendererFragment  = "renderer.kage"
	RendererVertex    = "renderer.vert"
)

// Sources bundles the text of both programs.
type Sources struct {
	Simulator gpu.ProgramSource
	Renderer  gpu.ProgramSource
}

// Source returns the program source for kind.
func (s Sources) Source(kind gpu.ProgramKind) gpu.ProgramSource {
	if kind == gpu.Renderer {
		return s.Renderer
	}
	return s.Simulator
}

// Load reads program text line by line and joins the lines with '\n', so
// single-line comments never swallow the following line. CRLF input is
// normalized.
func Load(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var b strings.Builder
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("shader: read source: %w", err)
	}
	return b.String(), nil
}

// LoadFS reads the program sources from fsys.
func LoadFS(fsys fs.FS) (Sources, error) {
	var s Sources
	var err error
	if s.Simulator.Fragment, err = loadFile(fsys, SimulatorFragment, true); err != nil {
		return Sources{}, err
	}
	if s.Simulator.Vertex, err = loadFile(fsys, SimulatorVertex, false); err != nil {
		return Sources{}, err
	}
	if s.Renderer.Fragment, err = loadFile(fsys, RendererFragment, true); err != nil {
		return Sources{}, err
	}
	if s.Renderer.Vertex, err = loadFile(fsys, RendererVertex, false); err != nil {
		return Sources{}, err
	}
	return s, nil
}

// Default returns the embedded Kage programs.
func Default() Sources {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	s, err := LoadFS(sub)
	if err != nil {
		panic(fmt.Sprintf("shader: embedded sources: %v", err))
	}
	return s
}

func loadFile(fsys fs.FS, name string, required bool) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("shader: open %s: %w", name, err)
	}
	defer f.Close()
	src, err := Load(f)
	if err != nil {
		return "", fmt.Errorf("shader: %s: %w", name, err)
	}
	return src, nil
}
