package shader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"gpu-life/internal/gpu"
)

func TestLoadKeepsLineTerminators(t *testing.T) {
	src := "// leading comment\r\nvar Scale vec2 // trailing\nfunc Fragment() {}"
	got, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	want := "// leading comment\nvar Scale vec2 // trailing\nfunc Fragment() {}\n"
	if got != want {
		t.Fatalf("Load = %q, want %q", got, want)
	}
	// Every declaration must survive on its own line, outside any comment.
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "//") && strings.Contains(line, "Fragment") {
			t.Fatalf("declaration swallowed by comment: %q", line)
		}
	}
}

func TestLoadFSOptionalVertex(t *testing.T) {
	fsys := fstest.MapFS{
		SimulatorFragment: {Data: []byte("func Fragment(")},
		RendererFragment:  {Data: []byte("func Fragment(")},
		RendererVertex:    {Data: []byte("attribute vec4 aPosition;")},
	}
	s, err := LoadFS(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if s.Simulator.Vertex != "" {
		t.Fatalf("missing vertex file should give empty source, got %q", s.Simulator.Vertex)
	}
	if s.Source(gpu.Renderer).Vertex != "attribute vec4 aPosition;\n" {
		t.Fatalf("renderer vertex = %q", s.Renderer.Vertex)
	}
}

func TestLoadFSMissingFragment(t *testing.T) {
	fsys := fstest.MapFS{SimulatorFragment: {Data: []byte("x")}}
	if _, err := LoadFS(fsys); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestDefaultSources(t *testing.T) {
	s := Default()
	for _, kind := range []gpu.ProgramKind{gpu.Simulator, gpu.Renderer} {
		if !strings.Contains(s.Source(kind).Fragment, "func Fragment(") {
			t.Fatalf("%s source has no Fragment entry point", kind)
		}
	}
	if !strings.Contains(s.Simulator.Fragment, "var Rules [18]float") {
		t.Fatal("simulator must declare the 18-entry rule uniform")
	}
}
