// Package state defines the portable grid snapshot and its on-disk format.
//
// A record is a header followed by the body:
//
//	magic    [4]byte  "GOLS"
//	version  uint16   1
//	width    int32
//	height   int32
//	length   int32    width*height*3
//	pixels   [length]byte, row-major RGB
//
// All integers are big-endian. Decode also accepts a bare body without the
// header.
package state

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gpu-life/internal/core"
)

// Version is the current record version.
const Version uint16 = 1

var magic = [4]byte{'G', 'O', 'L', 'S'}

// maxPixels bounds decoded buffers to a 16384x16384 grid.
const maxPixels = 16384 * 16384 * core.Channels

var (
	// ErrFormat reports a malformed record.
	ErrFormat = errors.New("state: malformed snapshot")
	// ErrVersion reports a record written by a newer version.
	ErrVersion = errors.New("state: unsupported snapshot version")
)

// Snapshot is the full contents of the grid plus its dimensions.
type Snapshot struct {
	Width  int
	Height int
	Pixels []byte
}

// Size returns the snapshot dimensions.
func (s Snapshot) Size() core.Size { return core.Size{W: s.Width, H: s.Height} }

// Validate checks that the pixel buffer matches the dimensions.
func (s Snapshot) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrFormat, s.Width, s.Height)
	}
	if len(s.Pixels) != s.Width*s.Height*core.Channels {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrFormat, len(s.Pixels), s.Width, s.Height)
	}
	return nil
}

// Cells views the snapshot as a cell buffer sharing its pixels.
func (s Snapshot) Cells() *core.CellBuffer {
	return core.WrapCellBuffer(s.Width, s.Height, s.Pixels)
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Pixels = append([]byte(nil), s.Pixels...)
	return s
}

// Encode writes s with the current header.
func Encode(w io.Writer, s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	hdr := []any{Version, int32(s.Width), int32(s.Height), int32(len(s.Pixels))}
	for _, v := range hdr {
		if err := binary.Write(bw, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := bw.Write(s.Pixels); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a record written by Encode, or a headerless body.
func Decode(r io.Reader) (Snapshot, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(len(magic))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if bytes.Equal(peek, magic[:]) {
		if _, err := br.Discard(len(magic)); err != nil {
			return Snapshot{}, err
		}
		var version uint16
		if err := binary.Read(br, binary.BigEndian, &version); err != nil {
			return Snapshot{}, fmt.Errorf("%w: version: %v", ErrFormat, err)
		}
		if version == 0 || version > Version {
			return Snapshot{}, fmt.Errorf("%w: %d", ErrVersion, version)
		}
	}

	var body struct{ Width, Height, Length int32 }
	if err := binary.Read(br, binary.BigEndian, &body); err != nil {
		return Snapshot{}, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if body.Length < 0 || body.Length > maxPixels {
		return Snapshot{}, fmt.Errorf("%w: length %d", ErrFormat, body.Length)
	}
	s := Snapshot{Width: int(body.Width), Height: int(body.Height), Pixels: make([]byte, body.Length)}
	if _, err := io.ReadFull(br, s.Pixels); err != nil {
		return Snapshot{}, fmt.Errorf("%w: pixels: %v", ErrFormat, err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Save writes s to path, replacing any existing file only once the new
// contents are fully written.
func Save(path string, s Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("state: encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// Load reads a snapshot file.
func Load(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("state: %w", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
