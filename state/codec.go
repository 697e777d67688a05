package state

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/bubbles"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/velocity"
)

// Frame files are host-endian and unversioned:
//
//	frame int32
//	w, h, d uint32
//	u [(w+1)·h·d]float32, v [w·(h+1)·d]float32, w [w·h·(d+1)]float32
//	phi [w·h·d]float32, cells [w·h·d]int32
//	w, h, d uint32, targetVolume float32
//	nBubbles int32, nBubbles × {pos 3×float32, radius float32, vel 3×float32, alive bool, id int32}
//	nextBubbleID int32

var byteOrder = binary.NativeEndian

// maxCells and maxBubbles guard allocations when reading a corrupt frame.
const (
	maxCells   = 1 << 28
	maxBubbles = 1 << 24
)

// bubbleChunk is the number of bubble records decoded per read.
const bubbleChunk = 4096

var (
	// ErrTruncated is returned when a frame ends before its declared contents.
	ErrTruncated = errors.New("state: truncated frame")
	// ErrCorrupt is returned when a frame header is inconsistent.
	ErrCorrupt = errors.New("state: corrupt frame")
)

type header struct {
	Frame   int32
	W, H, D uint32
}

type bubbleRecord struct {
	Pos    [3]float32
	Radius float32
	Vel    [3]float32
	Alive  bool
	ID     int32
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// WriteTo encodes s in the frame format.
func (s *State) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	vw, vh, vd := s.Dims()
	dims := [3]uint32{uint32(vw), uint32(vh), uint32(vd)}

	slots := s.Bubbles.Slots()
	records := make([]bubbleRecord, len(slots))
	for i, b := range slots {
		records[i] = bubbleRecord{
			Pos:    [3]float32{float32(b.Pos.X), float32(b.Pos.Y), float32(b.Pos.Z)},
			Radius: b.Radius,
			Vel:    [3]float32{float32(b.Vel.X), float32(b.Vel.Y), float32(b.Vel.Z)},
			Alive:  b.Alive,
			ID:     b.ID,
		}
	}

	parts := []struct {
		name string
		data any
	}{
		{"header", header{Frame: s.Frame, W: dims[0], H: dims[1], D: dims[2]}},
		{"velocity u", s.Velocity.U.Data},
		{"velocity v", s.Velocity.V.Data},
		{"velocity w", s.Velocity.W.Data},
		{"distance", s.LevelSet.Phi.Data},
		{"cell types", s.LevelSet.Cells.Data},
		{"level set dims", dims},
		{"target volume", s.LevelSet.TargetVolume},
		{"bubble count", int32(len(records))},
		{"bubbles", records},
		{"next bubble id", s.Bubbles.NextID},
	}
	for _, p := range parts {
		if err := binary.Write(cw, byteOrder, p.data); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return cw.n, nil
}

// ReadFrom decodes a frame into s. The frame is decoded into fresh storage
// and only replaces the contents of s once it has been read completely, so a
// failed read leaves s untouched. Cell size and clamp bound are kept from s.
func (s *State) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	read := func(what string, v any) error {
		if err := binary.Read(cr, byteOrder, v); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: %s", ErrTruncated, what)
			}
			return fmt.Errorf("read %s: %w", what, err)
		}
		return nil
	}

	var hdr header
	if err := read("header", &hdr); err != nil {
		return cr.n, err
	}
	w, h, d := int(hdr.W), int(hdr.H), int(hdr.D)
	if w == 0 || h == 0 || d == 0 || uint64(hdr.W)*uint64(hdr.H)*uint64(hdr.D) > maxCells {
		return cr.n, fmt.Errorf("%w: dimensions %dx%dx%d", ErrCorrupt, w, h, d)
	}

	dx := s.Velocity.Dx
	if dx <= 0 {
		dx = 1
	}
	next := &State{
		Frame:    hdr.Frame,
		Velocity: velocity.NewField(w, h, d, dx),
		LevelSet: levelset.NewEmpty(w, h, d, s.LevelSet.Bound),
		Bubbles:  bubbles.NewTracker(),
	}

	for _, p := range []struct {
		name string
		data any
	}{
		{"velocity u", next.Velocity.U.Data},
		{"velocity v", next.Velocity.V.Data},
		{"velocity w", next.Velocity.W.Data},
		{"distance", next.LevelSet.Phi.Data},
		{"cell types", next.LevelSet.Cells.Data},
	} {
		if err := read(p.name, p.data); err != nil {
			return cr.n, err
		}
	}

	var dims [3]uint32
	if err := read("level set dims", &dims); err != nil {
		return cr.n, err
	}
	if dims != [3]uint32{hdr.W, hdr.H, hdr.D} {
		return cr.n, fmt.Errorf("%w: level set dims %v disagree with header", ErrCorrupt, dims)
	}
	if err := read("target volume", &next.LevelSet.TargetVolume); err != nil {
		return cr.n, err
	}

	var n int32
	if err := read("bubble count", &n); err != nil {
		return cr.n, err
	}
	if n < 0 || n > maxBubbles {
		return cr.n, fmt.Errorf("%w: bubble count %d", ErrCorrupt, n)
	}

	// Records are read in bounded chunks so the allocation tracks the bytes
	// actually present rather than the declared count.
	slots := make([]bubbles.Bubble, 0, min(int(n), bubbleChunk))
	chunk := make([]bubbleRecord, bubbleChunk)
	for left := int(n); left > 0; {
		batch := chunk[:min(left, bubbleChunk)]
		if err := read("bubbles", batch); err != nil {
			return cr.n, err
		}
		for _, rec := range batch {
			slots = append(slots, bubbles.Bubble{
				Pos:    vec(rec.Pos),
				Radius: rec.Radius,
				Vel:    vec(rec.Vel),
				ID:     rec.ID,
				Alive:  rec.Alive,
			})
		}
		left -= len(batch)
	}
	var nextID int32
	if err := read("next bubble id", &nextID); err != nil {
		return cr.n, err
	}

	next.Bubbles.Restore(slots, nextID)
	next.LevelSet.Reclassify()
	*s = *next
	return cr.n, nil
}

// FramePath returns the file name a frame is saved under in dir.
func FramePath(dir string, frame int32) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%05d.bin", frame))
}

// SaveFrame writes s to dir as frame_NNNNN.bin and returns the path.
func (s *State) SaveFrame(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create frame dir: %w", err)
	}

	path := FramePath(dir, s.Frame)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create frame: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := s.WriteTo(bw); err != nil {
		return "", fmt.Errorf("write frame %d: %w", s.Frame, err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flush frame %d: %w", s.Frame, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close frame %d: %w", s.Frame, err)
	}
	return path, nil
}

// LoadFrame reads the frame at path into s.
func (s *State) LoadFrame(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	if _, err := s.ReadFrom(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return nil
}

func vec(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
