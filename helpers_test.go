package texres

import (
	"testing"

	"github.com/gogpu/texres/internal/gputest"
	"github.com/gogpu/texres/palette"
)

// testSource is a PixelSource producing a solid image.
type testSource struct {
	w, h      int
	canvas    bool
	decodes   int
	lastTr    palette.Translation
	lastFlags UploadFlags
}

func (s *testSource) Width() int             { return s.w }
func (s *testSource) Height() int            { return s.h }
func (s *testSource) IsHardwareCanvas() bool { return s.canvas }

func (s *testSource) Decode(tr palette.Translation, flags UploadFlags) (Pixels, error) {
	s.decodes++
	s.lastTr = tr
	s.lastFlags = flags
	texel := 4
	if flags&FlagIndexed != 0 {
		texel = 1
	}
	data := make([]byte, s.w*s.h*texel)
	for i := range data {
		data[i] = byte(i)
	}
	return Pixels{Width: s.w, Height: s.h, Data: data}, nil
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *gputest.Device, *gputest.Pacer) {
	t.Helper()
	dev := gputest.NewDevice()
	pacer := gputest.NewPacer()
	m, err := NewManager(dev, pacer, palette.NewTable(), opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, dev, pacer
}

// paletteTable returns the translation table of a test manager.
func paletteTable(m *Manager) *palette.Table {
	return m.palette.(*palette.Table)
}
