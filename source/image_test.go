package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/gogpu/texres"
	"github.com/gogpu/texres/palette"
)

func TestImageDecodeBGRA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	pix, err := NewImage(img, nil).Decode(0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{30, 20, 10, 255, 3, 2, 1, 4}
	if pix.Width != 2 || pix.Height != 1 || !bytes.Equal(pix.Data, want) {
		t.Errorf("Decode = %dx%d %v, want 2x1 %v", pix.Width, pix.Height, pix.Data, want)
	}
}

func TestImageDecodeSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(2, 2, color.RGBA{R: 255, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	pix, err := NewImage(sub, nil).Decode(0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(pix.Data) != 16 {
		t.Fatalf("len = %d, want 16", len(pix.Data))
	}
	if pix.Data[2] != 255 || pix.Data[3] != 255 {
		t.Errorf("first texel = %v, want red", pix.Data[:4])
	}
}

func newPaletted() (*image.Paletted, *palette.Table) {
	pal := color.Palette{
		color.RGBA{A: 255},
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
	}
	img := image.NewPaletted(image.Rect(0, 0, 3, 1), pal)
	img.Pix = []uint8{0, 1, 2}
	return img, palette.NewTable()
}

func TestImageIndexedTranslation(t *testing.T) {
	img, table := newPaletted()
	swap := palette.Identity(img.Palette)
	swap.Remap[1], swap.Remap[2] = 2, 1
	tr := table.Add(palette.KindPlayers, swap)

	src := NewImage(img, table)
	tests := []struct {
		name  string
		tr    palette.Translation
		flags texres.UploadFlags
		want  []byte
	}{
		{"untranslated indices", 0, texres.FlagIndexed, []byte{0, 1, 2}},
		{"translated indices", tr, texres.FlagIndexed, []byte{0, 2, 1}},
		{"translated colors", tr, 0, []byte{0, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pix, err := src.Decode(tt.tr, tt.flags)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(pix.Data, tt.want) {
				t.Errorf("Data = %v, want %v", pix.Data, tt.want)
			}
		})
	}
}

func TestImageUnknownTranslation(t *testing.T) {
	img, _ := newPaletted()
	tr := palette.MakeTranslation(palette.KindStandard, 5)

	if _, err := NewImage(img, nil).Decode(tr, 0); !errors.Is(err, palette.ErrUnknownTranslation) {
		t.Errorf("nil resolver: err = %v, want ErrUnknownTranslation", err)
	}
	if _, err := NewImage(img, palette.NewTable()).Decode(tr, 0); !errors.Is(err, palette.ErrUnknownTranslation) {
		t.Errorf("empty table: err = %v, want ErrUnknownTranslation", err)
	}
}

func TestImageQuantizesTrueColor(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.Pix = []uint8{0, 200}

	pix, err := NewImage(img, nil).Decode(0, texres.FlagIndexed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(pix.Data, []byte{0, 200}) {
		t.Errorf("Data = %v, want [0 200]", pix.Data)
	}
}

func TestImageProcessData(t *testing.T) {
	src := Checker(2, 2, 1, color.White, color.Black)
	calls := 0
	src.Process = func(bgra []byte) {
		calls++
		for i := range bgra {
			bgra[i] /= 2
		}
	}
	if _, err := src.Decode(0, 0); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("Process ran without FlagProcessData")
	}
	pix, err := src.Decode(0, texres.FlagProcessData)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || pix.Data[0] != 127 {
		t.Errorf("calls = %d, first byte = %d; want 1, 127", calls, pix.Data[0])
	}
}

func TestChecker(t *testing.T) {
	src := Checker(4, 4, 2, color.White, color.Black)
	pix, err := src.Decode(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	texel := func(x, y int) byte { return pix.Data[4*(y*4+x)] }
	if texel(0, 0) != 255 || texel(2, 0) != 0 || texel(2, 2) != 255 {
		t.Errorf("unexpected checker pattern: %v", pix.Data)
	}
}

func TestLoad(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	dir := t.TempDir()

	encoders := map[string]func(f *os.File) error{
		"a.png": func(f *os.File) error { return png.Encode(f, img) },
		"b.bmp": func(f *os.File) error { return bmp.Encode(f, img) },
	}
	for name, encode := range encoders {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := encode(f); err != nil {
			t.Fatal(err)
		}
		f.Close()

		src, err := Load(path, nil)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if src.Width() != 3 || src.Height() != 2 {
			t.Errorf("Load(%s) size = %dx%d, want 3x2", name, src.Width(), src.Height())
		}
	}

	if _, err := Load(filepath.Join(dir, "missing.png"), nil); err == nil {
		t.Error("Load of missing file succeeded")
	}
	if _, err := Decode(bytes.NewReader([]byte("not an image")), nil); err == nil {
		t.Error("Decode of garbage succeeded")
	}
}
