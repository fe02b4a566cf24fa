package palette

import (
	"errors"
	"image/color"
	"testing"
)

func TestTranslationPacking(t *testing.T) {
	tests := []struct {
		kind  Kind
		index int
	}{
		{KindStandard, 0},
		{KindPlayers, 7},
		{KindLuminosity, 3},
		{KindBlood, 0xffff},
	}
	for _, tt := range tests {
		tr := MakeTranslation(tt.kind, tt.index)
		if tr.Kind() != tt.kind || tr.Index() != tt.index {
			t.Errorf("MakeTranslation(%d, %d) unpacked to %d, %d", tt.kind, tt.index, tr.Kind(), tr.Index())
		}
		if got := tr.IsLuminosity(); got != (tt.kind == KindLuminosity) {
			t.Errorf("%s: IsLuminosity = %v", tr, got)
		}
	}
}

func TestTableResolve(t *testing.T) {
	tb := NewTable()
	pal := color.Palette{color.Black, color.White}
	r1 := Identity(pal)
	r2 := Identity(pal)

	t1 := tb.Add(KindPlayers, r1)
	t2 := tb.Add(KindPlayers, r2)

	got, err := tb.Resolve(t2)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != r2 {
		t.Error("Resolve returned the wrong remap")
	}
	if r1.ID() == r2.ID() || r1.ID() == 0 {
		t.Errorf("remap ids must be distinct and non-zero: %d %d", r1.ID(), r2.ID())
	}
	if t1.Index() != 0 || t2.Index() != 1 {
		t.Errorf("indices = %d, %d", t1.Index(), t2.Index())
	}

	if _, err := tb.Resolve(MakeTranslation(KindDecals, 0)); !errors.Is(err, ErrUnknownTranslation) {
		t.Errorf("expected ErrUnknownTranslation, got %v", err)
	}
}

func TestTableReplaceChangesIdentity(t *testing.T) {
	tb := NewTable()
	tr := tb.Add(KindStandard, Identity(nil))
	before, _ := tb.Resolve(tr)
	oldID := before.ID()

	if err := tb.Replace(tr, Identity(nil)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	after, _ := tb.Resolve(tr)
	if after.ID() == oldID {
		t.Error("replaced remap must get a new identity")
	}
}

func TestIdentityPalette(t *testing.T) {
	r := Identity(color.Palette{color.RGBA{R: 255, A: 255}})
	if r.Remap[42] != 42 {
		t.Errorf("Remap[42] = %d", r.Remap[42])
	}
	if r.Palette[0] != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("Palette[0] = %v", r.Palette[0])
	}
}
