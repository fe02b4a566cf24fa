package texres

import (
	"errors"
	"testing"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/palette"
)

func layers(srcs ...*testSource) []MaterialLayer {
	out := make([]MaterialLayer, len(srcs))
	for i, s := range srcs {
		out[i] = MaterialLayer{Source: s}
	}
	return out
}

func TestDescriptorSetCacheHit(t *testing.T) {
	m, dev, _ := newTestManager(t)
	mat, err := m.NewMaterial(MaterialDesc{Layers: layers(&testSource{w: 4, h: 4})})
	if err != nil {
		t.Fatalf("NewMaterial: %v", err)
	}
	state := RenderState{ClampMode: ClampXY}

	set, err := mat.GetDescriptorSet(state)
	if err != nil {
		t.Fatalf("GetDescriptorSet: %v", err)
	}
	allocs, barriers, copies := dev.Allocations(), len(dev.Barriers), len(dev.Copies)

	for i := 0; i < 3; i++ {
		again, err := mat.GetDescriptorSet(state)
		if err != nil {
			t.Fatalf("GetDescriptorSet (hit): %v", err)
		}
		if again != set {
			t.Fatalf("hit returned %d, want %d", again, set)
		}
	}
	if dev.Allocations() != allocs || len(dev.Barriers) != barriers || len(dev.Copies) != copies {
		t.Error("cache hit performed device work")
	}
	if mat.CachedSets() != 1 {
		t.Errorf("cached sets = %d, want 1", mat.CachedSets())
	}
}

func TestDescriptorSetNullPadding(t *testing.T) {
	m, dev, _ := newTestManager(t)
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(&testSource{w: 4, h: 4}, &testSource{w: 4, h: 4})})

	set, err := mat.GetDescriptorSet(RenderState{})
	if err != nil {
		t.Fatalf("GetDescriptorSet: %v", err)
	}
	writes := dev.Sets[set]
	if len(writes) != DefaultMinTextureLayers || dev.SetSlots[set] != DefaultMinTextureLayers {
		t.Fatalf("writes = %d slots = %d, want %d", len(writes), dev.SetSlots[set], DefaultMinTextureLayers)
	}
	null := m.null.Image().View()
	for i, w := range writes {
		if w.Binding != i {
			t.Errorf("write %d has binding %d", i, w.Binding)
		}
		if w.Layout != gpucore.LayoutShaderReadOnly {
			t.Errorf("binding %d layout = %s", i, w.Layout)
		}
		if isNull := w.View == null; isNull != (i >= 2) {
			t.Errorf("binding %d null view = %v", i, isNull)
		}
	}
}

func TestDescriptorSetMoreLayersThanMinimum(t *testing.T) {
	m, dev, _ := newTestManager(t, WithMinTextureLayers(2))
	srcs := []*testSource{{w: 2, h: 2}, {w: 2, h: 2}, {w: 2, h: 2}}
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(srcs...)})

	set, err := mat.GetDescriptorSet(RenderState{})
	if err != nil {
		t.Fatalf("GetDescriptorSet: %v", err)
	}
	if dev.SetSlots[set] != 3 || len(dev.Sets[set]) != 3 {
		t.Errorf("slots = %d writes = %d, want 3", dev.SetSlots[set], len(dev.Sets[set]))
	}
	if m.null != nil {
		t.Error("null texture created without padding")
	}
}

func TestIndexedMaterial(t *testing.T) {
	m, dev, _ := newTestManager(t)
	base := &testSource{w: 8, h: 8}
	lut1 := &testSource{w: 256, h: 1}
	lut2 := &testSource{w: 256, h: 1}
	extra := &testSource{w: 4, h: 4}
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(base, lut1, lut2, extra), Indexed: true})

	tr := paletteTable(m).Add(palette.KindPlayers, palette.Identity(nil))
	set, err := mat.GetDescriptorSet(RenderState{Translation: tr})
	if err != nil {
		t.Fatalf("GetDescriptorSet: %v", err)
	}

	if base.lastFlags&FlagIndexed == 0 || base.lastTr != tr {
		t.Errorf("base decoded with flags %b translation %s", base.lastFlags, base.lastTr)
	}
	if lut1.lastFlags&FlagIndexed != 0 || lut1.lastTr != 0 {
		t.Errorf("lookup layer decoded with flags %b translation %s", lut1.lastFlags, lut1.lastTr)
	}
	if extra.decodes != 0 {
		t.Error("indexed material bound more than 3 layers")
	}

	writes := dev.Sets[set]
	null := m.null.Image().View()
	for i, w := range writes {
		if isNull := w.View == null; isNull != (i >= 3) {
			t.Errorf("binding %d null view = %v", i, isNull)
		}
	}
	key, _ := mat.translationKey(tr)
	baseTex, _ := mat.layer(0, tr, key)
	if baseTex.TexelSize() != 1 || baseTex.Image().MipLevels() != 1 {
		t.Errorf("indexed base texel = %d levels = %d", baseTex.TexelSize(), baseTex.Image().MipLevels())
	}
}

func TestIndexedMaterialNeedsThreeLayers(t *testing.T) {
	m, _, _ := newTestManager(t)
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(&testSource{w: 2, h: 2}), Indexed: true})
	if _, err := mat.GetDescriptorSet(RenderState{}); err == nil {
		t.Error("expected error for indexed material with one layer")
	}
}

func TestDescriptorSetTranslationKeys(t *testing.T) {
	m, _, _ := newTestManager(t)
	base := &testSource{w: 4, h: 4}
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(base)})
	tbl := paletteTable(m)
	red := tbl.Add(palette.KindPlayers, palette.Identity(nil))
	blue := tbl.Add(palette.KindPlayers, palette.Identity(nil))
	lum := palette.MakeTranslation(palette.KindLuminosity, 3)

	get := func(tr palette.Translation) gpucore.DescriptorSetID {
		t.Helper()
		set, err := mat.GetDescriptorSet(RenderState{Translation: tr})
		if err != nil {
			t.Fatalf("GetDescriptorSet(%s): %v", tr, err)
		}
		return set
	}

	plain, r, b, l := get(0), get(red), get(blue), get(lum)
	ids := map[gpucore.DescriptorSetID]bool{plain: true, r: true, b: true, l: true}
	if len(ids) != 4 {
		t.Errorf("translations share descriptor sets: %v", ids)
	}
	if base.decodes != 4 {
		t.Errorf("base decodes = %d, want one per translation", base.decodes)
	}
	if get(red) != r {
		t.Error("same translation missed the cache")
	}

	// A replaced remap gets a new identity and a new set.
	if err := tbl.Replace(red, palette.Identity(nil)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if get(red) == r {
		t.Error("replaced remap reused the old set")
	}

	_, err := mat.GetDescriptorSet(RenderState{Translation: palette.MakeTranslation(palette.KindBlood, 9)})
	if !errors.Is(err, palette.ErrUnknownTranslation) {
		t.Errorf("unknown translation err = %v", err)
	}
}

func TestReplacedRemapReuploads(t *testing.T) {
	m, dev, pacer := newTestManager(t)
	base := &testSource{w: 4, h: 4}
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(base)})
	tbl := paletteTable(m)
	red := tbl.Add(palette.KindPlayers, palette.Identity(nil))

	old, err := mat.GetDescriptorSet(RenderState{Translation: red})
	if err != nil {
		t.Fatalf("GetDescriptorSet: %v", err)
	}
	oldView := dev.Sets[old][0].View
	if err := tbl.Replace(red, palette.Identity(nil)); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	t.Run("without invalidate", func(t *testing.T) {
		set, err := mat.GetDescriptorSet(RenderState{Translation: red})
		if err != nil {
			t.Fatalf("GetDescriptorSet: %v", err)
		}
		if base.decodes != 2 {
			t.Errorf("decodes = %d, want the layer uploaded again", base.decodes)
		}
		if dev.Sets[set][0].View == oldView {
			t.Error("new set samples the image of the replaced remap")
		}
		if mat.CachedSets() != 1 {
			t.Errorf("cached sets = %d, stale set kept", mat.CachedSets())
		}
		if m.Stats().Textures != 1 {
			t.Errorf("textures = %d, stale variant kept", m.Stats().Textures)
		}
		pacer.Complete(pacer.CurrentFrame())
		m.Collect()
		if _, ok := dev.Sets[old]; ok {
			t.Error("stale set not released")
		}
	})

	t.Run("after invalidate", func(t *testing.T) {
		if err := tbl.Replace(red, palette.Identity(nil)); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		m.InvalidateDescriptors()
		if _, err := mat.GetDescriptorSet(RenderState{Translation: red}); err != nil {
			t.Fatalf("GetDescriptorSet: %v", err)
		}
		if base.decodes != 3 {
			t.Errorf("decodes = %d, want the layer uploaded again", base.decodes)
		}
		if base.lastTr != red {
			t.Errorf("uploaded with %s, want %s", base.lastTr, red)
		}
	})
}

func TestDescriptorSetClampModes(t *testing.T) {
	tests := []struct {
		name      string
		desc      MaterialDesc
		requested ClampMode
		want      ClampMode
	}{
		{"plain", MaterialDesc{}, ClampX, ClampX},
		{"warped wraps", MaterialDesc{Warped: true}, ClampXY, ClampNone},
		{"warped keeps nomip", MaterialDesc{Warped: true}, ClampXYNoMip, ClampXYNoMip},
		{"nofilter", MaterialDesc{NoFilter: true}, ClampY, ClampNoFilterY},
		{"nofilter none", MaterialDesc{NoFilter: true}, ClampNone, ClampNoFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(t)
			tt.desc.Layers = layers(&testSource{w: 2, h: 2})
			mat, _ := m.NewMaterial(tt.desc)
			if got := mat.EffectiveClampMode(tt.requested); got != tt.want {
				t.Errorf("EffectiveClampMode(%s) = %s, want %s", tt.requested, got, tt.want)
			}
		})
	}

	t.Run("canvas", func(t *testing.T) {
		m, dev, _ := newTestManager(t)
		mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(&testSource{w: 2, h: 2, canvas: true})})
		if got := mat.EffectiveClampMode(ClampNone); got != ClampCamTex {
			t.Errorf("canvas clamp = %s, want CamTex", got)
		}
		set, err := mat.GetDescriptorSet(RenderState{ClampMode: ClampX})
		if err != nil {
			t.Fatalf("GetDescriptorSet: %v", err)
		}
		s := dev.Samplers[dev.Sets[set][0].Sampler]
		if s.MaxLod != noMipLod || s.AddressU != gpucore.AddressClampToEdge {
			t.Errorf("canvas sampler = %+v", s)
		}
	})
}

func TestDeleteDescriptorsDeferred(t *testing.T) {
	m, dev, pacer := newTestManager(t)
	mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(&testSource{w: 2, h: 2})})
	set, _ := mat.GetDescriptorSet(RenderState{})

	mat.DeleteDescriptors()
	if mat.CachedSets() != 0 {
		t.Errorf("cached sets = %d after DeleteDescriptors", mat.CachedSets())
	}
	if _, ok := dev.Sets[set]; !ok {
		t.Fatal("descriptor set destroyed while its frame may be in flight")
	}

	next, err := mat.GetDescriptorSet(RenderState{})
	if err != nil {
		t.Fatalf("GetDescriptorSet after delete: %v", err)
	}
	if next == set {
		t.Error("rebuilt set reused the deleted id")
	}

	pacer.Complete(pacer.CurrentFrame())
	m.Collect()
	if dev.Destroyed[uint64(set)] != 1 {
		t.Errorf("old set destroyed %d times", dev.Destroyed[uint64(set)])
	}
	if _, ok := dev.Sets[next]; !ok {
		t.Error("live set destroyed")
	}
}

func TestInvalidateDescriptors(t *testing.T) {
	m, _, _ := newTestManager(t)
	var mats []*Material
	for i := 0; i < 3; i++ {
		mat, _ := m.NewMaterial(MaterialDesc{Layers: layers(&testSource{w: 2, h: 2})})
		if _, err := mat.GetDescriptorSet(RenderState{}); err != nil {
			t.Fatalf("GetDescriptorSet: %v", err)
		}
		mats = append(mats, mat)
	}
	if got := m.Stats().DescriptorSets; got != 3 {
		t.Fatalf("descriptor sets = %d", got)
	}
	m.InvalidateDescriptors()
	for _, mat := range mats {
		if mat.CachedSets() != 0 {
			t.Error("InvalidateDescriptors left a cached set")
		}
	}
}

func TestNewMaterialValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.NewMaterial(MaterialDesc{}); !errors.Is(err, ErrNoLayers) {
		t.Errorf("empty material err = %v", err)
	}
	if _, err := m.NewMaterial(MaterialDesc{Layers: []MaterialLayer{{}}}); err == nil {
		t.Error("expected error for layer without source")
	}
}
