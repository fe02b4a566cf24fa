package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/arena"
	"github.com/gogpu/texres/palette"
)

// MaterialHandle addresses a Material in its Manager.
type MaterialHandle struct{ h arena.Handle }

// IsZero reports whether the handle is unset.
func (h MaterialHandle) IsZero() bool { return h.h.IsZero() }

// MaterialLayer is one texture layer of a material.
type MaterialLayer struct {
	Source PixelSource
	Flags  UploadFlags
}

// MaterialDesc describes a material. Layer 0 is the base texture; further
// layers are normal maps, bright maps and the like, or for indexed
// materials the two palette lookup layers.
type MaterialDesc struct {
	Layers []MaterialLayer

	// Indexed materials sample palette indices from the base layer.
	Indexed bool

	// Warped materials always wrap in both directions.
	Warped bool

	// NoFilter materials use nearest filtering.
	NoFilter bool
}

// RenderState selects a descriptor set variant of a material.
type RenderState struct {
	ClampMode   ClampMode
	Translation palette.Translation
}

type descriptorEntry struct {
	clampMode      ClampMode
	translation    palette.Translation
	translationKey uint64
	set            gpucore.DescriptorSetID
}

// translatedTexture is one translation variant of a layer. key is the
// translation key the image was uploaded with.
type translatedTexture struct {
	translation palette.Translation
	key         uint64
	tex         TextureHandle
}

// Material binds a set of texture layers for drawing and caches one
// descriptor set per (clamp mode, translation).
type Material struct {
	m      *Manager
	handle MaterialHandle
	desc   MaterialDesc

	variants [][]translatedTexture
	sets     []descriptorEntry
}

// remapKeyBit tags translation keys derived from remap identities so they
// cannot collide with direct luminosity translation values.
const remapKeyBit = 1 << 63

// Handle returns the material's handle in its Manager.
func (mat *Material) Handle() MaterialHandle { return mat.handle }

// NumLayers returns the declared number of layers.
func (mat *Material) NumLayers() int { return len(mat.desc.Layers) }

// CachedSets returns the number of cached descriptor sets.
func (mat *Material) CachedSets() int { return len(mat.sets) }

// EffectiveClampMode applies material overrides to a requested clamp mode.
func (mat *Material) EffectiveClampMode(requested ClampMode) ClampMode {
	if mat.desc.Layers[0].Source.IsHardwareCanvas() {
		return ClampCamTex
	}
	if mat.desc.Warped && requested <= ClampXY {
		return ClampNone
	}
	if mat.desc.NoFilter && requested <= ClampXY {
		return ClampNoFilter + requested
	}
	return requested
}

// translationKey returns the cache identity of a translation.
func (mat *Material) translationKey(t palette.Translation) (uint64, error) {
	if t == 0 || t.IsLuminosity() {
		return uint64(uint32(t)), nil
	}
	if mat.m.palette == nil {
		return 0, fmt.Errorf("texres: translation %s without a palette resolver", t)
	}
	remap, err := mat.m.palette.Resolve(t)
	if err != nil {
		return 0, fmt.Errorf("texres: resolve translation: %w", err)
	}
	return remapKeyBit | remap.ID(), nil
}

// layer returns the hardware texture of layer i for a translation,
// creating it on first use.
// A variant whose remap was replaced since its upload is released and
// created again.
func (mat *Material) layer(i int, translation palette.Translation, key uint64) (*HardwareTexture, error) {
	for j, v := range mat.variants[i] {
		if v.translation != translation {
			continue
		}
		if v.key == key {
			return mat.m.Texture(v.tex)
		}
		mat.releaseTexture(v.tex)
		mat.variants[i] = append(mat.variants[i][:j], mat.variants[i][j+1:]...)
		break
	}
	tex := mat.m.NewTexture()
	mat.variants[i] = append(mat.variants[i], translatedTexture{translation: translation, key: key, tex: tex.Handle()})
	return tex, nil
}

func (mat *Material) releaseTexture(h TextureHandle) {
	if err := mat.m.DestroyTexture(h); err != nil {
		Logger().Debug("texres: layer texture release failed", "err", err)
	}
}

// layerImage returns the image of layer i, uploaded with uploadTranslation.
func (mat *Material) layerImage(i int, translation palette.Translation, key uint64, uploadTranslation palette.Translation) (*TextureImage, error) {
	tex, err := mat.layer(i, translation, key)
	if err != nil {
		return nil, err
	}
	l := mat.desc.Layers[i]
	flags := l.Flags
	if i == 0 && mat.desc.Indexed {
		flags |= FlagIndexed
	}
	return tex.GetImage(l.Source, uploadTranslation, flags)
}

// GetDescriptorSet returns the descriptor set for state, building it on a
// cache miss. A hit performs no device work.
func (mat *Material) GetDescriptorSet(state RenderState) (gpucore.DescriptorSetID, error) {
	clamp := mat.EffectiveClampMode(state.ClampMode)
	key, err := mat.translationKey(state.Translation)
	if err != nil {
		return gpucore.InvalidID, err
	}
	for _, e := range mat.sets {
		if e.clampMode == clamp && e.translationKey == key {
			return e.set, nil
		}
	}
	if err := mat.m.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}

	mat.dropStaleSets(state.Translation, key)
	set, err := mat.buildSet(clamp, state.Translation, key)
	if err != nil {
		return gpucore.InvalidID, err
	}
	mat.sets = append(mat.sets, descriptorEntry{clampMode: clamp, translation: state.Translation, translationKey: key, set: set})
	return set, nil
}

// dropStaleSets defers deletion of sets built for translation under a
// remap that has since been replaced.
func (mat *Material) dropStaleSets(translation palette.Translation, key uint64) {
	n := 0
	for _, e := range mat.sets {
		if e.translation == translation && e.translationKey != key {
			mat.m.deletes.DescriptorSet(e.set)
			continue
		}
		mat.sets[n] = e
		n++
	}
	mat.sets = mat.sets[:n]
}

func (mat *Material) buildSet(clamp ClampMode, translation palette.Translation, key uint64) (gpucore.DescriptorSetID, error) {
	m := mat.m
	numLayers := len(mat.desc.Layers)
	if mat.desc.Indexed && numLayers < 3 {
		return gpucore.InvalidID, fmt.Errorf("texres: indexed material needs 3 layers, has %d", numLayers)
	}
	slots := max(numLayers, m.cfg.MinTextureLayers)

	sampler, err := m.samplers.get(clamp)
	if err != nil {
		return gpucore.InvalidID, err
	}

	writes := make([]gpucore.ImageWrite, 0, slots)
	bind := func(img *TextureImage) {
		writes = append(writes, gpucore.ImageWrite{
			Binding: len(writes),
			View:    img.view,
			Sampler: sampler,
			Layout:  img.layout,
		})
	}

	base, err := mat.layerImage(0, translation, key, translation)
	if err != nil {
		return gpucore.InvalidID, err
	}
	bind(base)

	if mat.desc.Indexed {
		for i := 1; i < 3; i++ {
			img, err := mat.layerImage(i, translation, key, 0)
			if err != nil {
				return gpucore.InvalidID, err
			}
			bind(img)
		}
		numLayers = 3
	} else {
		for i := 1; i < numLayers; i++ {
			img, err := mat.layerImage(i, 0, 0, 0)
			if err != nil {
				return gpucore.InvalidID, err
			}
			bind(img)
		}
	}

	if numLayers < slots {
		null, err := m.nullImage()
		if err != nil {
			return gpucore.InvalidID, err
		}
		for i := numLayers; i < slots; i++ {
			writes = append(writes, gpucore.ImageWrite{
				Binding: i,
				View:    null.view,
				Sampler: sampler,
				Layout:  gpucore.LayoutShaderReadOnly,
			})
		}
	}

	set, err := m.dev.CreateDescriptorSet("texres material", slots)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("texres: allocate descriptor set (%d slots): %w", slots, err)
	}
	if err := m.dev.WriteDescriptorSet(set, writes); err != nil {
		m.deletes.DescriptorSet(set)
		return gpucore.InvalidID, fmt.Errorf("texres: write descriptor set: %w", err)
	}
	Logger().Debug("texres: descriptor set built", "clamp", clamp, "translation", translation, "layers", numLayers, "slots", slots)
	return set, nil
}

// DeleteDescriptors defers deletion of every cached set and empties the
// cache. Call it whenever the material's images change.
func (mat *Material) DeleteDescriptors() {
	for _, e := range mat.sets {
		mat.m.deletes.DescriptorSet(e.set)
	}
	mat.sets = mat.sets[:0]
}

// destroy releases descriptor sets and every layer texture.
func (mat *Material) destroy() {
	mat.DeleteDescriptors()
	for i := range mat.variants {
		for _, v := range mat.variants[i] {
			mat.releaseTexture(v.tex)
		}
		mat.variants[i] = nil
	}
}
