package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/cache"
)

// ClampMode selects texture coordinate wrapping and filtering for a
// material binding.
type ClampMode int

// Clamp modes.
const (
	ClampNone ClampMode = iota
	ClampX
	ClampY
	ClampXY
	ClampXYNoMip
	ClampNoFilter
	ClampNoFilterX
	ClampNoFilterY
	ClampNoFilterXY
	ClampCamTex
	numClampModes
)

var clampNames = [numClampModes]string{
	"None", "X", "Y", "XY", "XYNoMip", "NoFilter", "NoFilterX", "NoFilterY", "NoFilterXY", "CamTex",
}

// String returns the clamp mode name.
func (c ClampMode) String() string {
	if c < 0 || c >= numClampModes {
		return fmt.Sprintf("ClampMode(%d)", int(c))
	}
	return clampNames[c]
}

// noMipLod restricts sampling to the base level.
const noMipLod = 0.25

// samplerDesc returns the sampler state for a clamp mode.
func samplerDesc(c ClampMode) gpucore.SamplerDesc {
	d := gpucore.SamplerDesc{
		Label:        "texres sampler " + c.String(),
		AddressU:     gpucore.AddressRepeat,
		AddressV:     gpucore.AddressRepeat,
		MagFilter:    gpucore.FilterLinear,
		MinFilter:    gpucore.FilterLinear,
		MipmapFilter: gpucore.FilterLinear,
	}
	switch c {
	case ClampX, ClampNoFilterX:
		d.AddressU = gpucore.AddressClampToEdge
	case ClampY, ClampNoFilterY:
		d.AddressV = gpucore.AddressClampToEdge
	case ClampXY, ClampXYNoMip, ClampNoFilterXY, ClampCamTex:
		d.AddressU = gpucore.AddressClampToEdge
		d.AddressV = gpucore.AddressClampToEdge
	}
	switch c {
	case ClampNoFilter, ClampNoFilterX, ClampNoFilterY, ClampNoFilterXY:
		d.MagFilter = gpucore.FilterNearest
		d.MinFilter = gpucore.FilterNearest
		d.MipmapFilter = gpucore.FilterNearest
	case ClampXYNoMip, ClampCamTex:
		d.MaxLod = noMipLod
	}
	return d
}

// samplerManager owns one sampler per clamp mode.
type samplerManager struct {
	dev      gpucore.Device
	samplers *cache.Cache[ClampMode, gpucore.SamplerID]
}

func newSamplerManager(dev gpucore.Device) *samplerManager {
	return &samplerManager{
		dev: dev,
		samplers: cache.New(0, func(_ ClampMode, s gpucore.SamplerID) {
			dev.DestroySampler(s)
		}),
	}
}

// get returns the sampler for c, creating it on first use.
func (sm *samplerManager) get(c ClampMode) (gpucore.SamplerID, error) {
	if c < 0 || c >= numClampModes {
		return gpucore.InvalidID, fmt.Errorf("texres: invalid clamp mode %d", int(c))
	}
	return sm.samplers.GetOrCreate(c, func() (gpucore.SamplerID, error) {
		d := samplerDesc(c)
		s, err := sm.dev.CreateSampler(&d)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("texres: create sampler %s: %w", c, err)
		}
		return s, nil
	})
}

// destroy releases every sampler. The device must be idle.
func (sm *samplerManager) destroy() {
	sm.samplers.Clear()
}
