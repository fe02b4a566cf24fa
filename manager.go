package texres

import (
	"fmt"
	"strings"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/arena"
	"github.com/gogpu/texres/palette"
)

// Manager owns every texture, material and post-process texture created
// on one device, together with the transfer stream, the deferred deletion
// queue and the shared samplers.
//
// A Manager is driven from a single render thread and performs no locking.
type Manager struct {
	dev     gpucore.Device
	caps    gpucore.Capabilities
	cfg     Config
	pacer   FramePacer
	palette palette.Resolver

	deletes  *DeleteQueue
	transfer *transferStream
	samplers *samplerManager

	textures   arena.Arena[*HardwareTexture]
	materials  arena.Arena[*Material]
	ppTextures map[*PPTexture]struct{}
	null       *HardwareTexture

	closed bool
}

// NewManager creates a Manager on dev. pacer decides when deferred
// deletions may run; resolver may be nil when no palette translations are
// used.
func NewManager(dev gpucore.Device, pacer FramePacer, resolver palette.Resolver, opts ...Option) (*Manager, error) {
	if dev == nil {
		return nil, fmt.Errorf("texres: device must not be nil")
	}
	if pacer == nil {
		return nil, fmt.Errorf("texres: frame pacer must not be nil")
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		dev:        dev,
		caps:       dev.Capabilities(),
		cfg:        cfg,
		pacer:      pacer,
		palette:    resolver,
		deletes:    newDeleteQueue(dev, pacer, cfg.FramesInFlight),
		transfer:   newTransferStream(dev, cfg.UploadStallThreshold),
		samplers:   newSamplerManager(dev),
		ppTextures: make(map[*PPTexture]struct{}),
	}
	Logger().Info("texres: manager created",
		"framesInFlight", cfg.FramesInFlight,
		"mipmaps", cfg.GenerateMipmaps,
		"blitMipmaps", m.caps.BlitMipmaps)
	return m, nil
}

// Config returns the active configuration.
func (m *Manager) Config() Config { return m.cfg }

// Device returns the device the Manager was created on.
func (m *Manager) Device() gpucore.Device { return m.dev }

// DeleteQueue returns the deferred deletion queue. External owners of
// device objects that are referenced by recorded commands use it to free
// them safely.
func (m *Manager) DeleteQueue() *DeleteQueue { return m.deletes }

func (m *Manager) checkOpen() error {
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// NewTexture registers an empty hardware texture.
func (m *Manager) NewTexture() *HardwareTexture {
	t := &HardwareTexture{m: m}
	t.handle = TextureHandle{m.textures.Insert(t)}
	return t
}

// Texture resolves a handle. Handles of destroyed textures return
// ErrStaleHandle.
func (m *Manager) Texture(h TextureHandle) (*HardwareTexture, error) {
	t, ok := m.textures.Get(h.h)
	if !ok {
		return nil, fmt.Errorf("%w: texture %d/%d", ErrStaleHandle, h.h.Index(), h.h.Generation())
	}
	return t, nil
}

// DestroyTexture resets the texture and unregisters it.
func (m *Manager) DestroyTexture(h TextureHandle) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	t, ok := m.textures.Remove(h.h)
	if !ok {
		return fmt.Errorf("%w: texture %d/%d", ErrStaleHandle, h.h.Index(), h.h.Generation())
	}
	t.Reset()
	return nil
}

// NewMaterial registers a material.
func (m *Manager) NewMaterial(desc MaterialDesc) (*Material, error) {
	if len(desc.Layers) == 0 {
		return nil, ErrNoLayers
	}
	for i, l := range desc.Layers {
		if l.Source == nil {
			return nil, fmt.Errorf("texres: material layer %d has no source", i)
		}
	}
	mat := &Material{
		m:        m,
		desc:     desc,
		variants: make([][]translatedTexture, len(desc.Layers)),
	}
	mat.handle = MaterialHandle{m.materials.Insert(mat)}
	return mat, nil
}

// Material resolves a handle. Handles of destroyed materials return
// ErrStaleHandle.
func (m *Manager) Material(h MaterialHandle) (*Material, error) {
	mat, ok := m.materials.Get(h.h)
	if !ok {
		return nil, fmt.Errorf("%w: material %d/%d", ErrStaleHandle, h.h.Index(), h.h.Generation())
	}
	return mat, nil
}

// DestroyMaterial releases the material's descriptor sets and layer
// textures and unregisters it.
func (m *Manager) DestroyMaterial(h MaterialHandle) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	mat, ok := m.materials.Remove(h.h)
	if !ok {
		return fmt.Errorf("%w: material %d/%d", ErrStaleHandle, h.h.Index(), h.h.Generation())
	}
	mat.destroy()
	return nil
}

// nullImage returns the shared 1×1 image used to pad descriptor sets.
func (m *Manager) nullImage() (*TextureImage, error) {
	if m.null != nil && m.null.image.Resident() {
		return &m.null.image, nil
	}
	if m.null == nil {
		m.null = &HardwareTexture{m: m}
	}
	if err := m.null.createTexture(1, 1, 4, gpucore.FormatBGRA8Unorm, []byte{0, 0, 0, 0}, false); err != nil {
		m.null.image.reset(m.deletes)
		return nil, fmt.Errorf("texres: create null texture: %w", err)
	}
	return &m.null.image, nil
}

// InvalidateDescriptors drops the descriptor sets of every material, for
// example after a palette reload.
func (m *Manager) InvalidateDescriptors() {
	m.materials.Each(func(_ arena.Handle, mat *Material) {
		mat.DeleteDescriptors()
	})
}

// ResetTextures releases the device objects of every texture and
// material descriptor set. Everything materializes again on next use.
func (m *Manager) ResetTextures() {
	m.InvalidateDescriptors()
	m.textures.Each(func(_ arena.Handle, t *HardwareTexture) {
		t.Reset()
	})
	Logger().Info("texres: textures reset", "textures", m.textures.Len())
}

// WaitForCommands submits the transfer stream and blocks until the device
// has executed it. Staging memory of the stream is released.
func (m *Manager) WaitForCommands() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.transfer.waitForCommands()
}

// SubmitTransfers submits the uploads and layout transitions recorded so
// far without waiting. Call it before submitting draws that sample this
// frame's textures. Their staging buffers are released with the frame.
func (m *Manager) SubmitTransfers() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.transfer.flush(m.deletes, gpucore.InvalidID, 0)
}

// EndFrame submits any transfer commands still pending and collects
// deferred deletions of completed frames. With a FencePacer the frame
// fence is signaled after all work submitted to the device so far, so
// call it after the frame's draws have been submitted; the pacer then
// advances to the next frame.
func (m *Manager) EndFrame() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	sig, signals := m.pacer.(frameSignaler)
	var (
		fence gpucore.FenceID
		value uint64
	)
	if signals {
		fence, value = sig.signal()
	}
	if err := m.transfer.flush(m.deletes, fence, value); err != nil {
		return err
	}
	if signals {
		if err := sig.advance(); err != nil {
			return err
		}
	}
	m.deletes.Collect()
	return nil
}

// Collect frees deferred deletions of frames the pacer reports complete.
func (m *Manager) Collect() int {
	return m.deletes.Collect()
}

// Close waits for the device to go idle and releases everything the
// Manager created. The device itself is left to its owner.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	cmd, err := m.transfer.finish()
	if err == nil && cmd != gpucore.InvalidID {
		err = m.dev.Submit(cmd, gpucore.InvalidID, 0)
	}
	if werr := m.dev.WaitIdle(); werr != nil && err == nil {
		err = fmt.Errorf("texres: wait idle: %w", werr)
	}

	m.materials.Each(func(_ arena.Handle, mat *Material) { mat.DeleteDescriptors() })
	m.textures.Each(func(_ arena.Handle, t *HardwareTexture) { t.Reset() })
	for p := range m.ppTextures {
		p.Destroy()
	}
	if m.null != nil {
		m.null.Reset()
	}
	m.transfer.destroy()
	m.samplers.destroy()
	freed := m.deletes.DrainAll()
	m.closed = true

	Logger().Info("texres: manager closed", "freed", freed)
	return err
}

// Stats is a snapshot of Manager state.
type Stats struct {
	Textures       int
	Materials      int
	PPTextures     int
	ResidentImages int
	DescriptorSets int
	Samplers       int
	Uploads        int
	UploadBytes    int64
	Stalls         int
	PendingDeletes int
	Freed          int
}

// Stats returns a snapshot of the Manager's counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Textures:       m.textures.Len(),
		Materials:      m.materials.Len(),
		PPTextures:     len(m.ppTextures),
		Samplers:       m.samplers.samplers.Len(),
		Uploads:        m.transfer.uploadCount,
		UploadBytes:    m.transfer.uploadBytes,
		Stalls:         m.transfer.stalls,
		PendingDeletes: m.deletes.Pending() + m.transfer.uploads.Len(),
		Freed:          m.deletes.freed,
	}
	m.textures.Each(func(_ arena.Handle, t *HardwareTexture) {
		if t.image.Resident() {
			s.ResidentImages++
		}
		if t.depthStencil.Resident() {
			s.ResidentImages++
		}
	})
	m.materials.Each(func(_ arena.Handle, mat *Material) {
		s.DescriptorSets += len(mat.sets)
	})
	return s
}

// String formats the stats on one line.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "textures=%d materials=%d pp=%d resident=%d sets=%d samplers=%d",
		s.Textures, s.Materials, s.PPTextures, s.ResidentImages, s.DescriptorSets, s.Samplers)
	fmt.Fprintf(&b, " uploads=%d uploadBytes=%d stalls=%d pendingDeletes=%d freed=%d",
		s.Uploads, s.UploadBytes, s.Stalls, s.PendingDeletes, s.Freed)
	return b.String()
}
