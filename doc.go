// Package texres manages the device-side lifetime of textures for a
// real-time renderer: lazy creation and upload of images, layout
// transitions, mip generation, per-material descriptor set caching and
// deferred destruction of device objects until the GPU frames that use
// them have completed.
//
// # Overview
//
// A [Manager] is created on a [gpucore.Device] (see backend/wgpu and
// backend/vulkan) and a [FramePacer]:
//
//	dev, name, err := backend.Default()
//	pacer, err := texres.NewFencePacer(dev, texres.DefaultFramesInFlight)
//	m, err := texres.NewManager(dev, pacer, paletteTable)
//	defer m.Close()
//
// Materials describe their layers through [PixelSource] values. Nothing
// touches the device until a descriptor set is requested:
//
//	mat, err := m.NewMaterial(texres.MaterialDesc{
//	    Layers: []texres.MaterialLayer{{Source: wall}, {Source: brightmap}},
//	})
//	set, err := mat.GetDescriptorSet(texres.RenderState{ClampMode: texres.ClampNone})
//	...
//	err = m.SubmitTransfers() // uploads and transitions before the draws
//	dev.Submit(draws, gpucore.InvalidID, 0)
//	err = m.EndFrame()        // frame fence covers the draws
//
// # Residency
//
// Every [TextureImage] is Unmaterialized until first use, Materializing
// while its upload is recorded, then Resident. Resetting a texture hands
// its device objects to the [DeleteQueue] and returns it to
// Unmaterialized. Layouts only change through an [ImageTransition].
//
// # Upload budget
//
// Staged uploads are accounted per transfer command stream. Once more than
// [UploadStallThreshold] bytes are staged, the stream is submitted and
// waited on before the upload call returns.
//
// # Threading
//
// The Manager and every object it hands out must be used from one
// goroutine, normally the render thread.
package texres
