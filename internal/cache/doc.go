// Package cache provides a small generic LRU cache for GPU objects such as
// samplers and descriptor set layouts.
//
//	samplers := cache.New[ClampMode, gpucore.SamplerID](0, func(_ ClampMode, s gpucore.SamplerID) {
//	    dev.DestroySampler(s)
//	})
//	s, err := samplers.GetOrCreate(mode, func() (gpucore.SamplerID, error) {
//	    return dev.CreateSampler(desc)
//	})
//
// Evicted and cleared values are handed to the callback passed to [New] so
// the owner can release the native object.
package cache
