package comp

import (
	"sync"

	"github.com/scintillator/scsynth/engine/gpu"
)

// SamplerFactory deduplicates GPU Sampler objects by their 32-bit
// AbstractSampler key, per spec.md §4.9. Creation happens inside the lock
// so concurrent get_sampler calls for the same key cannot race to create
// two distinct GPU samplers.
type SamplerFactory struct {
	mu      sync.Mutex
	driver  gpu.Driver
	entries map[uint32]*samplerEntry
}

type samplerEntry struct {
	sampler  gpu.Sampler
	refcount int
}

// NewSamplerFactory returns an empty factory backed by driver.
func NewSamplerFactory(driver gpu.Driver) *SamplerFactory {
	return &SamplerFactory{driver: driver, entries: make(map[uint32]*samplerEntry)}
}

// GetSampler returns the shared Sampler for key, creating it on first use
// and incrementing its refcount.
func (f *SamplerFactory) GetSampler(key uint32) (gpu.Sampler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.entries[key]; ok {
		e.refcount++
		return e.sampler, nil
	}

	s, err := f.driver.CreateSampler(key)
	if err != nil {
		return nil, err
	}
	f.entries[key] = &samplerEntry{sampler: s, refcount: 1}
	return s, nil
}

// ReleaseSampler decrements the refcount for sampler's key and destroys it
// once no references remain.
func (f *SamplerFactory) ReleaseSampler(key uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[key]
	if !ok {
		return
	}
	e.refcount--
	if e.refcount <= 0 {
		e.sampler.Destroy()
		delete(f.entries, key)
	}
}

// RefCount reports the current refcount for key (0 if absent), for tests.
func (f *SamplerFactory) RefCount(key uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[key]; ok {
		return e.refcount
	}
	return 0
}
