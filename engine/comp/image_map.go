package comp

import (
	"sync"

	"github.com/scintillator/scsynth/engine/gpu"
)

// ImageMap is the id → GPU-image registry that parameterized sampler
// bindings and stage_image installs resolve against, per spec.md §3/§4.9.
type ImageMap struct {
	mu     sync.RWMutex
	images map[int64]gpu.Image
}

// NewImageMap returns an empty image map.
func NewImageMap() *ImageMap {
	return &ImageMap{images: make(map[int64]gpu.Image)}
}

// Get returns the image registered under id, or (nil, false).
func (m *ImageMap) Get(id int64) (gpu.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	return img, ok
}

// Install atomically replaces the image registered under id, destroying
// any previous occupant. Called by StageManager on transfer completion.
func (m *ImageMap) Install(id int64, img gpu.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.images[id]; ok {
		old.Destroy()
	}
	m.images[id] = img
}

// Free removes and destroys the image registered under id, if any.
func (m *ImageMap) Free(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img, ok := m.images[id]; ok {
		img.Destroy()
		delete(m.images, id)
	}
}

// IDs returns the currently registered image ids, in no particular order.
func (m *ImageMap) IDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.images))
	for id := range m.images {
		ids = append(ids, id)
	}
	return ids
}
