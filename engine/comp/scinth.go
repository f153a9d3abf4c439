package comp

import (
	"fmt"
	"sync"

	"github.com/scintillator/scsynth/engine/base"
	"github.com/scintillator/scsynth/engine/gpu"
)

// Scinth is one running instance of a ScinthDef: a node id, per-in-flight-
// image GPU resources, a dense parameter array, and the cue/dirty state
// that drives prepare_frame.
type Scinth struct {
	ID   int64
	Def  *ScinthDef
	Name string

	mu        sync.Mutex
	running   bool
	cued      bool
	startTime float64
	params    []float32
	dirty     bool

	imageCount int
	uniforms   []gpu.Buffer
	descSets   []gpu.DescriptorSet
	secondary  []gpu.CommandBuffer
}

// NewScinth instantiates a Scinth against a compiled def. imageCount is
// the offscreen driver's in-flight image pool size; a Scinth must have a
// uniform buffer, descriptor set, and secondary command buffer for every
// slot since any slot can be selected by the next prepare_frame.
func NewScinth(id int64, def *ScinthDef, driver gpu.Driver, imageCount int, initialParams map[string]float32) (*Scinth, error) {
	params := make([]float32, len(def.Abstract.Parameters))
	for i, p := range def.Abstract.Parameters {
		params[i] = p.DefaultValue
	}
	for name, v := range initialParams {
		idx, ok := def.Abstract.IndexForParameterName(name)
		if !ok {
			return nil, fmt.Errorf("scinth %d: unknown parameter %q", id, name)
		}
		params[idx] = v
	}

	s := &Scinth{
		ID:         id,
		Def:        def,
		Name:       def.Abstract.Name,
		running:    true,
		cued:       true,
		params:     params,
		dirty:      true,
		imageCount: imageCount,
		uniforms:   make([]gpu.Buffer, imageCount),
		descSets:   make([]gpu.DescriptorSet, imageCount),
		secondary:  make([]gpu.CommandBuffer, imageCount),
	}

	for i := 0; i < imageCount; i++ {
		buf, err := driver.CreateBuffer(uint64(def.Abstract.UniformManifest.SizeInBytes()), gpu.BufferUsageUniform)
		if err != nil {
			return nil, fmt.Errorf("scinth %d: uniform buffer %d: %w", id, i, err)
		}
		s.uniforms[i] = buf

		ds, err := driver.CreateDescriptorSet(def.Pipeline())
		if err != nil {
			return nil, fmt.Errorf("scinth %d: descriptor set %d: %w", id, i, err)
		}
		s.descSets[i] = ds

		cb, err := driver.CreateCommandBuffer(false)
		if err != nil {
			return nil, fmt.Errorf("scinth %d: secondary command buffer %d: %w", id, i, err)
		}
		s.secondary[i] = cb
	}

	return s, nil
}

// SetRunning toggles whether this Scinth participates in prepare_frame.
func (s *Scinth) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// Running reports whether this Scinth is currently running.
func (s *Scinth) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetParameter writes one parameter by index and marks command buffers
// dirty so the next prepare_frame rebuilds them with the new push-constant
// value baked in. Index validity is the caller's responsibility (resolved
// against Def.Abstract.IndexForParameterName beforehand).
func (s *Scinth) SetParameter(index int, value float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.params) {
		return fmt.Errorf("scinth %d: parameter index %d out of range", s.ID, index)
	}
	s.params[index] = value
	s.dirty = true
	return nil
}

// Parameters returns a copy of the current dense parameter array.
func (s *Scinth) Parameters() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.params))
	copy(out, s.params)
	return out
}

// MarkDirty forces a command-buffer rebuild on the next prepare_frame,
// e.g. after an image-map install changes a parameterized sampler's bound
// image.
func (s *Scinth) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// SecondaryCommandBuffer returns the cached secondary draw buffer for the
// given in-flight image index, valid after PrepareFrame has run for that
// index at least once.
func (s *Scinth) SecondaryCommandBuffer(imageIndex int) gpu.CommandBuffer {
	return s.secondary[imageIndex]
}

// PrepareFrame updates this Scinth's state for one in-flight image slot,
// per spec.md §4.7: write the uniform time element, latch start_time on
// first cue, and rebuild secondary command buffers if dirty.
func (s *Scinth) PrepareFrame(driver gpu.Driver, fb gpu.Framebuffer, imageIndex int, frameTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cued {
		s.startTime = frameTime
		s.cued = false
	}

	if err := s.writeUniforms(imageIndex, frameTime); err != nil {
		return err
	}

	if s.dirty {
		if err := s.rebuildSecondary(fb, imageIndex); err != nil {
			return err
		}
		s.dirty = false
	}
	return nil
}

func (s *Scinth) writeUniforms(imageIndex int, frameTime float64) error {
	m := s.Def.Abstract.UniformManifest
	if m.SizeInBytes() == 0 {
		return nil
	}
	data := make([]byte, m.SizeInBytes())
	for _, el := range m.Elements() {
		if el.Intrinsic == base.IntrinsicTime {
			putFloat32(data[el.Offset:], float32(frameTime-s.startTime))
		}
	}
	return s.uniforms[imageIndex].LoadData(0, data)
}

// rebuildSecondary re-records the secondary command buffer for one image
// slot: inherited render pass, pushed parameter constants, bound pipeline/
// buffers/descriptor set, draw-indexed over the shape's index count.
func (s *Scinth) rebuildSecondary(fb gpu.Framebuffer, imageIndex int) error {
	cb := s.secondary[imageIndex]
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(true, true); err != nil {
		return err
	}
	if err := cb.BindPipeline(s.Def.Pipeline()); err != nil {
		return err
	}
	if err := cb.BindVertexBuffer(s.Def.VertexBuffer()); err != nil {
		return err
	}
	if err := cb.BindIndexBuffer(s.Def.IndexBuffer()); err != nil {
		return err
	}
	if ds := s.descSets[imageIndex]; ds != nil {
		if err := cb.BindDescriptorSet(s.Def.Pipeline(), ds); err != nil {
			return err
		}
	}
	pushData := make([]byte, len(s.params)*4)
	for i, p := range s.params {
		putFloat32(pushData[i*4:], p)
	}
	if len(pushData) > 0 {
		if err := cb.PushConstants(s.Def.Pipeline(), pushData); err != nil {
			return err
		}
	}
	if err := cb.DrawIndexed(s.Def.IndexCount()); err != nil {
		return err
	}
	return cb.End()
}

// Destroy releases this Scinth's per-image uniform buffers and every
// per-image descriptor set whose concrete type has a Destroy method
// (gpu.DescriptorSet itself declares none). The secondary command buffers
// are not released.
func (s *Scinth) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, buf := range s.uniforms {
		if buf != nil {
			buf.Destroy()
		}
	}
	for _, ds := range s.descSets {
		if d, ok := ds.(interface{ Destroy() }); ok {
			d.Destroy()
		}
	}
}
