package comp

import "github.com/scintillator/scsynth/engine/gpu"

// FrameContext is the per-in-flight-image-slot carrier described in
// spec.md §3/§4.7: the image index, frame time, retained references that
// keep GPU resources alive against concurrent deletion, and the primary
// command buffers submitted this frame.
type FrameContext struct {
	ImageIndex int
	FrameTime  float64

	// retainedScinths holds a shared reference to every Scinth whose
	// secondary command buffer is included this frame, so a concurrent
	// node_free cannot destroy GPU resources still queued for submission.
	retainedScinths []*Scinth
	secondary       []gpu.CommandBuffer

	primaryCompute gpu.CommandBuffer
	primaryDraw    gpu.CommandBuffer
}

// NewFrameContext returns an empty context for the given image slot.
func NewFrameContext(imageIndex int) *FrameContext {
	return &FrameContext{ImageIndex: imageIndex}
}

// Reset clears the secondary command lists and retained references,
// called at the start of prepare_frame per spec.md §4.7 step 1.
func (c *FrameContext) Reset() {
	c.retainedScinths = c.retainedScinths[:0]
	c.secondary = c.secondary[:0]
}

// Retain appends scinth's secondary draw buffer and a retaining reference
// to it, keeping its GPU resources alive for the duration of this frame's
// submission.
func (c *FrameContext) Retain(s *Scinth) {
	c.retainedScinths = append(c.retainedScinths, s)
	c.secondary = append(c.secondary, s.SecondaryCommandBuffer(c.ImageIndex))
}

// SecondaryCommandBuffers returns the snapshot of secondary buffers
// gathered this frame, in flat-list (submission) order.
func (c *FrameContext) SecondaryCommandBuffers() []gpu.CommandBuffer {
	return c.secondary
}

// SetPrimary installs the rebuilt primary compute/draw command buffers,
// per spec.md §4.7 step 4 (only when the tree's dirty flag was set).
func (c *FrameContext) SetPrimary(compute, draw gpu.CommandBuffer) {
	c.primaryCompute = compute
	c.primaryDraw = draw
}

// PrimaryDraw returns the primary draw command buffer currently installed
// for this slot.
func (c *FrameContext) PrimaryDraw() gpu.CommandBuffer { return c.primaryDraw }

// PrimaryCompute returns the primary compute command buffer currently
// installed for this slot.
func (c *FrameContext) PrimaryCompute() gpu.CommandBuffer { return c.primaryCompute }
