package comp

import (
	"fmt"

	"github.com/scintillator/scsynth/engine/gpu"
)

// PrepareFrame runs the per-frame traversal described in spec.md §4.7: it
// resets ctx, walks the tree's running Scinths in flat-list order calling
// PrepareFrame on each (retaining a shared reference so a concurrent
// node_free can't free GPU resources still in flight this frame), then
// rebuilds the primary command buffer if the tree is dirty.
func PrepareFrame(tree *RenderTree, driver gpu.Driver, fb gpu.Framebuffer, renderPass gpu.RenderPass, clearColor [4]float32, ctx *FrameContext, frameTime float64) error {
	ctx.Reset()
	ctx.FrameTime = frameTime

	for _, s := range tree.RunningScinths() {
		if err := s.PrepareFrame(driver, fb, ctx.ImageIndex, frameTime); err != nil {
			return fmt.Errorf("prepare_frame: scinth %d: %w", s.ID, err)
		}
		ctx.Retain(s)
	}

	if tree.Dirty() {
		primary, err := buildPrimaryCommandBuffer(driver, fb, renderPass, clearColor, ctx.SecondaryCommandBuffers())
		if err != nil {
			return fmt.Errorf("prepare_frame: rebuild primary: %w", err)
		}
		ctx.SetPrimary(nil, primary)
		tree.ClearDirty()
	}

	return nil
}

// buildPrimaryCommandBuffer records the one-per-image-slot primary buffer:
// simultaneous-use, begin-render-pass with clear color, a single
// execute-commands over every secondary draw buffer in flat-list order,
// end-render-pass.
func buildPrimaryCommandBuffer(driver gpu.Driver, fb gpu.Framebuffer, renderPass gpu.RenderPass, clearColor [4]float32, secondaries []gpu.CommandBuffer) (gpu.CommandBuffer, error) {
	cb, err := driver.CreateCommandBuffer(true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false); err != nil {
		return nil, err
	}
	if err := cb.BeginRenderPass(renderPass, fb, clearColor); err != nil {
		return nil, err
	}
	if len(secondaries) > 0 {
		if err := cb.ExecuteCommands(secondaries); err != nil {
			return nil, err
		}
	}
	if err := cb.EndRenderPass(); err != nil {
		return nil, err
	}
	if err := cb.End(); err != nil {
		return nil, err
	}
	return cb, nil
}
