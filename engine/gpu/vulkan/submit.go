package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// Submit enqueues cb on the graphics queue, signaling fence when the GPU
// has finished executing it. The queue mutex serializes concurrent
// submissions from the render and StageManager callback paths, since
// goki/vulkan's vkQueueSubmit is not safe for concurrent callers.
func (c *Context) Submit(cb *CommandBuffer, wait, signal []*Semaphore, fence *Fence) error {
	waitSemaphores := make([]vk.Semaphore, len(wait))
	for i, s := range wait {
		waitSemaphores[i] = s.handle
	}
	signalSemaphores := make([]vk.Semaphore, len(signal))
	for i, s := range signal {
		signalSemaphores[i] = s.handle
	}
	waitStages := make([]vk.PipelineStageFlags, len(wait))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.handle},
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}

	var fenceHandle vk.Fence
	if fence != nil {
		fenceHandle = fence.handle
	}

	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if res := vk.QueueSubmit(c.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fenceHandle); res != vk.Success {
		err := fmt.Errorf("vulkan: queue submit failed")
		core.LogError(err.Error())
		return err
	}
	if fence != nil {
		fence.isSignaled = false
	}
	return nil
}
