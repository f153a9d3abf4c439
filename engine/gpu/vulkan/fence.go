package vulkan

import (
	"context"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// Fence adapts a VkFence to engine/gpu.Fence.
type Fence struct {
	ctx        *Context
	handle     vk.Fence
	isSignaled bool
}

func (c *Context) CreateFence(signaled bool) (*Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if res := vk.CreateFence(c.Device, &info, c.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create fence")
		core.LogError(err.Error())
		return nil, err
	}
	return &Fence{ctx: c, handle: handle, isSignaled: signaled}, nil
}

// Wait blocks until the fence signals or timeoutNanos elapses, returning
// true on signal. It ignores ctx cancellation mid-wait since the
// underlying vkWaitForFences call cannot be interrupted; callers that need
// cancellation should pass a short timeout and retry.
func (f *Fence) Wait(_ context.Context, timeoutNanos uint64) bool {
	if f.isSignaled {
		return true
	}
	result := vk.WaitForFences(f.ctx.Device, 1, []vk.Fence{f.handle}, vk.True, timeoutNanos)
	switch result {
	case vk.Success:
		f.isSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("vulkan: fence wait timed out")
	default:
		core.LogError("vulkan: fence wait failed with result %v", result)
	}
	return false
}

func (f *Fence) Reset() error {
	if !f.isSignaled {
		return nil
	}
	if res := vk.ResetFences(f.ctx.Device, 1, []vk.Fence{f.handle}); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to reset fence")
		core.LogError(err.Error())
		return err
	}
	f.isSignaled = false
	return nil
}

func (f *Fence) Destroy() {
	if f.handle != nil {
		vk.DestroyFence(f.ctx.Device, f.handle, f.ctx.Allocator)
		f.handle = nil
	}
}

// Semaphore adapts a VkSemaphore to engine/gpu.Semaphore.
type Semaphore struct {
	ctx    *Context
	handle vk.Semaphore
}

func (c *Context) CreateSemaphore() (*Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(c.Device, &info, c.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create semaphore")
		core.LogError(err.Error())
		return nil, err
	}
	return &Semaphore{ctx: c, handle: handle}, nil
}

func (s *Semaphore) Destroy() {
	if s.handle != nil {
		vk.DestroySemaphore(s.ctx.Device, s.handle, s.ctx.Allocator)
		s.handle = nil
	}
}
