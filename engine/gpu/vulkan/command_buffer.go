package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// CommandBufferState mirrors the teacher's VulkanCommandBufferState enum,
// tracked here mainly so Begin/End/Reset catch programmer error early
// rather than handing the Vulkan validation layer a bad call order.
type CommandBufferState int

const (
	CommandBufferStateReady CommandBufferState = iota
	CommandBufferStateRecording
	CommandBufferStateInRenderPass
	CommandBufferStateRecordingEnded
)

// CommandBuffer adapts a VkCommandBuffer to engine/gpu.CommandBuffer.
type CommandBuffer struct {
	ctx    *Context
	handle vk.CommandBuffer
	state  CommandBufferState
}

func (c *Context) CreateCommandBuffer(primary bool) (*CommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if primary {
		level = vk.CommandBufferLevelPrimary
	}
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.CommandPool,
		CommandBufferCount: 1,
		Level:              level,
	}
	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(c.Device, &allocInfo, handles); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to allocate command buffer")
		core.LogError(err.Error())
		return nil, err
	}
	return &CommandBuffer{ctx: c, handle: handles[0], state: CommandBufferStateReady}, nil
}

func (cb *CommandBuffer) Begin(simultaneousUse, renderPassContinue bool) error {
	info := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if simultaneousUse {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if renderPassContinue {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if res := vk.BeginCommandBuffer(cb.handle, &info); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to begin command buffer")
		core.LogError(err.Error())
		return err
	}
	cb.state = CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) End() error {
	if res := vk.EndCommandBuffer(cb.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to end command buffer")
		core.LogError(err.Error())
		return err
	}
	cb.state = CommandBufferStateRecordingEnded
	return nil
}

func (cb *CommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(cb.handle, 0); res != vk.Success {
		return fmt.Errorf("vulkan: failed to reset command buffer")
	}
	cb.state = CommandBufferStateReady
	return nil
}

func (cb *CommandBuffer) BeginRenderPass(pass gpu.RenderPass, fb gpu.Framebuffer, clearColor [4]float32) error {
	rp := pass.(*RenderPass)
	framebuffer := fb.(*Framebuffer)

	clear := vk.NewClearValue([]float32{clearColor[0], clearColor[1], clearColor[2], clearColor[3]})
	info := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.handle,
		Framebuffer:     framebuffer.handle,
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clear},
	}
	vk.CmdBeginRenderPass(cb.handle, &info, vk.SubpassContentsSecondaryCommandBuffers)
	cb.state = CommandBufferStateInRenderPass
	return nil
}

func (cb *CommandBuffer) EndRenderPass() error {
	vk.CmdEndRenderPass(cb.handle)
	cb.state = CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) BindPipeline(p gpu.Pipeline) error {
	pipeline := p.(*Pipeline)
	vk.CmdBindPipeline(cb.handle, vk.PipelineBindPointGraphics, pipeline.handle)
	return nil
}

func (cb *CommandBuffer) BindVertexBuffer(b gpu.Buffer) error {
	buf := b.(*Buffer)
	vk.CmdBindVertexBuffers(cb.handle, 0, 1, []vk.Buffer{buf.handle}, []vk.DeviceSize{0})
	return nil
}

func (cb *CommandBuffer) BindIndexBuffer(b gpu.Buffer) error {
	buf := b.(*Buffer)
	vk.CmdBindIndexBuffer(cb.handle, buf.handle, 0, vk.IndexTypeUint32)
	return nil
}

func (cb *CommandBuffer) BindDescriptorSet(p gpu.Pipeline, set gpu.DescriptorSet) error {
	pipeline := p.(*Pipeline)
	ds := set.(*DescriptorSet)
	if ds.handle == nil {
		return nil
	}
	vk.CmdBindDescriptorSets(cb.handle, vk.PipelineBindPointGraphics, pipeline.layout, 0, 1, []vk.DescriptorSet{ds.handle}, 0, nil)
	return nil
}

func (cb *CommandBuffer) PushConstants(p gpu.Pipeline, data []byte) error {
	pipeline := p.(*Pipeline)
	if len(data) == 0 {
		return nil
	}
	vk.CmdPushConstants(cb.handle, pipeline.layout, vk.ShaderStageFlags(vk.ShaderStageFragmentBit), 0, uint32(len(data)), unsafePointer(data))
	return nil
}

func (cb *CommandBuffer) DrawIndexed(indexCount uint32) error {
	vk.CmdDrawIndexed(cb.handle, indexCount, 1, 0, 0, 0)
	return nil
}

func (cb *CommandBuffer) ExecuteCommands(secondaries []gpu.CommandBuffer) error {
	handles := make([]vk.CommandBuffer, len(secondaries))
	for i, s := range secondaries {
		handles[i] = s.(*CommandBuffer).handle
	}
	if len(handles) == 0 {
		return nil
	}
	vk.CmdExecuteCommands(cb.handle, uint32(len(handles)), handles)
	return nil
}

func (cb *CommandBuffer) CopyBufferToImage(src gpu.Buffer, dst gpu.Image) error {
	buf := src.(*Buffer)
	img := dst.(*Image)
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: img.width, Height: img.height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.handle, buf.handle, img.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	return nil
}

func (cb *CommandBuffer) CopyImageToBuffer(src gpu.Image, dst gpu.Buffer) error {
	img := src.(*Image)
	buf := dst.(*Buffer)
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: img.width, Height: img.height, Depth: 1},
	}
	vk.CmdCopyImageToBuffer(cb.handle, img.handle, vk.ImageLayoutTransferSrcOptimal, buf.handle, 1, []vk.BufferImageCopy{region})
	return nil
}

func (cb *CommandBuffer) Free() {
	vk.FreeCommandBuffers(cb.ctx.Device, cb.ctx.CommandPool, 1, []vk.CommandBuffer{cb.handle})
	cb.handle = nil
	cb.state = CommandBufferStateReady
}
