package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// RenderPass adapts a VkRenderPass to engine/gpu.RenderPass. One color
// attachment only: Scinths render into an offscreen RGBA8 target, never
// depth-tested (spec.md's synthesizer composites 2D shape-rate output,
// it does not depth-sort).
type RenderPass struct {
	ctx        *Context
	handle     vk.RenderPass
	clearColor [4]float32
}

func (c *Context) CreateRenderPass(clearColor [4]float32) (*RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         vk.FormatR8g8b8a8Unorm,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutTransferSrcOptimal,
	}
	colorRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	rp := &RenderPass{ctx: c, clearColor: clearColor}
	if res := vk.CreateRenderPass(c.Device, &info, c.Allocator, &rp.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create render pass")
		core.LogError(err.Error())
		return nil, err
	}
	return rp, nil
}

func (rp *RenderPass) Destroy() {
	if rp.handle != nil {
		vk.DestroyRenderPass(rp.ctx.Device, rp.handle, rp.ctx.Allocator)
		rp.handle = nil
	}
}

// Framebuffer adapts a VkFramebuffer to engine/gpu.Framebuffer.
type Framebuffer struct {
	ctx    *Context
	handle vk.Framebuffer
}

func (c *Context) CreateFramebuffer(pass *RenderPass, attachment *Image) (*Framebuffer, error) {
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{attachment.view},
		Width:           attachment.width,
		Height:          attachment.height,
		Layers:          1,
	}
	fb := &Framebuffer{ctx: c}
	if res := vk.CreateFramebuffer(c.Device, &info, c.Allocator, &fb.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create framebuffer")
		core.LogError(err.Error())
		return nil, err
	}
	return fb, nil
}

func (fb *Framebuffer) Destroy() {
	if fb.handle != nil {
		vk.DestroyFramebuffer(fb.ctx.Device, fb.handle, fb.ctx.Allocator)
		fb.handle = nil
	}
}
