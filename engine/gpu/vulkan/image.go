package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// Image adapts a VkImage + VkImageView + backing VkDeviceMemory to
// engine/gpu.Image. Offscreen render targets and staged textures both use
// this type; the compositor never sees the raw handles.
type Image struct {
	ctx    *Context
	handle vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	width  uint32
	height uint32
}

// CreateImage allocates a color-attachment + sampled-image VkImage of the
// given dimensions, device-local, with an accompanying 2D view. Mirrors
// the teacher's ImageCreate, reduced to the one usage (RGBA8 offscreen
// color target / sampled texture) the compositor needs; mip levels and
// array layers are fixed at 1 since Scinths don't mipmap.
func (c *Context) CreateImage(width, height uint32) (*Image, error) {
	format := vk.FormatR8g8b8a8Unorm
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit) | vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent:    vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Format:      format,
		Tiling:      vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:       usage,
		Samples:     vk.SampleCount1Bit,
		SharingMode: vk.SharingModeExclusive,
	}

	img := &Image{ctx: c, width: width, height: height}
	if res := vk.CreateImage(c.Device, &createInfo, c.Allocator, &img.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create image")
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(c.Device, img.handle, &requirements)
	requirements.Deref()

	memType := c.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memType < 0 {
		return nil, fmt.Errorf("vulkan: no suitable memory type for image")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memType),
	}
	if res := vk.AllocateMemory(c.Device, &allocInfo, c.Allocator, &img.memory); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to allocate image memory")
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.BindImageMemory(c.Device, img.handle, img.memory, 0); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to bind image memory")
		core.LogError(err.Error())
		return nil, err
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	if res := vk.CreateImageView(c.Device, &viewInfo, c.Allocator, &img.view); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create image view")
		core.LogError(err.Error())
		return nil, err
	}

	return img, nil
}

func (i *Image) Width() uint32  { return i.width }
func (i *Image) Height() uint32 { return i.height }

func (i *Image) Destroy() {
	if i.view != nil {
		vk.DestroyImageView(i.ctx.Device, i.view, i.ctx.Allocator)
		i.view = nil
	}
	if i.memory != nil {
		vk.FreeMemory(i.ctx.Device, i.memory, i.ctx.Allocator)
		i.memory = nil
	}
	if i.handle != nil {
		vk.DestroyImage(i.ctx.Device, i.handle, i.ctx.Allocator)
		i.handle = nil
	}
}
