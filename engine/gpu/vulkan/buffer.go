package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// Buffer adapts a VkBuffer + backing VkDeviceMemory to engine/gpu.Buffer.
// Vertex, index, uniform, and staging buffers are all host-visible and
// host-coherent here (CPUs write vertex data once at def-compile time and
// uniform data once per frame; neither is large enough to justify a
// staged device-local copy).
type Buffer struct {
	ctx    *Context
	handle vk.Buffer
	memory vk.DeviceMemory
	size   uint64
}

func usageFlags(usage gpu.BufferUsage) vk.BufferUsageFlagBits {
	switch usage {
	case gpu.BufferUsageVertex:
		return vk.BufferUsageVertexBufferBit
	case gpu.BufferUsageIndex:
		return vk.BufferUsageIndexBufferBit
	case gpu.BufferUsageUniform:
		return vk.BufferUsageUniformBufferBit
	default:
		return vk.BufferUsageTransferSrcBit
	}
}

func (c *Context) CreateBuffer(sizeInBytes uint64, usage gpu.BufferUsage) (*Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       vk.BufferUsageFlags(usageFlags(usage)),
		SharingMode: vk.SharingModeExclusive,
	}

	b := &Buffer{ctx: c, size: sizeInBytes}
	if res := vk.CreateBuffer(c.Device, &createInfo, c.Allocator, &b.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create buffer")
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.Device, b.handle, &requirements)
	requirements.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	memType := c.FindMemoryIndex(requirements.MemoryTypeBits, props)
	if memType < 0 {
		return nil, fmt.Errorf("vulkan: no suitable memory type for buffer")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memType),
	}
	if res := vk.AllocateMemory(c.Device, &allocInfo, c.Allocator, &b.memory); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to allocate buffer memory")
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.BindBufferMemory(c.Device, b.handle, b.memory, 0); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to bind buffer memory")
		core.LogError(err.Error())
		return nil, err
	}
	return b, nil
}

func (b *Buffer) SizeInBytes() uint64 { return b.size }

// LoadData maps the whole buffer, copies data at offset, and unmaps. Safe
// to call every frame for uniform updates since the memory is host-coherent.
func (b *Buffer) LoadData(offset uint64, data []byte) error {
	var mapped unsafe.Pointer
	if res := vk.MapMemory(b.ctx.Device, b.memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to map buffer memory")
		core.LogError(err.Error())
		return err
	}
	dst := unsafe.Slice((*byte)(mapped), len(data))
	copy(dst, data)
	vk.UnmapMemory(b.ctx.Device, b.memory)
	return nil
}

// ReadData maps the buffer at offset and copies len(dst) bytes out. Used
// to pull readback image bytes back to the host after CopyImageToBuffer.
func (b *Buffer) ReadData(offset uint64, dst []byte) error {
	var mapped unsafe.Pointer
	if res := vk.MapMemory(b.ctx.Device, b.memory, vk.DeviceSize(offset), vk.DeviceSize(len(dst)), 0, &mapped); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to map buffer memory for read")
		core.LogError(err.Error())
		return err
	}
	src := unsafe.Slice((*byte)(mapped), len(dst))
	copy(dst, src)
	vk.UnmapMemory(b.ctx.Device, b.memory)
	return nil
}

func (b *Buffer) Destroy() {
	if b.memory != nil {
		vk.FreeMemory(b.ctx.Device, b.memory, b.ctx.Allocator)
		b.memory = nil
	}
	if b.handle != nil {
		vk.DestroyBuffer(b.ctx.Device, b.handle, b.ctx.Allocator)
		b.handle = nil
	}
}
