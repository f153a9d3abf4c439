package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// DescriptorSet adapts a VkDescriptorSet to engine/gpu.DescriptorSet. Each
// ScinthDef's Pipeline owns one pool sized for its own descriptor set,
// since ScinthDefs are compiled once and live for the process's lifetime
// (no per-frame descriptor churn to amortize with a shared pool).
type DescriptorSet struct {
	ctx    *Context
	pool   vk.DescriptorPool
	handle vk.DescriptorSet
}

func (c *Context) CreateDescriptorSet(p *Pipeline) (*DescriptorSet, error) {
	var sizes []vk.DescriptorPoolSize
	if p.hasUniform {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1})
	}
	if p.samplerCount > 0 {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: uint32(p.samplerCount)})
	}
	if len(sizes) == 0 {
		return &DescriptorSet{ctx: c}, nil
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	ds := &DescriptorSet{ctx: c}
	if res := vk.CreateDescriptorPool(c.Device, &poolInfo, c.Allocator, &ds.pool); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create descriptor pool")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     ds.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{p.descriptorSetLayout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(c.Device, &allocInfo, sets); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to allocate descriptor set")
		core.LogError(err.Error())
		return nil, err
	}
	ds.handle = sets[0]
	return ds, nil
}

// BindSampler writes a combined-image-sampler descriptor at the given
// binding. binding 0 is reserved for the uniform buffer; sampler bindings
// start at 1, matching CreatePipeline's layout.
func (ds *DescriptorSet) BindSampler(binding uint32, sampler gpu.Sampler, image gpu.Image) error {
	s, ok := sampler.(*Sampler)
	if !ok {
		return fmt.Errorf("vulkan: BindSampler: unexpected sampler type %T", sampler)
	}
	img, ok := image.(*Image)
	if !ok {
		return fmt.Errorf("vulkan: BindSampler: unexpected image type %T", image)
	}

	imageInfo := vk.DescriptorImageInfo{
		Sampler:     s.handle,
		ImageView:   img.view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          ds.handle,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(ds.ctx.Device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// BindUniformBuffer writes the uniform-buffer descriptor at binding 0.
// Not part of the engine/gpu.DescriptorSet interface (uniform binding
// happens once at Pipeline creation, before the interface value is handed
// to compositor code) but kept as an exported method so the driver's own
// ScinthDef-compile path can wire it.
func (ds *DescriptorSet) BindUniformBuffer(buf *Buffer, sizeInBytes uint64) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buf.handle,
		Offset: 0,
		Range:  vk.DeviceSize(sizeInBytes),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          ds.handle,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(ds.ctx.Device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (ds *DescriptorSet) Destroy() {
	if ds.pool != nil {
		vk.DestroyDescriptorPool(ds.ctx.Device, ds.pool, ds.ctx.Allocator)
		ds.pool = nil
	}
}
