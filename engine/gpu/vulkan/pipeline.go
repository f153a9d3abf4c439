package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
)

// Pipeline adapts a VkPipeline + its VkPipelineLayout + VkDescriptorSetLayout
// to engine/gpu.Pipeline. One Pipeline exists per compiled ScinthDef.
type Pipeline struct {
	ctx                 *Context
	handle              vk.Pipeline
	layout              vk.PipelineLayout
	descriptorSetLayout vk.DescriptorSetLayout
	hasUniform          bool
	samplerCount        int
}

func vertexFormat(f gpu.VertexFormat) vk.Format {
	switch f {
	case gpu.VertexFormatFloat:
		return vk.FormatR32Sfloat
	case gpu.VertexFormatVec2:
		return vk.FormatR32g32Sfloat
	case gpu.VertexFormatVec3:
		return vk.FormatR32g32b32Sfloat
	default:
		return vk.FormatR32g32b32a32Sfloat
	}
}

func strideFor(attrs []gpu.VertexAttribute) uint32 {
	var max uint32
	for _, a := range attrs {
		end := a.Offset + formatSize(a.Format)
		if end > max {
			max = end
		}
	}
	return max
}

func formatSize(f gpu.VertexFormat) uint32 {
	switch f {
	case gpu.VertexFormatFloat:
		return 4
	case gpu.VertexFormatVec2:
		return 8
	case gpu.VertexFormatVec3:
		return 12
	default:
		return 16
	}
}

func topologyFrom(t gpu.Topology) vk.PrimitiveTopology {
	if t == gpu.TopologyTriangleStrip {
		return vk.PrimitiveTopologyTriangleStrip
	}
	return vk.PrimitiveTopologyTriangleList
}

// CreatePipeline builds the descriptor set layout (one uniform buffer
// binding plus desc.SamplerCount combined-image-sampler bindings), the
// pipeline layout (that set plus one push-constant range sized to
// desc.PushConstantBytes), and the graphics pipeline itself from the
// given shader stages, vertex layout, and topology.
func (c *Context) CreatePipeline(desc gpu.PipelineDescriptor) (*Pipeline, error) {
	p := &Pipeline{ctx: c, hasUniform: desc.UniformBufferBytes > 0, samplerCount: desc.SamplerCount}

	var bindings []vk.DescriptorSetLayoutBinding
	if p.hasUniform {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	for i := 0; i < desc.SamplerCount; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(1 + i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount:  uint32(len(bindings)),
		PBindings:     bindings,
	}
	if res := vk.CreateDescriptorSetLayout(c.Device, &layoutInfo, c.Allocator, &p.descriptorSetLayout); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create descriptor set layout")
		core.LogError(err.Error())
		return nil, err
	}

	var pushConstantRanges []vk.PushConstantRange
	if desc.PushConstantBytes > 0 {
		pushConstantRanges = append(pushConstantRanges, vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     0,
			Size:       desc.PushConstantBytes,
		})
	}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{p.descriptorSetLayout},
		PushConstantRangeCount: uint32(len(pushConstantRanges)),
		PPushConstantRanges:    pushConstantRanges,
	}
	if res := vk.CreatePipelineLayout(c.Device, &layoutCreateInfo, c.Allocator, &p.layout); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create pipeline layout")
		core.LogError(err.Error())
		return nil, err
	}

	vertexShader := desc.VertexShader.(*ShaderModule)
	fragmentShader := desc.FragmentShader.(*ShaderModule)
	stages := []vk.PipelineShaderStageCreateInfo{
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageVertexBit, Module: vertexShader.handle, PName: "main\x00"},
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageFragmentBit, Module: fragmentShader.handle, PName: "main\x00"},
	}

	var attrs []vk.VertexInputAttributeDescription
	for _, a := range desc.VertexAttributes {
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   vertexFormat(a.Format),
			Offset:   a.Offset,
		})
	}
	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    strideFor(desc.VertexAttributes),
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topologyFrom(desc.Topology),
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		BlendEnable: vk.False,
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	renderPass := desc.RenderPass.(*RenderPass)
	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              p.layout,
		RenderPass:          renderPass.handle,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(c.Device, nil, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, c.Allocator, pipelines); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create graphics pipeline")
		core.LogError(err.Error())
		return nil, err
	}
	p.handle = pipelines[0]
	return p, nil
}

func (p *Pipeline) Destroy() {
	if p.handle != nil {
		vk.DestroyPipeline(p.ctx.Device, p.handle, p.ctx.Allocator)
		p.handle = nil
	}
	if p.layout != nil {
		vk.DestroyPipelineLayout(p.ctx.Device, p.layout, p.ctx.Allocator)
		p.layout = nil
	}
	if p.descriptorSetLayout != nil {
		vk.DestroyDescriptorSetLayout(p.ctx.Device, p.descriptorSetLayout, p.ctx.Allocator)
		p.descriptorSetLayout = nil
	}
}
