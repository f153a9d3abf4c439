// Package gpu defines the opaque driver surface the compositor depends on:
// fences, semaphores, images, buffers, samplers, shader modules, pipelines,
// command buffers, descriptor sets, render passes, and framebuffers. No
// concrete graphics API type appears in this package; engine/comp and
// engine/base talk only to these interfaces, so swapping the concrete
// driver (engine/gpu/vulkan today) never touches compositor code.
package gpu

import "context"

// Topology mirrors base.Topology without creating an import cycle; the
// concrete driver translates between them.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

// Fence is a CPU-observable GPU completion signal.
type Fence interface {
	Wait(ctx context.Context, timeoutNanos uint64) bool
	Reset() error
	Destroy()
}

// Semaphore is a GPU-side synchronization primitive between queue
// submissions.
type Semaphore interface {
	Destroy()
}

// Image is a GPU-resident 2D image plus its view and backing memory.
type Image interface {
	Width() uint32
	Height() uint32
	Destroy()
}

// Buffer is a GPU-resident linear allocation: vertex data, index data, or
// a uniform/staging buffer.
type Buffer interface {
	SizeInBytes() uint64
	// LoadData uploads bytes at the given buffer offset. Used for vertex,
	// index, and uniform buffer population.
	LoadData(offset uint64, data []byte) error
	// ReadData copies len(dst) bytes starting at offset into dst. Used by
	// the offscreen driver's readback path after a CopyImageToBuffer.
	ReadData(offset uint64, dst []byte) error
	Destroy()
}

// Sampler is a GPU sampler object, one per distinct base.AbstractSampler
// key in use.
type Sampler interface {
	Destroy()
}

// ShaderModule wraps one compiled SPIR-V stage.
type ShaderModule interface {
	Destroy()
}

// Pipeline is a compiled graphics pipeline: shader stages, vertex layout,
// topology, and push-constant/descriptor layout baked together.
type Pipeline interface {
	Destroy()
}

// RenderPass describes one render pass's attachments and the clear color
// used when beginning it.
type RenderPass interface {
	Destroy()
}

// Framebuffer binds a RenderPass to concrete image attachments for one
// image slot.
type Framebuffer interface {
	Destroy()
}

// DescriptorSet groups the bound resources (uniform buffers, samplers)
// a pipeline reads at draw time.
type DescriptorSet interface {
	// BindSampler attaches a sampler+image pair to the given binding slot.
	BindSampler(binding uint32, sampler Sampler, image Image) error
}

// CommandBuffer is a recordable GPU command list. Primary command buffers
// begin/end a render pass and execute secondary buffers; secondary command
// buffers record one Scinth's draw per image slot.
type CommandBuffer interface {
	Begin(simultaneousUse, renderPassContinue bool) error
	End() error
	Reset() error
	BeginRenderPass(pass RenderPass, fb Framebuffer, clearColor [4]float32) error
	EndRenderPass() error
	BindPipeline(p Pipeline) error
	BindVertexBuffer(b Buffer) error
	BindIndexBuffer(b Buffer) error
	BindDescriptorSet(p Pipeline, set DescriptorSet) error
	PushConstants(p Pipeline, data []byte) error
	DrawIndexed(indexCount uint32) error
	ExecuteCommands(secondaries []CommandBuffer) error
	// CopyBufferToImage records a host-to-device transfer, used by
	// StageManager to upload a staged image and by the offscreen driver's
	// readback path in reverse (image-to-buffer is a separate call since
	// the two directions need distinct barriers).
	CopyBufferToImage(src Buffer, dst Image) error
	CopyImageToBuffer(src Image, dst Buffer) error
}

// Driver is the factory surface the compositor uses to create driver
// objects. engine/gpu/vulkan.Driver is the only implementation; tests may
// substitute a fake.
type Driver interface {
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateImage(width, height uint32) (Image, error)
	CreateBuffer(sizeInBytes uint64, usage BufferUsage) (Buffer, error)
	CreateSampler(key uint32) (Sampler, error)
	CreateShaderModule(spirv []byte) (ShaderModule, error)
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)
	CreateRenderPass(clearColor [4]float32) (RenderPass, error)
	CreateFramebuffer(pass RenderPass, attachment Image) (Framebuffer, error)
	CreateDescriptorSet(p Pipeline) (DescriptorSet, error)
	CreateCommandBuffer(primary bool) (CommandBuffer, error)
	// Submit enqueues cb for execution on the graphics queue, signaling
	// fence on completion. wait/signal may be empty; this offscreen driver
	// has no presentation queue, so semaphores here only ever synchronize
	// between compute and draw submissions within the same frame.
	Submit(cb CommandBuffer, wait, signal []Semaphore, fence Fence) error
}

// BufferUsage distinguishes vertex/index/uniform/staging buffers so the
// driver can pick the right memory and usage flags.
type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStaging
)

// PipelineDescriptor carries everything CreatePipeline needs: the shader
// stages, the vertex attribute layout (from a base.Manifest), topology,
// and the push-constant size.
type PipelineDescriptor struct {
	VertexShader       ShaderModule
	FragmentShader     ShaderModule
	VertexAttributes   []VertexAttribute
	Topology           Topology
	PushConstantBytes  uint32
	UniformBufferBytes uint32
	SamplerCount       int
	RenderPass         RenderPass
}

// VertexAttribute is one entry of a pipeline's vertex input layout,
// derived from a base.Manifest's packed elements.
type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexFormat
}

// VertexFormat names the handful of component layouts a Manifest element
// can take.
type VertexFormat int

const (
	VertexFormatFloat VertexFormat = iota
	VertexFormatVec2
	VertexFormatVec3
	VertexFormatVec4
)
