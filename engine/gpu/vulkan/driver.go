package vulkan

import "github.com/scintillator/scsynth/engine/gpu"

// Driver wraps a Context as an engine/gpu.Driver. The split exists so
// Context's constructors can return the concrete *Fence/*Image/etc. types
// other driver-internal code needs (e.g. DescriptorSet.BindUniformBuffer
// takes a concrete *Buffer), while compositor code only ever sees the
// interface-typed return values below.
type Driver struct {
	ctx *Context
}

// NewDriver creates a headless Vulkan context and wraps it as a Driver.
func NewDriver(appName string) (*Driver, error) {
	ctx, err := NewContext(appName)
	if err != nil {
		return nil, err
	}
	return &Driver{ctx: ctx}, nil
}

// Context exposes the underlying Context for callers (ScinthDef compile,
// Offscreen readback) that need concrete driver capabilities beyond the
// engine/gpu.Driver surface, such as Context.FindMemoryIndex.
func (d *Driver) Context() *Context { return d.ctx }

func (d *Driver) Destroy() { d.ctx.Destroy() }

func (d *Driver) CreateFence(signaled bool) (gpu.Fence, error) {
	return d.ctx.CreateFence(signaled)
}

func (d *Driver) CreateSemaphore() (gpu.Semaphore, error) {
	return d.ctx.CreateSemaphore()
}

func (d *Driver) CreateImage(width, height uint32) (gpu.Image, error) {
	return d.ctx.CreateImage(width, height)
}

func (d *Driver) CreateBuffer(sizeInBytes uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	return d.ctx.CreateBuffer(sizeInBytes, usage)
}

func (d *Driver) CreateSampler(key uint32) (gpu.Sampler, error) {
	return d.ctx.CreateSampler(key)
}

func (d *Driver) CreateShaderModule(spirv []byte) (gpu.ShaderModule, error) {
	return d.ctx.CreateShaderModule(spirv)
}

func (d *Driver) CreatePipeline(desc gpu.PipelineDescriptor) (gpu.Pipeline, error) {
	return d.ctx.CreatePipeline(desc)
}

func (d *Driver) CreateRenderPass(clearColor [4]float32) (gpu.RenderPass, error) {
	return d.ctx.CreateRenderPass(clearColor)
}

func (d *Driver) CreateFramebuffer(pass gpu.RenderPass, attachment gpu.Image) (gpu.Framebuffer, error) {
	return d.ctx.CreateFramebuffer(pass.(*RenderPass), attachment.(*Image))
}

func (d *Driver) CreateDescriptorSet(p gpu.Pipeline) (gpu.DescriptorSet, error) {
	return d.ctx.CreateDescriptorSet(p.(*Pipeline))
}

func (d *Driver) CreateCommandBuffer(primary bool) (gpu.CommandBuffer, error) {
	return d.ctx.CreateCommandBuffer(primary)
}

func (d *Driver) Submit(cb gpu.CommandBuffer, wait, signal []gpu.Semaphore, fence gpu.Fence) error {
	waitConcrete := make([]*Semaphore, len(wait))
	for i, s := range wait {
		waitConcrete[i] = s.(*Semaphore)
	}
	signalConcrete := make([]*Semaphore, len(signal))
	for i, s := range signal {
		signalConcrete[i] = s.(*Semaphore)
	}
	var fenceConcrete *Fence
	if fence != nil {
		fenceConcrete = fence.(*Fence)
	}
	return d.ctx.Submit(cb.(*CommandBuffer), waitConcrete, signalConcrete, fenceConcrete)
}
