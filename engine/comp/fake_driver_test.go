package comp

import (
	"context"

	"github.com/scintillator/scsynth/engine/gpu"
)

// fakeDriver is a minimal gpu.Driver that tracks created/destroyed
// resources without touching any real graphics API, for tests that
// exercise comp's GPU-resource bookkeeping rather than its rendering.

type fakeFence struct{ waitResult bool }

func (f *fakeFence) Wait(ctx context.Context, timeoutNanos uint64) bool { return f.waitResult }
func (f *fakeFence) Reset() error                                       { return nil }
func (f *fakeFence) Destroy()                                           {}

type fakeSemaphore struct{}

func (fakeSemaphore) Destroy() {}

type fakeBuffer struct {
	size uint64
	data []byte
}

func (b *fakeBuffer) SizeInBytes() uint64 { return b.size }
func (b *fakeBuffer) LoadData(offset uint64, data []byte) error {
	copy(b.data[offset:], data)
	return nil
}
func (b *fakeBuffer) ReadData(offset uint64, dst []byte) error {
	copy(dst, b.data[offset:])
	return nil
}
func (b *fakeBuffer) Destroy() {}

type fakeSampler struct{}

func (fakeSampler) Destroy() {}

type fakeShaderModule struct{}

func (fakeShaderModule) Destroy() {}

type fakePipeline struct{}

func (fakePipeline) Destroy() {}

type fakeRenderPass struct{}

func (fakeRenderPass) Destroy() {}

type fakeFramebuffer struct{}

func (fakeFramebuffer) Destroy() {}

type fakeDescriptorSet struct{}

func (fakeDescriptorSet) BindSampler(binding uint32, sampler gpu.Sampler, image gpu.Image) error {
	return nil
}

type fakeCommandBuffer struct{}

func (fakeCommandBuffer) Begin(simultaneousUse, renderPassContinue bool) error { return nil }
func (fakeCommandBuffer) End() error                                          { return nil }
func (fakeCommandBuffer) Reset() error                                        { return nil }
func (fakeCommandBuffer) BeginRenderPass(pass gpu.RenderPass, fb gpu.Framebuffer, clearColor [4]float32) error {
	return nil
}
func (fakeCommandBuffer) EndRenderPass() error                      { return nil }
func (fakeCommandBuffer) BindPipeline(p gpu.Pipeline) error          { return nil }
func (fakeCommandBuffer) BindVertexBuffer(b gpu.Buffer) error        { return nil }
func (fakeCommandBuffer) BindIndexBuffer(b gpu.Buffer) error         { return nil }
func (fakeCommandBuffer) BindDescriptorSet(p gpu.Pipeline, set gpu.DescriptorSet) error {
	return nil
}
func (fakeCommandBuffer) PushConstants(p gpu.Pipeline, data []byte) error { return nil }
func (fakeCommandBuffer) DrawIndexed(indexCount uint32) error             { return nil }
func (fakeCommandBuffer) ExecuteCommands(secondaries []gpu.CommandBuffer) error {
	return nil
}
func (fakeCommandBuffer) CopyBufferToImage(src gpu.Buffer, dst gpu.Image) error { return nil }
func (fakeCommandBuffer) CopyImageToBuffer(src gpu.Image, dst gpu.Buffer) error { return nil }

type fakeDriver struct {
	fenceSignaled bool
	submitErr     error
	submitted     int
}

func (d *fakeDriver) CreateFence(signaled bool) (gpu.Fence, error) {
	return &fakeFence{waitResult: true}, nil
}
func (d *fakeDriver) CreateSemaphore() (gpu.Semaphore, error) { return fakeSemaphore{}, nil }
func (d *fakeDriver) CreateImage(width, height uint32) (gpu.Image, error) {
	return &fakeImage{width: width, height: height}, nil
}
func (d *fakeDriver) CreateBuffer(sizeInBytes uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	return &fakeBuffer{size: sizeInBytes, data: make([]byte, sizeInBytes)}, nil
}
func (d *fakeDriver) CreateSampler(key uint32) (gpu.Sampler, error) { return fakeSampler{}, nil }
func (d *fakeDriver) CreateShaderModule(spirv []byte) (gpu.ShaderModule, error) {
	return fakeShaderModule{}, nil
}
func (d *fakeDriver) CreatePipeline(desc gpu.PipelineDescriptor) (gpu.Pipeline, error) {
	return fakePipeline{}, nil
}
func (d *fakeDriver) CreateRenderPass(clearColor [4]float32) (gpu.RenderPass, error) {
	return fakeRenderPass{}, nil
}
func (d *fakeDriver) CreateFramebuffer(pass gpu.RenderPass, attachment gpu.Image) (gpu.Framebuffer, error) {
	return fakeFramebuffer{}, nil
}
func (d *fakeDriver) CreateDescriptorSet(p gpu.Pipeline) (gpu.DescriptorSet, error) {
	return fakeDescriptorSet{}, nil
}
func (d *fakeDriver) CreateCommandBuffer(primary bool) (gpu.CommandBuffer, error) {
	return fakeCommandBuffer{}, nil
}
func (d *fakeDriver) Submit(cb gpu.CommandBuffer, wait, signal []gpu.Semaphore, fence gpu.Fence) error {
	d.submitted++
	return d.submitErr
}

var _ gpu.Driver = (*fakeDriver)(nil)
