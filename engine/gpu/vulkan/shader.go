package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// ShaderModule adapts a VkShaderModule to engine/gpu.ShaderModule. The
// compositor hands in already-compiled SPIR-V (the GLSL-to-SPIR-V
// compile step lives in the offline compiler, not this driver — see
// spec.md §1's "compiled-shader hot-reload" Non-goal).
type ShaderModule struct {
	ctx    *Context
	handle vk.ShaderModule
}

func (c *Context) CreateShaderModule(spirv []byte) (*ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}
	m := &ShaderModule{ctx: c}
	if res := vk.CreateShaderModule(c.Device, &info, c.Allocator, &m.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create shader module")
		core.LogError(err.Error())
		return nil, err
	}
	return m, nil
}

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 words the
// Vulkan API expects; len(b) must be a multiple of 4.
func sliceUint32(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}

func (m *ShaderModule) Destroy() {
	if m.handle != nil {
		vk.DestroyShaderModule(m.ctx.Device, m.handle, m.ctx.Allocator)
		m.handle = nil
	}
}
