package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// Sampler adapts a VkSampler to engine/gpu.Sampler.
type Sampler struct {
	ctx    *Context
	handle vk.Sampler
}

// CreateSampler decodes a packed 32-bit sampler key (see
// engine/base.AbstractSampler's bit layout, duplicated here rather than
// imported so this driver package stays independent of the compiler
// layer) and creates the matching VkSampler.
func (c *Context) CreateSampler(key uint32) (*Sampler, error) {
	minFilter := filterFromBits(key & 0x0000000f)
	magFilter := filterFromBits((key & 0x000000f0) >> 4)
	anisotropyDisabled := key&0x00000100 != 0
	addressU := addressModeFromBits(key & 0x0000f000)
	addressV := addressModeFromBits((key & 0x000f0000) >> 4)
	borderColor := borderColorFromBits(key & 0x00f00000)

	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               magFilter,
		MinFilter:               minFilter,
		AddressModeU:            addressU,
		AddressModeV:            addressV,
		AddressModeW:            vk.SamplerAddressModeClampToBorder,
		AnisotropyEnable:        vk.Bool32(boolToInt(!anisotropyDisabled)),
		MaxAnisotropy:           16,
		BorderColor:             borderColor,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}

	s := &Sampler{ctx: c}
	if res := vk.CreateSampler(c.Device, &info, c.Allocator, &s.handle); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create sampler")
		core.LogError(err.Error())
		return nil, err
	}
	return s, nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func filterFromBits(bits uint32) vk.Filter {
	if bits == 1 {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func addressModeFromBits(bits uint32) vk.SamplerAddressMode {
	switch bits {
	case 0x1000:
		return vk.SamplerAddressModeClampToEdge
	case 0x2000:
		return vk.SamplerAddressModeRepeat
	case 0x3000:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeClampToBorder
	}
}

func borderColorFromBits(bits uint32) vk.BorderColor {
	switch bits {
	case 0x100000:
		return vk.BorderColorFloatOpaqueBlack
	case 0x200000:
		return vk.BorderColorFloatOpaqueWhite
	default:
		return vk.BorderColorFloatTransparentBlack
	}
}

func (s *Sampler) Destroy() {
	if s.handle != nil {
		vk.DestroySampler(s.ctx.Device, s.handle, s.ctx.Allocator)
		s.handle = nil
	}
}
