package base

// FilterMode selects the min/mag texture filter.
type FilterMode uint32

const (
	FilterLinear  FilterMode = 0
	FilterNearest FilterMode = 1
)

// AddressMode selects the U/V texture wrap behavior. Values are
// pre-shifted to their field position within the packed key.
type AddressMode uint32

const (
	AddressClampToBorder   AddressMode = 0
	AddressClampToEdge     AddressMode = 0x1000
	AddressRepeat          AddressMode = 0x2000
	AddressMirroredRepeat  AddressMode = 0x3000
)

// ClampBorderColor selects the border color used by AddressClampToBorder.
// Values are pre-shifted to their field position within the packed key.
type ClampBorderColor uint32

const (
	BorderTransparentBlack ClampBorderColor = 0
	BorderBlack            ClampBorderColor = 0x100000
	BorderWhite            ClampBorderColor = 0x200000
)

// AbstractSampler is a 32-bit packed key encoding a texture sampler
// configuration. Two samplers with equal keys are behaviorally identical,
// which lets SamplerFactory deduplicate GPU sampler objects by key.
//
// Bit layout (low to high), matching original_source/src/core/AbstractSampler.cpp:
//
//	bits 0-3:   min filter mode
//	bits 4-7:   mag filter mode
//	bit  8:     anisotropic filtering DISABLED (0 = enabled, the default)
//	bits 12-15: U address mode
//	bits 16-19: V address mode
//	bits 20-23: clamp border color
type AbstractSampler struct {
	key uint32
}

// NewAbstractSampler returns a sampler with every field at its default:
// linear filtering, anisotropic filtering enabled, clamp-to-border
// addressing, transparent black border.
func NewAbstractSampler() AbstractSampler {
	return AbstractSampler{}
}

// AbstractSamplerFromKey reconstructs a sampler from a previously packed key.
func AbstractSamplerFromKey(key uint32) AbstractSampler {
	return AbstractSampler{key: key}
}

func (s AbstractSampler) Key() uint32 {
	return s.key
}

func (s AbstractSampler) WithMinFilterMode(mode FilterMode) AbstractSampler {
	s.key = (s.key & 0xfffffff0) | uint32(mode)
	return s
}

func (s AbstractSampler) MinFilterMode() FilterMode {
	return FilterMode(s.key & 0x0000000f)
}

func (s AbstractSampler) WithMagFilterMode(mode FilterMode) AbstractSampler {
	s.key = (s.key & 0xffffff0f) | (uint32(mode) << 4)
	return s
}

func (s AbstractSampler) MagFilterMode() FilterMode {
	return FilterMode((s.key & 0x000000f0) >> 4)
}

func (s AbstractSampler) WithAnisotropicFiltering(enable bool) AbstractSampler {
	if enable {
		s.key &= 0xfffffeff
	} else {
		s.key |= 0x00000100
	}
	return s
}

func (s AbstractSampler) IsAnisotropicFilteringEnabled() bool {
	return (s.key & 0x00000100) == 0
}

func (s AbstractSampler) WithAddressModeU(mode AddressMode) AbstractSampler {
	s.key = (s.key & 0xffff0fff) | uint32(mode)
	return s
}

func (s AbstractSampler) AddressModeU() AddressMode {
	return AddressMode(s.key & 0x0000f000)
}

func (s AbstractSampler) WithAddressModeV(mode AddressMode) AbstractSampler {
	s.key = (s.key & 0xfff0ffff) | (uint32(mode) << 4)
	return s
}

func (s AbstractSampler) AddressModeV() AddressMode {
	return AddressMode((s.key & 0x000f0000) >> 4)
}

func (s AbstractSampler) WithClampBorderColor(color ClampBorderColor) AbstractSampler {
	s.key = (s.key & 0xff0fffff) | uint32(color)
	return s
}

func (s AbstractSampler) ClampBorderColor() ClampBorderColor {
	return ClampBorderColor(s.key & 0x00f00000)
}
