package base

import (
	"fmt"

	"github.com/scintillator/scsynth/engine/core"
)

// ElementType is the type of one Manifest element.
type ElementType int

const (
	ElementFloat ElementType = iota
	ElementVec2
	ElementVec3
	ElementVec4
)

func (t ElementType) String() string {
	switch t {
	case ElementFloat:
		return "float"
	case ElementVec2:
		return "vec2"
	case ElementVec3:
		return "vec3"
	case ElementVec4:
		return "vec4"
	default:
		return "unknown"
	}
}

// sizeInBytes returns the packed GPU size of one element, assuming each
// component is a 4-byte float, matching std140-style alignment of scalars
// and vectors (not sub-byte packing).
func (t ElementType) sizeInBytes() uint32 {
	switch t {
	case ElementFloat:
		return 4
	case ElementVec2:
		return 8
	case ElementVec3:
		return 12
	case ElementVec4:
		return 16
	default:
		return 0
	}
}

// ManifestElement describes one packed field after Pack has run.
type ManifestElement struct {
	Name      string
	Type      ElementType
	Intrinsic Intrinsic
	Offset    uint32
	Stride    uint32
}

// Manifest packs a set of named typed fields into a GPU-aligned byte layout.
// Add elements in any order, call Pack once, then use the query methods.
// Once packed a Manifest is immutable.
type Manifest struct {
	types      map[string]ElementType
	intrinsics map[string]Intrinsic
	order      []string // insertion order, needed only to keep Add stable before Pack
	names      []string // emission order, populated by Pack
	offsets    map[string]uint32
	size       uint32
	packed     bool
}

// NewManifest creates an empty, unpacked Manifest.
func NewManifest() *Manifest {
	return &Manifest{
		types:      make(map[string]ElementType),
		intrinsics: make(map[string]Intrinsic),
		offsets:    make(map[string]uint32),
	}
}

// Add registers a new named element. Returns core.ErrDuplicate if name was
// already added, or an error if called after Pack.
func (m *Manifest) Add(name string, t ElementType, intrinsic Intrinsic) error {
	if m.packed {
		return fmt.Errorf("manifest already packed, cannot add %q", name)
	}
	if _, exists := m.types[name]; exists {
		core.LogError("duplicate addition to Manifest of %s", name)
		return core.ErrDuplicate
	}
	m.types[name] = t
	m.intrinsics[name] = intrinsic
	m.order = append(m.order, name)
	return nil
}

// Pack computes the final byte layout. Biggest-to-smallest packing order
// (vec4, vec3, vec2, float), with a padding-fill pass before the vec3 and
// vec2 groups that slots in smaller elements wherever alignment allows it.
// This follows scin::core::Manifest::pack exactly (see original_source).
func (m *Manifest) Pack() {
	if m.packed {
		return
	}

	var floats, vec2s, vec3s, vec4s []string
	for _, name := range m.order {
		switch m.types[name] {
		case ElementFloat:
			floats = append(floats, name)
		case ElementVec2:
			vec2s = append(vec2s, name)
		case ElementVec3:
			vec3s = append(vec3s, name)
		case ElementVec4:
			vec4s = append(vec4s, name)
		}
	}

	for _, name := range vec4s {
		m.packElement(name, ElementVec4.sizeInBytes())
	}

	if len(vec3s) > 0 {
		vec3Size := ElementVec3.sizeInBytes()
		padding := vec3Size - (m.size % vec3Size)
		if padding < vec3Size {
			vec2Size := ElementVec2.sizeInBytes()
			if padding >= vec2Size && (m.size%vec2Size) == 0 && len(vec2s) > 0 {
				last := vec2s[len(vec2s)-1]
				vec2s = vec2s[:len(vec2s)-1]
				m.packElement(last, vec2Size)
				padding -= vec2Size
			}
			m.packFloats(&padding, &floats)
			m.size += padding
		}
		for _, name := range vec3s {
			m.packElement(name, vec3Size)
		}
	}

	if len(vec2s) > 0 {
		vec2Size := ElementVec2.sizeInBytes()
		padding := vec2Size - (m.size % vec2Size)
		if padding < vec2Size {
			m.packFloats(&padding, &floats)
			m.size += padding
		}
		for _, name := range vec2s {
			m.packElement(name, vec2Size)
		}
	}

	for _, name := range floats {
		m.packElement(name, ElementFloat.sizeInBytes())
	}

	m.packed = true
}

// packFloats consumes trailing floats from the back of floats to fill as
// much of padding as will fit, 4 bytes at a time, as long as the running
// size stays 4-byte aligned.
func (m *Manifest) packFloats(padding *uint32, floats *[]string) {
	floatSize := ElementFloat.sizeInBytes()
	for *padding >= floatSize && (m.size%floatSize) == 0 && len(*floats) > 0 {
		last := (*floats)[len(*floats)-1]
		*floats = (*floats)[:len(*floats)-1]
		m.packElement(last, floatSize)
		*padding -= floatSize
	}
}

func (m *Manifest) packElement(name string, size uint32) {
	m.names = append(m.names, name)
	m.offsets[name] = m.size
	m.size += size
}

// ElementCount returns the number of elements. Valid before or after Pack.
func (m *Manifest) ElementCount() int {
	return len(m.order)
}

// SizeInBytes returns the total packed size. Only valid after Pack.
func (m *Manifest) SizeInBytes() uint32 {
	return m.size
}

// Element returns the packed description of the element at emission index
// i (0 <= i < ElementCount()), or an error if the manifest isn't packed yet.
func (m *Manifest) Element(i int) (ManifestElement, error) {
	if !m.packed {
		return ManifestElement{}, fmt.Errorf("manifest not packed")
	}
	if i < 0 || i >= len(m.names) {
		return ManifestElement{}, fmt.Errorf("element index %d out of range", i)
	}
	name := m.names[i]
	return m.elementByName(name), nil
}

// Elements returns all packed elements in emission order.
func (m *Manifest) Elements() []ManifestElement {
	out := make([]ManifestElement, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.elementByName(name))
	}
	return out
}

func (m *Manifest) elementByName(name string) ManifestElement {
	t := m.types[name]
	offset := m.offsets[name]
	return ManifestElement{
		Name:      name,
		Type:      t,
		Intrinsic: m.intrinsics[name],
		Offset:    offset,
		Stride:    m.strideForOffset(offset, t),
	}
}

func (m *Manifest) strideForOffset(offset uint32, t ElementType) uint32 {
	return t.sizeInBytes()
}

// HasElement reports whether name was added (regardless of pack state).
func (m *Manifest) HasElement(name string) bool {
	_, ok := m.types[name]
	return ok
}

// IsPacked reports whether Pack has been called.
func (m *Manifest) IsPacked() bool {
	return m.packed
}
