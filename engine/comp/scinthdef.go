// Package comp holds the GPU-resident side of the system: compiled
// ScinthDefs, running Scinth instances arranged in a RenderTree, the
// per-frame lifecycle that drives them, and the offscreen driver,
// sampler factory, image map, and stage manager that feed them images.
// Everything here talks to the GPU exclusively through engine/gpu's
// interfaces, mirroring the teacher's VulkanPipeline/VulkanBuffer wrapper
// pattern one level more abstract.
package comp

import (
	"fmt"
	stdmath "math"

	"github.com/scintillator/scsynth/engine/base"
	"github.com/scintillator/scsynth/engine/gpu"
	"github.com/scintillator/scsynth/engine/math"
)

// ScinthDef is the GPU-compiled counterpart of a base.AbstractScinthDef:
// shader modules, a graphics pipeline, vertex/index buffers, and the fixed
// samplers its sampler-kind VGens need, built once when the definition is
// admitted and destroyed when the definition is freed.
type ScinthDef struct {
	Abstract *base.AbstractScinthDef

	vertexShader   gpu.ShaderModule
	fragmentShader gpu.ShaderModule
	pipeline       gpu.Pipeline
	renderPass     gpu.RenderPass
	vertexBuffer   gpu.Buffer
	indexBuffer    gpu.Buffer
	indexCount     uint32

	// fixedSamplers holds one Sampler per distinct AbstractSampler key used
	// by this def's fixed-image bindings, keyed by that 32-bit key so
	// Scinth descriptor-set construction can look it up directly.
	fixedSamplers map[uint32]gpu.Sampler
}

// Compile builds every GPU resource an AbstractScinthDef needs: shader
// modules from its synthesized GLSL source (the caller supplies compiled
// SPIR-V; Compile itself runs no GLSL compiler), a pipeline
// sized from its manifests and parameter count, and vertex/index buffers
// evaluated from its Shape.
func Compile(driver gpu.Driver, abstract *base.AbstractScinthDef, clearColor [4]float32, vertexSPIRV, fragmentSPIRV []byte) (*ScinthDef, error) {
	d := &ScinthDef{
		Abstract:      abstract,
		fixedSamplers: make(map[uint32]gpu.Sampler),
	}

	var err error
	d.vertexShader, err = driver.CreateShaderModule(vertexSPIRV)
	if err != nil {
		return nil, fmt.Errorf("ScinthDef %s: vertex shader: %w", abstract.Name, err)
	}
	d.fragmentShader, err = driver.CreateShaderModule(fragmentSPIRV)
	if err != nil {
		return nil, fmt.Errorf("ScinthDef %s: fragment shader: %w", abstract.Name, err)
	}

	d.renderPass, err = driver.CreateRenderPass(clearColor)
	if err != nil {
		return nil, fmt.Errorf("ScinthDef %s: render pass: %w", abstract.Name, err)
	}

	samplerCount := len(abstract.FixedImages) + len(abstract.ParameterizedImages)
	desc := gpu.PipelineDescriptor{
		VertexShader:       d.vertexShader,
		FragmentShader:     d.fragmentShader,
		VertexAttributes:   vertexAttributesFromManifest(abstract.VertexManifest),
		Topology:           topologyFromShape(abstract.Shape),
		PushConstantBytes:  uint32(len(abstract.Parameters)) * 4,
		UniformBufferBytes: abstract.UniformManifest.SizeInBytes(),
		SamplerCount:       samplerCount,
		RenderPass:         d.renderPass,
	}
	d.pipeline, err = driver.CreatePipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("ScinthDef %s: pipeline: %w", abstract.Name, err)
	}

	if err := d.buildGeometryBuffers(driver); err != nil {
		return nil, fmt.Errorf("ScinthDef %s: %w", abstract.Name, err)
	}

	for pair := range abstract.FixedImages {
		if _, ok := d.fixedSamplers[pair.SamplerKey]; ok {
			continue
		}
		s, err := driver.CreateSampler(pair.SamplerKey)
		if err != nil {
			return nil, fmt.Errorf("ScinthDef %s: sampler %#x: %w", abstract.Name, pair.SamplerKey, err)
		}
		d.fixedSamplers[pair.SamplerKey] = s
	}
	for pair := range abstract.ParameterizedImages {
		if _, ok := d.fixedSamplers[pair.SamplerKey]; ok {
			continue
		}
		s, err := driver.CreateSampler(pair.SamplerKey)
		if err != nil {
			return nil, fmt.Errorf("ScinthDef %s: sampler %#x: %w", abstract.Name, pair.SamplerKey, err)
		}
		d.fixedSamplers[pair.SamplerKey] = s
	}

	return d, nil
}

func (d *ScinthDef) buildGeometryBuffers(driver gpu.Driver) error {
	shape := d.Abstract.Shape
	stride := vertexStride(d.Abstract.VertexManifest)
	data := make([]byte, uint64(shape.VertexCount())*uint64(stride))

	for i := 0; i < shape.VertexCount(); i++ {
		writeVertex(data, i, stride, d.Abstract.VertexManifest, shape)
	}

	vb, err := driver.CreateBuffer(uint64(len(data)), gpu.BufferUsageVertex)
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	if err := vb.LoadData(0, data); err != nil {
		return fmt.Errorf("vertex buffer load: %w", err)
	}
	d.vertexBuffer = vb

	indices := shape.Indices()
	idxBytes := make([]byte, len(indices)*4)
	for i, idx := range indices {
		putUint32(idxBytes[i*4:], idx)
	}
	ib, err := driver.CreateBuffer(uint64(len(idxBytes)), gpu.BufferUsageIndex)
	if err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}
	if err := ib.LoadData(0, idxBytes); err != nil {
		return fmt.Errorf("index buffer load: %w", err)
	}
	d.indexBuffer = ib
	d.indexCount = uint32(len(indices))
	return nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// IndexCount returns the number of indices a draw call against this def
// must issue.
func (d *ScinthDef) IndexCount() uint32 { return d.indexCount }

// VertexBuffer returns the compiled vertex buffer.
func (d *ScinthDef) VertexBuffer() gpu.Buffer { return d.vertexBuffer }

// IndexBuffer returns the compiled index buffer.
func (d *ScinthDef) IndexBuffer() gpu.Buffer { return d.indexBuffer }

// Pipeline returns the compiled graphics pipeline.
func (d *ScinthDef) Pipeline() gpu.Pipeline { return d.pipeline }

// RenderPass returns the render pass this def's pipeline was built
// against.
func (d *ScinthDef) RenderPass() gpu.RenderPass { return d.renderPass }

// FixedSampler looks up the Sampler for a fixed-image binding's key.
func (d *ScinthDef) FixedSampler(key uint32) (gpu.Sampler, bool) {
	s, ok := d.fixedSamplers[key]
	return s, ok
}

// Destroy releases every GPU resource this def owns, in reverse
// construction order. Called when the def is freed from the registry; the
// caller must first ensure no running Scinth still references this def.
func (d *ScinthDef) Destroy() {
	for _, s := range d.fixedSamplers {
		s.Destroy()
	}
	if d.indexBuffer != nil {
		d.indexBuffer.Destroy()
	}
	if d.vertexBuffer != nil {
		d.vertexBuffer.Destroy()
	}
	if d.pipeline != nil {
		d.pipeline.Destroy()
	}
	if d.renderPass != nil {
		d.renderPass.Destroy()
	}
	if d.fragmentShader != nil {
		d.fragmentShader.Destroy()
	}
	if d.vertexShader != nil {
		d.vertexShader.Destroy()
	}
}

func topologyFromShape(s base.Shape) gpu.Topology {
	if s.Topology() == base.TopologyTriangleStrip {
		return gpu.TopologyTriangleStrip
	}
	return gpu.TopologyTriangleList
}

func vertexStride(m *base.Manifest) uint32 {
	var stride uint32
	for _, el := range m.Elements() {
		stride += elementByteSize(el.Type)
	}
	return stride
}

func elementByteSize(t base.ElementType) uint32 {
	switch t {
	case base.ElementFloat:
		return 4
	case base.ElementVec2:
		return 8
	case base.ElementVec3:
		return 12
	case base.ElementVec4:
		return 16
	default:
		return 0
	}
}

func vertexFormat(t base.ElementType) gpu.VertexFormat {
	switch t {
	case base.ElementVec2:
		return gpu.VertexFormatVec2
	case base.ElementVec3:
		return gpu.VertexFormatVec3
	case base.ElementVec4:
		return gpu.VertexFormatVec4
	default:
		return gpu.VertexFormatFloat
	}
}

func vertexAttributesFromManifest(m *base.Manifest) []gpu.VertexAttribute {
	attrs := make([]gpu.VertexAttribute, 0, m.ElementCount())
	var offset uint32
	for i, el := range m.Elements() {
		attrs = append(attrs, gpu.VertexAttribute{
			Location: uint32(i),
			Offset:   offset,
			Format:   vertexFormat(el.Type),
		})
		offset += elementByteSize(el.Type)
	}
	return attrs
}

// writeVertex evaluates the vertex-manifest elements for vertex i against
// shape and writes them into data at the element's packed offset within
// this vertex's stride-sized slot. Position (IntrinsicNotFound, the
// always-present position element) and texPos are read from the shape;
// normPos, which buildManifests adds to the vertex manifest when a VGen
// uses it, is filled with the shape's position the same way as position.
func writeVertex(data []byte, i int, stride uint32, m *base.Manifest, shape base.Shape) {
	base0 := uint32(i) * stride
	for _, el := range m.Elements() {
		var v math.Vec2
		switch el.Intrinsic {
		case base.IntrinsicTexPos:
			shape.StoreTexVertex(i, &v)
		default:
			shape.StoreVertex(i, &v)
		}
		putFloat32(data[base0+el.Offset:], v.X)
		putFloat32(data[base0+el.Offset+4:], v.Y)
	}
}

func putFloat32(b []byte, f float32) {
	u := mathFloat32bits(f)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func mathFloat32bits(f float32) uint32 {
	return stdmath.Float32bits(f)
}
