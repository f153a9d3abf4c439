package base

import (
	"fmt"
	"regexp"
	"strings"
)

// Parameter is one named, f32-defaulted control input of a ScinthDef.
type Parameter struct {
	Name         string
	DefaultValue float32
}

// samplerImagePair identifies one (sampler configuration, fixed image id)
// binding.
type samplerImagePair struct {
	SamplerKey uint32
	ImageID    int64
}

// samplerParamPair identifies one (sampler configuration, parameter index
// supplying the image id) binding.
type samplerParamPair struct {
	SamplerKey     uint32
	ParameterIndex int
}

// AbstractScinthDef is a topologically ordered graph of VGens, synthesized
// into vertex/fragment shader text plus the manifests and sampler
// requirements a compiled ScinthDef needs to build its GPU pipeline.
type AbstractScinthDef struct {
	Name       string
	Parameters []Parameter
	Instances  []*VGen
	Shape      Shape

	FixedImages         map[samplerImagePair]bool
	ParameterizedImages map[samplerParamPair]bool

	Prefix                    string
	VertexPositionElementName string
	FragmentOutputName        string
	ParametersStructName      string
	Intrinsics                map[Intrinsic]bool

	VertexShader    string
	FragmentShader  string
	VertexManifest  *Manifest
	UniformManifest *Manifest

	parameterIndices map[string]int
	outputNames      [][]string // outputNames[vgenIndex][outputIndex]
}

var identifierSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// BuildAbstractScinthDef runs the five ordered construction phases
// (build_inputs, build_names, build_manifests, build_vertex_shader,
// build_fragment_shader) described in spec.md §4.3. Failure in any phase
// aborts construction; the def must not be admitted to a registry.
func BuildAbstractScinthDef(name string, parameters []Parameter, instances []*VGen, shape Shape) (*AbstractScinthDef, error) {
	seen := make(map[string]bool, len(parameters))
	for _, p := range parameters {
		if seen[p.Name] {
			return nil, fmt.Errorf("ScinthDef %s: duplicate parameter name %q", name, p.Name)
		}
		seen[p.Name] = true
	}

	d := &AbstractScinthDef{
		Name:                name,
		Parameters:          parameters,
		Instances:           instances,
		Shape:               shape,
		FixedImages:         make(map[samplerImagePair]bool),
		ParameterizedImages: make(map[samplerParamPair]bool),
		Intrinsics:          make(map[Intrinsic]bool),
		parameterIndices:    make(map[string]int, len(parameters)),
	}
	for i, p := range parameters {
		d.parameterIndices[p.Name] = i
	}

	if err := d.buildInputs(); err != nil {
		return nil, fmt.Errorf("ScinthDef %s: build_inputs: %w", name, err)
	}
	if err := d.buildNames(); err != nil {
		return nil, fmt.Errorf("ScinthDef %s: build_names: %w", name, err)
	}
	if err := d.buildManifests(); err != nil {
		return nil, fmt.Errorf("ScinthDef %s: build_manifests: %w", name, err)
	}
	if err := d.buildVertexShader(); err != nil {
		return nil, fmt.Errorf("ScinthDef %s: build_vertex_shader: %w", name, err)
	}
	if err := d.buildFragmentShader(); err != nil {
		return nil, fmt.Errorf("ScinthDef %s: build_fragment_shader: %w", name, err)
	}
	return d, nil
}

// IndexForParameterName returns the index for a given parameter name, or
// (-1, false) if not found.
func (d *AbstractScinthDef) IndexForParameterName(name string) (int, bool) {
	idx, ok := d.parameterIndices[name]
	if !ok {
		return -1, false
	}
	return idx, ok
}

// NameForVGenOutput returns the standardized symbol for one VGen's output,
// valid only after buildNames has run.
func (d *AbstractScinthDef) NameForVGenOutput(vgenIndex, outputIndex int) (string, error) {
	if vgenIndex < 0 || vgenIndex >= len(d.outputNames) {
		return "", fmt.Errorf("vgen index %d out of range", vgenIndex)
	}
	if outputIndex < 0 || outputIndex >= len(d.outputNames[vgenIndex]) {
		return "", fmt.Errorf("output index %d out of range for vgen %d", outputIndex, vgenIndex)
	}
	return d.outputNames[vgenIndex][outputIndex], nil
}

// buildInputs validates that every vgen-output-ref input targets a prior
// VGen whose output dimension matches the input's declared dimension.
// (NewVGen already validated topological order and index bounds; this
// phase is the cross-VGen dimension check that requires the whole list.)
func (d *AbstractScinthDef) buildInputs() error {
	for i, vgen := range d.Instances {
		for j, in := range vgen.Inputs {
			if in.Kind != InputVGenRef {
				continue
			}
			producer := d.Instances[in.VGenIndex]
			if in.OutputIndex >= len(producer.OutputDims) {
				return fmt.Errorf("vgen %d input %d references out-of-range output %d of vgen %d", i, j, in.OutputIndex, in.VGenIndex)
			}
			if producer.OutputDims[in.OutputIndex] != in.Dimension {
				return fmt.Errorf("vgen %d input %d dimension %d does not match producer vgen %d output %d dimension %d",
					i, j, in.Dimension, in.VGenIndex, in.OutputIndex, producer.OutputDims[in.OutputIndex])
			}
		}
	}
	return nil
}

// buildNames allocates a def-unique identifier prefix and canonical
// per-VGen-output symbols.
func (d *AbstractScinthDef) buildNames() error {
	d.Prefix = "scinth_" + identifierSanitizer.ReplaceAllString(d.Name, "_")
	d.VertexPositionElementName = d.Prefix + "_pos"
	d.FragmentOutputName = d.Prefix + "_outColor"
	d.ParametersStructName = d.Prefix + "Params"

	d.outputNames = make([][]string, len(d.Instances))
	for i, vgen := range d.Instances {
		names := make([]string, vgen.NumOutputs())
		for o := range names {
			names[o] = fmt.Sprintf("%s_v%d_o%d", d.Prefix, i, o)
		}
		d.outputNames[i] = names
	}
	return nil
}

// buildManifests packs the vertex manifest (position + any normPos/texPos
// intrinsics referenced at frame or shape rate) and the uniform manifest
// (a time float if any VGen references time at frame or shape rate), and
// finalizes the def's fixed/parameterized sampler-image bindings.
func (d *AbstractScinthDef) buildManifests() error {
	d.VertexManifest = NewManifest()
	d.UniformManifest = NewManifest()

	if err := d.VertexManifest.Add(d.VertexPositionElementName, ElementVec2, IntrinsicNotFound); err != nil {
		return err
	}

	needsTime := false
	needsNormPos := false
	needsTexPos := false

	for _, vgen := range d.Instances {
		if vgen.Rate == RatePixel {
			continue
		}
		for intr := range vgen.Template.ReferencedIntrinsics() {
			switch intr {
			case IntrinsicTime:
				needsTime = true
			case IntrinsicNormPos:
				needsNormPos = true
			case IntrinsicTexPos:
				needsTexPos = true
			}
		}
		if vgen.Sampler != nil {
			pair := samplerImagePair{SamplerKey: vgen.Sampler.Sampler.Key()}
			if vgen.Sampler.Source.IsParameter {
				d.ParameterizedImages[samplerParamPair{SamplerKey: vgen.Sampler.Sampler.Key(), ParameterIndex: vgen.Sampler.Source.ParameterIndex}] = true
			} else {
				pair.ImageID = vgen.Sampler.Source.ImageID
				d.FixedImages[pair] = true
			}
		}
		for intr := range vgen.Template.ReferencedIntrinsics() {
			d.Intrinsics[intr] = true
		}
	}
	// Pixel-rate VGens can also carry sampler bindings; walk them for the
	// image-binding sets (but not for vertex-manifest intrinsics, which are
	// only relevant at frame/shape rate per spec.md §4.3).
	for _, vgen := range d.Instances {
		if vgen.Rate != RatePixel {
			continue
		}
		for intr := range vgen.Template.ReferencedIntrinsics() {
			d.Intrinsics[intr] = true
		}
		if vgen.Sampler != nil {
			if vgen.Sampler.Source.IsParameter {
				d.ParameterizedImages[samplerParamPair{SamplerKey: vgen.Sampler.Sampler.Key(), ParameterIndex: vgen.Sampler.Source.ParameterIndex}] = true
			} else {
				d.FixedImages[samplerImagePair{SamplerKey: vgen.Sampler.Sampler.Key(), ImageID: vgen.Sampler.Source.ImageID}] = true
			}
		}
	}

	if needsNormPos {
		if err := d.VertexManifest.Add("normPos", ElementVec2, IntrinsicNormPos); err != nil {
			return err
		}
	}
	if needsTexPos {
		if err := d.VertexManifest.Add("texPos", ElementVec2, IntrinsicTexPos); err != nil {
			return err
		}
	}
	d.VertexManifest.Pack()

	if needsTime {
		if err := d.UniformManifest.Add("time", ElementFloat, IntrinsicTime); err != nil {
			return err
		}
	}
	d.UniformManifest.Pack()

	return nil
}

// buildVertexShader emits one `in` per vertex-manifest element, a
// `uniform` block matching the uniform manifest, one `out` per shape-rate
// VGen result, and a main() that runs every shape-rate VGen in order.
func (d *AbstractScinthDef) buildVertexShader() error {
	var b strings.Builder
	b.WriteString("#version 450\n\n")

	for i, el := range d.VertexManifest.Elements() {
		fmt.Fprintf(&b, "layout(location = %d) in %s %s;\n", i, el.Type, el.Name)
	}
	b.WriteString("\n")

	if d.UniformManifest.ElementCount() > 0 {
		fmt.Fprintf(&b, "layout(set = 0, binding = 0) uniform %sUniforms {\n", d.Prefix)
		for _, el := range d.UniformManifest.Elements() {
			fmt.Fprintf(&b, "    %s %s;\n", el.Type, el.Name)
		}
		b.WriteString("};\n\n")
	}

	shapeOutputs := make(map[string]bool)
	for i, vgen := range d.Instances {
		if vgen.Rate != RateShape {
			continue
		}
		for o := range vgen.OutputDims {
			name := d.outputNames[i][o]
			fmt.Fprintf(&b, "layout(location = %d) out %s %s;\n", len(shapeOutputs), dimensionTypeName(vgen.OutputDims[o]), name)
			shapeOutputs[name] = true
		}
	}
	b.WriteString("\n")

	b.WriteString("void main() {\n")
	fmt.Fprintf(&b, "    gl_Position = vec4(%s, 0.0, 1.0);\n", d.VertexPositionElementName)
	for i, vgen := range d.Instances {
		if vgen.Rate != RateShape {
			continue
		}
		frag, err := d.parameterizeVGen(i, vgen, shapeOutputs)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "    %s\n", frag)
	}
	b.WriteString("}\n")

	d.VertexShader = b.String()
	return nil
}

// buildFragmentShader emits matching `in`s for the shape-rate outputs, the
// uniform block, the parameter push-constant block, and a main() that runs
// every pixel-rate VGen in topological order, writing the final pixel-rate
// VGen's first output to the fragment output.
func (d *AbstractScinthDef) buildFragmentShader() error {
	var b strings.Builder
	b.WriteString("#version 450\n\n")

	location := 0
	for i, vgen := range d.Instances {
		if vgen.Rate != RateShape {
			continue
		}
		for o := range vgen.OutputDims {
			fmt.Fprintf(&b, "layout(location = %d) in %s %s;\n", location, dimensionTypeName(vgen.OutputDims[o]), d.outputNames[i][o])
			location++
		}
	}
	b.WriteString("\n")

	if d.UniformManifest.ElementCount() > 0 {
		fmt.Fprintf(&b, "layout(set = 0, binding = 0) uniform %sUniforms {\n", d.Prefix)
		for _, el := range d.UniformManifest.Elements() {
			fmt.Fprintf(&b, "    %s %s;\n", el.Type, el.Name)
		}
		b.WriteString("};\n\n")
	}

	if len(d.Parameters) > 0 {
		fmt.Fprintf(&b, "layout(push_constant) uniform %s {\n", d.ParametersStructName)
		for _, p := range d.Parameters {
			fmt.Fprintf(&b, "    float %s;\n", identifierSanitizer.ReplaceAllString(p.Name, "_"))
		}
		b.WriteString("} params;\n\n")
	}

	fmt.Fprintf(&b, "layout(location = 0) out vec4 %s;\n\n", d.FragmentOutputName)

	alreadyDeclared := make(map[string]bool)
	for i, vgen := range d.Instances {
		if vgen.Rate != RateShape {
			continue
		}
		for o := range vgen.OutputDims {
			alreadyDeclared[d.outputNames[i][o]] = true
		}
	}

	b.WriteString("void main() {\n")
	var lastOutput string
	for i, vgen := range d.Instances {
		if vgen.Rate != RatePixel {
			continue
		}
		frag, err := d.parameterizeVGenDeclared(i, vgen, alreadyDeclared)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "    %s\n", frag)
		if vgen.NumOutputs() > 0 {
			lastOutput = d.outputNames[i][0]
		}
	}
	if lastOutput == "" {
		return fmt.Errorf("no pixel-rate VGen produced an output to emit")
	}
	fmt.Fprintf(&b, "    %s = vec4(%s, 1.0);\n", d.FragmentOutputName, lastOutput)
	b.WriteString("}\n")

	d.FragmentShader = b.String()
	return nil
}

func (d *AbstractScinthDef) parameterizeVGen(vgenIndex int, vgen *VGen, declared map[string]bool) (string, error) {
	return d.parameterizeVGenDeclared(vgenIndex, vgen, declared)
}

func (d *AbstractScinthDef) parameterizeVGenDeclared(vgenIndex int, vgen *VGen, alreadyDeclared map[string]bool) (string, error) {
	inputs := make([]string, len(vgen.Inputs))
	for i, in := range vgen.Inputs {
		switch in.Kind {
		case InputConstant:
			inputs[i] = formatConstant(in.Dimension, in.Constant)
		case InputParameter:
			inputs[i] = fmt.Sprintf("params.%s", identifierSanitizer.ReplaceAllString(d.Parameters[in.ParameterIndex].Name, "_"))
		case InputVGenRef:
			inputs[i] = d.outputNames[in.VGenIndex][in.OutputIndex]
		}
	}

	intrinsics := map[Intrinsic]string{
		IntrinsicTime:    "time",
		IntrinsicNormPos: "normPos",
		IntrinsicTexPos:  "texPos",
		IntrinsicPi:      "3.14159265359",
	}

	return vgen.Template.Parameterize(inputs, intrinsics, d.outputNames[vgenIndex], vgen.OutputDims, alreadyDeclared)
}

func dimensionTypeName(dim int) string {
	switch dim {
	case 1:
		return "float"
	case 2:
		return "vec2"
	case 3:
		return "vec3"
	case 4:
		return "vec4"
	default:
		return "float"
	}
}

func formatConstant(dim int, v [4]float32) string {
	switch dim {
	case 1:
		return fmt.Sprintf("%g", v[0])
	case 2:
		return fmt.Sprintf("vec2(%g, %g)", v[0], v[1])
	case 3:
		return fmt.Sprintf("vec3(%g, %g, %g)", v[0], v[1], v[2])
	case 4:
		return fmt.Sprintf("vec4(%g, %g, %g, %g)", v[0], v[1], v[2], v[3])
	default:
		return "0.0"
	}
}
