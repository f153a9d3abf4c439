package base

import "fmt"

// InputKind distinguishes the three ways a VGen input can be bound.
type InputKind int

const (
	InputConstant InputKind = iota
	InputParameter
	InputVGenRef
)

// VGenInput is the sum type {constant | parameter-index | vgen-output-ref}
// bound to one input slot of a VGen instance.
type VGenInput struct {
	Kind      InputKind
	Dimension int

	// Valid when Kind == InputConstant. Only the first Dimension
	// components are meaningful.
	Constant [4]float32

	// Valid when Kind == InputParameter.
	ParameterIndex int

	// Valid when Kind == InputVGenRef. VGenIndex must be strictly less
	// than the index of the VGen this input belongs to (topological
	// order); OutputIndex must be a valid output of that producer.
	VGenIndex   int
	OutputIndex int
}

func ConstantInput1(v float32) VGenInput {
	return VGenInput{Kind: InputConstant, Dimension: 1, Constant: [4]float32{v}}
}

func ConstantInput2(x, y float32) VGenInput {
	return VGenInput{Kind: InputConstant, Dimension: 2, Constant: [4]float32{x, y}}
}

func ConstantInput3(x, y, z float32) VGenInput {
	return VGenInput{Kind: InputConstant, Dimension: 3, Constant: [4]float32{x, y, z}}
}

func ConstantInput4(x, y, z, w float32) VGenInput {
	return VGenInput{Kind: InputConstant, Dimension: 4, Constant: [4]float32{x, y, z, w}}
}

func ParameterInput(dimension, index int) VGenInput {
	return VGenInput{Kind: InputParameter, Dimension: dimension, ParameterIndex: index}
}

func VGenRefInput(dimension, vgenIndex, outputIndex int) VGenInput {
	return VGenInput{Kind: InputVGenRef, Dimension: dimension, VGenIndex: vgenIndex, OutputIndex: outputIndex}
}

// ImageSource names where a sampler binding's image id comes from: a fixed
// id baked into the def, or a per-Scinth parameter that holds the id.
type ImageSource struct {
	IsParameter    bool
	ImageID        int64
	ParameterIndex int
}

func FixedImageSource(imageID int64) ImageSource {
	return ImageSource{ImageID: imageID}
}

func ParameterImageSource(parameterIndex int) ImageSource {
	return ImageSource{IsParameter: true, ParameterIndex: parameterIndex}
}

// SamplerBinding attaches an AbstractSampler configuration and an image
// source to a sampler-kind VGen.
type SamplerBinding struct {
	Source  ImageSource
	Sampler AbstractSampler
}

// VGen is one instance of an AbstractVGen template within an
// AbstractScinthDef's graph: the template reference, a chosen rate, bound
// inputs, output dimensions, and (for sampler templates) a sampler binding.
type VGen struct {
	Template   *AbstractVGen
	Rate       Rate
	Inputs     []VGenInput
	OutputDims []int
	Sampler    *SamplerBinding
}

// NewVGen constructs and validates one VGen instance against its template.
// ownIndex is this VGen's position in the enclosing def's topologically
// ordered VGen list; producerOutputCounts[i] gives the number of outputs of
// the VGen at index i (only indices < ownIndex need be populated).
func NewVGen(template *AbstractVGen, rate Rate, inputs []VGenInput, outputDims []int, sampler *SamplerBinding, ownIndex int, producerOutputCounts []int) (*VGen, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: nil template", ErrUnknownTemplate)
	}
	if !template.Rates.Supports(rate) {
		return nil, fmt.Errorf("VGen %s does not support rate %v", template.Name, rate)
	}
	if len(inputs) != len(template.Inputs) {
		return nil, fmt.Errorf("VGen %s expects %d inputs, got %d", template.Name, len(template.Inputs), len(inputs))
	}
	if len(outputDims) != len(template.Outputs) {
		return nil, fmt.Errorf("VGen %s expects %d outputs, got %d", template.Name, len(template.Outputs), len(outputDims))
	}
	if template.IsSampler && sampler == nil {
		return nil, fmt.Errorf("VGen %s is a sampler template and requires a sampler binding", template.Name)
	}

	inputDims := make([]int, len(inputs))
	for i, in := range inputs {
		if in.Kind == InputVGenRef {
			if in.VGenIndex < 0 || in.VGenIndex >= ownIndex {
				return nil, fmt.Errorf("VGen %s input %d: %w (vgenIndex=%d, ownIndex=%d)", template.Name, i, ErrNotTopological, in.VGenIndex, ownIndex)
			}
			if in.VGenIndex >= len(producerOutputCounts) || in.OutputIndex < 0 || in.OutputIndex >= producerOutputCounts[in.VGenIndex] {
				return nil, fmt.Errorf("VGen %s input %d: output index %d out of range for producer %d", template.Name, i, in.OutputIndex, in.VGenIndex)
			}
		}
		inputDims[i] = in.Dimension
	}

	if !hasMatchingVariant(template.Dimensions, inputDims, outputDims) {
		return nil, fmt.Errorf("VGen %s: %w for inputs=%v outputs=%v", template.Name, ErrVariantNotFound, inputDims, outputDims)
	}

	v := &VGen{
		Template:   template,
		Rate:       rate,
		Inputs:     inputs,
		OutputDims: outputDims,
		Sampler:    sampler,
	}
	return v, nil
}

func hasMatchingVariant(variants []DimensionVariant, inputDims, outputDims []int) bool {
	for _, variant := range variants {
		if intSlicesEqual(variant.Inputs, inputDims) && intSlicesEqual(variant.Outputs, outputDims) {
			return true
		}
	}
	return false
}

func intSlicesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NumOutputs returns how many outputs this instance produces, i.e. how
// many (vgenIndex, outputIndex) targets downstream VGens may reference.
func (v *VGen) NumOutputs() int {
	return len(v.OutputDims)
}
