package archetypes

import (
	"fmt"
	"io"

	"github.com/scintillator/scsynth/engine/base"
	"github.com/scintillator/scsynth/engine/core"
	"gopkg.in/yaml.v3"
)

// vgenDoc is the on-disk shape of an AbstractVGen document.
type vgenDoc struct {
	Name       string              `yaml:"name"`
	Rates      []string            `yaml:"rates"`
	Sampler    bool                `yaml:"sampler"`
	Inputs     []string            `yaml:"inputs"`
	Outputs    []string            `yaml:"outputs"`
	Dimensions []dimensionVariant  `yaml:"dimensions"`
	Shader     string              `yaml:"shader"`
}

type dimensionVariant struct {
	Inputs  intOrSlice `yaml:"inputs"`
	Outputs intOrSlice `yaml:"outputs"`
}

// intOrSlice decodes either a bare int or a list of ints into []int, per
// spec.md §6's "inputs: int|list" document grammar.
type intOrSlice []int

func (s *intOrSlice) UnmarshalYAML(value *yaml.Node) error {
	var single int
	if err := value.Decode(&single); err == nil {
		*s = []int{single}
		return nil
	}
	var list []int
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// defDoc is the on-disk shape of an AbstractScinthDef document.
type defDoc struct {
	Name       string          `yaml:"name"`
	Parameters []parameterDoc  `yaml:"parameters"`
	Shape      *shapeDoc       `yaml:"shape"`
	VGens      []vgenInstDoc   `yaml:"vgens"`
}

type parameterDoc struct {
	Name         string  `yaml:"name"`
	DefaultValue float32 `yaml:"defaultValue"`
}

type shapeDoc struct {
	Name        string `yaml:"name"`
	WidthEdges  int    `yaml:"widthEdges"`
	HeightEdges int    `yaml:"heightEdges"`
}

type vgenInstDoc struct {
	ClassName string          `yaml:"className"`
	Rate      string          `yaml:"rate"`
	Outputs   []outputDoc     `yaml:"outputs"`
	Inputs    []inputDoc      `yaml:"inputs"`
	Sampler   *samplerInstDoc `yaml:"sampler"`
}

type outputDoc struct {
	Dimension int `yaml:"dimension"`
}

type inputDoc struct {
	Type        string    `yaml:"type"` // constant, vgen, parameter
	Dimension   int       `yaml:"dimension"`
	Value       []float32 `yaml:"value"`
	VGenIndex   int       `yaml:"vgenIndex"`
	OutputIndex int       `yaml:"outputIndex"`
	Index       int       `yaml:"index"`
}

type samplerInstDoc struct {
	ImageID        *int64 `yaml:"imageId"`
	ParameterIndex *int   `yaml:"parameterIndex"`
	MinFilter      string `yaml:"minFilter"`
	MagFilter      string `yaml:"magFilter"`
	Anisotropic    *bool  `yaml:"anisotropic"`
	AddressModeU   string `yaml:"addressModeU"`
	AddressModeV   string `yaml:"addressModeV"`
	BorderColor    string `yaml:"borderColor"`
}

// ParseResult tallies what a parse pass admitted, for callers (and tests)
// that want a summary rather than walking the registry themselves.
type ParseResult struct {
	VGensLoaded int
	DefsLoaded  int
	Errors      []error
}

// ParseDocuments reads a multi-document YAML stream and admits every
// document it can parse and build, skipping and logging individual
// failures without aborting the stream — mirrors
// Archetypes::parseYAMLFile/parseYAMLString's per-document try/skip loop
// over YAML::LoadAll.
func (r *Registry) ParseDocuments(rd io.Reader) ParseResult {
	var result ParseResult
	dec := yaml.NewDecoder(rd)
	for {
		var probe map[string]interface{}
		err := dec.Decode(&probe)
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("archetypes: decode document: %w", err))
			core.LogError("archetypes: failed to decode document: %v", err)
			continue
		}
		if probe == nil {
			continue
		}

		raw, err := yaml.Marshal(probe)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}

		_, hasRates := probe["rates"]
		_, hasShader := probe["shader"]
		_, hasVGens := probe["vgens"]

		switch {
		case hasRates && hasShader:
			if err := r.parseVGenDocument(raw); err != nil {
				result.Errors = append(result.Errors, err)
				core.LogError("archetypes: skipping vgen document: %v", err)
				continue
			}
			result.VGensLoaded++
		case hasVGens:
			if err := r.parseDefDocument(raw); err != nil {
				result.Errors = append(result.Errors, err)
				core.LogError("archetypes: skipping def document: %v", err)
				continue
			}
			result.DefsLoaded++
		default:
			err := fmt.Errorf("archetypes: document has neither rates+shader nor vgens keys")
			result.Errors = append(result.Errors, err)
			core.LogError(err.Error())
		}
	}
	return result
}

func (r *Registry) parseVGenDocument(raw []byte) error {
	var doc vgenDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("vgen document: %w", err)
	}
	if doc.Name == "" {
		return fmt.Errorf("vgen document: name is required")
	}
	if len(doc.Rates) == 0 {
		return fmt.Errorf("vgen document %s: rates must be non-empty", doc.Name)
	}
	if len(doc.Outputs) == 0 {
		return fmt.Errorf("vgen document %s: outputs must be non-empty", doc.Name)
	}
	if len(doc.Dimensions) == 0 {
		return fmt.Errorf("vgen document %s: dimensions must be non-empty", doc.Name)
	}

	var rateValues []base.Rate
	for _, name := range doc.Rates {
		rate, err := rateFromString(name)
		if err != nil {
			return fmt.Errorf("vgen document %s: %w", doc.Name, err)
		}
		rateValues = append(rateValues, rate)
	}

	variants := make([]base.DimensionVariant, 0, len(doc.Dimensions))
	for i, dv := range doc.Dimensions {
		if len(dv.Inputs) != len(doc.Inputs) {
			return fmt.Errorf("vgen document %s: dimensions[%d].inputs length %d does not match declared inputs %d", doc.Name, i, len(dv.Inputs), len(doc.Inputs))
		}
		if len(dv.Outputs) != len(doc.Outputs) {
			return fmt.Errorf("vgen document %s: dimensions[%d].outputs length %d does not match declared outputs %d", doc.Name, i, len(dv.Outputs), len(doc.Outputs))
		}
		variants = append(variants, base.DimensionVariant{Inputs: []int(dv.Inputs), Outputs: []int(dv.Outputs)})
	}

	vgen, err := base.NewAbstractVGen(doc.Name, base.NewRateMask(rateValues...), doc.Sampler, doc.Inputs, doc.Outputs, variants, doc.Shader)
	if err != nil {
		return fmt.Errorf("vgen document %s: %w", doc.Name, err)
	}
	r.InsertVGen(vgen)
	return nil
}

func rateFromString(name string) (base.Rate, error) {
	switch name {
	case "frame":
		return base.RateFrame, nil
	case "shape":
		return base.RateShape, nil
	case "pixel":
		return base.RatePixel, nil
	default:
		return 0, fmt.Errorf("unrecognized rate %q", name)
	}
}

func (r *Registry) parseDefDocument(raw []byte) error {
	var doc defDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("def document: %w", err)
	}
	if doc.Name == "" {
		return fmt.Errorf("def document: name is required")
	}
	if len(doc.VGens) == 0 {
		return fmt.Errorf("def document %s: vgens must be non-empty", doc.Name)
	}

	parameters := make([]base.Parameter, 0, len(doc.Parameters))
	paramIndex := make(map[string]int, len(doc.Parameters))
	for i, p := range doc.Parameters {
		parameters = append(parameters, base.Parameter{Name: p.Name, DefaultValue: p.DefaultValue})
		paramIndex[p.Name] = i
	}

	shape := shapeFromDoc(doc.Shape)

	instances := make([]*base.VGen, 0, len(doc.VGens))
	outputCounts := make([]int, 0, len(doc.VGens))

	for i, vd := range doc.VGens {
		template, ok := r.VGen(vd.ClassName)
		if !ok {
			return fmt.Errorf("def document %s: vgen %d: unknown template %q: %w", doc.Name, i, vd.ClassName, base.ErrUnknownTemplate)
		}

		rate := base.RatePixel
		if vd.Rate != "" {
			parsed, err := rateFromString(vd.Rate)
			if err != nil {
				return fmt.Errorf("def document %s: vgen %d: %w", doc.Name, i, err)
			}
			rate = parsed
		}

		outputDims := make([]int, len(vd.Outputs))
		for o, od := range vd.Outputs {
			outputDims[o] = od.Dimension
		}

		inputs := make([]base.VGenInput, len(vd.Inputs))
		for in, id := range vd.Inputs {
			switch id.Type {
			case "constant":
				inputs[in] = constantInputFromValues(id.Dimension, id.Value)
			case "parameter":
				if id.Index < 0 || id.Index >= len(parameters) {
					return fmt.Errorf("def document %s: vgen %d input %d: parameter index %d out of range", doc.Name, i, in, id.Index)
				}
				inputs[in] = base.ParameterInput(id.Dimension, id.Index)
			case "vgen":
				inputs[in] = base.VGenRefInput(id.Dimension, id.VGenIndex, id.OutputIndex)
			default:
				return fmt.Errorf("def document %s: vgen %d input %d: unrecognized input type %q", doc.Name, i, in, id.Type)
			}
		}

		var sampler *base.SamplerBinding
		if vd.Sampler != nil {
			s, err := samplerBindingFromDoc(vd.Sampler)
			if err != nil {
				return fmt.Errorf("def document %s: vgen %d: %w", doc.Name, i, err)
			}
			sampler = s
		}

		vgen, err := base.NewVGen(template, rate, inputs, outputDims, sampler, i, outputCounts)
		if err != nil {
			return fmt.Errorf("def document %s: vgen %d: %w", doc.Name, i, err)
		}
		instances = append(instances, vgen)
		outputCounts = append(outputCounts, vgen.NumOutputs())
	}

	built, err := base.BuildAbstractScinthDef(doc.Name, parameters, instances, shape)
	if err != nil {
		return err
	}
	r.InsertDef(built)
	return nil
}

func shapeFromDoc(doc *shapeDoc) base.Shape {
	if doc == nil {
		return base.NewQuad(1, 1)
	}
	width, height := doc.WidthEdges, doc.HeightEdges
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	return base.NewQuad(width, height)
}

func constantInputFromValues(dimension int, value []float32) base.VGenInput {
	var v [4]float32
	copy(v[:], value)
	switch dimension {
	case 1:
		return base.ConstantInput1(v[0])
	case 2:
		return base.ConstantInput2(v[0], v[1])
	case 3:
		return base.ConstantInput3(v[0], v[1], v[2])
	default:
		return base.ConstantInput4(v[0], v[1], v[2], v[3])
	}
}

func samplerBindingFromDoc(doc *samplerInstDoc) (*base.SamplerBinding, error) {
	sampler := base.NewAbstractSampler()

	if doc.MinFilter != "" {
		mode, err := filterModeFromString(doc.MinFilter)
		if err != nil {
			return nil, err
		}
		sampler = sampler.WithMinFilterMode(mode)
	}
	if doc.MagFilter != "" {
		mode, err := filterModeFromString(doc.MagFilter)
		if err != nil {
			return nil, err
		}
		sampler = sampler.WithMagFilterMode(mode)
	}
	if doc.Anisotropic != nil {
		sampler = sampler.WithAnisotropicFiltering(*doc.Anisotropic)
	}
	if doc.AddressModeU != "" {
		mode, err := addressModeFromString(doc.AddressModeU)
		if err != nil {
			return nil, err
		}
		sampler = sampler.WithAddressModeU(mode)
	}
	if doc.AddressModeV != "" {
		mode, err := addressModeFromString(doc.AddressModeV)
		if err != nil {
			return nil, err
		}
		sampler = sampler.WithAddressModeV(mode)
	}
	if doc.BorderColor != "" {
		color, err := borderColorFromString(doc.BorderColor)
		if err != nil {
			return nil, err
		}
		sampler = sampler.WithClampBorderColor(color)
	}

	var source base.ImageSource
	switch {
	case doc.ParameterIndex != nil:
		source = base.ParameterImageSource(*doc.ParameterIndex)
	case doc.ImageID != nil:
		source = base.FixedImageSource(*doc.ImageID)
	default:
		return nil, fmt.Errorf("sampler requires either imageId or parameterIndex")
	}

	return &base.SamplerBinding{Source: source, Sampler: sampler}, nil
}

func filterModeFromString(s string) (base.FilterMode, error) {
	switch s {
	case "linear":
		return base.FilterLinear, nil
	case "nearest":
		return base.FilterNearest, nil
	default:
		return 0, fmt.Errorf("unrecognized filter mode %q", s)
	}
}

func addressModeFromString(s string) (base.AddressMode, error) {
	switch s {
	case "clampToBorder":
		return base.AddressClampToBorder, nil
	case "clampToEdge":
		return base.AddressClampToEdge, nil
	case "repeat":
		return base.AddressRepeat, nil
	case "mirroredRepeat":
		return base.AddressMirroredRepeat, nil
	default:
		return 0, fmt.Errorf("unrecognized address mode %q", s)
	}
}

func borderColorFromString(s string) (base.ClampBorderColor, error) {
	switch s {
	case "transparentBlack":
		return base.BorderTransparentBlack, nil
	case "black":
		return base.BorderBlack, nil
	case "white":
		return base.BorderWhite, nil
	default:
		return 0, fmt.Errorf("unrecognized border color %q", s)
	}
}
