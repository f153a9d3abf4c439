package base

import (
	"fmt"
	"regexp"

	"github.com/scintillator/scsynth/engine/core"
)

// Rate is the evaluation frequency of a VGen.
type Rate uint8

const (
	RateFrame Rate = 1 << iota
	RateShape
	RatePixel
)

// RateMask is a set of supported Rates, used by AbstractVGen to advertise
// which rates it can run at.
type RateMask uint8

func NewRateMask(rates ...Rate) RateMask {
	var m RateMask
	for _, r := range rates {
		m |= RateMask(r)
	}
	return m
}

func (m RateMask) Supports(r Rate) bool {
	return m&RateMask(r) != 0
}

// DimensionVariant pairs one supported set of input dimensions with the
// output dimensions it produces. AbstractVGen.Dimensions lists every
// variant a template supports; VGen instances pick exactly one.
type DimensionVariant struct {
	Inputs  []int
	Outputs []int
}

type tokenKind int

const (
	tokenInput tokenKind = iota
	tokenOutput
	tokenIntrinsic
)

// token is one resolved `@name` occurrence in a template's shader snippet.
type token struct {
	start, end int // byte offsets in Shader, end exclusive
	kind       tokenKind
	index      int       // for tokenInput/tokenOutput: index into Inputs/Outputs
	intrinsic  Intrinsic // for tokenIntrinsic
}

var tokenPattern = regexp.MustCompile(`@\w+`)

// AbstractVGen is an immutable template of one shader primitive: named
// inputs/outputs, the rates it can run at, the dimension variants it
// supports, and a shader source snippet referencing its inputs, outputs,
// and intrinsics via `@name` tokens.
type AbstractVGen struct {
	Name       string
	Rates      RateMask
	IsSampler  bool
	Inputs     []string
	Outputs    []string
	Dimensions []DimensionVariant
	Shader     string

	tokens     []token
	intrinsics map[Intrinsic]bool
	prepared   bool
}

// NewAbstractVGen constructs a template and immediately prepares it
// (tokenizes the shader snippet, validating name resolution). Returns an
// error if preparation fails — the template must not be registered in that
// case.
func NewAbstractVGen(name string, rates RateMask, isSampler bool, inputs, outputs []string, dims []DimensionVariant, shader string) (*AbstractVGen, error) {
	v := &AbstractVGen{
		Name:       name,
		Rates:      rates,
		IsSampler:  isSampler,
		Inputs:     inputs,
		Outputs:    outputs,
		Dimensions: dims,
		Shader:     shader,
	}
	if err := v.prepareTemplate(); err != nil {
		return nil, err
	}
	return v, nil
}

// prepareTemplate scans the shader snippet for `@name` tokens, resolving
// each in priority order: declared input, declared output, intrinsic
// registry. Requires at least one output token to appear.
func (v *AbstractVGen) prepareTemplate() error {
	inputIndex := make(map[string]int, len(v.Inputs))
	outputIndex := make(map[string]int, len(v.Outputs))

	declared := make(map[string]bool, len(v.Inputs)+len(v.Outputs))
	for i, name := range v.Inputs {
		if declared[name] {
			err := fmt.Errorf("VGen %s has a duplicate parameter name %s", v.Name, name)
			core.LogError(err.Error())
			return err
		}
		if LookupIntrinsic(name) != IntrinsicNotFound {
			err := fmt.Errorf("VGen %s has reserved intrinsic name %s as input", v.Name, name)
			core.LogError(err.Error())
			return err
		}
		declared[name] = true
		inputIndex[name] = i
	}
	for i, name := range v.Outputs {
		if declared[name] {
			err := fmt.Errorf("VGen %s has a duplicate parameter name %s", v.Name, name)
			core.LogError(err.Error())
			return err
		}
		if LookupIntrinsic(name) != IntrinsicNotFound {
			err := fmt.Errorf("VGen %s has reserved intrinsic name %s as output", v.Name, name)
			core.LogError(err.Error())
			return err
		}
		declared[name] = true
		outputIndex[name] = i
	}

	outFound := false
	intrinsics := make(map[Intrinsic]bool)
	var tokens []token

	matches := tokenPattern.FindAllStringIndex(v.Shader, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		name := v.Shader[start+1 : end]
		if idx, ok := inputIndex[name]; ok {
			tokens = append(tokens, token{start: start, end: end, kind: tokenInput, index: idx})
			continue
		}
		if idx, ok := outputIndex[name]; ok {
			tokens = append(tokens, token{start: start, end: end, kind: tokenOutput, index: idx})
			outFound = true
			continue
		}
		if intr := LookupIntrinsic(name); intr != IntrinsicNotFound {
			tokens = append(tokens, token{start: start, end: end, kind: tokenIntrinsic, intrinsic: intr})
			intrinsics[intr] = true
			continue
		}
		err := fmt.Errorf("VGen %s parsed unidentified parameter @%s in shader %q", v.Name, name, v.Shader)
		core.LogError(err.Error())
		return err
	}

	if !outFound {
		err := fmt.Errorf("VGen %s: some output parameter must appear at least once in shader %q", v.Name, v.Shader)
		core.LogError(err.Error())
		return err
	}

	v.tokens = tokens
	v.intrinsics = intrinsics
	v.prepared = true
	return nil
}

// ReferencedIntrinsics returns the set of intrinsics this template's
// shader snippet mentions.
func (v *AbstractVGen) ReferencedIntrinsics() map[Intrinsic]bool {
	return v.intrinsics
}

// Parameterize substitutes every recorded token with the caller-supplied
// strings, producing a shader fragment ready to splice into a larger
// shader. The first appearance of each output name gets a type-prefixed
// declaration (chosen from outputDims) unless that output name is present
// in alreadyDeclared.
func (v *AbstractVGen) Parameterize(inputs []string, intrinsics map[Intrinsic]string, outputs []string, outputDims []int, alreadyDeclared map[string]bool) (string, error) {
	if !v.prepared {
		return "", fmt.Errorf("VGen %s parameterized but not prepared", v.Name)
	}
	if len(inputs) != len(v.Inputs) || len(outputs) != len(v.Outputs) {
		return "", fmt.Errorf("VGen %s parameter count mismatch: expected %d inputs got %d, expected %d outputs got %d",
			v.Name, len(v.Inputs), len(inputs), len(v.Outputs), len(outputs))
	}

	var out []byte
	pos := 0
	encountered := make(map[int]bool)

	for _, tok := range v.tokens {
		if pos < tok.start {
			out = append(out, v.Shader[pos:tok.start]...)
		}
		switch tok.kind {
		case tokenInput:
			out = append(out, inputs[tok.index]...)
		case tokenIntrinsic:
			s, ok := intrinsics[tok.intrinsic]
			if !ok {
				return "", fmt.Errorf("VGen %s: no substitution provided for intrinsic %s", v.Name, tok.intrinsic)
			}
			out = append(out, s...)
		case tokenOutput:
			if !encountered[tok.index] {
				if !alreadyDeclared[outputs[tok.index]] {
					prefix, err := typePrefixForDimension(outputDims[tok.index])
					if err != nil {
						return "", fmt.Errorf("VGen %s: %w", v.Name, err)
					}
					out = append(out, prefix...)
				}
				encountered[tok.index] = true
			}
			out = append(out, outputs[tok.index]...)
		}
		pos = tok.end
	}
	out = append(out, v.Shader[pos:]...)

	return string(out), nil
}

func typePrefixForDimension(dim int) (string, error) {
	switch dim {
	case 1:
		return "float ", nil
	case 2:
		return "vec2 ", nil
	case 3:
		return "vec3 ", nil
	case 4:
		return "vec4 ", nil
	default:
		return "", fmt.Errorf("unsupported output dimension %d: %w", dim, ErrDimensionUnsupported)
	}
}
