package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constColorTemplate(t *testing.T) *AbstractVGen {
	t.Helper()
	tmpl, err := NewAbstractVGen("constColor", NewRateMask(RatePixel), false, nil, []string{"color"},
		[]DimensionVariant{{Inputs: nil, Outputs: []int{3}}}, "vec3 @color = vec3(1.0);")
	require.NoError(t, err)
	return tmpl
}

func scaleTemplate(t *testing.T) *AbstractVGen {
	t.Helper()
	tmpl, err := NewAbstractVGen("scale", NewRateMask(RatePixel), false, []string{"in"}, []string{"out"},
		[]DimensionVariant{{Inputs: []int{3}, Outputs: []int{3}}}, "vec3 @out = @in * 2.0;")
	require.NoError(t, err)
	return tmpl
}

func TestNewVGenRejectsNilTemplate(t *testing.T) {
	_, err := NewVGen(nil, RatePixel, nil, nil, nil, 0, nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestNewVGenRejectsUnsupportedRate(t *testing.T) {
	tmpl := constColorTemplate(t)
	_, err := NewVGen(tmpl, RateFrame, nil, []int{3}, nil, 0, nil)
	assert.Error(t, err)
}

func TestNewVGenRejectsWrongInputCount(t *testing.T) {
	tmpl := constColorTemplate(t)
	_, err := NewVGen(tmpl, RatePixel, []VGenInput{ConstantInput1(1)}, []int{3}, nil, 0, nil)
	assert.Error(t, err)
}

func TestNewVGenRejectsWrongOutputCount(t *testing.T) {
	tmpl := constColorTemplate(t)
	_, err := NewVGen(tmpl, RatePixel, nil, []int{3, 3}, nil, 0, nil)
	assert.Error(t, err)
}

func TestNewVGenRejectsNonTopologicalVGenRef(t *testing.T) {
	tmpl := scaleTemplate(t)
	input := VGenRefInput(3, 1, 0) // references index 1 from ownIndex 0 — not topological
	_, err := NewVGen(tmpl, RatePixel, []VGenInput{input}, []int{3}, nil, 0, []int{1})
	assert.ErrorIs(t, err, ErrNotTopological)
}

func TestNewVGenRejectsOutOfRangeOutputIndex(t *testing.T) {
	tmpl := scaleTemplate(t)
	input := VGenRefInput(3, 0, 5)
	_, err := NewVGen(tmpl, RatePixel, []VGenInput{input}, []int{3}, nil, 1, []int{1})
	assert.Error(t, err)
}

func TestNewVGenAcceptsValidVGenRef(t *testing.T) {
	producer := constColorTemplate(t)
	_, err := NewVGen(producer, RatePixel, nil, []int{3}, nil, 0, nil)
	require.NoError(t, err)

	consumer := scaleTemplate(t)
	input := VGenRefInput(3, 0, 0)
	v, err := NewVGen(consumer, RatePixel, []VGenInput{input}, []int{3}, nil, 1, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 1, v.NumOutputs())
}

func TestNewVGenRejectsUnmatchedDimensionVariant(t *testing.T) {
	tmpl := scaleTemplate(t)
	input := ConstantInput2(1, 2)
	_, err := NewVGen(tmpl, RatePixel, []VGenInput{input}, []int{3}, nil, 0, nil)
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestNewVGenRequiresSamplerBindingForSamplerTemplate(t *testing.T) {
	tmpl, err := NewAbstractVGen("tex", NewRateMask(RatePixel), true, []string{"uv"}, []string{"color"},
		[]DimensionVariant{{Inputs: []int{2}, Outputs: []int{3}}}, "vec3 @color = texture(@uv).rgb;")
	require.NoError(t, err)

	_, err = NewVGen(tmpl, RatePixel, []VGenInput{ConstantInput2(0, 0)}, []int{3}, nil, 0, nil)
	assert.Error(t, err)
}

func TestConstantInputHelpersSetDimensionAndValues(t *testing.T) {
	in := ConstantInput4(1, 2, 3, 4)
	assert.Equal(t, 4, in.Dimension)
	assert.Equal(t, [4]float32{1, 2, 3, 4}, in.Constant)
}

func TestImageSourceHelpers(t *testing.T) {
	fixed := FixedImageSource(7)
	assert.False(t, fixed.IsParameter)
	assert.EqualValues(t, 7, fixed.ImageID)

	param := ParameterImageSource(2)
	assert.True(t, param.IsParameter)
	assert.Equal(t, 2, param.ParameterIndex)
}
