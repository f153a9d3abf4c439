package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAbstractScinthDefRejectsDuplicateParameterNames(t *testing.T) {
	params := []Parameter{{Name: "brightness", DefaultValue: 1}, {Name: "brightness", DefaultValue: 2}}
	_, err := BuildAbstractScinthDef("dup", params, nil, NewQuad(1, 1))
	assert.Error(t, err)
}

func TestBuildAbstractScinthDefProducesFragmentShaderReferencingOutput(t *testing.T) {
	tmpl := constColorTemplate(t)
	vgen, err := NewVGen(tmpl, RatePixel, nil, []int{3}, nil, 0, nil)
	require.NoError(t, err)

	def, err := BuildAbstractScinthDef("solid", nil, []*VGen{vgen}, NewQuad(1, 1))
	require.NoError(t, err)

	assert.NotEmpty(t, def.FragmentShader)
	assert.NotEmpty(t, def.VertexShader)
	assert.Contains(t, def.FragmentShader, def.FragmentOutputName)
}

func TestBuildAbstractScinthDefRejectsEmptyInstancesWithNoPixelOutput(t *testing.T) {
	_, err := BuildAbstractScinthDef("empty", nil, nil, NewQuad(1, 1))
	assert.Error(t, err)
}

func TestIndexForParameterNameLooksUpByName(t *testing.T) {
	tmpl := constColorTemplate(t)
	vgen, err := NewVGen(tmpl, RatePixel, nil, []int{3}, nil, 0, nil)
	require.NoError(t, err)

	params := []Parameter{{Name: "brightness", DefaultValue: 1}}
	def, err := BuildAbstractScinthDef("solid", params, []*VGen{vgen}, NewQuad(1, 1))
	require.NoError(t, err)

	idx, ok := def.IndexForParameterName("brightness")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = def.IndexForParameterName("nonexistent")
	assert.False(t, ok)
}

func TestNameForVGenOutputRoundTripsAndRejectsOutOfRange(t *testing.T) {
	tmpl := constColorTemplate(t)
	vgen, err := NewVGen(tmpl, RatePixel, nil, []int{3}, nil, 0, nil)
	require.NoError(t, err)

	def, err := BuildAbstractScinthDef("solid", nil, []*VGen{vgen}, NewQuad(1, 1))
	require.NoError(t, err)

	name, err := def.NameForVGenOutput(0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	_, err = def.NameForVGenOutput(5, 0)
	assert.Error(t, err)
	_, err = def.NameForVGenOutput(0, 5)
	assert.Error(t, err)
}

func TestBuildAbstractScinthDefChainsProducerIntoConsumer(t *testing.T) {
	producer := constColorTemplate(t)
	producerInst, err := NewVGen(producer, RatePixel, nil, []int{3}, nil, 0, nil)
	require.NoError(t, err)

	consumerTmpl := scaleTemplate(t)
	consumerInst, err := NewVGen(consumerTmpl, RatePixel, []VGenInput{VGenRefInput(3, 0, 0)}, []int{3}, nil, 1, []int{1})
	require.NoError(t, err)

	def, err := BuildAbstractScinthDef("chained", nil, []*VGen{producerInst, consumerInst}, NewQuad(1, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, def.FragmentShader)
}
