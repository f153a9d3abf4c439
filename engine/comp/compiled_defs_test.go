package comp

import (
	"fmt"
	"testing"

	"github.com/scintillator/scsynth/engine/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	calls int
	err   error
}

func (c *fakeCompiler) Compile(source string, stage ShaderStage) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte("spirv-" + string(rune('0'+int(stage)))), nil
}

func minimalAbstractDef(t *testing.T, name string) *base.AbstractScinthDef {
	t.Helper()

	template, err := base.NewAbstractVGen(
		"constColor",
		base.NewRateMask(base.RatePixel),
		false,
		nil,
		[]string{"color"},
		[]base.DimensionVariant{{Inputs: nil, Outputs: []int{3}}},
		"vec3 @color = vec3(1.0, 1.0, 1.0);",
	)
	require.NoError(t, err)

	vgen, err := base.NewVGen(template, base.RatePixel, nil, []int{3}, nil, 0, nil)
	require.NoError(t, err)

	def, err := base.BuildAbstractScinthDef(name, nil, []*base.VGen{vgen}, base.NewQuad(1, 1))
	require.NoError(t, err)
	return def
}

func TestCompiledDefsAdmitAndGet(t *testing.T) {
	driver := &fakeDriver{}
	compiler := &fakeCompiler{}
	defs := NewCompiledDefs(driver, compiler, [4]float32{0, 0, 0, 1})

	abstract := minimalAbstractDef(t, "solid")
	compiled, err := defs.Admit(abstract)
	require.NoError(t, err)
	require.NotNil(t, compiled)
	assert.Equal(t, 2, compiler.calls)

	got, ok := defs.Get("solid")
	require.True(t, ok)
	assert.Same(t, compiled, got)
}

func TestCompiledDefsAdmitReplacesPriorDef(t *testing.T) {
	driver := &fakeDriver{}
	compiler := &fakeCompiler{}
	defs := NewCompiledDefs(driver, compiler, [4]float32{0, 0, 0, 1})

	first := minimalAbstractDef(t, "solid")
	_, err := defs.Admit(first)
	require.NoError(t, err)

	second := minimalAbstractDef(t, "solid")
	compiledSecond, err := defs.Admit(second)
	require.NoError(t, err)

	got, ok := defs.Get("solid")
	require.True(t, ok)
	assert.Same(t, compiledSecond, got)
}

func TestCompiledDefsGetMissing(t *testing.T) {
	defs := NewCompiledDefs(&fakeDriver{}, &fakeCompiler{}, [4]float32{})
	_, ok := defs.Get("nope")
	assert.False(t, ok)
}

func TestCompiledDefsAdmitPropagatesCompilerError(t *testing.T) {
	driver := &fakeDriver{}
	compiler := &fakeCompiler{err: fmt.Errorf("glslc failed")}
	defs := NewCompiledDefs(driver, compiler, [4]float32{})

	_, err := defs.Admit(minimalAbstractDef(t, "broken"))
	assert.Error(t, err)

	_, ok := defs.Get("broken")
	assert.False(t, ok)
}

func TestCompiledDefsFreeRemovesEntries(t *testing.T) {
	driver := &fakeDriver{}
	compiler := &fakeCompiler{}
	defs := NewCompiledDefs(driver, compiler, [4]float32{})

	_, err := defs.Admit(minimalAbstractDef(t, "a"))
	require.NoError(t, err)
	_, err = defs.Admit(minimalAbstractDef(t, "b"))
	require.NoError(t, err)

	defs.Free([]string{"a"})

	_, ok := defs.Get("a")
	assert.False(t, ok)
	_, ok = defs.Get("b")
	assert.True(t, ok)
}
