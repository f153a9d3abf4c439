package base

import (
	"testing"

	"github.com/scintillator/scsynth/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestAddRejectsDuplicateName(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("a", ElementFloat, IntrinsicNotFound))
	err := m.Add("a", ElementFloat, IntrinsicNotFound)
	assert.ErrorIs(t, err, core.ErrDuplicate)
}

func TestManifestAddAfterPackErrors(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("a", ElementFloat, IntrinsicNotFound))
	m.Pack()
	assert.Error(t, m.Add("b", ElementFloat, IntrinsicNotFound))
}

func TestManifestElementBeforePackErrors(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("a", ElementFloat, IntrinsicNotFound))
	_, err := m.Element(0)
	assert.Error(t, err)
}

func TestManifestPackOrdersBiggestToSmallest(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("f", ElementFloat, IntrinsicNotFound))
	require.NoError(t, m.Add("v2", ElementVec2, IntrinsicNotFound))
	require.NoError(t, m.Add("v4", ElementVec4, IntrinsicNotFound))
	require.NoError(t, m.Add("v3", ElementVec3, IntrinsicNotFound))
	m.Pack()

	elements := m.Elements()
	require.Len(t, elements, 4)
	assert.Equal(t, "v4", elements[0].Name)

	names := make([]string, len(elements))
	for i, e := range elements {
		names[i] = e.Name
	}
	assert.Contains(t, names, "v3")
	assert.Contains(t, names, "v2")
	assert.Contains(t, names, "f")
}

func TestManifestPackIsIdempotent(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("a", ElementVec3, IntrinsicNotFound))
	m.Pack()
	size := m.SizeInBytes()
	m.Pack()
	assert.Equal(t, size, m.SizeInBytes())
}

func TestManifestSizeAccountsForEveryElement(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("a", ElementFloat, IntrinsicNotFound))
	require.NoError(t, m.Add("b", ElementFloat, IntrinsicNotFound))
	m.Pack()
	assert.Equal(t, uint32(8), m.SizeInBytes())
}

func TestManifestHasElementAndIsPacked(t *testing.T) {
	m := NewManifest()
	require.NoError(t, m.Add("a", ElementFloat, IntrinsicNotFound))
	assert.True(t, m.HasElement("a"))
	assert.False(t, m.HasElement("missing"))
	assert.False(t, m.IsPacked())
	m.Pack()
	assert.True(t, m.IsPacked())
}

func TestElementTypeStringNames(t *testing.T) {
	assert.Equal(t, "float", ElementFloat.String())
	assert.Equal(t, "vec2", ElementVec2.String())
	assert.Equal(t, "vec3", ElementVec3.String())
	assert.Equal(t, "vec4", ElementVec4.String())
}
