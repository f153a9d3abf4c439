package comp

import (
	"testing"

	"github.com/scintillator/scsynth/engine/gpu"
	"github.com/stretchr/testify/assert"
)

func TestFrameContextRetainAccumulatesSecondaryBuffers(t *testing.T) {
	c := NewFrameContext(0)
	s1 := &Scinth{ID: 1, secondary: []gpu.CommandBuffer{fakeCommandBuffer{}}}
	s2 := &Scinth{ID: 2, secondary: []gpu.CommandBuffer{fakeCommandBuffer{}}}

	c.Retain(s1)
	c.Retain(s2)

	assert.Len(t, c.SecondaryCommandBuffers(), 2)
	assert.Len(t, c.retainedScinths, 2)
}

func TestFrameContextResetClearsState(t *testing.T) {
	c := NewFrameContext(0)
	s := &Scinth{ID: 1, secondary: []gpu.CommandBuffer{fakeCommandBuffer{}}}
	c.Retain(s)
	require := assert.New(t)
	require.Len(c.SecondaryCommandBuffers(), 1)

	c.Reset()
	require.Empty(c.SecondaryCommandBuffers())
	require.Empty(c.retainedScinths)
}

func TestFrameContextSetPrimaryAndGetters(t *testing.T) {
	c := NewFrameContext(2)
	compute := fakeCommandBuffer{}
	draw := fakeCommandBuffer{}

	c.SetPrimary(compute, draw)

	assert.Equal(t, compute, c.PrimaryCompute())
	assert.Equal(t, draw, c.PrimaryDraw())
	assert.Equal(t, 2, c.ImageIndex)
}
