package comp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareFrameRebuildsPrimaryWhenTreeDirty(t *testing.T) {
	driver := &fakeDriver{}
	abstract := minimalAbstractDef(t, "solid")
	def, err := Compile(driver, abstract, [4]float32{0, 0, 0, 1}, []byte("vert"), []byte("frag"))
	require.NoError(t, err)

	tree := NewRenderTree()
	s, err := NewScinth(1, def, driver, 2, nil)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, s, AddToGroupTail, 0)
	require.NoError(t, err)
	require.True(t, tree.Dirty())

	ctx := NewFrameContext(0)
	fb := fakeFramebuffer{}
	renderPass := fakeRenderPass{}

	err = PrepareFrame(tree, driver, fb, renderPass, [4]float32{}, ctx, 1.5)
	require.NoError(t, err)

	assert.Equal(t, 1.5, ctx.FrameTime)
	assert.NotNil(t, ctx.PrimaryDraw())
	assert.False(t, tree.Dirty())
	assert.Len(t, ctx.SecondaryCommandBuffers(), 1)
}

func TestPrepareFrameSkipsPrimaryRebuildWhenClean(t *testing.T) {
	driver := &fakeDriver{}
	abstract := minimalAbstractDef(t, "solid")
	def, err := Compile(driver, abstract, [4]float32{}, []byte("vert"), []byte("frag"))
	require.NoError(t, err)

	tree := NewRenderTree()
	s, err := NewScinth(1, def, driver, 1, nil)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, s, AddToGroupTail, 0)
	require.NoError(t, err)

	ctx := NewFrameContext(0)
	require.NoError(t, PrepareFrame(tree, driver, fakeFramebuffer{}, fakeRenderPass{}, [4]float32{}, ctx, 0))
	require.False(t, tree.Dirty())

	// Second call with a clean tree must not rebuild the primary buffer;
	// SetPrimary is never invoked so PrimaryDraw stays at whatever the
	// first call left it (non-nil), not nil from a fresh ctx.
	err = PrepareFrame(tree, driver, fakeFramebuffer{}, fakeRenderPass{}, [4]float32{}, ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, ctx.PrimaryDraw())
}

func TestPrepareFrameExcludesNonRunningScinths(t *testing.T) {
	driver := &fakeDriver{}
	abstract := minimalAbstractDef(t, "solid")
	def, err := Compile(driver, abstract, [4]float32{}, []byte("vert"), []byte("frag"))
	require.NoError(t, err)

	tree := NewRenderTree()
	s, err := NewScinth(1, def, driver, 1, nil)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, s, AddToGroupTail, 0)
	require.NoError(t, err)
	tree.NodeRun(map[int64]bool{1: false})

	ctx := NewFrameContext(0)
	require.NoError(t, PrepareFrame(tree, driver, fakeFramebuffer{}, fakeRenderPass{}, [4]float32{}, ctx, 0))
	assert.Empty(t, ctx.SecondaryCommandBuffers())
}
