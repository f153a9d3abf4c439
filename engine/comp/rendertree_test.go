package comp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeScinth(id int64) *Scinth {
	return &Scinth{ID: id, running: true}
}

func TestNewRenderTreeHasOnlyRootGroup(t *testing.T) {
	tree := NewRenderTree()
	assert.Equal(t, 0, tree.ScinthCount())
	assert.False(t, tree.Dirty())
}

func TestScinthNewAddsToGroupTail(t *testing.T) {
	tree := NewRenderTree()

	id, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	id2, err := tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, id2)

	require.Equal(t, 2, tree.ScinthCount())
	assert.True(t, tree.Dirty())

	running := tree.RunningScinths()
	require.Len(t, running, 2)
	assert.Equal(t, int64(1), running[0].ID)
	assert.Equal(t, int64(2), running[1].ID)
}

func TestScinthNewAddToGroupHeadPrepends(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupHead, 0)
	require.NoError(t, err)

	running := tree.RunningScinths()
	require.Len(t, running, 2)
	assert.Equal(t, int64(2), running[0].ID)
	assert.Equal(t, int64(1), running[1].ID)
}

func TestScinthNewBeforeAndAfterNode(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)

	_, err = tree.ScinthNew(2, fakeScinth(2), AddBeforeNode, 1)
	require.NoError(t, err)
	_, err = tree.ScinthNew(3, fakeScinth(3), AddAfterNode, 1)
	require.NoError(t, err)

	running := tree.RunningScinths()
	ids := make([]int64, len(running))
	for i, s := range running {
		ids[i] = s.ID
	}
	assert.Equal(t, []int64{2, 1, 3}, ids)
}

func TestScinthNewReplace(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, fakeScinth(1), AddReplace, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, tree.ScinthCount())
}

func TestScinthNewServerAssignedID(t *testing.T) {
	tree := NewRenderTree()
	id, err := tree.ScinthNew(-1, fakeScinth(-1), AddToGroupTail, 0)
	require.NoError(t, err)
	assert.Less(t, id, int64(0))

	id2, err := tree.ScinthNew(-1, fakeScinth(-1), AddToGroupTail, 0)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestGroupNewAndScinthWithinGroup(t *testing.T) {
	tree := NewRenderTree()

	gid, err := tree.GroupNew(10, AddToGroupTail, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, gid)

	_, err = tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, gid)
	require.NoError(t, err)

	running := tree.RunningScinths()
	require.Len(t, running, 2)
	assert.Equal(t, int64(1), running[0].ID)
	assert.Equal(t, int64(2), running[1].ID)
}

func TestNodeFreeRemovesScinth(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, 0)
	require.NoError(t, err)

	tree.NodeFree([]int64{1})
	assert.Equal(t, 1, tree.ScinthCount())
	running := tree.RunningScinths()
	require.Len(t, running, 1)
	assert.Equal(t, int64(2), running[0].ID)
}

func TestNodeFreeOnGroupRemovesAllMembers(t *testing.T) {
	tree := NewRenderTree()
	gid, err := tree.GroupNew(10, AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, gid)
	require.NoError(t, err)
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, gid)
	require.NoError(t, err)

	tree.NodeFree([]int64{gid})
	assert.Equal(t, 0, tree.ScinthCount())
}

func TestNodeFreeRefusesRootGroup(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)

	tree.NodeFree([]int64{0})
	assert.Equal(t, 1, tree.ScinthCount())
}

func TestNodeRunTogglesGroupMembers(t *testing.T) {
	tree := NewRenderTree()
	gid, err := tree.GroupNew(10, AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, gid)
	require.NoError(t, err)
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, gid)
	require.NoError(t, err)

	tree.NodeRun(map[int64]bool{gid: false})
	assert.Empty(t, tree.RunningScinths())

	tree.NodeRun(map[int64]bool{gid: true})
	assert.Len(t, tree.RunningScinths(), 2)
}

func TestNodeOrderMovesContiguousBlock(t *testing.T) {
	tree := NewRenderTree()
	for _, id := range []int64{1, 2, 3, 4} {
		_, err := tree.ScinthNew(id, fakeScinth(id), AddToGroupTail, 0)
		require.NoError(t, err)
	}

	err := tree.NodeOrder(AddBeforeNode, 1, []int64{3, 4})
	require.NoError(t, err)

	running := tree.RunningScinths()
	ids := make([]int64, len(running))
	for i, s := range running {
		ids[i] = s.ID
	}
	assert.Equal(t, []int64{3, 4, 1, 2}, ids)
}

func TestGroupFreeAllLeavesGroupInPlace(t *testing.T) {
	tree := NewRenderTree()
	gid, err := tree.GroupNew(10, AddToGroupTail, 0)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, gid)
	require.NoError(t, err)

	err = tree.GroupFreeAll(gid)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.ScinthCount())

	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, gid)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.ScinthCount())
}

func TestGroupFreeAllRemovesNestedSubGroups(t *testing.T) {
	tree := NewRenderTree()
	gid, err := tree.GroupNew(10, AddToGroupTail, 0)
	require.NoError(t, err)
	subID, err := tree.GroupNew(11, AddToGroupTail, gid)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, subID)
	require.NoError(t, err)

	err = tree.GroupFreeAll(gid)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.ScinthCount())

	// The sub-group must be gone: targeting it now errors.
	err = tree.GroupFreeAll(subID)
	assert.Error(t, err)

	// The named group itself must still be usable.
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, gid)
	require.NoError(t, err)
}

func TestGroupDeepFreePreservesSubGroupStructure(t *testing.T) {
	tree := NewRenderTree()
	gid, err := tree.GroupNew(10, AddToGroupTail, 0)
	require.NoError(t, err)
	subID, err := tree.GroupNew(11, AddToGroupTail, gid)
	require.NoError(t, err)
	_, err = tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, subID)
	require.NoError(t, err)

	err = tree.GroupDeepFree(gid)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.ScinthCount())

	// The sub-group must still exist and be usable.
	_, err = tree.ScinthNew(2, fakeScinth(2), AddToGroupTail, subID)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.ScinthCount())
}

func TestScinthNewUnknownGroupTargetErrors(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 999)
	assert.Error(t, err)
}

func TestClearDirtyResetsFlag(t *testing.T) {
	tree := NewRenderTree()
	_, err := tree.ScinthNew(1, fakeScinth(1), AddToGroupTail, 0)
	require.NoError(t, err)
	require.True(t, tree.Dirty())

	tree.ClearDirty()
	assert.False(t, tree.Dirty())
}
