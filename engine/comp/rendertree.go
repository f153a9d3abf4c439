package comp

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/scintillator/scsynth/engine/core"
)

// AddAction names where a new or re-spliced node lands relative to a
// target node, per spec.md §4.6's scinth_new/group_new/node_order.
type AddAction int

const (
	AddToGroupHead AddAction = iota
	AddToGroupTail
	AddBeforeNode
	AddAfterNode
	AddReplace
)

// Group owns a contiguous half-open range into the tree's flat Scinth
// list and a contiguous half-open range into its flat Group list (nested
// sub-groups), per spec.md §3's RenderTree data model.
type Group struct {
	ID          int64
	ParentID    int64
	ScinthRange [2]int
	GroupRange  [2]int
}

func (g *Group) scinthCount() int { return g.ScinthRange[1] - g.ScinthRange[0] }
func (g *Group) groupCount() int  { return g.GroupRange[1] - g.GroupRange[0] }

// RenderTree is the tree of running Scinths grouped into ordered Groups,
// per spec.md §3/§4.6/§4.7: a flat Scinth list plus id index, a flat
// Group list plus id index, one mutex guarding all structural mutation
// and the prepare_frame traversal. Root group id 0 always exists and
// spans the entire tree.
type RenderTree struct {
	mu sync.Mutex

	scinths      []*Scinth
	scinthIndex  map[int64]int
	groups       []*Group
	groupIndex   map[int64]int
	nextServerID int64

	dirty bool
}

// NewRenderTree returns a tree containing only the root group (id 0).
func NewRenderTree() *RenderTree {
	t := &RenderTree{
		scinthIndex:  make(map[int64]int),
		groupIndex:   make(map[int64]int),
		nextServerID: -1,
	}
	root := &Group{ID: 0, ParentID: 0}
	t.groups = append(t.groups, root)
	t.groupIndex[0] = 0
	return t
}

// allocServerID returns the next server-assigned id (monotonically
// decreasing negative integers), used when a caller passes id < 0.
func (t *RenderTree) allocServerID() int64 {
	id := t.nextServerID
	t.nextServerID--
	return id
}

// Dirty reports whether a structural change has occurred since the last
// ClearDirty, per spec.md §4.6's "every structural change sets a command
// buffers dirty flag observed by prepare_frame".
func (t *RenderTree) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// ClearDirty resets the dirty flag; called by prepare_frame after
// rebuilding the primary command buffer.
func (t *RenderTree) ClearDirty() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}

// isGroup reports whether id names a Group (root or otherwise).
func (t *RenderTree) isGroup(id int64) bool {
	_, ok := t.groupIndex[id]
	return ok
}

// resolveScinthInsertPosition resolves (addAction, targetID) to a flat
// Scinth-list insertion index and the Group (if any) whose range must
// anchor a groupHead/groupTail insert.
func (t *RenderTree) resolveScinthInsertPosition(action AddAction, targetID int64) (pos int, parentGroupID int64, err error) {
	switch action {
	case AddToGroupHead, AddToGroupTail:
		gi, ok := t.groupIndex[targetID]
		if !ok {
			return 0, 0, fmt.Errorf("target %d is not a group", targetID)
		}
		g := t.groups[gi]
		if action == AddToGroupHead {
			return g.ScinthRange[0], g.ID, nil
		}
		return g.ScinthRange[1], g.ID, nil
	case AddBeforeNode, AddAfterNode, AddReplace:
		si, ok := t.scinthIndex[targetID]
		if !ok {
			return 0, 0, fmt.Errorf("target %d is not a scinth", targetID)
		}
		owner := t.findOwningGroup(si)
		switch action {
		case AddBeforeNode:
			return si, owner, nil
		case AddAfterNode:
			return si + 1, owner, nil
		default: // AddReplace
			return si, owner, nil
		}
	default:
		return 0, 0, fmt.Errorf("unsupported add action %v", action)
	}
}

// findOwningGroup returns the id of the innermost Group whose ScinthRange
// contains scinthIndex.
func (t *RenderTree) findOwningGroup(scinthIndex int) int64 {
	best := t.groups[0]
	for _, g := range t.groups {
		if scinthIndex < g.ScinthRange[0] || scinthIndex >= g.ScinthRange[1] {
			continue
		}
		if g.scinthCount() < best.scinthCount() {
			best = g
		}
	}
	return best.ID
}

// shiftScinthRanges splices count positions at pos into the flat Scinth
// list's range bookkeeping: every Group range that starts at or after pos
// shifts by count; every Group range that straddles pos has its end
// extended by count. Disjoint nested ranges guarantee this correctly
// propagates to every ancestor, per spec.md §3's invariant.
func (t *RenderTree) shiftScinthRanges(pos, count int) {
	for _, g := range t.groups {
		if pos <= g.ScinthRange[0] {
			g.ScinthRange[0] += count
			g.ScinthRange[1] += count
		} else if pos < g.ScinthRange[1] {
			g.ScinthRange[1] += count
		}
	}
}

func (t *RenderTree) shiftScinthRangesForDelete(pos, count int) {
	for _, g := range t.groups {
		if pos+count <= g.ScinthRange[0] {
			g.ScinthRange[0] -= count
			g.ScinthRange[1] -= count
		} else if pos >= g.ScinthRange[1] {
			continue
		} else {
			g.ScinthRange[1] -= count
			if g.ScinthRange[1] < g.ScinthRange[0] {
				g.ScinthRange[1] = g.ScinthRange[0]
			}
		}
	}
}

func (t *RenderTree) shiftGroupRanges(pos, count int) {
	for _, g := range t.groups {
		if pos <= g.GroupRange[0] {
			g.GroupRange[0] += count
			g.GroupRange[1] += count
		} else if pos < g.GroupRange[1] {
			g.GroupRange[1] += count
		}
	}
}

func (t *RenderTree) shiftGroupRangesForDelete(pos, count int) {
	for _, g := range t.groups {
		if pos+count <= g.GroupRange[0] {
			g.GroupRange[0] -= count
			g.GroupRange[1] -= count
		} else if pos >= g.GroupRange[1] {
			continue
		} else {
			g.GroupRange[1] -= count
			if g.GroupRange[1] < g.GroupRange[0] {
				g.GroupRange[1] = g.GroupRange[0]
			}
		}
	}
}

func (t *RenderTree) reindex() {
	for i, s := range t.scinths {
		t.scinthIndex[s.ID] = i
	}
	for i, g := range t.groups {
		t.groupIndex[g.ID] = i
	}
}

// ScinthNew instantiates scinth as a running node at the position resolved
// from (action, targetID), clobbering any existing node with the same id
// first. If id < 0 a server-assigned id is allocated.
func (t *RenderTree) ScinthNew(id int64, scinth *Scinth, action AddAction, targetID int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id < 0 {
		id = t.allocServerID()
	}
	if _, ok := t.scinthIndex[id]; ok && !(action == AddReplace && targetID == id) {
		t.freeScinthLocked(id)
	}
	scinth.ID = id

	pos, _, err := t.resolveScinthInsertPosition(action, targetID)
	if err != nil {
		return 0, err
	}
	if action == AddReplace {
		old := t.scinths[pos]
		t.scinths[pos] = scinth
		old.Destroy()
		t.reindex()
		t.dirty = true
		return id, nil
	}

	t.scinths = slices.Insert(t.scinths, pos, scinth)
	t.shiftScinthRanges(pos, 1)
	t.reindex()
	t.dirty = true
	return id, nil
}

func (t *RenderTree) freeScinthLocked(id int64) {
	si, ok := t.scinthIndex[id]
	if !ok {
		return
	}
	t.scinths[si].Destroy()
	t.scinths = slices.Delete(t.scinths, si, si+1)
	t.shiftScinthRangesForDelete(si, 1)
	delete(t.scinthIndex, id)
	t.reindex()
}

// GroupNew creates a new empty group at the position resolved from
// (action, targetID). groupHead/groupTail place it as the first/last
// child group of targetID; beforeNode/afterNode place it as a sibling of
// the Scinth or Group named by targetID.
func (t *RenderTree) GroupNew(id int64, action AddAction, targetID int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id < 0 {
		id = t.allocServerID()
	}

	var scinthPos, groupPos int
	var parentID int64

	switch action {
	case AddToGroupHead, AddToGroupTail:
		gi, ok := t.groupIndex[targetID]
		if !ok {
			return 0, fmt.Errorf("target %d is not a group", targetID)
		}
		g := t.groups[gi]
		parentID = g.ID
		if action == AddToGroupHead {
			scinthPos, groupPos = g.ScinthRange[0], g.GroupRange[0]
		} else {
			scinthPos, groupPos = g.ScinthRange[1], g.GroupRange[1]
		}
	case AddBeforeNode, AddAfterNode:
		if gi, ok := t.groupIndex[targetID]; ok {
			g := t.groups[gi]
			parentID = g.ParentID
			if action == AddBeforeNode {
				scinthPos, groupPos = g.ScinthRange[0], gi
			} else {
				scinthPos, groupPos = g.ScinthRange[1], gi+1
			}
		} else if si, ok := t.scinthIndex[targetID]; ok {
			parentID = t.findOwningGroup(si)
			pgi := t.groupIndex[parentID]
			if action == AddBeforeNode {
				scinthPos, groupPos = si, t.groups[pgi].GroupRange[1]
			} else {
				scinthPos, groupPos = si+1, t.groups[pgi].GroupRange[1]
			}
		} else {
			return 0, fmt.Errorf("target %d not found", targetID)
		}
	default:
		return 0, fmt.Errorf("unsupported add action %v for group_new", action)
	}

	newGroup := &Group{ID: id, ParentID: parentID, ScinthRange: [2]int{scinthPos, scinthPos}, GroupRange: [2]int{groupPos, groupPos}}
	t.groups = slices.Insert(t.groups, groupPos, newGroup)
	t.shiftGroupRanges(groupPos, 1)
	t.reindex()
	t.dirty = true
	return id, nil
}

// NodeFree drops each named node: a Group recursively frees every Scinth
// and sub-Group in its ranges; a Scinth is removed from the flat list and
// index. Any containing Group's range shrinks accordingly.
func (t *RenderTree) NodeFree(ids []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.freeNodeLocked(id)
	}
}

func (t *RenderTree) freeNodeLocked(id int64) {
	if id == 0 {
		core.LogWarn("node_free: refusing to free the root group")
		return
	}
	if gi, ok := t.groupIndex[id]; ok {
		g := t.groups[gi]
		scinthCount := g.scinthCount()
		groupCount := g.groupCount()
		for _, s := range t.scinths[g.ScinthRange[0]:g.ScinthRange[1]] {
			s.Destroy()
			delete(t.scinthIndex, s.ID)
		}
		t.scinths = slices.Delete(t.scinths, g.ScinthRange[0], g.ScinthRange[1])
		t.shiftScinthRangesForDelete(g.ScinthRange[0], scinthCount)

		for _, sub := range t.groups[g.GroupRange[0]:g.GroupRange[1]] {
			delete(t.groupIndex, sub.ID)
		}
		t.groups = slices.Delete(t.groups, g.GroupRange[0], g.GroupRange[1])
		t.shiftGroupRangesForDelete(g.GroupRange[0], groupCount)

		gi2 := t.groupIndex[id]
		t.groups = slices.Delete(t.groups, gi2, gi2+1)
		t.shiftGroupRangesForDelete(gi2, 1)
		delete(t.groupIndex, id)
		t.reindex()
		t.dirty = true
		return
	}
	if _, ok := t.scinthIndex[id]; ok {
		t.freeScinthLocked(id)
		t.dirty = true
		return
	}
	core.LogWarn("node_free: %d not found", id)
}

// NodeRun toggles running on the named Scinths; a Group id propagates to
// every Scinth in its range.
func (t *RenderTree) NodeRun(pairs map[int64]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, flag := range pairs {
		if gi, ok := t.groupIndex[id]; ok {
			g := t.groups[gi]
			for _, s := range t.scinths[g.ScinthRange[0]:g.ScinthRange[1]] {
				s.SetRunning(flag)
			}
			continue
		}
		if si, ok := t.scinthIndex[id]; ok {
			t.scinths[si].SetRunning(flag)
			continue
		}
		core.LogWarn("node_run: %d not found", id)
	}
}

// NodeSet resolves each parameter name against the reached Scinth(es)' def
// and writes it, marking command buffers dirty. id may name a single
// Scinth or a Group (applied to every Scinth in its range). indexed keys
// are already-resolved parameter indices.
func (t *RenderTree) NodeSet(id int64, named map[string]float32, indexed map[int]float32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var targets []*Scinth
	if gi, ok := t.groupIndex[id]; ok {
		g := t.groups[gi]
		targets = t.scinths[g.ScinthRange[0]:g.ScinthRange[1]]
	} else if si, ok := t.scinthIndex[id]; ok {
		targets = t.scinths[si : si+1]
	} else {
		return fmt.Errorf("node_set: %d not found", id)
	}

	for _, s := range targets {
		for name, v := range named {
			idx, ok := s.Def.Abstract.IndexForParameterName(name)
			if !ok {
				core.LogWarn("node_set: scinth %d has no parameter %q", s.ID, name)
				continue
			}
			if err := s.SetParameter(idx, v); err != nil {
				return err
			}
		}
		for idx, v := range indexed {
			if err := s.SetParameter(idx, v); err != nil {
				return err
			}
		}
	}
	t.dirty = true
	return nil
}

// NodeOrder re-splices ids as a contiguous block immediately
// before/after/within targetID, per spec.md §4.6's node_before/node_after/
// node_order. Only Scinth ids are supported; splicing Groups is handled by
// group_new's placement and group_free_all/group_deep_free below.
func (t *RenderTree) NodeOrder(action AddAction, targetID int64, ids []int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	moving := make([]*Scinth, 0, len(ids))
	for _, id := range ids {
		si, ok := t.scinthIndex[id]
		if !ok {
			return fmt.Errorf("node_order: %d is not a scinth", id)
		}
		moving = append(moving, t.scinths[si])
	}
	for _, s := range moving {
		t.freeScinthIndexOnly(s.ID)
	}

	pos, _, err := t.resolveScinthInsertPosition(action, targetID)
	if err != nil {
		return err
	}
	t.scinths = slices.Insert(t.scinths, pos, moving...)
	t.shiftScinthRanges(pos, len(moving))
	t.reindex()
	t.dirty = true
	return nil
}

// freeScinthIndexOnly removes a Scinth from the flat list without
// destroying its GPU resources, used by NodeOrder which re-inserts it
// elsewhere rather than freeing it.
func (t *RenderTree) freeScinthIndexOnly(id int64) {
	si, ok := t.scinthIndex[id]
	if !ok {
		return
	}
	t.scinths = slices.Delete(t.scinths, si, si+1)
	t.shiftScinthRangesForDelete(si, 1)
	delete(t.scinthIndex, id)
	t.reindex()
}

// freeScinthRangeLocked destroys and removes every Scinth in [lo, hi) of
// the flat list, shrinking every Group's ScinthRange accordingly. Caller
// holds t.mu.
func (t *RenderTree) freeScinthRangeLocked(lo, hi int) {
	count := hi - lo
	for _, s := range t.scinths[lo:hi] {
		s.Destroy()
		delete(t.scinthIndex, s.ID)
	}
	t.scinths = slices.Delete(t.scinths, lo, hi)
	t.shiftScinthRangesForDelete(lo, count)
}

// GroupFreeAll frees every Scinth directly and transitively owned by the
// named group and collapses its sub-group structure: every nested
// sub-group is itself removed from the tree, per
// original_source/src/comp/RootNode.hpp's group_free_all ("any sub-groups
// are freed"). The named group itself remains, now empty.
func (t *RenderTree) GroupFreeAll(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	gi, ok := t.groupIndex[id]
	if !ok {
		return fmt.Errorf("group_free_all: %d is not a group", id)
	}
	g := t.groups[gi]

	t.freeScinthRangeLocked(g.ScinthRange[0], g.ScinthRange[1])

	groupCount := g.groupCount()
	for _, sub := range t.groups[g.GroupRange[0]:g.GroupRange[1]] {
		delete(t.groupIndex, sub.ID)
	}
	t.groups = slices.Delete(t.groups, g.GroupRange[0], g.GroupRange[1])
	t.shiftGroupRangesForDelete(g.GroupRange[0], groupCount)

	t.reindex()
	t.dirty = true
	return nil
}

// GroupDeepFree frees every Scinth owned by the named group and every
// nested sub-group, but — unlike GroupFreeAll — leaves the sub-group
// structure itself intact: only the Scinths are removed, per
// original_source/src/comp/RootNode.hpp's group_deep_free ("free Scinths
// only in this group and subgroups").
func (t *RenderTree) GroupDeepFree(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	gi, ok := t.groupIndex[id]
	if !ok {
		return fmt.Errorf("group_deep_free: %d is not a group", id)
	}
	g := t.groups[gi]

	t.freeScinthRangeLocked(g.ScinthRange[0], g.ScinthRange[1])

	t.reindex()
	t.dirty = true
	return nil
}

// ScinthCount returns the number of running (and non-running) Scinths
// currently held by the tree.
func (t *RenderTree) ScinthCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.scinths)
}

// RunningScinths returns the flat-list-order snapshot of currently running
// Scinths, for prepare_frame's traversal. The returned slice is a copy;
// callers must not mutate the tree while holding references from it
// without going through the tree's own operations.
func (t *RenderTree) RunningScinths() []*Scinth {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Scinth, 0, len(t.scinths))
	for _, s := range t.scinths {
		if s.Running() {
			out = append(out, s)
		}
	}
	return out
}
