package osc

import (
	"testing"
	"time"

	"github.com/scintillator/scsynth/engine/archetypes"
	"github.com/scintillator/scsynth/engine/comp"
	"github.com/scintillator/scsynth/engine/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher() *Dispatcher {
	return &Dispatcher{
		Registry:  archetypes.NewRegistry(),
		Tree:      comp.NewRenderTree(),
		Scheduler: scheduler.NewAsync(1),
	}
}

func TestDispatcherGroupNewAndNodeFree(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()

	gid, err := d.GroupNew(10, comp.AddToGroupTail, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, gid)

	d.NodeFree([]int64{gid})
	assert.Equal(t, 0, d.Tree.ScinthCount())
}

func TestDispatcherSyncRunsAfterPriorJobs(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()

	done := make(chan struct{})
	d.Sync(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sync continuation never ran")
	}
}

func TestDispatcherSleepForConvertsSecondsToDuration(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()

	start := time.Now()
	done := make(chan struct{})
	d.SleepFor(0.02, func() { close(done) })

	select {
	case <-done:
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("sleep_for continuation never ran")
	}
}

func TestDispatcherScreenShotWithoutOffscreenErrors(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()

	done := make(chan error, 1)
	d.ScreenShot("out.png", "", func(err error) { done <- err })
	assert.Error(t, <-done)
}

func TestDispatcherAdvanceFrameWithoutOffscreenIsNoOp(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()

	assert.NotPanics(t, func() {
		d.AdvanceFrame(1.0/60, func(int) {})
	})
}

func TestDispatcherSetClearColorWithoutOffscreenIsNoOp(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()

	assert.NotPanics(t, func() {
		d.SetClearColor(1, 0, 0)
	})
}

func TestDispatcherDefFreeWithNoCompiledDefsIsNoOp(t *testing.T) {
	d := newTestDispatcher()
	defer d.Scheduler.Stop()
	d.Defs = comp.NewCompiledDefs(nil, nil, [4]float32{})

	assert.NotPanics(t, func() {
		d.DefFree([]string{"nonexistent"})
	})
}
