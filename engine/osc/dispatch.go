// Package osc is a thin demux over the Control API (spec.md §6): it decodes
// OSC-style text commands off a UDP socket and calls straight through to
// engine/comp and engine/archetypes, with no business logic of its own.
// Grounded on original_source/src/osc/Dispatcher.hpp, whose Dispatcher
// likewise held references to every subsystem (Async, Archetypes,
// Compositor, Offscreen) and dispatched incoming commands to Command
// subclasses that called straight through. liblo (the original's OSC
// transport) has no Go binding among the example dependencies, so this
// package speaks a simplified text line protocol over net.UDPConn rather
// than binary OSC packets.
package osc

import (
	"fmt"
	"time"

	"github.com/scintillator/scsynth/engine/archetypes"
	"github.com/scintillator/scsynth/engine/base"
	"github.com/scintillator/scsynth/engine/comp"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu"
	"github.com/scintillator/scsynth/engine/scheduler"
)

// Dispatcher holds references to every subsystem a control command might
// touch and exposes one method per Control API operation in spec.md §6.
type Dispatcher struct {
	Registry     *archetypes.Registry
	Tree         *comp.RenderTree
	Defs         *comp.CompiledDefs
	Scheduler    *scheduler.Async
	Offscreen    *comp.Offscreen
	StageManager *comp.StageManager
	ImageMap     *comp.ImageMap
	Driver       gpu.Driver
	ImageCount   int
}

// DefAdd admits every def/vgen document in text, compiling each newly or
// re-admitted ScinthDef's shader graph to a GPU pipeline, and returns the
// count of defs admitted (compiled successfully).
func (d *Dispatcher) DefAdd(text string) int {
	before := make(map[string]*base.AbstractScinthDef)
	for _, n := range d.Registry.DefNames() {
		abstract, _ := d.Registry.Def(n)
		before[n] = abstract
	}

	d.Registry.LoadString(text)

	admitted := 0
	for _, name := range d.Registry.DefNames() {
		abstract, ok := d.Registry.Def(name)
		if !ok || abstract == before[name] {
			continue
		}
		if _, err := d.Defs.Admit(abstract); err != nil {
			core.LogWarn("osc: def_add: compile %s: %v", name, err)
			continue
		}
		admitted++
	}
	return admitted
}

// DefFree removes both the abstract definitions and their compiled GPU
// counterparts.
func (d *Dispatcher) DefFree(names []string) {
	d.Registry.FreeDefs(names)
	d.Defs.Free(names)
}

// ScinthNew instantiates defName as a running or cued Scinth and splices it
// into the tree at the position addAction/targetID describes.
func (d *Dispatcher) ScinthNew(defName string, id int64, action comp.AddAction, targetID int64, initialParams map[string]float32) (int64, error) {
	def, ok := d.Defs.Get(defName)
	if !ok {
		return 0, fmt.Errorf("osc: scinth_new: unknown def %q", defName)
	}
	s, err := comp.NewScinth(id, def, d.Driver, d.ImageCount, initialParams)
	if err != nil {
		return 0, fmt.Errorf("osc: scinth_new: %w", err)
	}
	return d.Tree.ScinthNew(id, s, action, targetID)
}

func (d *Dispatcher) GroupNew(id int64, action comp.AddAction, targetID int64) (int64, error) {
	return d.Tree.GroupNew(id, action, targetID)
}

func (d *Dispatcher) NodeFree(ids []int64)            { d.Tree.NodeFree(ids) }
func (d *Dispatcher) NodeRun(pairs map[int64]bool)    { d.Tree.NodeRun(pairs) }
func (d *Dispatcher) GroupFreeAll(id int64) error     { return d.Tree.GroupFreeAll(id) }
func (d *Dispatcher) GroupDeepFree(id int64) error    { return d.Tree.GroupDeepFree(id) }

func (d *Dispatcher) NodeSet(id int64, named map[string]float32, indexed map[int]float32) error {
	return d.Tree.NodeSet(id, named, indexed)
}

func (d *Dispatcher) NodeOrder(action comp.AddAction, targetID int64, ids []int64) error {
	return d.Tree.NodeOrder(action, targetID, ids)
}

// StageImage enqueues a host->device image transfer. onComplete fires
// once the transfer's fence has signaled.
func (d *Dispatcher) StageImage(id int64, width, height uint32, data []byte, onComplete func(error)) {
	d.StageManager.StageImage(id, width, height, data, onComplete)
}

// QueryImage reports an installed image's byte size and dimensions.
func (d *Dispatcher) QueryImage(id int64) (sizeBytes uint64, width, height uint32, err error) {
	img, ok := d.ImageMap.Get(id)
	if !ok {
		return 0, 0, 0, fmt.Errorf("osc: query_image: unknown image %d", id)
	}
	w, h := img.Width(), img.Height()
	return uint64(w) * uint64(h) * 4, w, h, nil
}

// Sync schedules continuation to run once every job submitted to the
// scheduler before this call has completed.
func (d *Dispatcher) Sync(continuation func()) { d.Scheduler.Sync(continuation) }

// SleepFor is the async test helper: continuation runs after seconds have
// elapsed, off a worker goroutine.
func (d *Dispatcher) SleepFor(seconds float64, continuation func()) {
	d.Scheduler.SleepFor(time.Duration(seconds * float64(time.Second)), continuation)
}

// ScreenShot encodes the next rendered frame to filePath. Only valid when
// an Offscreen driver is attached.
func (d *Dispatcher) ScreenShot(filePath, mimeType string, completion func(error)) {
	if d.Offscreen == nil {
		if completion != nil {
			completion(fmt.Errorf("osc: screen_shot: no offscreen driver attached"))
		}
		return
	}
	d.Offscreen.ScreenShot(filePath, mimeType, completion)
}

// AdvanceFrame is the snapshot-mode control operation (spec.md §4.8); a
// no-op outside snapshot mode since the offscreen driver ignores
// AdvanceFrame while free-running.
func (d *Dispatcher) AdvanceFrame(dt float64, completion func(frameIndex int)) {
	if d.Offscreen == nil {
		return
	}
	d.Offscreen.AdvanceFrame(dt, completion)
}

func (d *Dispatcher) SetClearColor(r, g, b float32) {
	if d.Offscreen == nil {
		return
	}
	d.Offscreen.SetClearColor([4]float32{r, g, b, 1})
}
