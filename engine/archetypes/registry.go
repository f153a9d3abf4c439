// Package archetypes parses and holds the two document kinds the compiler
// reads from disk: AbstractVGen templates and AbstractScinthDef graphs.
// Both live behind their own lock, matching spec.md's "read/lookup holds a
// shared lock, insert/erase holds exclusive" concurrency note.
package archetypes

import (
	"sync"

	"github.com/scintillator/scsynth/engine/base"
	"github.com/scintillator/scsynth/engine/core"
)

// Registry holds the live set of VGen templates and built AbstractScinthDefs.
// Each map has its own RWMutex so a def lookup never blocks behind a
// pending VGen-template edit and vice versa.
type Registry struct {
	vgensMu sync.RWMutex
	vgens   map[string]*base.AbstractVGen

	defsMu sync.RWMutex
	defs   map[string]*base.AbstractScinthDef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		vgens: make(map[string]*base.AbstractVGen),
		defs:  make(map[string]*base.AbstractScinthDef),
	}
}

// VGen returns the named template, or (nil, false) if it isn't registered.
func (r *Registry) VGen(name string) (*base.AbstractVGen, bool) {
	r.vgensMu.RLock()
	defer r.vgensMu.RUnlock()
	v, ok := r.vgens[name]
	return v, ok
}

// InsertVGen registers a template under its own name, overwriting any
// existing entry atomically.
func (r *Registry) InsertVGen(v *base.AbstractVGen) {
	r.vgensMu.Lock()
	defer r.vgensMu.Unlock()
	r.vgens[v.Name] = v
}

// VGenNames returns the currently registered template names in no
// particular order.
func (r *Registry) VGenNames() []string {
	r.vgensMu.RLock()
	defer r.vgensMu.RUnlock()
	names := make([]string, 0, len(r.vgens))
	for name := range r.vgens {
		names = append(names, name)
	}
	return names
}

// Def returns the named ScinthDef, or (nil, false) if it isn't registered.
func (r *Registry) Def(name string) (*base.AbstractScinthDef, bool) {
	r.defsMu.RLock()
	defer r.defsMu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// InsertDef registers a def under its own name, overwriting any existing
// entry atomically.
func (r *Registry) InsertDef(d *base.AbstractScinthDef) {
	r.defsMu.Lock()
	defer r.defsMu.Unlock()
	r.defs[d.Name] = d
}

// FreeDefs removes the named defs, logging (but not failing) on names that
// aren't present.
func (r *Registry) FreeDefs(names []string) {
	r.defsMu.Lock()
	defer r.defsMu.Unlock()
	for _, name := range names {
		if _, ok := r.defs[name]; !ok {
			core.LogWarn("FreeDefs: %s not found in registry", name)
			continue
		}
		delete(r.defs, name)
	}
}

// DefNames returns the currently registered def names in no particular
// order.
func (r *Registry) DefNames() []string {
	r.defsMu.RLock()
	defer r.defsMu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}
