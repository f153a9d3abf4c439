package comp

import (
	"fmt"
	"sync"

	"github.com/scintillator/scsynth/engine/base"
	"github.com/scintillator/scsynth/engine/gpu"
)

// CompiledDefs maps an admitted ScinthDef name to its GPU-compiled form.
// One lock guards insert/lookup/erase only, matching spec.md §5's "ScinthDef
// map: single lock held only for insert/lookup/erase" policy — compilation
// itself (shader build + GPU object creation) happens outside the lock so a
// slow def_add cannot stall node lookups from scinth_new.
type CompiledDefs struct {
	driver     gpu.Driver
	compiler   ShaderCompiler
	clearColor [4]float32

	mu   sync.RWMutex
	defs map[string]*ScinthDef
}

func NewCompiledDefs(driver gpu.Driver, compiler ShaderCompiler, clearColor [4]float32) *CompiledDefs {
	return &CompiledDefs{driver: driver, compiler: compiler, clearColor: clearColor, defs: make(map[string]*ScinthDef)}
}

// Admit compiles abstract's GLSL source to SPIR-V and builds its GPU
// pipeline, then installs the result under abstract.Name, replacing and
// destroying any prior definition of the same name.
func (c *CompiledDefs) Admit(abstract *base.AbstractScinthDef) (*ScinthDef, error) {
	vertexSPIRV, err := c.compiler.Compile(abstract.VertexShader, ShaderStageVertex)
	if err != nil {
		return nil, fmt.Errorf("compiled_defs: vertex shader for %s: %w", abstract.Name, err)
	}
	fragmentSPIRV, err := c.compiler.Compile(abstract.FragmentShader, ShaderStageFragment)
	if err != nil {
		return nil, fmt.Errorf("compiled_defs: fragment shader for %s: %w", abstract.Name, err)
	}

	def, err := Compile(c.driver, abstract, c.clearColor, vertexSPIRV, fragmentSPIRV)
	if err != nil {
		return nil, fmt.Errorf("compiled_defs: compile %s: %w", abstract.Name, err)
	}

	c.mu.Lock()
	prior, ok := c.defs[abstract.Name]
	c.defs[abstract.Name] = def
	c.mu.Unlock()

	if ok {
		prior.Destroy()
	}
	return def, nil
}

// Get looks up a previously admitted, compiled def by name.
func (c *CompiledDefs) Get(name string) (*ScinthDef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[name]
	return d, ok
}

// Free destroys and removes every named def, skipping names with no
// compiled entry (e.g. a def that failed to compile).
func (c *CompiledDefs) Free(names []string) {
	c.mu.Lock()
	removed := make([]*ScinthDef, 0, len(names))
	for _, name := range names {
		if d, ok := c.defs[name]; ok {
			removed = append(removed, d)
			delete(c.defs, name)
		}
	}
	c.mu.Unlock()

	for _, d := range removed {
		d.Destroy()
	}
}
