package comp

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/scintillator/scsynth/engine/core"
)

// ShaderStage selects which glslc stage flag to pass for a given GLSL
// source string.
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) flag() string {
	if s == ShaderStageVertex {
		return "-fshader-stage=vert"
	}
	return "-fshader-stage=frag"
}

// ShaderCompiler turns one GLSL source string into a SPIR-V binary.
type ShaderCompiler interface {
	Compile(source string, stage ShaderStage) ([]byte, error)
}

// GLSLCCompiler shells out to glslc, the same Vulkan SDK tool the
// teacher's magefiles/build.go invokes at asset-build time
// (`glslc -fshader-stage=... in -o out`). There, shaders are static files
// compiled once at build time; here, def_add/d_recv admit ScinthDefs whose
// GLSL is assembled at runtime from the submitted vgen graph, so the same
// tool is invoked per admitted def against a temp file instead of a
// checked-in asset. No Go-native GLSL-to-SPIR-V compiler exists among the
// example dependencies, so this wraps the external binary exactly as the
// teacher's build tooling does, via os/exec.
type GLSLCCompiler struct {
	path string
}

// NewGLSLCCompiler returns a compiler invoking the glslc binary at path.
// An empty path resolves to "glslc" on $PATH.
func NewGLSLCCompiler(path string) *GLSLCCompiler {
	if path == "" {
		path = "glslc"
	}
	return &GLSLCCompiler{path: path}
}

func (g *GLSLCCompiler) Compile(source string, stage ShaderStage) ([]byte, error) {
	suffix := ".frag"
	if stage == ShaderStageVertex {
		suffix = ".vert"
	}

	in, err := os.CreateTemp("", "scsynthd-shader-*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("shader compiler: create temp input: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.WriteString(source); err != nil {
		in.Close()
		return nil, fmt.Errorf("shader compiler: write temp input: %w", err)
	}
	in.Close()

	out, err := os.CreateTemp("", "scsynthd-shader-*.spv")
	if err != nil {
		return nil, fmt.Errorf("shader compiler: create temp output: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	cmd := exec.Command(g.path, stage.flag(), in.Name(), "-o", outPath)
	var stderr []byte
	if combined, runErr := cmd.CombinedOutput(); runErr != nil {
		stderr = combined
		core.LogError("shader compiler: glslc failed: %v: %s", runErr, string(stderr))
		return nil, fmt.Errorf("shader compiler: glslc: %w: %s", runErr, string(stderr))
	}

	spirv, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("shader compiler: read spirv output: %w", err)
	}
	return spirv, nil
}
