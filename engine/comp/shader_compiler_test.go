package comp

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGLSLC writes a shell script standing in for glslc: it finds the
// "-o outPath" argument and writes a fixed byte sequence there, mimicking
// a successful compile without needing the real Vulkan SDK tool installed.
func fakeGLSLC(t *testing.T, exitNonZero bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake glslc script is a POSIX shell script")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "glslc")
	script := `#!/bin/sh
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then
    out="$arg"
  fi
  prev="$arg"
done
`
	if exitNonZero {
		script += "echo 'compile error' 1>&2\nexit 1\n"
	} else {
		script += `printf '\x03\x02\x23\x07spirv' > "$out"
exit 0
`
	}
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestGLSLCCompilerCompilesVertexShader(t *testing.T) {
	compiler := NewGLSLCCompiler(fakeGLSLC(t, false))
	spirv, err := compiler.Compile("#version 450\nvoid main() {}\n", ShaderStageVertex)
	require.NoError(t, err)
	assert.NotEmpty(t, spirv)
}

func TestGLSLCCompilerPropagatesFailure(t *testing.T) {
	compiler := NewGLSLCCompiler(fakeGLSLC(t, true))
	_, err := compiler.Compile("not valid glsl", ShaderStageFragment)
	assert.Error(t, err)
}

func TestGLSLCCompilerDefaultsPathToGlslc(t *testing.T) {
	compiler := NewGLSLCCompiler("")
	assert.Equal(t, "glslc", compiler.path)
}

func TestShaderStageFlag(t *testing.T) {
	assert.Equal(t, "-fshader-stage=vert", ShaderStageVertex.flag())
	assert.Equal(t, "-fshader-stage=frag", ShaderStageFragment.flag())
}
