// Package shader compiles GLSL programs and checks their interface against
// the storage bindings and uniforms the renderer expects.
package shader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
)

// Stage is the source of one shader stage.
type Stage struct {
	Type   uint32
	Name   string
	Source string
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	return Link(
		Stage{Type: gl.VERTEX_SHADER, Name: "vertex", Source: vertexSrc},
		Stage{Type: gl.FRAGMENT_SHADER, Name: "fragment", Source: fragmentSrc},
	)
}

// Link compiles every stage and links them into one program.
func Link(stages ...Stage) (uint32, error) {
	shaders := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()
	for _, st := range stages {
		s, err := compileShader(st.Source, st.Type, st.Name)
		if err != nil {
			return 0, err
		}
		shaders = append(shaders, s)
	}

	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", infoLog(log))
	}
	for _, s := range shaders {
		gl.DetachShader(program, s)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, infoLog(log))
	}
	return shader, nil
}

// infoLog trims the terminator and trailing whitespace GL leaves in info logs.
func infoLog(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 \t\r\n")
}

// GetUniform returns the uniform location for the given name.
// Returns -1 if the uniform is not found or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// RequireUniform returns the location of a uniform the program must use.
func RequireUniform(program uint32, name string) (int32, error) {
	loc := GetUniform(program, name)
	if loc < 0 {
		return -1, fmt.Errorf("uniform %q not active in program %d", name, program)
	}
	return loc, nil
}

// StorageBinding returns the binding point of an active shader storage block.
func StorageBinding(program uint32, block string) (uint32, error) {
	idx := gl.GetProgramResourceIndex(program, gl.SHADER_STORAGE_BLOCK, gl.Str(block+"\x00"))
	if idx == gl.INVALID_INDEX {
		return 0, fmt.Errorf("storage block %q not active in program %d", block, program)
	}
	prop := uint32(gl.BUFFER_BINDING)
	var binding int32
	gl.GetProgramResourceiv(program, gl.SHADER_STORAGE_BLOCK, idx, 1, &prop, 1, nil, &binding)
	return uint32(binding), nil
}

// CheckStorageBindings verifies that every named storage block sits at the
// binding the caller will attach its buffer to.
func CheckStorageBindings(program uint32, want map[string]uint32) error {
	return checkBindings(want, func(block string) (uint32, error) {
		return StorageBinding(program, block)
	})
}

func checkBindings(want map[string]uint32, lookup func(string) (uint32, error)) error {
	blocks := make([]string, 0, len(want))
	for b := range want {
		blocks = append(blocks, b)
	}
	slices.Sort(blocks)

	var problems []string
	for _, b := range blocks {
		got, err := lookup(b)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if got != want[b] {
			problems = append(problems, fmt.Sprintf("block %q at binding %d, expected %d", b, got, want[b]))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("storage bindings: %s", strings.Join(problems, "; "))
	}
	return nil
}
