// Package renderer draws a prepared frame with one multi-draw-indirect call.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/engine/shader"
	"github.com/Faultbox/scenebatch/internal/frame"
	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/gpu/glbackend"
	"github.com/Faultbox/scenebatch/internal/logger"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/pkg/math"
)

// Shader storage bindings shared with the GLSL sources.
const (
	instanceBinding = 0
	lightBinding    = 1
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	// Debug routes driver messages to the logger. The context must be a debug context.
	Debug bool
}

// Renderer binds registry buffers and issues the frame's indirect draw.
type Renderer struct {
	config Config

	program uint32
	vao     uint32

	locViewProj   int32
	locCameraPos  int32
	locLightCount int32

	viewProj  math.Mat4
	cameraPos math.Vec3

	// Buffers currently attached to the VAO; they change on geometry loads.
	boundVertices uint32
	boundIndices  uint32
}

// New creates a renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:   cfg,
		viewProj: math.Identity(),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	if cfg.Debug {
		enableDebugOutput()
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	var err error
	r.program, err = shader.CompileProgram(shader.SceneVertex, shader.SceneFragment)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	if err := shader.CheckStorageBindings(r.program, map[string]uint32{
		"Instances": instanceBinding,
		"Lights":    lightBinding,
	}); err != nil {
		gl.DeleteProgram(r.program)
		return nil, err
	}
	r.locViewProj, err = shader.RequireUniform(r.program, "uViewProj")
	if err != nil {
		gl.DeleteProgram(r.program)
		return nil, err
	}
	r.locCameraPos = shader.GetUniform(r.program, "uCameraPos")
	r.locLightCount = shader.GetUniform(r.program, "uLightCount")

	r.createVertexArray()
	return r, nil
}

// enableDebugOutput forwards KHR_debug messages to the logger, synchronously so
// the caller frame is still on the stack when an error is reported.
func enableDebugOutput() {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		fields := []zap.Field{zap.Uint32("id", id), zap.Uint32("type", gltype), zap.Uint32("source", source)}
		switch severity {
		case gl.DEBUG_SEVERITY_HIGH:
			logger.Error(message, fields...)
		case gl.DEBUG_SEVERITY_MEDIUM, gl.DEBUG_SEVERITY_LOW:
			logger.Warn(message, fields...)
		default:
			logger.Debug(message, fields...)
		}
	}, nil)
	logger.Info("OpenGL debug output enabled")
}

// createVertexArray describes registry.Vertex to GL. Buffers are attached per draw.
func (r *Renderer) createVertexArray() {
	gl.CreateVertexArrays(1, &r.vao)

	attribs := []struct {
		location uint32
		size     int32
		offset   uint32
	}{
		{0, 3, 0},  // position
		{1, 3, 12}, // normal
		{2, 2, 24}, // uv
		{3, 4, 32}, // tangent
	}
	for _, a := range attribs {
		gl.EnableVertexArrayAttrib(r.vao, a.location)
		gl.VertexArrayAttribFormat(r.vao, a.location, a.size, gl.FLOAT, false, a.offset)
		gl.VertexArrayAttribBinding(r.vao, a.location, 0)
	}
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// SetCamera sets the view-projection used by the next Draw.
func (r *Renderer) SetCamera(viewProj math.Mat4, position math.Vec3) {
	r.viewProj = viewProj
	r.cameraPos = position
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw issues every draw command of v with a single glMultiDrawElementsIndirect.
func (r *Renderer) Draw(v frame.View) error {
	if v.CommandCount == 0 {
		return nil
	}

	vbo, err := bufferID(v.VertexBuffer)
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	ibo, err := bufferID(v.IndexBuffer)
	if err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}
	commands, err := bufferID(v.CommandBuffer)
	if err != nil {
		return fmt.Errorf("command buffer: %w", err)
	}
	instances, err := bufferID(v.InstanceBuffer)
	if err != nil {
		return fmt.Errorf("instance buffer: %w", err)
	}

	if vbo != r.boundVertices {
		gl.VertexArrayVertexBuffer(r.vao, 0, vbo, 0, registry.VertexSize)
		r.boundVertices = vbo
	}
	if ibo != r.boundIndices {
		gl.VertexArrayElementBuffer(r.vao, ibo)
		r.boundIndices = ibo
	}

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locViewProj, 1, false, &r.viewProj[0])
	if r.locCameraPos >= 0 {
		gl.Uniform3f(r.locCameraPos, r.cameraPos.X, r.cameraPos.Y, r.cameraPos.Z)
	}
	if r.locLightCount >= 0 {
		gl.Uniform1i(r.locLightCount, int32(v.LightCount))
	}

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, instanceBinding, instances)
	if lights, err := bufferID(v.LightBuffer); err == nil {
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, lightBinding, lights)
	}

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, commands)
	gl.MultiDrawElementsIndirect(gl.TRIANGLES, gl.UNSIGNED_INT, gl.PtrOffset(0), int32(v.CommandCount), registry.DrawCommandSize)
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, 0)
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: glMultiDrawElementsIndirect: 0x%x", gpu.ErrBackend, code)
	}
	return nil
}

// ReadPixels reads the back buffer as RGBA, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.UseProgram(0)
}

func bufferID(b gpu.Buffer) (uint32, error) {
	if b == nil {
		return 0, gpu.ErrUnknownBuffer
	}
	id, ok := glbackend.ID(b)
	if !ok {
		return 0, fmt.Errorf("%q is not a GL buffer: %w", b.Label(), gpu.ErrUnknownBuffer)
	}
	return id, nil
}
