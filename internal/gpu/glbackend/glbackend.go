// Package glbackend implements gpu.Backend on OpenGL 4.6 direct state access.
// Every call must happen on the thread that owns the current GL context.
package glbackend

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
)

type glBuffer struct {
	id    uint32
	size  uint64
	label string
	usage gpu.BufferUsage
}

func (b *glBuffer) Size() uint64  { return b.size }
func (b *glBuffer) Label() string { return b.label }

// Backend is a gpu.Backend over GL buffer objects.
type Backend struct{}

// New returns a GL backend. gl.Init must already have succeeded.
func New() *Backend {
	logger.Info("GL buffer backend ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return &Backend{}
}

// CreateBuffer allocates a GL buffer object of the given size.
func (b *Backend) CreateBuffer(label string, size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	var id uint32
	gl.CreateBuffers(1, &id)
	gl.NamedBufferData(id, int(size), nil, usageHint(usage))
	if err := checkError("glNamedBufferData"); err != nil {
		gl.DeleteBuffers(1, &id)
		return nil, fmt.Errorf("creating %q (%d bytes): %w", label, size, err)
	}

	if label != "" {
		name := []byte(label)
		gl.ObjectLabel(gl.BUFFER, id, int32(len(name)), &name[0])
	}

	logger.Debug("GL buffer created",
		zap.String("label", label),
		zap.Uint32("id", id),
		zap.Uint64("size", size),
		zap.Stringer("usage", usage),
	)
	return &glBuffer{id: id, size: size, label: label, usage: usage}, nil
}

// Upload writes data into dst at offset.
func (b *Backend) Upload(dst gpu.Buffer, offset uint64, data []byte) error {
	buf, err := unwrap(dst)
	if err != nil {
		return err
	}
	if err := gpu.CheckRange(buf.size, offset, uint64(len(data))); err != nil {
		return fmt.Errorf("uploading into %q: %w", buf.label, err)
	}
	if len(data) == 0 {
		return nil
	}
	gl.NamedBufferSubData(buf.id, int(offset), len(data), unsafe.Pointer(&data[0]))
	return checkError("glNamedBufferSubData")
}

// Copy copies size bytes from the start of src to the start of dst on the GPU.
func (b *Backend) Copy(src, dst gpu.Buffer, size uint64) error {
	s, err := unwrap(src)
	if err != nil {
		return err
	}
	d, err := unwrap(dst)
	if err != nil {
		return err
	}
	if size > s.size || size > d.size {
		return fmt.Errorf("copying %q to %q: %w", s.label, d.label, gpu.ErrOutOfRange)
	}
	if size == 0 {
		return nil
	}
	gl.CopyNamedBufferSubData(s.id, d.id, 0, 0, int(size))
	return checkError("glCopyNamedBufferSubData")
}

// Release deletes the buffer object. The driver keeps it alive until pending draws finish.
func (b *Backend) Release(buf gpu.Buffer) {
	gb, err := unwrap(buf)
	if err != nil {
		return
	}
	gl.DeleteBuffers(1, &gb.id)
	gb.id = 0
}

// ID returns the GL name of a buffer created by this backend.
func ID(buf gpu.Buffer) (uint32, bool) {
	gb, err := unwrap(buf)
	if err != nil {
		return 0, false
	}
	return gb.id, true
}

func unwrap(buf gpu.Buffer) (*glBuffer, error) {
	gb, ok := buf.(*glBuffer)
	if !ok || gb == nil || gb.id == 0 {
		return nil, gpu.ErrUnknownBuffer
	}
	return gb, nil
}

func usageHint(usage gpu.BufferUsage) uint32 {
	switch {
	case usage.Has(gpu.UsageHostVisible):
		return gl.STREAM_DRAW
	case usage.Has(gpu.UsageVertex), usage.Has(gpu.UsageIndex):
		return gl.STATIC_DRAW
	default:
		return gl.DYNAMIC_DRAW
	}
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: %s: GL error 0x%x", gpu.ErrBackend, op, code)
	}
	return nil
}
