// Package gpu defines the narrow graphics-backend contract the instance registry depends on.
//
// A Backend only has to create buffers, upload bytes into them, copy between
// them and release them. Implementations live in glbackend (OpenGL 4.6),
// wgpubackend (WebGPU) and MemoryBackend (host memory, used headless and in tests).
package gpu

import (
	"errors"
	"strings"
)

var (
	// ErrBackend wraps failures reported by the underlying graphics API.
	ErrBackend = errors.New("gpu: backend failure")
	// ErrUnknownBuffer is returned for buffers created by another backend or already released.
	ErrUnknownBuffer = errors.New("gpu: unknown buffer")
	// ErrOutOfRange is returned when an upload or copy exceeds a buffer's size.
	ErrOutOfRange = errors.New("gpu: range exceeds buffer size")
)

// BufferUsage is a bit set describing how a buffer will be bound.
type BufferUsage uint32

const (
	UsageVertex BufferUsage = 1 << iota
	UsageIndex
	UsageIndirect
	UsageStorage
	UsageCopySrc
	UsageCopyDst
	// UsageHostVisible marks staging buffers written directly by the CPU.
	UsageHostVisible
)

// Has reports whether all bits of flag are set.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

func (u BufferUsage) String() string {
	names := []struct {
		flag BufferUsage
		name string
	}{
		{UsageVertex, "vertex"},
		{UsageIndex, "index"},
		{UsageIndirect, "indirect"},
		{UsageStorage, "storage"},
		{UsageCopySrc, "copy-src"},
		{UsageCopyDst, "copy-dst"},
		{UsageHostVisible, "host-visible"},
	}
	var parts []string
	for _, n := range names {
		if u.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Buffer is a backend-owned GPU buffer.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64
	// Label returns the debug label given at creation.
	Label() string
}

// Backend is the graphics collaborator consumed by the registry.
// All calls are synchronous; errors wrap ErrBackend, ErrUnknownBuffer or ErrOutOfRange.
type Backend interface {
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	Upload(dst Buffer, offset uint64, data []byte) error
	// Copy copies the first size bytes of src to the start of dst.
	Copy(src, dst Buffer, size uint64) error
	// Release frees a buffer. Fencing against in-flight GPU work is the backend's job.
	Release(b Buffer)
}

// CheckRange validates that [offset, offset+n) fits in a buffer of the given size.
func CheckRange(size, offset, n uint64) error {
	if offset > size || n > size-offset {
		return ErrOutOfRange
	}
	return nil
}
