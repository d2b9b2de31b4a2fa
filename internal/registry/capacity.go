package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
)

// growableBuffer is a GPU buffer of fixed-stride elements that doubles on demand.
type growableBuffer struct {
	label    string
	usage    gpu.BufferUsage
	stride   uint64
	preserve bool

	buf      gpu.Buffer
	capacity int
	grows    int
}

func newGrowableBuffer(backend gpu.Backend, label string, usage gpu.BufferUsage, stride uint64, capacity int, preserve bool) (*growableBuffer, error) {
	if capacity < 1 {
		capacity = 1
	}
	g := &growableBuffer{
		label:    label,
		usage:    usage,
		stride:   stride,
		preserve: preserve,
	}
	buf, err := backend.CreateBuffer(label, stride*uint64(capacity), usage)
	if err != nil {
		return nil, err
	}
	g.buf = buf
	g.capacity = capacity
	return g, nil
}

// ensure grows the buffer to hold at least required elements.
// The new capacity is max(required, 2*capacity). When preserve is set the old
// buffer's bytes are copied to the same offsets before the swap. On failure the
// old buffer stays in place.
func (g *growableBuffer) ensure(backend gpu.Backend, required int) (bool, error) {
	if required <= g.capacity {
		return false, nil
	}

	newCapacity := max(required, g.capacity*2)
	next, err := backend.CreateBuffer(g.label, g.stride*uint64(newCapacity), g.usage)
	if err != nil {
		return false, fmt.Errorf("growing %s to %d: %w", g.label, newCapacity, err)
	}

	if g.preserve && g.buf != nil {
		if err := backend.Copy(g.buf, next, g.buf.Size()); err != nil {
			backend.Release(next)
			return false, fmt.Errorf("copying %s into grown buffer: %w", g.label, err)
		}
	}

	logger.Info("buffer grown",
		zap.String("buffer", g.label),
		zap.Int("old_capacity", g.capacity),
		zap.Int("new_capacity", newCapacity),
	)

	if g.buf != nil {
		backend.Release(g.buf)
	}
	g.buf = next
	g.capacity = newCapacity
	g.grows++
	return true, nil
}

func (g *growableBuffer) release(backend gpu.Backend) {
	if g == nil || g.buf == nil {
		return
	}
	backend.Release(g.buf)
	g.buf = nil
}
