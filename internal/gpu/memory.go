package gpu

import (
	"fmt"
)

// MemoryStats counts calls made against a MemoryBackend.
type MemoryStats struct {
	Creates       int
	Uploads       int
	Copies        int
	Releases      int
	BytesUploaded uint64
	BytesCopied   uint64
}

type memoryBuffer struct {
	owner    *MemoryBackend
	label    string
	usage    BufferUsage
	data     []byte
	released bool
}

func (b *memoryBuffer) Size() uint64  { return uint64(len(b.data)) }
func (b *memoryBuffer) Label() string { return b.label }

// MemoryBackend keeps buffer contents in host memory.
// It backs the headless tool and doubles as the test backend.
type MemoryBackend struct {
	stats    MemoryStats
	live     int
	failNext error
}

// NewMemoryBackend creates an empty host-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// CreateBuffer allocates a zero-filled buffer.
func (m *MemoryBackend) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, fmt.Errorf("%w: creating %q: %w", ErrBackend, label, err)
	}
	m.stats.Creates++
	m.live++
	return &memoryBuffer{
		owner: m,
		label: label,
		usage: usage,
		data:  make([]byte, size),
	}, nil
}

// Upload copies data into dst at offset.
func (m *MemoryBackend) Upload(dst Buffer, offset uint64, data []byte) error {
	b, err := m.buffer(dst)
	if err != nil {
		return err
	}
	if err := CheckRange(b.Size(), offset, uint64(len(data))); err != nil {
		return fmt.Errorf("uploading %d bytes at %d into %q (%d bytes): %w", len(data), offset, b.label, b.Size(), err)
	}
	copy(b.data[offset:], data)
	m.stats.Uploads++
	m.stats.BytesUploaded += uint64(len(data))
	return nil
}

// Copy copies size bytes from the start of src to the start of dst.
func (m *MemoryBackend) Copy(src, dst Buffer, size uint64) error {
	s, err := m.buffer(src)
	if err != nil {
		return err
	}
	d, err := m.buffer(dst)
	if err != nil {
		return err
	}
	if size > s.Size() || size > d.Size() {
		return fmt.Errorf("copying %d bytes from %q to %q: %w", size, s.label, d.label, ErrOutOfRange)
	}
	copy(d.data[:size], s.data[:size])
	m.stats.Copies++
	m.stats.BytesCopied += size
	return nil
}

// Release frees b. Releasing twice is a no-op.
func (m *MemoryBackend) Release(b Buffer) {
	mb, err := m.buffer(b)
	if err != nil {
		return
	}
	mb.released = true
	mb.data = nil
	m.stats.Releases++
	m.live--
}

// ReadBack returns a copy of n bytes of b starting at offset.
func (m *MemoryBackend) ReadBack(b Buffer, offset, n uint64) ([]byte, error) {
	mb, err := m.buffer(b)
	if err != nil {
		return nil, err
	}
	if err := CheckRange(mb.Size(), offset, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, mb.data[offset:offset+n])
	return out, nil
}

// Usage returns the usage flags b was created with.
func (m *MemoryBackend) Usage(b Buffer) BufferUsage {
	if mb, err := m.buffer(b); err == nil {
		return mb.usage
	}
	return 0
}

// FailNextCreate makes the next CreateBuffer call fail with err.
func (m *MemoryBackend) FailNextCreate(err error) {
	m.failNext = err
}

// Stats returns call counters.
func (m *MemoryBackend) Stats() MemoryStats {
	return m.stats
}

// LiveBuffers returns the number of created and not yet released buffers.
func (m *MemoryBackend) LiveBuffers() int {
	return m.live
}

func (m *MemoryBackend) buffer(b Buffer) (*memoryBuffer, error) {
	mb, ok := b.(*memoryBuffer)
	if !ok || mb == nil || mb.owner != m || mb.released {
		return nil, ErrUnknownBuffer
	}
	return mb, nil
}
