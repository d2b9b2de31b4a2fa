// Package wgpubackend implements gpu.Backend on a WebGPU device.
package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
)

type wgpuBuffer struct {
	buf   *wgpu.Buffer
	size  uint64
	label string
}

func (b *wgpuBuffer) Size() uint64  { return b.size }
func (b *wgpuBuffer) Label() string { return b.label }

// Backend is a gpu.Backend over a caller-owned WebGPU device.
type Backend struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

// New wraps device. The caller keeps ownership of the device.
func New(device *wgpu.Device) *Backend {
	return &Backend{
		device: device,
		queue:  device.GetQueue(),
	}
}

// CreateBuffer allocates a device buffer. WebGPU requires sizes in multiples of 4.
func (b *Backend) CreateBuffer(label string, size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             align4(size),
		Usage:            toWGPU(usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating %q (%d bytes): %w", gpu.ErrBackend, label, size, err)
	}
	logger.Debug("WebGPU buffer created",
		zap.String("label", label),
		zap.Uint64("size", size),
		zap.Stringer("usage", usage),
	)
	return &wgpuBuffer{buf: buf, size: size, label: label}, nil
}

// Upload queues a write of data into dst at offset.
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
	// Queue writes must be 4-byte sized.
	if pad := len(data) % 4; pad != 0 {
		padded := make([]byte, len(data)+4-pad)
		copy(padded, data)
		data = padded
	}
	if err := b.queue.WriteBuffer(buf.buf, offset, data); err != nil {
		return fmt.Errorf("%w: writing %q: %w", gpu.ErrBackend, buf.label, err)
	}
	return nil
}

// Copy records and submits a buffer-to-buffer copy.
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

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: command encoder: %w", gpu.ErrBackend, err)
	}
	defer encoder.Release()

	if err := encoder.CopyBufferToBuffer(s.buf, 0, d.buf, 0, align4(size)); err != nil {
		return fmt.Errorf("%w: copying %q -> %q: %w", gpu.ErrBackend, s.label, d.label, err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("%w: finishing copy %q -> %q: %w", gpu.ErrBackend, s.label, d.label, err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

// Release drops the buffer. wgpu defers destruction until submitted work completes.
func (b *Backend) Release(buf gpu.Buffer) {
	wb, err := unwrap(buf)
	if err != nil {
		return
	}
	wb.buf.Release()
	wb.buf = nil
}

// Raw returns the underlying *wgpu.Buffer for binding in a render pass.
func Raw(buf gpu.Buffer) (*wgpu.Buffer, bool) {
	wb, err := unwrap(buf)
	if err != nil {
		return nil, false
	}
	return wb.buf, true
}

func unwrap(buf gpu.Buffer) (*wgpuBuffer, error) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb == nil || wb.buf == nil {
		return nil, gpu.ErrUnknownBuffer
	}
	return wb, nil
}

func toWGPU(usage gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if usage.Has(gpu.UsageVertex) {
		out |= wgpu.BufferUsageVertex
	}
	if usage.Has(gpu.UsageIndex) {
		out |= wgpu.BufferUsageIndex
	}
	if usage.Has(gpu.UsageIndirect) {
		out |= wgpu.BufferUsageIndirect
	}
	if usage.Has(gpu.UsageStorage) {
		out |= wgpu.BufferUsageStorage
	}
	if usage.Has(gpu.UsageCopySrc) {
		out |= wgpu.BufferUsageCopySrc
	}
	// Every buffer is a queue-write target.
	out |= wgpu.BufferUsageCopyDst
	return out
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}
