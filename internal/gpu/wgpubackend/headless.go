package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
)

// Headless owns a surfaceless WebGPU device and the backend over it.
type Headless struct {
	*Backend

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
}

// NewHeadless opens the default adapter without a surface.
func NewHeadless() (*Headless, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: requesting adapter: %w", gpu.ErrBackend, err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "scenebatch",
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: requesting device: %w", gpu.ErrBackend, err)
	}

	logger.Info("WebGPU device ready")
	return &Headless{
		Backend:  New(device),
		instance: instance,
		adapter:  adapter,
	}, nil
}

// Close releases the device, adapter and instance.
func (h *Headless) Close() {
	if h.device != nil {
		h.queue.Release()
		h.device.Release()
		h.device = nil
	}
	if h.adapter != nil {
		h.adapter.Release()
		h.adapter = nil
	}
	if h.instance != nil {
		h.instance.Release()
		h.instance = nil
	}
}
