// Package frame drives one frame of the scene pipeline.
//
// Every frame runs in a fixed order: scene edits, Synchronize, RebuildDrawBatch,
// light upload, then the draw. Keeping the order in one place means callers
// cannot rebuild batches from stale transforms.
package frame

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/internal/scene"
)

// View is everything a presentation loop needs to issue the frame's indirect draw.
type View struct {
	VertexBuffer   gpu.Buffer
	IndexBuffer    gpu.Buffer
	CommandBuffer  gpu.Buffer
	CommandCount   int
	InstanceBuffer gpu.Buffer
	InstanceCount  int
	LightBuffer    gpu.Buffer
	LightCount     int
}

// Drawer issues the draw for a prepared frame.
type Drawer interface {
	Draw(v View) error
}

// DrawerFunc adapts a function to Drawer.
type DrawerFunc func(v View) error

// Draw calls f(v).
func (f DrawerFunc) Draw(v View) error { return f(v) }

// Stats describes the last frame and running totals.
type Stats struct {
	Frames      uint64
	Commands    int
	Instances   int
	Lights      int
	Updated     int
	Stale       int
	SyncTime    time.Duration
	RebuildTime time.Duration
	FrameTime   time.Duration
}

// Driver owns the per-frame ordering and the light buffer.
type Driver struct {
	backend  gpu.Backend
	registry *registry.Registry
	graph    *scene.Graph
	drawer   Drawer

	lights gpu.Buffer
	stats  Stats
	log    *zap.Logger
}

// New creates a driver. drawer may be nil for headless use.
func New(backend gpu.Backend, reg *registry.Registry, graph *scene.Graph, drawer Drawer) (*Driver, error) {
	lights, err := backend.CreateBuffer("lights", scene.MaxLights*scene.LightRecordSize, gpu.UsageStorage|gpu.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("creating light buffer: %w", err)
	}
	return &Driver{
		backend:  backend,
		registry: reg,
		graph:    graph,
		drawer:   drawer,
		lights:   lights,
		log:      logger.Named("frame"),
	}, nil
}

// Close releases the light buffer.
func (d *Driver) Close() {
	if d.lights != nil {
		d.backend.Release(d.lights)
		d.lights = nil
	}
}

// Frame applies edit to the graph and renders the result.
// edit may be nil.
func (d *Driver) Frame(edit func(g *scene.Graph) error) error {
	start := time.Now()

	if edit != nil {
		if err := edit(d.graph); err != nil {
			return fmt.Errorf("applying edits: %w", err)
		}
	}

	st := d.graph.Synchronize()
	synced := time.Now()

	if err := d.registry.RebuildDrawBatch(); err != nil {
		return fmt.Errorf("rebuilding draw batch: %w", err)
	}
	rebuilt := time.Now()

	lights := d.graph.Lights()
	if len(lights) > scene.MaxLights {
		d.log.Warn("light limit exceeded",
			zap.Int("lights", len(lights)),
			zap.Int("max", scene.MaxLights),
		)
	}
	if data := scene.MarshalLights(lights); len(data) > 0 {
		if err := d.backend.Upload(d.lights, 0, data); err != nil {
			return fmt.Errorf("uploading lights: %w", err)
		}
	}

	view := d.View()
	if d.drawer != nil {
		if err := d.drawer.Draw(view); err != nil {
			return fmt.Errorf("drawing: %w", err)
		}
	}

	d.stats.Frames++
	d.stats.Commands = view.CommandCount
	d.stats.Instances = view.InstanceCount
	d.stats.Lights = view.LightCount
	d.stats.Updated = st.Updated
	d.stats.Stale = st.Stale
	d.stats.SyncTime = synced.Sub(start)
	d.stats.RebuildTime = rebuilt.Sub(synced)
	d.stats.FrameTime = time.Since(start)

	if st.Stale > 0 {
		d.log.Debug("frame had stale instances", zap.Int("stale", st.Stale))
	}
	return nil
}

// View returns the buffers produced by the last frame.
func (d *Driver) View() View {
	return View{
		VertexBuffer:   d.registry.VertexBuffer(),
		IndexBuffer:    d.registry.IndexBuffer(),
		CommandBuffer:  d.registry.DrawCommandsBuffer(),
		CommandCount:   d.registry.DrawCommandCount(),
		InstanceBuffer: d.registry.InstanceBuffer(),
		InstanceCount:  len(d.registry.SortedInstances()),
		LightBuffer:    d.lights,
		LightCount:     min(len(d.graph.Lights()), scene.MaxLights),
	}
}

// Stats returns frame statistics.
func (d *Driver) Stats() Stats {
	return d.stats
}

// Graph returns the scene graph the driver synchronizes.
func (d *Driver) Graph() *scene.Graph {
	return d.graph
}

// Registry returns the instance registry the driver rebuilds.
func (d *Driver) Registry() *registry.Registry {
	return d.registry
}
