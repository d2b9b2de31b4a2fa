// Package registry owns per-instance draw data and turns it into batched indirect draws.
//
// Instances are addressed by generational handles. Once per frame
// RebuildDrawBatch sorts live instances by geometry, emits one indexed-indirect
// command per geometry and uploads both arrays to GPU buffers, so the whole
// population renders with a single indirect draw call.
package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
	"github.com/Faultbox/scenebatch/pkg/math"
	"github.com/Faultbox/scenebatch/pkg/slotmap"
)

// Handle identifies one instance.
type Handle = slotmap.Handle

// Config holds registry sizing.
type Config struct {
	InitialCommandCapacity  int `yaml:"initial_command_capacity"`
	InitialInstanceCapacity int `yaml:"initial_instance_capacity"`
}

// DefaultConfig returns the default registry sizing.
func DefaultConfig() Config {
	return Config{
		InitialCommandCapacity:  16,
		InitialInstanceCapacity: 1024,
	}
}

// Stats is a snapshot of registry bookkeeping.
type Stats struct {
	LiveInstances    int
	Slots            int
	FreeSlots        int
	GeometryGroups   int
	Vertices         int
	Indices          int
	CommandCapacity  int
	InstanceCapacity int
	Reallocations    int
}

// Registry is the instance registry. It is not safe for concurrent use.
type Registry struct {
	backend gpu.Backend

	instances *slotmap.SlotMap[InstanceRecord]

	groups   []GeometryGroup
	vertices []Vertex
	indices  []uint32

	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer

	commands       *growableBuffer
	commandStaging *growableBuffer
	instanceBuffer *growableBuffer

	sorted  []InstanceRecord
	batches []Batch
	scratch []byte

	closed bool
}

// New creates a registry whose GPU buffers are allocated through backend.
func New(backend gpu.Backend, cfg Config) (*Registry, error) {
	if cfg.InitialCommandCapacity < 1 {
		cfg.InitialCommandCapacity = DefaultConfig().InitialCommandCapacity
	}
	if cfg.InitialInstanceCapacity < 1 {
		cfg.InitialInstanceCapacity = DefaultConfig().InitialInstanceCapacity
	}

	r := &Registry{
		backend:   backend,
		instances: slotmap.NewWithCapacity[InstanceRecord](cfg.InitialInstanceCapacity),
	}

	var err error
	r.commands, err = newGrowableBuffer(backend, "draw commands",
		gpu.UsageIndirect|gpu.UsageStorage|gpu.UsageCopyDst|gpu.UsageCopySrc,
		DrawCommandSize, cfg.InitialCommandCapacity, true)
	if err != nil {
		return nil, fmt.Errorf("creating command buffer: %w", err)
	}

	r.commandStaging, err = newGrowableBuffer(backend, "draw command staging",
		gpu.UsageCopySrc|gpu.UsageHostVisible,
		DrawCommandSize, cfg.InitialCommandCapacity, false)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("creating command staging buffer: %w", err)
	}

	r.instanceBuffer, err = newGrowableBuffer(backend, "instances",
		gpu.UsageStorage|gpu.UsageCopyDst|gpu.UsageCopySrc,
		InstanceRecordSize, cfg.InitialInstanceCapacity, true)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("creating instance buffer: %w", err)
	}

	return r, nil
}

// Close releases every GPU buffer owned by the registry.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.commands.release(r.backend)
	r.commandStaging.release(r.backend)
	r.instanceBuffer.release(r.backend)
	if r.vertexBuffer != nil {
		r.backend.Release(r.vertexBuffer)
		r.vertexBuffer = nil
	}
	if r.indexBuffer != nil {
		r.backend.Release(r.indexBuffer)
		r.indexBuffer = nil
	}
}

// LoadGeometry appends primitives to the shared vertex and index arrays and
// re-uploads both arrays in full. It returns the new geometry ids, which equal
// each group's position in load order. Nothing changes if any primitive is invalid.
func (r *Registry) LoadGeometry(raw []RawGeometry) ([]uint32, error) {
	if r.closed {
		return nil, ErrClosed
	}
	for i, g := range raw {
		if len(g.Vertices) == 0 || len(g.Indices) == 0 {
			return nil, fmt.Errorf("primitive %d (%q): %w", i, g.Name, ErrEmptyGeometry)
		}
		for _, idx := range g.Indices {
			if int(idx) >= len(g.Vertices) {
				return nil, fmt.Errorf("primitive %d (%q): index %d with %d vertices: %w",
					i, g.Name, idx, len(g.Vertices), ErrIndexOutOfRange)
			}
		}
	}

	vertices := append([]Vertex(nil), r.vertices...)
	indices := append([]uint32(nil), r.indices...)
	groups := append([]GeometryGroup(nil), r.groups...)
	ids := make([]uint32, 0, len(raw))

	for _, g := range raw {
		id := uint32(len(groups))
		lo, hi := bounds(g.Vertices)
		groups = append(groups, GeometryGroup{
			ID:              id,
			Name:            g.Name,
			VertexOffset:    int32(len(vertices)),
			VertexCount:     uint32(len(g.Vertices)),
			IndexOffset:     uint32(len(indices)),
			IndexCount:      uint32(len(g.Indices)),
			DefaultMaterial: g.MaterialID,
			BoundsMin:       lo,
			BoundsMax:       hi,
		})
		vertices = append(vertices, g.Vertices...)
		indices = append(indices, g.Indices...)
		ids = append(ids, id)
	}

	if err := r.uploadGeometry(vertices, indices); err != nil {
		return nil, err
	}

	r.vertices = vertices
	r.indices = indices
	r.groups = groups

	logger.Info("geometry loaded",
		zap.Int("new_groups", len(raw)),
		zap.Int("total_groups", len(groups)),
		zap.Int("vertices", len(vertices)),
		zap.Int("indices", len(indices)),
	)
	return ids, nil
}

func (r *Registry) uploadGeometry(vertices []Vertex, indices []uint32) error {
	vb, err := r.backend.CreateBuffer("vertices", uint64(len(vertices))*VertexSize, gpu.UsageVertex|gpu.UsageCopyDst)
	if err != nil {
		return fmt.Errorf("creating vertex buffer: %w", err)
	}
	ib, err := r.backend.CreateBuffer("indices", uint64(len(indices))*IndexSize, gpu.UsageIndex|gpu.UsageCopyDst)
	if err != nil {
		r.backend.Release(vb)
		return fmt.Errorf("creating index buffer: %w", err)
	}

	vdata := make([]byte, 0, len(vertices)*VertexSize)
	for _, v := range vertices {
		vdata = v.AppendBytes(vdata)
	}
	idata := make([]byte, 0, len(indices)*IndexSize)
	for _, idx := range indices {
		idata = appendUint32(idata, idx)
	}

	if err := r.backend.Upload(vb, 0, vdata); err != nil {
		r.backend.Release(vb)
		r.backend.Release(ib)
		return fmt.Errorf("uploading vertices: %w", err)
	}
	if err := r.backend.Upload(ib, 0, idata); err != nil {
		r.backend.Release(vb)
		r.backend.Release(ib)
		return fmt.Errorf("uploading indices: %w", err)
	}

	if r.vertexBuffer != nil {
		r.backend.Release(r.vertexBuffer)
	}
	if r.indexBuffer != nil {
		r.backend.Release(r.indexBuffer)
	}
	r.vertexBuffer = vb
	r.indexBuffer = ib
	return nil
}

// AddInstance creates an instance of a loaded geometry and returns its handle.
// Unknown geometry ids are rejected with ErrUnknownGeometry and consume no slot.
func (r *Registry) AddInstance(model math.Mat4, geometryID, materialID uint32) (Handle, error) {
	if int(geometryID) >= len(r.groups) {
		logger.Warn("instance rejected: unknown geometry",
			zap.Uint32("geometry", geometryID),
			zap.Int("loaded", len(r.groups)),
		)
		return Handle{}, fmt.Errorf("geometry %d (%d loaded): %w", geometryID, len(r.groups), ErrUnknownGeometry)
	}
	return r.instances.Insert(InstanceRecord{
		Model:      model,
		GeometryID: geometryID,
		MaterialID: materialID,
	}), nil
}

// RemoveInstance frees the instance behind h. Stale and out-of-range handles are ignored.
func (r *Registry) RemoveInstance(h Handle) {
	r.instances.Remove(h)
}

// Instance returns the live record behind h for in-place mutation.
// The pointer is valid until the next AddInstance. GeometryID must stay a
// loaded id or the next RebuildDrawBatch fails; SetGeometry checks it.
func (r *Registry) Instance(h Handle) (*InstanceRecord, bool) {
	return r.instances.Get(h)
}

// Contains reports whether h references a live instance.
func (r *Registry) Contains(h Handle) bool {
	return r.instances.Contains(h)
}

// SetGeometry points a live instance at another loaded geometry.
// Stale handles are ignored; unknown ids are rejected with ErrUnknownGeometry.
func (r *Registry) SetGeometry(h Handle, geometryID uint32) error {
	if int(geometryID) >= len(r.groups) {
		return fmt.Errorf("geometry %d: %w", geometryID, ErrUnknownGeometry)
	}
	if rec, ok := r.instances.Get(h); ok {
		rec.GeometryID = geometryID
	}
	return nil
}

// Geometry returns a loaded geometry group.
func (r *Registry) Geometry(id uint32) (GeometryGroup, bool) {
	if int(id) >= len(r.groups) {
		return GeometryGroup{}, false
	}
	return r.groups[id], true
}

// GeometryCount returns the number of loaded geometry groups.
func (r *Registry) GeometryCount() int {
	return len(r.groups)
}

// InstanceCount returns the number of live instances.
func (r *Registry) InstanceCount() int {
	return r.instances.Len()
}

// VertexBuffer returns the shared vertex buffer, or nil before the first load.
func (r *Registry) VertexBuffer() gpu.Buffer { return r.vertexBuffer }

// IndexBuffer returns the shared uint32 index buffer, or nil before the first load.
func (r *Registry) IndexBuffer() gpu.Buffer { return r.indexBuffer }

// DrawCommandsBuffer returns the indirect-command buffer. It changes when capacity grows.
func (r *Registry) DrawCommandsBuffer() gpu.Buffer { return r.commands.buf }

// InstanceBuffer returns the sorted-instance storage buffer. It changes when capacity grows.
func (r *Registry) InstanceBuffer() gpu.Buffer { return r.instanceBuffer.buf }

// DrawCommandCount returns the number of commands produced by the last rebuild.
func (r *Registry) DrawCommandCount() int { return len(r.batches) }

// CommandCapacity returns the command buffer capacity in commands.
func (r *Registry) CommandCapacity() int { return r.commands.capacity }

// Stats returns a bookkeeping snapshot.
func (r *Registry) Stats() Stats {
	return Stats{
		LiveInstances:    r.instances.Len(),
		Slots:            r.instances.Slots(),
		FreeSlots:        r.instances.FreeSlots(),
		GeometryGroups:   len(r.groups),
		Vertices:         len(r.vertices),
		Indices:          len(r.indices),
		CommandCapacity:  r.commands.capacity,
		InstanceCapacity: r.instanceBuffer.capacity,
		Reallocations:    r.commands.grows + r.commandStaging.grows + r.instanceBuffer.grows,
	}
}
