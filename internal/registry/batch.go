package registry

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/Faultbox/scenebatch/pkg/slotmap"
)

// RebuildDrawBatch sorts live instances by geometry id, emits one draw command
// per geometry present and uploads the sorted instances and the commands.
//
// Commands are ordered by ascending geometry id. Each command's FirstInstance is
// the offset of its geometry's first record in the sorted instance buffer, so
// groups occupy contiguous disjoint ranges. The sort is stable: instances with
// equal geometry keep slot order. With no live instances the command list is
// empty and nothing is uploaded.
func (r *Registry) RebuildDrawBatch() error {
	if r.closed {
		return ErrClosed
	}

	r.sorted = r.sorted[:0]
	var bad error
	r.instances.Each(func(h slotmap.Handle, rec *InstanceRecord) bool {
		if int(rec.GeometryID) >= len(r.groups) {
			bad = fmt.Errorf("instance %s references geometry %d: %w", h, rec.GeometryID, ErrUnknownGeometry)
			return false
		}
		r.sorted = append(r.sorted, *rec)
		return true
	})
	if bad != nil {
		r.sorted = r.sorted[:0]
		r.batches = r.batches[:0]
		return bad
	}

	slices.SortStableFunc(r.sorted, func(a, b InstanceRecord) int {
		return cmp.Compare(a.GeometryID, b.GeometryID)
	})

	r.batches = r.batches[:0]
	var running uint32
	for start := 0; start < len(r.sorted); {
		id := r.sorted[start].GeometryID
		end := start + 1
		for end < len(r.sorted) && r.sorted[end].GeometryID == id {
			end++
		}
		group := r.groups[id]
		count := uint32(end - start)
		r.batches = append(r.batches, Batch{
			GeometryID: id,
			Command: DrawCommand{
				IndexCount:    group.IndexCount,
				InstanceCount: count,
				FirstIndex:    group.IndexOffset,
				VertexOffset:  group.VertexOffset,
				FirstInstance: running,
			},
		})
		running += count
		start = end
	}

	if len(r.batches) == 0 {
		return nil
	}

	if err := r.uploadInstances(); err != nil {
		return err
	}
	return r.uploadCommands()
}

func (r *Registry) uploadInstances() error {
	if _, err := r.instanceBuffer.ensure(r.backend, len(r.sorted)); err != nil {
		return err
	}
	r.scratch = r.scratch[:0]
	for _, rec := range r.sorted {
		r.scratch = rec.AppendBytes(r.scratch)
	}
	if err := r.backend.Upload(r.instanceBuffer.buf, 0, r.scratch); err != nil {
		return fmt.Errorf("uploading instances: %w", err)
	}
	return nil
}

func (r *Registry) uploadCommands() error {
	if err := r.EnsureCapacity(len(r.batches)); err != nil {
		return err
	}
	r.scratch = r.scratch[:0]
	for _, b := range r.batches {
		r.scratch = b.Command.AppendBytes(r.scratch)
	}
	if err := r.backend.Upload(r.commandStaging.buf, 0, r.scratch); err != nil {
		return fmt.Errorf("uploading draw commands: %w", err)
	}
	if err := r.backend.Copy(r.commandStaging.buf, r.commands.buf, uint64(len(r.scratch))); err != nil {
		return fmt.Errorf("copying draw commands: %w", err)
	}
	return nil
}

// EnsureCapacity grows the command buffer to hold at least required commands.
// The grown buffer holds max(required, 2*capacity) commands and starts with the
// old buffer's bytes at the same offsets. Buffers returned by DrawCommandsBuffer
// before a growth are released and must not be used afterwards.
func (r *Registry) EnsureCapacity(required int) error {
	if r.closed {
		return ErrClosed
	}
	if _, err := r.commands.ensure(r.backend, required); err != nil {
		return err
	}
	if _, err := r.commandStaging.ensure(r.backend, required); err != nil {
		return err
	}
	return nil
}

// Batches returns the batches produced by the last rebuild. The slice is reused
// by the next rebuild.
func (r *Registry) Batches() []Batch {
	return r.batches
}

// Commands returns a copy of the draw commands produced by the last rebuild.
func (r *Registry) Commands() []DrawCommand {
	out := make([]DrawCommand, len(r.batches))
	for i, b := range r.batches {
		out[i] = b.Command
	}
	return out
}

// SortedInstances returns the sorted instance snapshot uploaded by the last
// rebuild. The slice is reused by the next rebuild.
func (r *Registry) SortedInstances() []InstanceRecord {
	return r.sorted
}

func appendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}
