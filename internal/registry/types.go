package registry

import (
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/scenebatch/pkg/math"
)

// GPU record sizes in bytes.
const (
	// VertexSize matches the vertex input layout: position, normal, uv, tangent.
	VertexSize = 48
	// InstanceRecordSize is the std430 stride of InstanceRecord (mat4 + two u32 + 8 bytes padding).
	InstanceRecordSize = 80
	// DrawCommandSize is the size of one indexed-indirect draw command.
	DrawCommandSize = 20
	// IndexSize is the size of one uint32 index.
	IndexSize = 4
)

// Vertex is one mesh vertex as laid out in the shared vertex buffer.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	// Tangent xyz plus handedness in w.
	Tangent [4]float32
}

// RawGeometry is a mesh primitive produced by an asset loader.
type RawGeometry struct {
	Name       string
	Vertices   []Vertex
	Indices    []uint32
	MaterialID uint32
}

// GeometryGroup describes one primitive's region of the shared vertex and index buffers.
// Groups are immutable once loaded; ID equals load order.
type GeometryGroup struct {
	ID              uint32
	Name            string
	VertexOffset    int32
	VertexCount     uint32
	IndexOffset     uint32
	IndexCount      uint32
	DefaultMaterial uint32

	// Local-space bounding box of the vertices.
	BoundsMin math.Vec3
	BoundsMax math.Vec3
}

// InstanceRecord is the per-instance payload mirrored to the GPU.
type InstanceRecord struct {
	Model      math.Mat4
	GeometryID uint32
	MaterialID uint32
}

// DrawCommand mirrors the indexed-indirect draw layout consumed by both
// glMultiDrawElementsIndirect and vkCmdDrawIndexedIndirect.
type DrawCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// Batch pairs a draw command with the geometry it draws.
type Batch struct {
	GeometryID uint32
	Command    DrawCommand
}

// bounds returns the box around the positions of vertices, which must not be empty.
func bounds(vertices []Vertex) (lo, hi math.Vec3) {
	lo = math.Vec3FromArray(vertices[0].Position)
	hi = lo
	for _, v := range vertices[1:] {
		p := math.Vec3FromArray(v.Position)
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi
}

// AppendBytes appends the little-endian GPU encoding of v.
func (v Vertex) AppendBytes(dst []byte) []byte {
	for _, f := range v.Position {
		dst = binary.LittleEndian.AppendUint32(dst, gomath.Float32bits(f))
	}
	for _, f := range v.Normal {
		dst = binary.LittleEndian.AppendUint32(dst, gomath.Float32bits(f))
	}
	for _, f := range v.UV {
		dst = binary.LittleEndian.AppendUint32(dst, gomath.Float32bits(f))
	}
	for _, f := range v.Tangent {
		dst = binary.LittleEndian.AppendUint32(dst, gomath.Float32bits(f))
	}
	return dst
}

// AppendBytes appends the little-endian GPU encoding of r, padding included.
func (r InstanceRecord) AppendBytes(dst []byte) []byte {
	for _, f := range r.Model {
		dst = binary.LittleEndian.AppendUint32(dst, gomath.Float32bits(f))
	}
	dst = binary.LittleEndian.AppendUint32(dst, r.GeometryID)
	dst = binary.LittleEndian.AppendUint32(dst, r.MaterialID)
	return append(dst, 0, 0, 0, 0, 0, 0, 0, 0)
}

// AppendBytes appends the little-endian GPU encoding of c.
func (c DrawCommand) AppendBytes(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, c.IndexCount)
	dst = binary.LittleEndian.AppendUint32(dst, c.InstanceCount)
	dst = binary.LittleEndian.AppendUint32(dst, c.FirstIndex)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(c.VertexOffset))
	return binary.LittleEndian.AppendUint32(dst, c.FirstInstance)
}

// DecodeDrawCommand reads a command written by DrawCommand.AppendBytes.
func DecodeDrawCommand(b []byte) DrawCommand {
	_ = b[DrawCommandSize-1]
	return DrawCommand{
		IndexCount:    binary.LittleEndian.Uint32(b[0:]),
		InstanceCount: binary.LittleEndian.Uint32(b[4:]),
		FirstIndex:    binary.LittleEndian.Uint32(b[8:]),
		VertexOffset:  int32(binary.LittleEndian.Uint32(b[12:])),
		FirstInstance: binary.LittleEndian.Uint32(b[16:]),
	}
}

// DecodeInstanceRecord reads a record written by InstanceRecord.AppendBytes.
func DecodeInstanceRecord(b []byte) InstanceRecord {
	_ = b[InstanceRecordSize-1]
	var r InstanceRecord
	for i := range r.Model {
		r.Model[i] = gomath.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	r.GeometryID = binary.LittleEndian.Uint32(b[64:])
	r.MaterialID = binary.LittleEndian.Uint32(b[68:])
	return r
}
