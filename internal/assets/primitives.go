package assets

import (
	"fmt"

	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/pkg/math"
)

// Built-in procedural shapes.
const (
	ShapeCube    = "cube"
	ShapePlane   = "plane"
	ShapePyramid = "pyramid"
)

// Shape builds a built-in primitive centered on the origin.
func Shape(name string, size float32, material uint32) (registry.RawGeometry, error) {
	if size <= 0 {
		size = 1
	}
	var g registry.RawGeometry
	switch name {
	case ShapeCube:
		g = Cube(size)
	case ShapePlane:
		g = Plane(size)
	case ShapePyramid:
		g = Pyramid(size)
	default:
		return registry.RawGeometry{}, fmt.Errorf("shape %q: %w", name, ErrUnknownShape)
	}
	g.MaterialID = material
	return g, nil
}

// Cube returns an axis-aligned cube with edge length size: 24 vertices, 36 indices.
func Cube(size float32) registry.RawGeometry {
	h := size / 2
	faces := []struct{ n, u, v math.Vec3 }{
		{n: math.Vec3{X: 1}, u: math.Vec3{Z: -1}, v: math.Vec3{Y: 1}},
		{n: math.Vec3{X: -1}, u: math.Vec3{Z: 1}, v: math.Vec3{Y: 1}},
		{n: math.Vec3{Y: 1}, u: math.Vec3{X: 1}, v: math.Vec3{Z: -1}},
		{n: math.Vec3{Y: -1}, u: math.Vec3{X: 1}, v: math.Vec3{Z: 1}},
		{n: math.Vec3{Z: 1}, u: math.Vec3{X: 1}, v: math.Vec3{Y: 1}},
		{n: math.Vec3{Z: -1}, u: math.Vec3{X: -1}, v: math.Vec3{Y: 1}},
	}
	g := registry.RawGeometry{Name: ShapeCube}
	for _, f := range faces {
		appendQuad(&g, f.n.Scale(h), f.n, f.u.Scale(h), f.v.Scale(h))
	}
	return g
}

// Plane returns a square in the XZ plane facing +Y: 4 vertices, 6 indices.
func Plane(size float32) registry.RawGeometry {
	h := size / 2
	g := registry.RawGeometry{Name: ShapePlane}
	appendQuad(&g, math.Vec3{}, math.Vec3{Y: 1}, math.Vec3{X: h}, math.Vec3{Z: -h})
	return g
}

// Pyramid returns a square pyramid with base edge and height size, base on y=0:
// 16 vertices, 18 indices.
func Pyramid(size float32) registry.RawGeometry {
	h := size / 2
	g := registry.RawGeometry{Name: ShapePyramid}
	appendQuad(&g, math.Vec3{}, math.Vec3{Y: -1}, math.Vec3{X: h}, math.Vec3{Z: h})

	a := math.Vec3{X: -h, Z: -h}
	b := math.Vec3{X: h, Z: -h}
	c := math.Vec3{X: h, Z: h}
	d := math.Vec3{X: -h, Z: h}
	apex := math.Vec3{Y: size}
	appendTriangle(&g, d, c, apex)
	appendTriangle(&g, c, b, apex)
	appendTriangle(&g, b, a, apex)
	appendTriangle(&g, a, d, apex)
	return g
}

// appendQuad adds a quad centered at c spanning ±u and ±v, wound counter-clockwise around n.
func appendQuad(g *registry.RawGeometry, c, n, u, v math.Vec3) {
	base := uint32(len(g.Vertices))
	tangent := u.Normalize()
	corners := []struct {
		p  math.Vec3
		uv [2]float32
	}{
		{c.Sub(u).Sub(v), [2]float32{0, 1}},
		{c.Add(u).Sub(v), [2]float32{1, 1}},
		{c.Add(u).Add(v), [2]float32{1, 0}},
		{c.Sub(u).Add(v), [2]float32{0, 0}},
	}
	for _, k := range corners {
		g.Vertices = append(g.Vertices, registry.Vertex{
			Position: k.p.Array(),
			Normal:   n.Array(),
			UV:       k.uv,
			Tangent:  [4]float32{tangent.X, tangent.Y, tangent.Z, 1},
		})
	}
	g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
}

// appendTriangle adds a flat-shaded triangle wound counter-clockwise.
func appendTriangle(g *registry.RawGeometry, p0, p1, p2 math.Vec3) {
	base := uint32(len(g.Vertices))
	e1 := p1.Sub(p0)
	n := e1.Cross(p2.Sub(p0)).Normalize()
	t := e1.Normalize()
	uvs := [3][2]float32{{0, 1}, {1, 1}, {0.5, 0}}
	for i, p := range []math.Vec3{p0, p1, p2} {
		g.Vertices = append(g.Vertices, registry.Vertex{
			Position: p.Array(),
			Normal:   n.Array(),
			UV:       uvs[i],
			Tangent:  [4]float32{t.X, t.Y, t.Z, 1},
		})
	}
	g.Indices = append(g.Indices, base, base+1, base+2)
}
