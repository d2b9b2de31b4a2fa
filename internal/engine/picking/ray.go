// Package picking provides ray casting and entity picking for the viewer.
package picking

import (
	gomath "math"

	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/internal/scene"
	"github.com/Faultbox/scenebatch/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	// TransformPoint does the perspective divide.
	near := invViewProj.TransformPoint(math.Vec3{X: ndcX, Y: ndcY, Z: -1})
	far := invViewProj.TransformPoint(math.Vec3{X: ndcX, Y: ndcY, Z: 1})

	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	origin := r.Origin.Array()
	dir := r.Direction.Array()
	lo := box.Min.Array()
	hi := box.Max.Array()

	for axis := range 3 {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// TransformAABB returns the world-space box enclosing a local box under m.
func TransformAABB(lo, hi math.Vec3, m math.Mat4) AABB {
	var out AABB
	for i := range 8 {
		corner := lo
		if i&1 != 0 {
			corner.X = hi.X
		}
		if i&2 != 0 {
			corner.Y = hi.Y
		}
		if i&4 != 0 {
			corner.Z = hi.Z
		}
		p := m.TransformPoint(corner)
		if i == 0 {
			out = AABB{Min: p, Max: p}
			continue
		}
		out.Min = math.Vec3{X: min(out.Min.X, p.X), Y: min(out.Min.Y, p.Y), Z: min(out.Min.Z, p.Z)}
		out.Max = math.Vec3{X: max(out.Max.X, p.X), Y: max(out.Max.Y, p.Y), Z: max(out.Max.Z, p.Z)}
	}
	return out
}

// Hit is the nearest entity along a ray.
type Hit struct {
	Entity   scene.EntityRef
	Distance float32
}

// Pick returns the entity whose sub-mesh bounds the ray enters first.
// World matrices are those of the last Synchronize.
func Pick(g *scene.Graph, reg *registry.Registry, r Ray) (Hit, bool) {
	var (
		best  Hit
		found bool
	)
	g.Walk(func(ref scene.EntityRef, e *scene.Entity, _ int) bool {
		for _, m := range e.Meshes {
			geom, ok := reg.Geometry(m.GeometryID)
			if !ok {
				continue
			}
			t, hit := r.IntersectAABB(TransformAABB(geom.BoundsMin, geom.BoundsMax, e.World))
			if hit && (!found || t < best.Distance) {
				best = Hit{Entity: ref, Distance: t}
				found = true
			}
		}
		return true
	})
	return best, found
}
