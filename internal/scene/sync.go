package scene

import (
	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/pkg/math"
)

// SyncStats summarizes one Synchronize pass.
type SyncStats struct {
	Visited int
	Updated int
	Stale   int
	Lights  int
}

// Synchronize recomputes world matrices for every dirty entity and every
// descendant of a dirty entity, then writes them into the registry.
//
// An entity is recomputed when its own flag is set or any ancestor was
// recomputed in this pass; clean subtrees keep their world matrices. Sub-meshes
// whose instance is no longer live are skipped and counted in StaleSkips.
// Point lights are collected on every pass.
func (g *Graph) Synchronize() SyncStats {
	var stats SyncStats
	g.lights = g.lights[:0]
	for _, r := range g.roots {
		g.propagate(r, math.Identity(), false, &stats)
	}
	stats.Lights = len(g.lights)
	g.staleSkips += stats.Stale
	return stats
}

func (g *Graph) propagate(ref EntityRef, parentWorld math.Mat4, parentDirty bool, stats *SyncStats) {
	e, ok := g.entities.Get(ref)
	if !ok {
		return
	}
	stats.Visited++

	dirty := e.Dirty || parentDirty
	if dirty {
		e.World = parentWorld.Mul(e.Local.Matrix())
		e.Dirty = false
		stats.Updated++
		g.writeInstances(ref, e, stats)
	}

	if e.Light != nil {
		g.lights = append(g.lights, e.Light.At(e.World))
	}

	for _, c := range e.Children {
		g.propagate(c, e.World, dirty, stats)
	}
}

func (g *Graph) writeInstances(ref EntityRef, e *Entity, stats *SyncStats) {
	for i, m := range e.Meshes {
		rec, ok := g.registry.Instance(m.Instance)
		if !ok {
			stats.Stale++
			g.log.Debug("stale instance skipped",
				zap.Stringer("entity", ref),
				zap.Int("mesh", i),
				zap.Stringer("instance", m.Instance),
			)
			continue
		}
		rec.Model = e.World
		rec.GeometryID = m.GeometryID
		rec.MaterialID = m.MaterialID
	}
}

// StaleSkips returns the total number of sub-mesh writes skipped because the
// instance was no longer live.
func (g *Graph) StaleSkips() int {
	return g.staleSkips
}

// Bounds returns the box around every entity's world position as of the last Synchronize.
// ok is false for an empty graph.
func (g *Graph) Bounds() (lo, hi math.Vec3, ok bool) {
	g.Walk(func(_ EntityRef, e *Entity, _ int) bool {
		p := e.World.Translation()
		if !ok {
			lo, hi, ok = p, p, true
			return true
		}
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
		return true
	})
	return lo, hi, ok
}
