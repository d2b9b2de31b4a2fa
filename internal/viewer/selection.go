package viewer

import (
	"github.com/Faultbox/scenebatch/internal/scene"
)

// highlightMaterial is the palette entry used for the selected entity.
const highlightMaterial = 4

// selection tracks the picked entity and the materials it had before highlighting.
// The ref may outlive its entity; every use goes through the graph, which treats
// stale refs as unknown.
type selection struct {
	ref       scene.EntityRef
	active    bool
	materials []uint32
}

// Set highlights ref, restoring the previous selection first.
func (s *selection) Set(g *scene.Graph, ref scene.EntityRef) {
	s.Clear(g)

	e, ok := g.Entity(ref)
	if !ok {
		return
	}
	s.ref = ref
	s.active = true
	s.materials = s.materials[:0]
	for i, m := range e.Meshes {
		s.materials = append(s.materials, m.MaterialID)
		g.SetMaterial(ref, i, highlightMaterial)
	}
}

// Clear restores the selected entity's materials, if it still exists.
func (s *selection) Clear(g *scene.Graph) {
	if !s.active {
		return
	}
	for i, m := range s.materials {
		g.SetMaterial(s.ref, i, m)
	}
	s.active = false
	s.materials = s.materials[:0]
}

// Delete removes the selected entity and its subtree.
func (s *selection) Delete(g *scene.Graph) (scene.Entity, bool) {
	if !s.active {
		return scene.Entity{}, false
	}
	e, _ := g.Entity(s.ref)
	deleted := g.DeleteEntity(s.ref)
	s.active = false
	s.materials = s.materials[:0]
	return e, deleted
}

// Get returns the selected entity, if it is still alive.
func (s *selection) Get(g *scene.Graph) (scene.EntityRef, bool) {
	if !s.active || !g.Contains(s.ref) {
		return scene.EntityRef{}, false
	}
	return s.ref, true
}
