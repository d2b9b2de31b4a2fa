// Package scene keeps the entity hierarchy and pushes world transforms into the instance registry.
//
// Entities own local transforms and a list of sub-meshes, each backed by one
// registry instance. Edits only mark entities dirty; Synchronize recomputes
// world matrices for dirty subtrees in a single pass and writes them through
// the instance handles.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/logger"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/pkg/math"
	"github.com/Faultbox/scenebatch/pkg/slotmap"
)

var (
	// ErrUnknownEntity is returned when an EntityRef does not reference a live entity.
	ErrUnknownEntity = errors.New("scene: unknown entity")
	// ErrCycle is returned by SetParent when the new parent is the entity or one of its descendants.
	ErrCycle = errors.New("scene: parent cycle")
)

// EntityRef identifies an entity. Refs to deleted entities stay safe to use and
// are treated as unknown.
type EntityRef = slotmap.Handle

// SubMesh is one drawable primitive of an entity.
type SubMesh struct {
	Instance   registry.Handle
	GeometryID uint32
	MaterialID uint32
}

// Entity is a scene node.
type Entity struct {
	Name  string
	Local math.Transform
	World math.Mat4
	Dirty bool

	Parent    EntityRef
	HasParent bool
	Children  []EntityRef

	Meshes []SubMesh
	Light  *PointLight
}

// MeshRef names a geometry and material for a new sub-mesh.
type MeshRef struct {
	GeometryID uint32
	MaterialID uint32
}

// EntityDesc describes an entity for Spawn.
type EntityDesc struct {
	Name   string
	Parent *EntityRef
	// Transform defaults to identity when nil.
	Transform *math.Transform
	Meshes    []MeshRef
	Light     *PointLight
}

// Graph is the entity forest. It is not safe for concurrent use.
type Graph struct {
	registry *registry.Registry
	entities *slotmap.SlotMap[Entity]
	roots    []EntityRef

	lights     []LightData
	staleSkips int
	log        *zap.Logger
}

// New creates an empty graph that mirrors entities into reg.
func New(reg *registry.Registry) *Graph {
	return &Graph{
		registry: reg,
		entities: slotmap.New[Entity](),
		log:      logger.Named("scene"),
	}
}

// CreateEntity creates an entity with one sub-mesh and an identity transform.
// A nil parent creates a root. Unknown geometry ids are rejected without
// creating anything.
func (g *Graph) CreateEntity(parent *EntityRef, geometryID, materialID uint32) (EntityRef, error) {
	return g.Spawn(EntityDesc{
		Parent: parent,
		Meshes: []MeshRef{{GeometryID: geometryID, MaterialID: materialID}},
	})
}

// CreateGroup creates an entity without geometry, used for grouping and lights.
func (g *Graph) CreateGroup(parent *EntityRef, name string) (EntityRef, error) {
	return g.Spawn(EntityDesc{Name: name, Parent: parent})
}

// Spawn creates an entity from desc and registers an instance for every mesh.
// The entity starts dirty so the next Synchronize writes its world matrix.
func (g *Graph) Spawn(desc EntityDesc) (EntityRef, error) {
	if desc.Parent != nil && !g.entities.Contains(*desc.Parent) {
		return EntityRef{}, fmt.Errorf("parent %s: %w", *desc.Parent, ErrUnknownEntity)
	}

	local := math.IdentityTransform()
	if desc.Transform != nil {
		local = *desc.Transform
	}
	world := local.Matrix()

	meshes := make([]SubMesh, 0, len(desc.Meshes))
	for _, m := range desc.Meshes {
		h, err := g.registry.AddInstance(world, m.GeometryID, m.MaterialID)
		if err != nil {
			for _, added := range meshes {
				g.registry.RemoveInstance(added.Instance)
			}
			return EntityRef{}, fmt.Errorf("creating entity %q: %w", desc.Name, err)
		}
		meshes = append(meshes, SubMesh{Instance: h, GeometryID: m.GeometryID, MaterialID: m.MaterialID})
	}

	e := Entity{
		Name:   desc.Name,
		Local:  local,
		World:  world,
		Dirty:  true,
		Meshes: meshes,
	}
	if desc.Light != nil {
		light := *desc.Light
		e.Light = &light
	}
	if desc.Parent != nil {
		e.Parent = *desc.Parent
		e.HasParent = true
	}

	ref := g.entities.Insert(e)
	if desc.Parent != nil {
		p, _ := g.entities.Get(*desc.Parent)
		p.Children = append(p.Children, ref)
	} else {
		g.roots = append(g.roots, ref)
	}
	return ref, nil
}

// DeleteEntity deletes ref and its whole subtree, children first, releasing
// every instance they own. It reports whether ref was live.
func (g *Graph) DeleteEntity(ref EntityRef) bool {
	e, ok := g.entities.Get(ref)
	if !ok {
		return false
	}
	if e.HasParent {
		if p, ok := g.entities.Get(e.Parent); ok {
			p.Children = removeRef(p.Children, ref)
		}
	} else {
		g.roots = removeRef(g.roots, ref)
	}

	removed := g.deleteSubtree(ref)
	g.log.Debug("entity deleted",
		zap.Stringer("entity", ref),
		zap.Int("subtree", removed),
	)
	return true
}

func (g *Graph) deleteSubtree(ref EntityRef) int {
	e, ok := g.entities.Get(ref)
	if !ok {
		return 0
	}
	children := e.Children
	e.Children = nil

	n := 1
	for _, c := range children {
		n += g.deleteSubtree(c)
	}

	for _, m := range e.Meshes {
		g.registry.RemoveInstance(m.Instance)
	}
	g.entities.Remove(ref)
	return n
}

// MarkDirty flags ref for recomputation on the next Synchronize.
// Unknown refs are ignored.
func (g *Graph) MarkDirty(ref EntityRef) {
	if e, ok := g.entities.Get(ref); ok {
		e.Dirty = true
	}
}

// SetParent moves ref under parent, or to the roots when parent is nil.
// The entity keeps its local transform and is marked dirty.
func (g *Graph) SetParent(ref EntityRef, parent *EntityRef) error {
	e, ok := g.entities.Get(ref)
	if !ok {
		return fmt.Errorf("entity %s: %w", ref, ErrUnknownEntity)
	}
	if parent != nil {
		if !g.entities.Contains(*parent) {
			return fmt.Errorf("parent %s: %w", *parent, ErrUnknownEntity)
		}
		for cur, has := *parent, true; has; {
			if cur == ref {
				return fmt.Errorf("moving %s under %s: %w", ref, *parent, ErrCycle)
			}
			ce, _ := g.entities.Get(cur)
			cur, has = ce.Parent, ce.HasParent
		}
	}

	if e.HasParent {
		if p, ok := g.entities.Get(e.Parent); ok {
			p.Children = removeRef(p.Children, ref)
		}
	} else {
		g.roots = removeRef(g.roots, ref)
	}

	if parent != nil {
		p, _ := g.entities.Get(*parent)
		p.Children = append(p.Children, ref)
		e.Parent, e.HasParent = *parent, true
	} else {
		g.roots = append(g.roots, ref)
		e.Parent, e.HasParent = EntityRef{}, false
	}
	e.Dirty = true
	return nil
}

// SetTransform replaces the local transform of ref and marks it dirty.
func (g *Graph) SetTransform(ref EntityRef, t math.Transform) bool {
	e, ok := g.entities.Get(ref)
	if !ok {
		return false
	}
	e.Local = t
	e.Dirty = true
	return true
}

// SetTranslation sets the local translation of ref and marks it dirty.
func (g *Graph) SetTranslation(ref EntityRef, v math.Vec3) bool {
	e, ok := g.entities.Get(ref)
	if !ok {
		return false
	}
	e.Local.Translation = v
	e.Dirty = true
	return true
}

// SetRotationEuler sets the local rotation of ref from XYZ euler angles in radians.
func (g *Graph) SetRotationEuler(ref EntityRef, euler math.Vec3) bool {
	e, ok := g.entities.Get(ref)
	if !ok {
		return false
	}
	e.Local.Rotation = math.QuatFromEuler(euler)
	e.Dirty = true
	return true
}

// SetScale sets the local scale of ref and marks it dirty.
func (g *Graph) SetScale(ref EntityRef, s math.Vec3) bool {
	e, ok := g.entities.Get(ref)
	if !ok {
		return false
	}
	e.Local.Scale = s
	e.Dirty = true
	return true
}

// SetMaterial changes the material of one sub-mesh and marks the entity dirty.
func (g *Graph) SetMaterial(ref EntityRef, mesh int, materialID uint32) bool {
	e, ok := g.entities.Get(ref)
	if !ok || mesh < 0 || mesh >= len(e.Meshes) {
		return false
	}
	e.Meshes[mesh].MaterialID = materialID
	e.Dirty = true
	return true
}

// SetGeometry points one sub-mesh at another loaded geometry and marks the entity dirty.
// Unknown geometry ids leave the entity unchanged.
func (g *Graph) SetGeometry(ref EntityRef, mesh int, geometryID uint32) error {
	e, ok := g.entities.Get(ref)
	if !ok || mesh < 0 || mesh >= len(e.Meshes) {
		return fmt.Errorf("entity %v mesh %d: %w", ref, mesh, ErrUnknownEntity)
	}
	if err := g.registry.SetGeometry(e.Meshes[mesh].Instance, geometryID); err != nil {
		return err
	}
	e.Meshes[mesh].GeometryID = geometryID
	e.Dirty = true
	return nil
}

// Entity returns a copy of the entity behind ref.
func (g *Graph) Entity(ref EntityRef) (Entity, bool) {
	e, ok := g.entities.Value(ref)
	if !ok {
		return Entity{}, false
	}
	e.Children = slices.Clone(e.Children)
	e.Meshes = slices.Clone(e.Meshes)
	if e.Light != nil {
		light := *e.Light
		e.Light = &light
	}
	return e, true
}

// Contains reports whether ref is a live entity.
func (g *Graph) Contains(ref EntityRef) bool {
	return g.entities.Contains(ref)
}

// Len returns the number of live entities.
func (g *Graph) Len() int {
	return g.entities.Len()
}

// Roots returns the root entities in creation order.
func (g *Graph) Roots() []EntityRef {
	return slices.Clone(g.roots)
}

// Children returns the children of ref in insertion order.
func (g *Graph) Children(ref EntityRef) []EntityRef {
	e, ok := g.entities.Get(ref)
	if !ok {
		return nil
	}
	return slices.Clone(e.Children)
}

// Parent returns the parent of ref. ok is false for roots and unknown refs.
func (g *Graph) Parent(ref EntityRef) (EntityRef, bool) {
	e, ok := g.entities.Get(ref)
	if !ok || !e.HasParent {
		return EntityRef{}, false
	}
	return e.Parent, true
}

// Walk visits every entity depth-first in pre-order, roots in creation order.
// Returning false from fn skips the entity's children.
// fn must not create or delete entities.
func (g *Graph) Walk(fn func(ref EntityRef, e *Entity, depth int) bool) {
	for _, r := range g.roots {
		g.walk(r, 0, fn)
	}
}

func (g *Graph) walk(ref EntityRef, depth int, fn func(EntityRef, *Entity, int) bool) {
	e, ok := g.entities.Get(ref)
	if !ok {
		return
	}
	if !fn(ref, e, depth) {
		return
	}
	for _, c := range e.Children {
		g.walk(c, depth+1, fn)
	}
}

func removeRef(refs []EntityRef, ref EntityRef) []EntityRef {
	if i := slices.Index(refs, ref); i >= 0 {
		return slices.Delete(refs, i, i+1)
	}
	return refs
}
