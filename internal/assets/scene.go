package assets

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/pkg/math"
)

var (
	// ErrUnknownMesh is returned when a node references a mesh the file does not define.
	ErrUnknownMesh = errors.New("assets: unknown mesh")
	// ErrUnknownPrefab is returned when a node references a prefab the file does not define.
	ErrUnknownPrefab = errors.New("assets: unknown prefab")
	// ErrUnknownShape is returned for a primitive shape that is not built in.
	ErrUnknownShape = errors.New("assets: unknown shape")
	// ErrCycle is returned when prefabs reference each other in a loop.
	ErrCycle = errors.New("assets: prefab cycle")
)

// File is a parsed scene description.
//
//	meshes:
//	  crate:
//	    primitives:
//	      - {shape: cube, size: 1, material: 2}
//	prefabs:
//	  stack:
//	    children:
//	      - {mesh: crate}
//	      - {mesh: crate, translation: [0, 1, 0]}
//	nodes:
//	  - {name: left, prefab: stack, translation: [-2, 0, 0]}
type File struct {
	Meshes  map[string]MeshDesc `yaml:"meshes"`
	Prefabs map[string]*Node    `yaml:"prefabs,omitempty"`
	Nodes   []*Node             `yaml:"nodes"`
}

// MeshDesc is a named mesh made of one or more primitives.
type MeshDesc struct {
	Primitives []PrimitiveDesc `yaml:"primitives"`
}

// PrimitiveDesc is one built-in shape of a mesh.
type PrimitiveDesc struct {
	Shape    string  `yaml:"shape"`
	Size     float32 `yaml:"size,omitempty"`
	Material uint32  `yaml:"material,omitempty"`
}

// Light describes a light attached to a node.
type Light struct {
	Intensity float32 `yaml:"intensity,omitempty"`
	Range     float32 `yaml:"range,omitempty"`
}

// Node is one element of the scene tree.
type Node struct {
	Name   string `yaml:"name,omitempty"`
	Mesh   string `yaml:"mesh,omitempty"`
	Prefab string `yaml:"prefab,omitempty"`

	Translation [3]float32 `yaml:"translation,omitempty,flow"`
	// Rotation is XYZ euler angles in degrees.
	Rotation [3]float32  `yaml:"rotation,omitempty,flow"`
	Scale    *[3]float32 `yaml:"scale,omitempty,flow"`

	Light    *Light  `yaml:"light,omitempty"`
	Children []*Node `yaml:"children,omitempty"`
}

// Transform returns the node's local transform.
func (n *Node) Transform() math.Transform {
	t := math.IdentityTransform()
	t.Translation = math.Vec3FromArray(n.Translation)
	t.Rotation = math.QuatFromEuler(math.Vec3{
		X: degToRad(n.Rotation[0]),
		Y: degToRad(n.Rotation[1]),
		Z: degToRad(n.Rotation[2]),
	})
	if n.Scale != nil {
		t.Scale = math.Vec3FromArray(*n.Scale)
	}
	return t
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	c := 1
	for _, child := range n.Children {
		c += child.Count()
	}
	return c
}

func degToRad(d float32) float32 {
	return d * 3.14159265358979323846 / 180
}

// Parse decodes a scene description and expands its prefabs.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	nodes, err := f.expand()
	if err != nil {
		return nil, err
	}
	f.Nodes = nodes
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Marshal encodes the file as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// expand replaces prefab references with deep copies of the prefab subtree.
// A referencing node keeps its own name and transform and gains the prefab's
// mesh, light and children; its own children follow the prefab's.
func (f *File) expand() ([]*Node, error) {
	out := make([]*Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		e, err := f.expandNode(n, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *File) expandNode(n *Node, active []string) (*Node, error) {
	out := *n
	out.Children = nil

	if n.Prefab != "" {
		if slices.Contains(active, n.Prefab) {
			return nil, fmt.Errorf("%s -> %s: %w", joinPath(active), n.Prefab, ErrCycle)
		}
		p, ok := f.Prefabs[n.Prefab]
		if !ok || p == nil {
			return nil, fmt.Errorf("node %q: prefab %q: %w", n.Name, n.Prefab, ErrUnknownPrefab)
		}
		inner, err := f.expandNode(p, append(active, n.Prefab))
		if err != nil {
			return nil, err
		}
		if out.Mesh == "" {
			out.Mesh = inner.Mesh
		}
		if out.Light == nil {
			out.Light = inner.Light
		}
		out.Children = append(out.Children, inner.Children...)
		out.Prefab = ""
	}

	for _, c := range n.Children {
		e, err := f.expandNode(c, active)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, e)
	}
	return &out, nil
}

func joinPath(parts []string) string {
	if len(parts) == 0 {
		return "scene"
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += " -> " + p
	}
	return s
}

// Primitive is a loaded mesh primitive.
type Primitive struct {
	GeometryID uint32
	MaterialID uint32
}

// MeshTable maps mesh names to their loaded primitives.
type MeshTable map[string][]Primitive

// Lookup returns the primitives of a mesh.
func (t MeshTable) Lookup(name string) ([]Primitive, error) {
	p, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("mesh %q: %w", name, ErrUnknownMesh)
	}
	return p, nil
}

// GeometryLoader uploads primitives and returns their geometry ids.
type GeometryLoader interface {
	LoadGeometry(raw []registry.RawGeometry) ([]uint32, error)
}

// LoadMeshes builds every mesh of the file in one load, in mesh name order,
// and returns the table used to instantiate nodes.
func (f *File) LoadMeshes(loader GeometryLoader) (MeshTable, error) {
	names := slices.Sorted(maps.Keys(f.Meshes))

	var raws []registry.RawGeometry
	for _, name := range names {
		for i, p := range f.Meshes[name].Primitives {
			g, err := Shape(p.Shape, p.Size, p.Material)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, i, err)
			}
			g.Name = fmt.Sprintf("%s/%d", name, i)
			raws = append(raws, g)
		}
	}

	table := make(MeshTable, len(names))
	if len(raws) == 0 {
		return table, nil
	}

	ids, err := loader.LoadGeometry(raws)
	if err != nil {
		return nil, fmt.Errorf("loading meshes: %w", err)
	}

	next := 0
	for _, name := range names {
		prims := f.Meshes[name].Primitives
		entries := make([]Primitive, len(prims))
		for i, p := range prims {
			entries[i] = Primitive{GeometryID: ids[next], MaterialID: p.Material}
			next++
		}
		table[name] = entries
	}
	return table, nil
}

// Validate checks that every node references a defined mesh.
func (f *File) Validate() error {
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n.Mesh != "" {
			if _, ok := f.Meshes[n.Mesh]; !ok {
				return fmt.Errorf("node %q: mesh %q: %w", n.Name, n.Mesh, ErrUnknownMesh)
			}
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range f.Nodes {
		if err := walk(n); err != nil {
			return err
		}
	}
	return nil
}
