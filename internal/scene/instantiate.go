package scene

import (
	"fmt"

	"github.com/Faultbox/scenebatch/internal/assets"
)

// Instantiate creates entities for node and its descendants under parent.
// Mesh names resolve through meshes; every primitive becomes a sub-mesh.
// On error nothing created by this call is left behind.
func (g *Graph) Instantiate(parent *EntityRef, node *assets.Node, meshes assets.MeshTable) (EntityRef, error) {
	var created []EntityRef
	ref, err := g.instantiate(parent, node, meshes, &created)
	if err != nil {
		// Deleting the first entity removes the whole partial subtree.
		if len(created) > 0 {
			g.DeleteEntity(created[0])
		}
		return EntityRef{}, err
	}
	return ref, nil
}

func (g *Graph) instantiate(parent *EntityRef, node *assets.Node, meshes assets.MeshTable, created *[]EntityRef) (EntityRef, error) {
	desc := EntityDesc{
		Name:   node.Name,
		Parent: parent,
	}
	t := node.Transform()
	desc.Transform = &t

	if node.Mesh != "" {
		prims, err := meshes.Lookup(node.Mesh)
		if err != nil {
			return EntityRef{}, fmt.Errorf("node %q: %w", node.Name, err)
		}
		for _, p := range prims {
			desc.Meshes = append(desc.Meshes, MeshRef{GeometryID: p.GeometryID, MaterialID: p.MaterialID})
		}
	}

	if node.Light != nil {
		light := DefaultPointLight()
		if node.Light.Intensity != 0 {
			light.Intensity = node.Light.Intensity
		}
		if node.Light.Range != 0 {
			light.Range = node.Light.Range
		}
		desc.Light = &light
	}

	ref, err := g.Spawn(desc)
	if err != nil {
		return EntityRef{}, err
	}
	*created = append(*created, ref)

	for _, c := range node.Children {
		if _, err := g.instantiate(&ref, c, meshes, created); err != nil {
			return EntityRef{}, err
		}
	}
	return ref, nil
}

// InstantiateFile creates every root node of a parsed scene file.
func (g *Graph) InstantiateFile(f *assets.File, meshes assets.MeshTable) ([]EntityRef, error) {
	refs := make([]EntityRef, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		ref, err := g.Instantiate(nil, n, meshes)
		if err != nil {
			for _, r := range refs {
				g.DeleteEntity(r)
			}
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// LoadFile uploads the file's meshes to the graph's registry and instantiates its nodes.
func (g *Graph) LoadFile(f *assets.File) ([]EntityRef, error) {
	meshes, err := f.LoadMeshes(g.registry)
	if err != nil {
		return nil, err
	}
	return g.InstantiateFile(f, meshes)
}
