package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/pkg/math"
)

const testScene = `
meshes:
  crate:
    primitives:
      - {shape: cube, size: 1, material: 2}
  lamp:
    primitives:
      - {shape: pyramid, size: 0.5}
      - {shape: plane, size: 2, material: 1}
prefabs:
  stack:
    mesh: crate
    children:
      - {mesh: crate, translation: [0, 1, 0]}
nodes:
  - name: left
    prefab: stack
    translation: [-2, 0, 0]
    children:
      - {name: extra, mesh: lamp}
  - name: light
    translation: [0, 4, 0]
    rotation: [0, 90, 0]
    scale: [2, 2, 2]
    light: {intensity: 3, range: 20}
`

func TestPrimitiveCounts(t *testing.T) {
	tests := []struct {
		shape    string
		vertices int
		indices  int
	}{
		{ShapeCube, 24, 36},
		{ShapePlane, 4, 6},
		{ShapePyramid, 16, 18},
	}

	for _, tt := range tests {
		t.Run(tt.shape, func(t *testing.T) {
			g, err := Shape(tt.shape, 1, 7)
			if err != nil {
				t.Fatalf("Shape failed: %v", err)
			}
			if len(g.Vertices) != tt.vertices {
				t.Errorf("expected %d vertices, got %d", tt.vertices, len(g.Vertices))
			}
			if len(g.Indices) != tt.indices {
				t.Errorf("expected %d indices, got %d", tt.indices, len(g.Indices))
			}
			if g.MaterialID != 7 {
				t.Errorf("expected material 7, got %d", g.MaterialID)
			}
			for _, idx := range g.Indices {
				if int(idx) >= len(g.Vertices) {
					t.Fatalf("index %d out of range", idx)
				}
			}
		})
	}

	if _, err := Shape("torus", 1, 0); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("expected ErrUnknownShape, got %v", err)
	}
}

func TestCubeWinding(t *testing.T) {
	g := Cube(2)
	for i := 0; i < len(g.Indices); i += 3 {
		a := math.Vec3FromArray(g.Vertices[g.Indices[i]].Position)
		b := math.Vec3FromArray(g.Vertices[g.Indices[i+1]].Position)
		c := math.Vec3FromArray(g.Vertices[g.Indices[i+2]].Position)
		n := math.Vec3FromArray(g.Vertices[g.Indices[i]].Normal)

		face := b.Sub(a).Cross(c.Sub(a))
		if face.Dot(n) <= 0 {
			t.Errorf("triangle %d winds against its normal %v", i/3, n)
		}
		// Every vertex lies on the face plane at distance 1.
		if d := a.Dot(n); d < 0.999 || d > 1.001 {
			t.Errorf("triangle %d: expected plane distance 1, got %v", i/3, d)
		}
	}
}

func TestParseExpandsPrefabs(t *testing.T) {
	f, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Nodes) != 2 {
		t.Fatalf("expected 2 root nodes, got %d", len(f.Nodes))
	}

	left := f.Nodes[0]
	if left.Prefab != "" {
		t.Errorf("expected prefab reference cleared, got %q", left.Prefab)
	}
	if left.Mesh != "crate" {
		t.Errorf("expected mesh from prefab, got %q", left.Mesh)
	}
	if left.Translation != [3]float32{-2, 0, 0} {
		t.Errorf("expected own translation kept, got %v", left.Translation)
	}
	if len(left.Children) != 2 {
		t.Fatalf("expected prefab child then own child, got %d children", len(left.Children))
	}
	if left.Children[0].Mesh != "crate" || left.Children[1].Name != "extra" {
		t.Errorf("unexpected child order: %+v, %+v", left.Children[0], left.Children[1])
	}
	if n := left.Count(); n != 3 {
		t.Errorf("expected subtree of 3, got %d", n)
	}

	light := f.Nodes[1]
	if light.Light == nil || light.Light.Intensity != 3 {
		t.Errorf("expected light intensity 3, got %+v", light.Light)
	}
	tr := light.Transform()
	if tr.Scale != (math.Vec3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("expected scale 2, got %v", tr.Scale)
	}
	// 90 degrees about Y sends +X to -Z.
	p := tr.Rotation.ToMat4().TransformPoint(math.Vec3{X: 1})
	if abs(p.X) > 1e-5 || abs(p.Z+1) > 1e-5 {
		t.Errorf("expected (0, 0, -1), got %v", p)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected error
	}{
		{
			name:     "unknown mesh",
			yaml:     "nodes:\n  - {mesh: ghost}\n",
			expected: ErrUnknownMesh,
		},
		{
			name:     "unknown prefab",
			yaml:     "nodes:\n  - {prefab: ghost}\n",
			expected: ErrUnknownPrefab,
		},
		{
			name: "prefab cycle",
			yaml: `
prefabs:
  a: {children: [{prefab: b}]}
  b: {children: [{prefab: a}]}
nodes:
  - {prefab: a}
`,
			expected: ErrCycle,
		},
		{
			name:     "self reference",
			yaml:     "prefabs:\n  a: {prefab: a}\nnodes:\n  - {prefab: a}\n",
			expected: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}

	if _, err := Parse([]byte("nodes: [")); err == nil {
		t.Error("expected syntax error")
	}
}

// recordingLoader assigns ids sequentially like the registry does.
type recordingLoader struct {
	loaded []registry.RawGeometry
}

func (l *recordingLoader) LoadGeometry(raw []registry.RawGeometry) ([]uint32, error) {
	ids := make([]uint32, len(raw))
	for i := range raw {
		ids[i] = uint32(len(l.loaded) + i)
	}
	l.loaded = append(l.loaded, raw...)
	return ids, nil
}

func TestLoadMeshes(t *testing.T) {
	f, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	loader := &recordingLoader{}
	table, err := f.LoadMeshes(loader)
	if err != nil {
		t.Fatalf("LoadMeshes failed: %v", err)
	}

	if len(loader.loaded) != 3 {
		t.Fatalf("expected 3 primitives loaded, got %d", len(loader.loaded))
	}

	// Meshes load in name order: crate before lamp.
	crate, err := table.Lookup("crate")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(crate) != 1 || crate[0].GeometryID != 0 || crate[0].MaterialID != 2 {
		t.Errorf("unexpected crate primitives: %+v", crate)
	}
	lamp, _ := table.Lookup("lamp")
	if len(lamp) != 2 || lamp[0].GeometryID != 1 || lamp[1].GeometryID != 2 || lamp[1].MaterialID != 1 {
		t.Errorf("unexpected lamp primitives: %+v", lamp)
	}
	if loader.loaded[1].Name != "lamp/0" {
		t.Errorf("expected primitive name lamp/0, got %q", loader.loaded[1].Name)
	}

	if _, err := table.Lookup("ghost"); !errors.Is(err, ErrUnknownMesh) {
		t.Errorf("expected ErrUnknownMesh, got %v", err)
	}
}

func TestManagerLoadScene(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "demo.yaml"), []byte(testScene), 0o644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}

	m := NewManager(dir)
	defer m.Close()

	if _, err := m.LoadScene("demo.yaml"); err != nil {
		t.Fatalf("LoadScene failed: %v", err)
	}
	if _, err := m.LoadScene("demo.yaml"); err != nil {
		t.Fatalf("LoadScene failed: %v", err)
	}
	hits, misses := m.cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}

	if _, err := m.LoadScene("missing.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
