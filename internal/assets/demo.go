package assets

// DemoScene is loaded when no scene file is configured.
const DemoScene = `
meshes:
  ground:
    primitives:
      - {shape: plane, size: 24, material: 7}
  crate:
    primitives:
      - {shape: cube, size: 1, material: 4}
  tower:
    primitives:
      - {shape: cube, size: 1.5, material: 3}
      - {shape: pyramid, size: 1.5, material: 1}
  lamp:
    primitives:
      - {shape: pyramid, size: 0.4, material: 0}
prefabs:
  stack:
    mesh: crate
    children:
      - {mesh: crate, translation: [0, 1, 0], rotation: [0, 20, 0]}
      - {mesh: crate, translation: [0, 2, 0], rotation: [0, 45, 0]}
  row:
    children:
      - {prefab: stack, translation: [-4, 0.5, 0]}
      - {prefab: stack, translation: [0, 0.5, 0]}
      - {prefab: stack, translation: [4, 0.5, 0]}
nodes:
  - {name: ground, mesh: ground}
  - {name: front, prefab: row, translation: [0, 0, 4]}
  - {name: back, prefab: row, translation: [0, 0, -4]}
  - name: tower
    mesh: tower
    translation: [8, 0.75, 0]
    children:
      - {name: cap, mesh: lamp, translation: [0, 2, 0], light: {intensity: 3, range: 15}}
  - {name: sun-lamp, translation: [-8, 6, 0], rotation: [-90, 0, 0], light: {intensity: 2, range: 30}}
`

// Demo parses DemoScene.
func Demo() (*File, error) {
	return Parse([]byte(DemoScene))
}
