package scene

import (
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/scenebatch/pkg/math"
)

const (
	// MaxLights is the number of lights the light buffer holds.
	MaxLights = 16
	// LightRecordSize is the std430 stride of one packed light.
	LightRecordSize = 48
)

// PointLight is the light component of an entity.
// Cone values are cosines of the inner and outer spot angles.
type PointLight struct {
	Intensity float32 `yaml:"intensity"`
	Range     float32 `yaml:"range"`
	InnerCone float32 `yaml:"inner_cone"`
	OuterCone float32 `yaml:"outer_cone"`
}

// DefaultPointLight returns a unit-intensity light with a 100 unit range.
func DefaultPointLight() PointLight {
	return PointLight{
		Intensity: 1,
		Range:     100,
		InnerCone: 0.95,
		OuterCone: 0.9,
	}
}

// LightData is a light resolved to world space.
type LightData struct {
	Position  math.Vec3
	Direction math.Vec3
	PointLight
}

// At places the light with the given world matrix. The light points down its local -Z.
func (l PointLight) At(world math.Mat4) LightData {
	return LightData{
		Position:   world.Translation(),
		Direction:  world.Column(2).Scale(-1).Normalize(),
		PointLight: l,
	}
}

// AddPointLight attaches a light to ref, replacing any existing one.
func (g *Graph) AddPointLight(ref EntityRef, light PointLight) bool {
	e, ok := g.entities.Get(ref)
	if !ok {
		return false
	}
	e.Light = &light
	return true
}

// RemovePointLight detaches the light from ref.
func (g *Graph) RemovePointLight(ref EntityRef) bool {
	e, ok := g.entities.Get(ref)
	if !ok || e.Light == nil {
		return false
	}
	e.Light = nil
	return true
}

// Lights returns the lights collected by the last Synchronize, in traversal order.
// The slice is reused by the next Synchronize.
func (g *Graph) Lights() []LightData {
	return g.lights
}

// MarshalLights packs up to MaxLights lights for a storage buffer.
//
// Layout per light: position.xyz, range, direction.xyz, intensity,
// inner cone, outer cone, two floats of padding.
func MarshalLights(lights []LightData) []byte {
	n := min(len(lights), MaxLights)
	out := make([]byte, 0, n*LightRecordSize)
	for _, l := range lights[:n] {
		out = appendFloats(out,
			l.Position.X, l.Position.Y, l.Position.Z, l.Range,
			l.Direction.X, l.Direction.Y, l.Direction.Z, l.Intensity,
			l.InnerCone, l.OuterCone, 0, 0,
		)
	}
	return out
}

func appendFloats(dst []byte, fs ...float32) []byte {
	for _, f := range fs {
		dst = binary.LittleEndian.AppendUint32(dst, gomath.Float32bits(f))
	}
	return dst
}
