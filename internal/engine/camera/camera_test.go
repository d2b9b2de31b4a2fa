package camera

import (
	"testing"

	"github.com/Faultbox/scenebatch/pkg/math"
)

func TestPositionAtZeroYaw(t *testing.T) {
	c := NewOrbitCamera()
	c.RotationX = 0
	c.RotationY = 0
	c.Distance = 5
	c.Center = math.Vec3{X: 1}

	p := c.Position()
	if abs(p.X-1) > 1e-5 || abs(p.Y) > 1e-5 || abs(p.Z-5) > 1e-5 {
		t.Errorf("expected (1, 0, 5), got %v", p)
	}

	// The center projects onto the view axis.
	v := c.ViewMatrix().TransformPoint(c.Center)
	if abs(v.X) > 1e-5 || abs(v.Y) > 1e-5 || abs(v.Z+5) > 1e-4 {
		t.Errorf("expected center at (0, 0, -5) in view space, got %v", v)
	}
}

func TestClamps(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(c *OrbitCamera)
		check  func(c *OrbitCamera) float32
		expect float32
	}{
		{"pitch max", func(c *OrbitCamera) { c.HandleDrag(0, 1e6) }, func(c *OrbitCamera) float32 { return c.RotationX }, 1.5},
		{"pitch min", func(c *OrbitCamera) { c.HandleDrag(0, -1e6) }, func(c *OrbitCamera) float32 { return c.RotationX }, -1.5},
		{"zoom in", func(c *OrbitCamera) { c.HandleZoom(100) }, func(c *OrbitCamera) float32 { return c.Distance }, 1},
		{"zoom out", func(c *OrbitCamera) {
			for i := 0; i < 200; i++ {
				c.HandleZoom(-5)
			}
		}, func(c *OrbitCamera) float32 { return c.Distance }, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			tt.apply(c)
			if got := tt.check(c); got != tt.expect {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.Vec3{X: -2, Y: 0, Z: -2}, math.Vec3{X: 2, Y: 4, Z: 2})

	if c.Center != (math.Vec3{Y: 2}) {
		t.Errorf("expected center (0, 2, 0), got %v", c.Center)
	}
	if c.Distance <= 3 {
		t.Errorf("expected distance beyond the bounds radius, got %v", c.Distance)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
