package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	if result != m {
		t.Errorf("M * I should equal M: got %v, want %v", result, m)
	}
}

func TestMulMatchesMathgl(t *testing.T) {
	a := Translate(1, -2, 3).Mul(RotateY(0.7)).Mul(Scale(2, 3, 4))
	b := RotateY(-1.3).Mul(Translate(5, 0, -1))

	want := mgl32.Mat4(a).Mul4(mgl32.Mat4(b))
	got := a.Mul(b)

	if !got.ApproxEqual(Mat4(want), eps) {
		t.Errorf("Mul mismatch:\n got  %v\n want %v", got, want)
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m.Translation() != (Vec3{5, 10, 15}) {
		t.Errorf("Translate: got %v, want (5, 10, 15)", m.Translation())
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2))
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result.X) > 0.001 || abs(result.Y) > 0.001 || abs(result.Z+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(float32(math.Pi/4), 1.0, 0.1, 100.0)
	want := mgl32.Perspective(float32(math.Pi/4), 1.0, 0.1, 100.0)

	if !m.ApproxEqual(Mat4(want), eps) {
		t.Errorf("Perspective mismatch:\n got  %v\n want %v", m, want)
	}
}

func TestLookAt(t *testing.T) {
	m := LookAt(Vec3{0, 2, 5}, Vec3{}, Vec3{0, 1, 0})
	want := mgl32.LookAtV(mgl32.Vec3{0, 2, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	if !m.ApproxEqual(Mat4(want), eps) {
		t.Errorf("LookAt mismatch:\n got  %v\n want %v", m, want)
	}
}

func TestQuatToMat4MatchesMathgl(t *testing.T) {
	axis := Vec3{1, 2, 3}.Normalize()
	q := QuatFromAxisAngle(axis, 1.1)
	want := mgl32.QuatRotate(1.1, mgl32.Vec3{axis.X, axis.Y, axis.Z}).Mat4()

	if !q.ToMat4().ApproxEqual(Mat4(want), eps) {
		t.Errorf("ToMat4 mismatch:\n got  %v\n want %v", q.ToMat4(), want)
	}
}

func TestQuatFromEulerOrder(t *testing.T) {
	euler := Vec3{0.3, -0.5, 1.2}
	q := QuatFromEuler(euler)

	// X applied first, then Y, then Z.
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, euler.X)
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, euler.Y)
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, euler.Z)
	want := qz.Mul(qy).Mul(qx)

	if !q.ToMat4().ApproxEqual(want.ToMat4(), eps) {
		t.Errorf("QuatFromEuler mismatch:\n got  %v\n want %v", q, want)
	}
}

func TestTransformMatrixMatchesMathgl(t *testing.T) {
	axis := Vec3{0, 1, 1}.Normalize()
	tr := Transform{
		Translation: Vec3{4, -2, 7},
		Rotation:    QuatFromAxisAngle(axis, 0.8),
		Scale:       Vec3{2, 0.5, 3},
	}

	want := mgl32.Translate3D(4, -2, 7).
		Mul4(mgl32.QuatRotate(0.8, mgl32.Vec3{axis.X, axis.Y, axis.Z}).Mat4()).
		Mul4(mgl32.Scale3D(2, 0.5, 3))

	if !tr.Matrix().ApproxEqual(Mat4(want), eps) {
		t.Errorf("Transform.Matrix mismatch:\n got  %v\n want %v", tr.Matrix(), want)
	}
}

func TestIdentityTransform(t *testing.T) {
	if IdentityTransform().Matrix() != Identity() {
		t.Errorf("expected identity matrix, got %v", IdentityTransform().Matrix())
	}
}

func TestDecomposeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
	}{
		{"identity", IdentityTransform()},
		{"translate only", Transform{Translation: Vec3{1, 2, 3}, Rotation: QuatIdentity(), Scale: Vec3One()}},
		{"rotate x", Transform{Rotation: QuatFromAxisAngle(Vec3{1, 0, 0}, 2.5), Scale: Vec3One()}},
		{"full", Transform{
			Translation: Vec3{-3, 0.5, 9},
			Rotation:    QuatFromEuler(Vec3{0.4, 1.9, -0.2}),
			Scale:       Vec3{1.5, 2, 0.25},
		}},
		{"mirrored", Transform{Rotation: QuatIdentity(), Scale: Vec3{-1, 1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.tr.Matrix()
			back := DecomposeMatrix(m)
			if !back.Matrix().ApproxEqual(m, eps) {
				t.Errorf("round trip mismatch:\n got  %v\n want %v", back.Matrix(), m)
			}
		})
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func TestInverseMatchesMathgl(t *testing.T) {
	m := Perspective(1.0, 1.5, 0.1, 50).Mul(LookAt(Vec3{3, 4, 5}, Vec3{}, Vec3{Y: 1}))
	got, ok := m.Inverse()
	if !ok {
		t.Fatal("expected invertible matrix")
	}
	want := mgl32.Mat4(m).Inv()
	if !got.ApproxEqual(Mat4(want), 1e-3) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !m.Mul(got).ApproxEqual(Identity(), 1e-4) {
		t.Errorf("expected m * inverse to be identity, got %v", m.Mul(got))
	}
}

func TestInverseSingular(t *testing.T) {
	if _, ok := Scale(1, 0, 1).Inverse(); ok {
		t.Error("expected singular matrix to report !ok")
	}
}
