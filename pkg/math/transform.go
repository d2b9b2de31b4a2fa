package math

// Transform is a translation, rotation and scale triple.
type Transform struct {
	Translation Vec3 `yaml:"translation"`
	Rotation    Quat `yaml:"rotation"`
	Scale       Vec3 `yaml:"scale"`
}

// IdentityTransform returns the transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Vec3One(),
	}
}

// Matrix composes the transform as T * R * S.
func (t Transform) Matrix() Mat4 {
	m := t.Rotation.ToMat4()

	// Scale columns in place instead of a second multiply.
	for i := 0; i < 3; i++ {
		m[i] *= t.Scale.X
		m[4+i] *= t.Scale.Y
		m[8+i] *= t.Scale.Z
	}
	m[12] = t.Translation.X
	m[13] = t.Translation.Y
	m[14] = t.Translation.Z
	return m
}

// DecomposeMatrix splits an affine matrix back into translation, rotation and scale.
// Shear is discarded. A negative determinant is folded into the X scale.
func DecomposeMatrix(m Mat4) Transform {
	scale := Vec3{m.Column(0).Length(), m.Column(1).Length(), m.Column(2).Length()}
	if m.Det3() < 0 {
		scale.X = -scale.X
	}

	rot := Identity()
	if scale.X != 0 && scale.Y != 0 && scale.Z != 0 {
		for i := 0; i < 3; i++ {
			rot[i] = m[i] / scale.X
			rot[4+i] = m[4+i] / scale.Y
			rot[8+i] = m[8+i] / scale.Z
		}
	}

	return Transform{
		Translation: m.Translation(),
		Rotation:    QuatFromRotationMatrix(rot),
		Scale:       scale,
	}
}
