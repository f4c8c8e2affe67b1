// Package physics implements a small rigid-body world of spheres and static
// planes, stored as ECS entities.
package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ShapeKind identifies a collision shape.
type ShapeKind uint8

const (
	ShapeSphere ShapeKind = iota // Radius around the body position
	ShapePlane                   // Infinite plane through the position, normal = local +Z
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapePlane:
		return "plane"
	}
	return "unknown"
}

// Transform is a body's pose in world space.
type Transform struct {
	Position    r3.Vec
	Orientation quat.Number
}

// IdentityTransform is the pose at the origin with no rotation.
func IdentityTransform() Transform {
	return Transform{Orientation: quat.Number{Real: 1}}
}

// Rotate applies the orientation to a local-space vector.
func (t Transform) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(t.Orientation).Rotate(v)
}

// FromAxisAngle returns the rotation of angle radians about axis.
func FromAxisAngle(axis r3.Vec, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, r3.Unit(axis)))
}

// AxisAngle returns the orientation as a rotation of angle radians about a
// unit axis. The identity maps to angle 0 about +Y.
func (t Transform) AxisAngle() (axis r3.Vec, angle float64) {
	q := t.Orientation
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	s := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if s < 1e-12 {
		return r3.Vec{Y: 1}, 0
	}
	return r3.Vec{X: q.Imag / s, Y: q.Jmag / s, Z: q.Kmag / s}, 2 * math.Atan2(s, q.Real)
}

// Motion holds velocities and the force accumulators for the current step.
type Motion struct {
	Linear  r3.Vec
	Angular r3.Vec
	Force   r3.Vec
	Torque  r3.Vec
}

// Rigid holds mass properties. Bodies with zero mass are static.
type Rigid struct {
	Mass       float64
	InvMass    float64
	InvInertia float64 // Scalar inverse inertia (solid sphere)
	Material   string
}

// Static reports whether the body is immovable.
func (r *Rigid) Static() bool {
	return r.InvMass == 0
}

// Shape is the collision shape of a body.
type Shape struct {
	Kind   ShapeKind
	Radius float64
}

func finiteVec(v r3.Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finiteQuat(q quat.Number) bool {
	return finite(q.Real) && finite(q.Imag) && finite(q.Jmag) && finite(q.Kmag)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
