package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var planeNormalLocal = r3.Vec{Z: 1}

// Shape returns the collision shape of a body.
func (w *World) Shape(h BodyHandle) (Shape, bool) {
	if !w.alive(h) {
		return Shape{}, false
	}
	return *w.shpMap.Get(h.entity), true
}

// resolveContacts pushes overlapping bodies apart and applies contact
// impulses. Planes are always static; sphere pairs are tested once each.
func (w *World) resolveContacts() {
	for i := range w.bodies {
		a := &w.bodies[i]
		if a.shp.Kind != ShapeSphere {
			continue
		}
		for j := range w.bodies {
			b := &w.bodies[j]
			switch {
			case b.shp.Kind == ShapePlane:
				w.spherePlane(a, b)
			case b.shp.Kind == ShapeSphere && j > i:
				w.sphereSphere(a, b)
			}
		}
	}
}

func (w *World) spherePlane(s, p *bodyRef) {
	if s.rig.Static() {
		return
	}
	n := p.xf.Rotate(planeNormalLocal)
	dist := r3.Dot(r3.Sub(s.xf.Position, p.xf.Position), n)
	pen := s.shp.Radius - dist
	if pen <= 0 {
		return
	}
	s.xf.Position = r3.Add(s.xf.Position, r3.Scale(pen, n))

	mat := w.contactMaterial(s.rig.Material, p.rig.Material)

	// Velocity of the contact point on the sphere surface
	arm := r3.Scale(-s.shp.Radius, n)
	vc := r3.Add(s.mot.Linear, r3.Cross(s.mot.Angular, arm))
	vn := r3.Dot(vc, n)
	if vn >= 0 {
		return
	}

	e := mat.Restitution
	if -vn < w.cfg.RestingSpeed {
		e = 0
	}
	jn := -(1 + e) * vn / s.rig.InvMass
	s.mot.Linear = r3.Add(s.mot.Linear, r3.Scale(jn*s.rig.InvMass, n))

	// Coulomb friction on the tangential slip, clamped to μ·jn
	vt := r3.Sub(vc, r3.Scale(vn, n))
	slip := r3.Norm(vt)
	if slip < 1e-9 || mat.Friction == 0 {
		return
	}
	t := r3.Scale(1/slip, vt)
	k := s.rig.InvMass + s.rig.InvInertia*s.shp.Radius*s.shp.Radius
	jt := math.Min(slip/k, mat.Friction*jn)
	impulse := r3.Scale(-jt, t)
	s.mot.Linear = r3.Add(s.mot.Linear, r3.Scale(s.rig.InvMass, impulse))
	s.mot.Angular = r3.Add(s.mot.Angular, r3.Scale(s.rig.InvInertia, r3.Cross(arm, impulse)))
}

func (w *World) sphereSphere(a, b *bodyRef) {
	invSum := a.rig.InvMass + b.rig.InvMass
	if invSum == 0 {
		return
	}
	d := r3.Sub(b.xf.Position, a.xf.Position)
	dist := r3.Norm(d)
	pen := a.shp.Radius + b.shp.Radius - dist
	if pen <= 0 {
		return
	}

	var n r3.Vec
	if dist > 1e-12 {
		n = r3.Scale(1/dist, d)
	} else {
		// Coincident centers, separate vertically
		n = r3.Vec{Y: 1}
	}

	// Split the correction by inverse mass so static spheres do not move
	a.xf.Position = r3.Sub(a.xf.Position, r3.Scale(pen*a.rig.InvMass/invSum, n))
	b.xf.Position = r3.Add(b.xf.Position, r3.Scale(pen*b.rig.InvMass/invSum, n))

	vn := r3.Dot(r3.Sub(a.mot.Linear, b.mot.Linear), n)
	if vn <= 0 {
		return
	}
	mat := w.contactMaterial(a.rig.Material, b.rig.Material)
	e := mat.Restitution
	if vn < w.cfg.RestingSpeed {
		e = 0
	}
	j := (1 + e) * vn / invSum
	a.mot.Linear = r3.Sub(a.mot.Linear, r3.Scale(j*a.rig.InvMass, n))
	b.mot.Linear = r3.Add(b.mot.Linear, r3.Scale(j*b.rig.InvMass, n))
}
