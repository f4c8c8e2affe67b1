package game

import (
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/physics"
)

// sphereProxy is the visual side of a sphere body. The loop writes its
// transform after every successful step; the surface reads it when drawing.
type sphereProxy struct {
	radius    float32
	color     galaxy.Color
	transform physics.Transform
	mirrored  int64 // Number of SetTransform calls
}

func newSphereProxy(radius float64, color galaxy.Color, initial physics.Transform) *sphereProxy {
	return &sphereProxy{radius: float32(radius), color: color, transform: initial}
}

// SetTransform implements simloop.Proxy.
func (p *sphereProxy) SetTransform(t physics.Transform) {
	p.transform = t
	p.mirrored++
}

func (p *sphereProxy) view() SphereView {
	return SphereView{Transform: p.transform, Radius: p.radius, Color: p.color}
}
