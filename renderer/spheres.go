package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/starfield/game"
)

// SphereRenderer draws physics spheres at their mirrored transforms.
type SphereRenderer struct {
	rings, slices int32
	wire          rl.Color
}

// NewSphereRenderer creates a new sphere renderer.
func NewSphereRenderer() *SphereRenderer {
	return &SphereRenderer{
		rings:  12,
		slices: 16,
		wire:   rl.Color{R: 40, G: 40, B: 40, A: 255},
	}
}

// Draw renders every sphere. The wireframe follows the body orientation so
// rolling is visible. Must be called inside BeginMode3D.
func (r *SphereRenderer) Draw(spheres []game.SphereView) {
	for i := range spheres {
		s := &spheres[i]
		cr, cg, cb, ca := s.Color.RGBA8()
		color := rl.Color{R: cr, G: cg, B: cb, A: ca}

		pos := vec3(s.Transform.Position)
		axis, angle := s.Transform.AxisAngle()

		rl.PushMatrix()
		rl.Translatef(pos.X, pos.Y, pos.Z)
		rl.Rotatef(float32(angle)*rl.Rad2deg, float32(axis.X), float32(axis.Y), float32(axis.Z))
		rl.DrawSphereEx(rl.Vector3{}, s.Radius, r.rings, r.slices, color)
		rl.DrawSphereWires(rl.Vector3{}, s.Radius*1.002, r.rings, r.slices, r.wire)
		rl.PopMatrix()
	}
}

func vec3(v r3.Vec) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
