package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/starfield/galaxy"
)

// ParticleRenderer draws the galaxy as additive colored points.
type ParticleRenderer struct {
	source    *galaxy.Buffer // Buffer the vertex data was built from
	positions []rl.Vector3
	colors    []rl.Color
	size      float32
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{}
}

// Upload converts a generated buffer into vertex data. The previous data is
// replaced.
func (r *ParticleRenderer) Upload(buf *galaxy.Buffer) {
	n := buf.Len()
	if cap(r.positions) < n {
		r.positions = make([]rl.Vector3, n)
		r.colors = make([]rl.Color, n)
	}
	r.positions = r.positions[:n]
	r.colors = r.colors[:n]

	for i := 0; i < n; i++ {
		x, y, z := buf.Position(i)
		r.positions[i] = rl.Vector3{X: x, Y: y, Z: z}
		cr, cg, cb, ca := buf.Color(i).RGBA8()
		r.colors[i] = rl.Color{R: cr, G: cg, B: cb, A: ca}
	}
	r.source = buf
	r.size = buf.Size
}

// Refresh copies positions from buf again, keeping colors. Ignored unless
// buf is the uploaded buffer.
func (r *ParticleRenderer) Refresh(buf *galaxy.Buffer) {
	if buf == nil || buf != r.source || buf.Len() != len(r.positions) {
		return
	}
	for i := range r.positions {
		x, y, z := buf.Position(i)
		r.positions[i] = rl.Vector3{X: x, Y: y, Z: z}
	}
}

// Release drops the vertex data if it was built from buf. Releasing a
// buffer that has already been replaced is a no-op.
func (r *ParticleRenderer) Release(buf *galaxy.Buffer) {
	if buf == nil || buf != r.source {
		return
	}
	r.source = nil
	r.positions = r.positions[:0]
	r.colors = r.colors[:0]
}

// Draw renders all particles rotated tiltX about X then yaw about Y.
// Must be called inside BeginMode3D.
func (r *ParticleRenderer) Draw(tiltX, yaw float32) {
	if len(r.positions) == 0 {
		return
	}

	rl.PushMatrix()
	rl.Rotatef(tiltX*rl.Rad2deg, 1, 0, 0)
	rl.Rotatef(yaw*rl.Rad2deg, 0, 1, 0)

	// Additive points don't occlude each other
	rl.DisableDepthMask()
	rl.BeginBlendMode(rl.BlendAdditive)

	size := rl.Vector3{X: r.size, Y: r.size, Z: r.size}
	for i := range r.positions {
		rl.DrawCubeV(r.positions[i], size, r.colors[i])
	}

	rl.EndBlendMode()
	rl.EnableDepthMask()
	rl.PopMatrix()
}
