// Package renderer draws a game scene with raylib.
package renderer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/starfield/camera"
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/game"
)

// Scene renders game views through an orbit camera. It implements
// game.Surface.
type Scene struct {
	Camera *camera.Camera

	background *BackgroundRenderer
	particles  *ParticleRenderer
	spheres    *SphereRenderer

	dragging bool // Left drag started outside blocked areas
}

// NewScene creates a scene for the current window. Must be called after
// the raylib window is created.
func NewScene(opts camera.Options, background galaxy.Color) *Scene {
	cam := camera.New(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()), opts)
	cam.Resize(cam.ViewportW, cam.ViewportH, rl.GetWindowScaleDPI().X)
	return &Scene{
		Camera:     cam,
		background: NewBackgroundRenderer(background),
		particles:  NewParticleRenderer(),
		spheres:    NewSphereRenderer(),
	}
}

// SetParticles implements game.Surface.
func (s *Scene) SetParticles(buf *galaxy.Buffer) {
	s.particles.Upload(buf)
}

// ReleaseParticles implements game.Surface.
func (s *Scene) ReleaseParticles(buf *galaxy.Buffer) {
	s.particles.Release(buf)
}

// UpdateParticles implements game.Surface.
func (s *Scene) UpdateParticles(buf *galaxy.Buffer) {
	s.particles.Refresh(buf)
}

// Render implements game.Surface. It must run between BeginDrawing and
// EndDrawing.
func (s *Scene) Render(v game.View) {
	s.background.Clear()

	rl.BeginMode3D(s.Camera3D())
	s.background.DrawFloor(vec3(v.Floor.Position))
	s.spheres.Draw(v.Spheres)
	s.particles.Draw(v.TiltX, v.Yaw)
	rl.EndMode3D()
}

// Camera3D returns the raylib camera for the current orbit.
func (s *Scene) Camera3D() rl.Camera3D {
	eye := s.Camera.Eye()
	return rl.Camera3D{
		Position:   rl.Vector3{X: eye[0], Y: eye[1], Z: eye[2]},
		Target:     rl.Vector3{X: s.Camera.Target[0], Y: s.Camera.Target[1], Z: s.Camera.Target[2]},
		Up:         rl.Vector3{Y: 1},
		Fovy:       s.Camera.FOV,
		Projection: rl.CameraPerspective,
	}
}

// HandleResize checks for window resize and updates the camera viewport.
func (s *Scene) HandleResize() bool {
	if !rl.IsWindowResized() {
		return false
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if !s.Camera.Resize(w, h, rl.GetWindowScaleDPI().X) {
		return false
	}
	rw, rh := s.Camera.RenderSize()
	slog.Debug("viewport resized", "width", w, "height", h, "render_width", rw, "render_height", rh)
	return true
}
